// Package twitter holds the status record shape shared by stream runners and
// listeners.
package twitter

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CreatedAtLayout is the created_at format of Twitter v1.1 statuses,
// e.g. "Wed Oct 19 14:03:52 UTC 2026".
const CreatedAtLayout = "Mon Jan 02 15:04:05 MST 2006"

// ErrInvalidStatus is returned by Validate for any malformed status.
var ErrInvalidStatus = errors.New("invalid status")

var validate = validator.New()

// Status is a single tweet as delivered by a stream.
type Status struct {
	CreatedAt string `json:"created_at" validate:"required"`
	ID        int64  `json:"id" validate:"gte=0"`
	Text      string `json:"text" validate:"required"`
	User      User   `json:"user"`
}

// User is the author of a status.
type User struct {
	ID int64 `json:"id" validate:"gte=0"`
}

// Validate checks that all four fields are present and well formed.
func (s *Status) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}
	if _, err := s.CreatedTime(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}
	return nil
}

// CreatedTime parses CreatedAt.
func (s *Status) CreatedTime() (time.Time, error) {
	t, err := time.Parse(CreatedAtLayout, s.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("created_at %q: %w", s.CreatedAt, err)
	}
	return t, nil
}
