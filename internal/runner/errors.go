package runner

import "errors"

var (
	// ErrInterruptedDelay ends the stream when its context is cancelled
	// while it waits between two statuses.
	ErrInterruptedDelay = errors.New("interrupted while sleeping between statuses")

	// ErrMalformedRecord ends the stream when a generated status fails
	// validation.
	ErrMalformedRecord = errors.New("malformed mock status")

	ErrNoKeywords     = errors.New("at least one keyword is required")
	ErrBlankKeyword   = errors.New("keywords must not be blank")
	ErrInvalidLength  = errors.New("invalid tweet length range")
	ErrInvalidDelay   = errors.New("delay must not be negative")
	ErrAlreadyRunning = errors.New("stream runner already running")

	// errStopped is the cancel cause used by Stop.
	errStopped = errors.New("stream runner stopped")
)
