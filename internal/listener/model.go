package listener

import (
	"fmt"

	"github.com/linkmeAman/twitter-to-kafka/internal/twitter"
)

// TwitterModel is the JSON Kafka payload for one status.
type TwitterModel struct {
	UserID    int64  `json:"userId"`
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"` // unix millis
}

// ToModel converts a status into its Kafka payload.
func ToModel(status *twitter.Status) (TwitterModel, error) {
	created, err := status.CreatedTime()
	if err != nil {
		return TwitterModel{}, fmt.Errorf("convert status %d: %w", status.ID, err)
	}
	return TwitterModel{
		UserID:    status.User.ID,
		ID:        status.ID,
		Text:      status.Text,
		CreatedAt: created.UnixMilli(),
	}, nil
}
