// Package listener publishes statuses coming out of a stream runner.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/linkmeAman/twitter-to-kafka/internal/runner"
	"github.com/linkmeAman/twitter-to-kafka/internal/twitter"
	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
	"github.com/linkmeAman/twitter-to-kafka/pkg/metrics"
)

// Publisher is the part of the Kafka producer the listener needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, value []byte) error
}

// KafkaStatusListener sends each status to a Kafka topic keyed by the
// author id.
type KafkaStatusListener struct {
	publisher Publisher
	topic     string
	log       *logger.Logger
	metrics   *metrics.Metrics
}

var _ runner.StatusListener = (*KafkaStatusListener)(nil)

func NewKafkaStatusListener(pub Publisher, topic string, log *logger.Logger, m *metrics.Metrics) *KafkaStatusListener {
	return &KafkaStatusListener{
		publisher: pub,
		topic:     topic,
		log:       log,
		metrics:   m,
	}
}

// OnStatus converts the status and publishes it.
func (l *KafkaStatusListener) OnStatus(ctx context.Context, status *twitter.Status) error {
	l.log.Info("Received status text, sending to kafka topic",
		zap.String("text", status.Text),
		zap.String("topic", l.topic),
	)

	model, err := ToModel(status)
	if err != nil {
		return err
	}

	value, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode status %d: %w", status.ID, err)
	}

	start := time.Now()
	err = l.publisher.Publish(ctx, l.topic, strconv.FormatInt(model.UserID, 10), value)
	l.metrics.ObservePublish(l.topic, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to send status %d to %s: %w", status.ID, l.topic, err)
	}
	return nil
}
