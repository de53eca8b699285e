// Package admin creates the Kafka topics the service writes to.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
)

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

func (s TopicSpec) config() kafka.TopicConfig {
	return kafka.TopicConfig{
		Topic:             s.Name,
		NumPartitions:     s.NumPartitions,
		ReplicationFactor: s.ReplicationFactor,
	}
}

// TopicCreator talks to the cluster controller to create topics.
type TopicCreator struct {
	brokers []string
	log     *logger.Logger
}

func NewTopicCreator(brokers []string, log *logger.Logger) *TopicCreator {
	return &TopicCreator{brokers: brokers, log: log}
}

// EnsureTopics creates every topic that does not exist yet. Topics that
// already exist are left untouched.
func (c *TopicCreator) EnsureTopics(ctx context.Context, specs ...TopicSpec) error {
	if len(specs) == 0 {
		return nil
	}

	conn, err := c.dialController(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, spec := range specs {
		err := conn.CreateTopics(spec.config())
		switch {
		case err == nil:
			c.log.Info("Created kafka topic",
				zap.String("topic", spec.Name),
				zap.Int("partitions", spec.NumPartitions),
				zap.Int("replication_factor", spec.ReplicationFactor),
			)
		case errors.Is(err, kafka.TopicAlreadyExists):
			c.log.Debug("Kafka topic already exists", zap.String("topic", spec.Name))
		default:
			return fmt.Errorf("failed to create topic %s: %w", spec.Name, err)
		}
	}
	return nil
}

// dialController connects to the first reachable broker and then to the
// controller it reports.
func (c *TopicCreator) dialController(ctx context.Context) (*kafka.Conn, error) {
	var errs []error
	for _, broker := range c.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		controller, err := conn.Controller()
		conn.Close()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
		cconn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return cconn, nil
	}
	return nil, fmt.Errorf("no reachable kafka controller: %w", errors.Join(errs...))
}
