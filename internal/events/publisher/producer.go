package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers           []string
	RequiredAcks      sarama.RequiredAcks
	Compression       sarama.CompressionCodec
	MaxRetries        int
	RetryBackoff      time.Duration
	ConnectionTimeout time.Duration
}

// Producer publishes messages to Kafka through a sarama SyncProducer.
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	tracer   trace.Tracer
}

// NewProducer creates a new Kafka producer instance
func NewProducer(cfg ProducerConfig, log *logger.Logger) (*Producer, error) {
	config := sarama.NewConfig()

	config.Producer.RequiredAcks = cfg.RequiredAcks
	config.Producer.Compression = cfg.Compression
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Retry.Backoff = cfg.RetryBackoff
	config.Producer.Return.Successes = true

	if cfg.ConnectionTimeout > 0 {
		config.Net.DialTimeout = cfg.ConnectionTimeout
		config.Net.ReadTimeout = cfg.ConnectionTimeout
		config.Net.WriteTimeout = cfg.ConnectionTimeout
	}

	// Idempotence needs acks=all and a single in-flight request.
	if cfg.RequiredAcks == sarama.WaitForAll {
		config.Producer.Idempotent = true
		config.Net.MaxOpenRequests = 1
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewProducerWithClient(producer, log), nil
}

// NewProducerWithClient wraps an existing SyncProducer.
func NewProducerWithClient(producer sarama.SyncProducer, log *logger.Logger) *Producer {
	return &Producer{
		producer: producer,
		log:      log,
		tracer:   otel.GetTracerProvider().Tracer("kafka-producer"),
	}
}

// Publish sends a message to a Kafka topic
func (p *Producer) Publish(ctx context.Context, topic string, key string, value []byte) error {
	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("messaging.message_id", key),
			attribute.Int("messaging.message_payload_size_bytes", len(value)),
		),
	)
	defer span.End()

	headers := make([]sarama.RecordHeader, 0, 1)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("trace_id"),
			Value: []byte(sc.TraceID().String()),
		})
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(value),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("Failed to publish message",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("messaging.kafka.partition", int64(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)

	p.log.Debug("Message published successfully",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		p.log.Error("Failed to close Kafka producer", zap.Error(err))
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// ParseRequiredAcks maps the config names none, leader and all.
func ParseRequiredAcks(s string) (sarama.RequiredAcks, error) {
	switch s {
	case "none":
		return sarama.NoResponse, nil
	case "leader":
		return sarama.WaitForLocal, nil
	case "all", "":
		return sarama.WaitForAll, nil
	default:
		return 0, fmt.Errorf("unknown required acks %q", s)
	}
}

// ParseCompression maps a codec name to its sarama codec.
func ParseCompression(s string) (sarama.CompressionCodec, error) {
	if s == "" {
		return sarama.CompressionNone, nil
	}
	var codec sarama.CompressionCodec
	if err := codec.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown compression %q: %w", s, err)
	}
	return codec, nil
}
