package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linkmeAman/twitter-to-kafka/internal/api"
	"github.com/linkmeAman/twitter-to-kafka/internal/api/handlers"
	"github.com/linkmeAman/twitter-to-kafka/internal/events/publisher"
	"github.com/linkmeAman/twitter-to-kafka/internal/kafka/admin"
	"github.com/linkmeAman/twitter-to-kafka/internal/listener"
	"github.com/linkmeAman/twitter-to-kafka/internal/runner"
	"github.com/linkmeAman/twitter-to-kafka/pkg/config"
	"github.com/linkmeAman/twitter-to-kafka/pkg/env"
	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
	"github.com/linkmeAman/twitter-to-kafka/pkg/metrics"
)

const serviceName = "twitter-to-kafka"

func main() {
	if _, err := env.LoadDotEnv(); err != nil {
		fmt.Printf("Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(serviceName, cfg.Log.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("Service failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

func run(cfg *config.Config, log *logger.Logger) error {
	version := env.GetEnvWithDefault("SERVICE_VERSION", "dev")
	environment := env.GetEnvWithDefault("ENVIRONMENT", "local")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := config.SetupTracing(cfg.Observability.Tracing, version, environment, log)
	if err != nil {
		return err
	}

	m := metrics.New("twitter_to_kafka")

	if cfg.Kafka.CreateTopics {
		adminCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := admin.NewTopicCreator(cfg.Kafka.Brokers, log).EnsureTopics(adminCtx, admin.TopicSpec{
			Name:              cfg.Kafka.Topic,
			NumPartitions:     cfg.Kafka.NumPartitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create kafka topics: %w", err)
		}
	}

	acks, err := publisher.ParseRequiredAcks(cfg.Kafka.Producer.RequiredAcks)
	if err != nil {
		return err
	}
	compression, err := publisher.ParseCompression(cfg.Kafka.Producer.Compression)
	if err != nil {
		return err
	}

	producer, err := publisher.NewProducer(publisher.ProducerConfig{
		Brokers:           cfg.Kafka.Brokers,
		RequiredAcks:      acks,
		Compression:       compression,
		MaxRetries:        cfg.Kafka.Producer.MaxRetries,
		RetryBackoff:      cfg.Kafka.Producer.RetryBackoff,
		ConnectionTimeout: cfg.Kafka.Producer.ConnectionTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	if !cfg.TwitterToKafka.EnableMockTweets {
		return errors.New("no live stream is available, set twitter_to_kafka.enable_mock_tweets")
	}

	tc := cfg.TwitterToKafka
	streamRunner, err := runner.NewMockStreamRunner(runner.Config{
		Keywords:  tc.Keywords,
		MinLength: tc.MockMinTweetLength,
		MaxLength: tc.MockMaxTweetLength,
		Delay:     tc.MockSleep(),
		Seed:      tc.Seed,
		Restart: runner.RestartPolicy{
			Enabled:         tc.Restart.Enabled,
			MaxAttempts:     tc.Restart.MaxAttempts,
			InitialInterval: tc.Restart.InitialInterval,
			MaxInterval:     tc.Restart.MaxInterval,
		},
	}, listener.NewKafkaStatusListener(producer, cfg.Kafka.Topic, log, m), log, m)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(api.RouterConfig{
			Version:        version,
			MetricsPath:    cfg.Observability.MetricsPath,
			MetricsHandler: m.Handler(),
			Checks: map[string]handlers.Check{
				"mock_stream": streamRunner.Check,
			},
		}, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The runner gets its own context: shutdown goes through Stop so it is
	// not reported as an interrupted stream.
	if err := streamRunner.Start(context.Background()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		streamRunner.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
		if tracer != nil {
			if err := tracer.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shutdown tracer", zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}
