package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
	"github.com/linkmeAman/twitter-to-kafka/pkg/metrics"
)

// Config holds the mock stream parameters. They are fixed for the
// lifetime of a runner.
type Config struct {
	Keywords  []string
	MinLength int
	MaxLength int
	Delay     time.Duration
	Seed      uint64
	Restart   RestartPolicy
}

// RestartPolicy controls what happens after the stream fails on a
// malformed status. MaxAttempts of 0 means no limit.
type RestartPolicy struct {
	Enabled         bool
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// MockStreamRunner emits generated statuses to a listener from a single
// background goroutine, pausing Delay between two statuses.
type MockStreamRunner struct {
	cfg       Config
	listener  StatusListener
	generator *Generator
	log       *logger.Logger
	metrics   *metrics.Metrics

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelCauseFunc
	done   chan struct{}
}

var _ StreamRunner = (*MockStreamRunner)(nil)

// NewMockStreamRunner validates cfg and builds an idle runner.
func NewMockStreamRunner(cfg Config, listener StatusListener, log *logger.Logger, m *metrics.Metrics, opts ...GeneratorOption) (*MockStreamRunner, error) {
	if listener == nil {
		return nil, errors.New("status listener is required")
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDelay, cfg.Delay)
	}

	gen, err := NewGenerator(cfg.Keywords, cfg.MinLength, cfg.MaxLength, cfg.Seed, opts...)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New("twitter_to_kafka")
	}

	return &MockStreamRunner{
		cfg:       cfg,
		listener:  listener,
		generator: gen,
		log:       log,
		metrics:   m,
		state:     StateIdle,
	}, nil
}

// Start launches the stream goroutine and returns immediately. Cancelling
// ctx interrupts the stream, which then ends in StateFailed with
// ErrInterruptedDelay. Use Stop for a clean shutdown.
func (r *MockStreamRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRunning {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.state = StateRunning
	r.err = nil

	log := r.log.WithRunID(uuid.NewString())
	log.Info("Starting mock twitter stream",
		zap.Strings("keywords", r.cfg.Keywords),
		zap.Int("min_length", r.cfg.MinLength),
		zap.Int("max_length", r.cfg.MaxLength),
		zap.Duration("delay", r.cfg.Delay),
		zap.Bool("restart", r.cfg.Restart.Enabled),
	)

	go r.run(ctx, cancel, done, log)
	return nil
}

// Stop ends the stream and waits for its goroutine to exit. It must not be
// called from inside the listener.
func (r *MockStreamRunner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel(errStopped)
	<-done
}

// State reports the current lifecycle state.
func (r *MockStreamRunner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error that ended the last run, if any.
func (r *MockStreamRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done is closed when the current run has ended for good. It is nil
// before the first Start.
func (r *MockStreamRunner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Check returns nil while the stream is running.
func (r *MockStreamRunner) Check() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRunning:
		return nil
	case StateFailed:
		return fmt.Errorf("mock stream failed: %w", r.err)
	default:
		return fmt.Errorf("mock stream %s", r.state)
	}
}

func (r *MockStreamRunner) run(ctx context.Context, cancel context.CancelCauseFunc, done chan struct{}, log *logger.Logger) {
	defer close(done)
	defer cancel(nil)

	policy := r.cfg.Restart
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	b.Reset()

	for attempt := 1; ; attempt++ {
		r.metrics.RunnerUp.Set(1)
		err := r.stream(ctx, log)
		r.metrics.RunnerUp.Set(0)

		if errors.Is(err, errStopped) {
			log.Info("Mock twitter stream stopped")
			r.finish(StateStopped, nil)
			return
		}

		// Only malformed records are restarted.
		if !policy.Enabled || errors.Is(err, ErrInterruptedDelay) ||
			(policy.MaxAttempts > 0 && attempt > policy.MaxAttempts) {
			r.finish(StateFailed, err)
			return
		}

		wait := b.NextBackOff()
		log.Warn("Restarting mock twitter stream",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		r.metrics.RunnerRestarts.Inc()

		if !sleep(ctx, wait) {
			if errors.Is(context.Cause(ctx), errStopped) {
				log.Info("Mock twitter stream stopped")
				r.finish(StateStopped, nil)
				return
			}
			err = fmt.Errorf("%w: %w", ErrInterruptedDelay, context.Cause(ctx))
			log.Error("Mock twitter stream interrupted during restart backoff", zap.Error(err))
			r.metrics.RunnerFailures.WithLabelValues(metrics.ReasonInterruptedDelay).Inc()
			r.finish(StateFailed, err)
			return
		}
	}
}

// stream emits statuses until a terminal error. The returned error has
// already been logged.
func (r *MockStreamRunner) stream(ctx context.Context, log *logger.Logger) error {
	for {
		status := r.generator.Status()
		if err := status.Validate(); err != nil {
			err = fmt.Errorf("%w: %w", ErrMalformedRecord, err)
			log.Error("Error creating mock twitter status", zap.Error(err))
			r.metrics.RunnerFailures.WithLabelValues(metrics.ReasonMalformedRecord).Inc()
			return err
		}

		r.metrics.StatusesGenerated.Inc()
		if err := r.listener.OnStatus(ctx, &status); err != nil {
			r.metrics.ListenerErrors.Inc()
			log.Warn("Listener failed to handle mock status",
				zap.Int64("status_id", status.ID),
				zap.Error(err),
			)
		} else {
			log.Debug("Mock status emitted",
				zap.Int64("status_id", status.ID),
				zap.String("text", status.Text),
			)
		}

		if !sleep(ctx, r.cfg.Delay) {
			cause := context.Cause(ctx)
			if errors.Is(cause, errStopped) {
				return errStopped
			}
			err := fmt.Errorf("%w: %w", ErrInterruptedDelay, cause)
			log.Error("Error while sleeping in mock twitter stream", zap.Error(err))
			r.metrics.RunnerFailures.WithLabelValues(metrics.ReasonInterruptedDelay).Inc()
			return err
		}
	}
}

func (r *MockStreamRunner) finish(state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.err = err
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
