package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/linkmeAman/twitter-to-kafka/internal/twitter"
	"github.com/linkmeAman/twitter-to-kafka/pkg/logger"
	"github.com/linkmeAman/twitter-to-kafka/pkg/metrics"
)

const waitTimeout = 5 * time.Second

func newObservedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

// recorder collects every status it receives and signals each arrival.
type recorder struct {
	mu       sync.Mutex
	statuses []twitter.Status
	times    []time.Time
	received chan struct{}
	err      error
}

func newRecorder() *recorder {
	return &recorder{received: make(chan struct{}, 1024)}
}

func (r *recorder) OnStatus(_ context.Context, s *twitter.Status) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, *s)
	r.times = append(r.times, time.Now())
	err := r.err
	r.mu.Unlock()

	select {
	case r.received <- struct{}{}:
	default:
	}
	return err
}

func (r *recorder) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for i := 0; i < n; i++ {
		select {
		case <-r.received:
		case <-deadline:
			t.Fatalf("received %d statuses, want %d", i, n)
		}
	}
}

func (r *recorder) snapshot() ([]twitter.Status, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]twitter.Status(nil), r.statuses...), append([]time.Time(nil), r.times...)
}

func waitDone(t *testing.T, r *MockStreamRunner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(waitTimeout):
		t.Fatal("runner did not stop")
	}
}

func TestNewMockStreamRunnerValidation(t *testing.T) {
	rec := newRecorder()

	_, err := NewMockStreamRunner(Config{MinLength: 1, MaxLength: 1}, rec, nil, nil)
	assert.ErrorIs(t, err, ErrNoKeywords)

	_, err = NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 3, MaxLength: 1}, rec, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = NewMockStreamRunner(Config{Keywords: []string{"kafka"}, Delay: -time.Second}, rec, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDelay)

	_, err = NewMockStreamRunner(Config{Keywords: []string{""}}, rec, nil, nil)
	assert.ErrorIs(t, err, ErrBlankKeyword)

	_, err = NewMockStreamRunner(Config{Keywords: []string{"kafka"}}, nil, nil, nil)
	assert.Error(t, err)
}

func TestMockStreamRunnerEmitsKeywordStatuses(t *testing.T) {
	log, logs := newObservedLogger()
	m := metrics.New("test")
	rec := newRecorder()

	r, err := NewMockStreamRunner(Config{
		Keywords:  []string{"kafka"},
		MinLength: 1,
		MaxLength: 1,
		Delay:     0,
	}, rec, log, m)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, r.State())

	require.NoError(t, r.Start(context.Background()))
	rec.waitFor(t, 3)

	assert.Equal(t, StateRunning, r.State())
	assert.NoError(t, r.Check())

	r.Stop()
	assert.Equal(t, StateStopped, r.State())
	assert.NoError(t, r.Err())

	statuses, _ := rec.snapshot()
	require.GreaterOrEqual(t, len(statuses), 3)
	for _, s := range statuses {
		assert.Contains(t, s.Text, "kafka")
		assert.NoError(t, s.Validate())
	}

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StatusesGenerated), 3.0)
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("Mock twitter stream stopped").Len())
}

func TestMockStreamRunnerStartReturnsImmediately(t *testing.T) {
	block := make(chan struct{})
	listener := ListenerFunc(func(ctx context.Context, _ *twitter.Status) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})

	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 1, MaxLength: 2}, listener, nil, metrics.New("test"))
	require.NoError(t, err)

	started := make(chan error, 1)
	go func() { started <- r.Start(context.Background()) }()

	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Start blocked on the listener")
	}

	close(block)
	r.Stop()
}

func TestMockStreamRunnerSpacesStatusesByDelay(t *testing.T) {
	const delay = 20 * time.Millisecond
	rec := newRecorder()

	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 1, MaxLength: 3, Delay: delay}, rec, nil, metrics.New("test"))
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	rec.waitFor(t, 4)
	r.Stop()

	_, times := rec.snapshot()
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), delay)
	}
}

func TestMockStreamRunnerInterruptedDelay(t *testing.T) {
	log, logs := newObservedLogger()
	m := metrics.New("test")
	rec := newRecorder()

	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 1, MaxLength: 1, Delay: time.Hour}, rec, log, m)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	rec.waitFor(t, 1)

	cancel()
	waitDone(t, r)

	assert.Equal(t, StateFailed, r.State())
	assert.ErrorIs(t, r.Err(), ErrInterruptedDelay)
	assert.ErrorIs(t, r.Err(), context.Canceled)
	assert.ErrorIs(t, r.Check(), ErrInterruptedDelay)

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel)
	require.Equal(t, 1, errorLogs.Len())
	assert.Equal(t, "Error while sleeping in mock twitter stream", errorLogs.All()[0].Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunnerFailures.WithLabelValues(metrics.ReasonInterruptedDelay)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunnerUp))

	// No more statuses after the loop ended.
	statuses, _ := rec.snapshot()
	assert.Len(t, statuses, 1)
}

// badYear renders a created_at that does not parse back.
func badYear() time.Time {
	return time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestMockStreamRunnerMalformedRecordStopsLoop(t *testing.T) {
	log, logs := newObservedLogger()
	m := metrics.New("test")
	rec := newRecorder()

	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 1, MaxLength: 1}, rec, log, m, WithClock(badYear))
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	waitDone(t, r)

	assert.Equal(t, StateFailed, r.State())
	assert.ErrorIs(t, r.Err(), ErrMalformedRecord)
	assert.ErrorIs(t, r.Err(), twitter.ErrInvalidStatus)

	statuses, _ := rec.snapshot()
	assert.Empty(t, statuses)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunnerFailures.WithLabelValues(metrics.ReasonMalformedRecord)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunnerRestarts))
}

func TestMockStreamRunnerRestartGivesUp(t *testing.T) {
	log, logs := newObservedLogger()
	m := metrics.New("test")

	r, err := NewMockStreamRunner(Config{
		Keywords:  []string{"kafka"},
		MinLength: 1,
		MaxLength: 1,
		Restart: RestartPolicy{
			Enabled:         true,
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
		},
	}, newRecorder(), log, m, WithClock(badYear))
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	waitDone(t, r)

	assert.Equal(t, StateFailed, r.State())
	assert.ErrorIs(t, r.Err(), ErrMalformedRecord)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunnerRestarts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RunnerFailures.WithLabelValues(metrics.ReasonMalformedRecord)))
	assert.Equal(t, 2, logs.FilterMessage("Restarting mock twitter stream").Len())
}

func TestMockStreamRunnerInterruptedDuringRestartBackoff(t *testing.T) {
	log, logs := newObservedLogger()
	m := metrics.New("test")

	r, err := NewMockStreamRunner(Config{
		Keywords:  []string{"kafka"},
		MinLength: 1,
		MaxLength: 1,
		Restart: RestartPolicy{
			Enabled:         true,
			InitialInterval: time.Hour,
			MaxInterval:     time.Hour,
		},
	}, newRecorder(), log, m, WithClock(badYear))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.RunnerRestarts) == 1
	}, waitTimeout, 5*time.Millisecond)

	cancel()
	waitDone(t, r)

	assert.Equal(t, StateFailed, r.State())
	assert.ErrorIs(t, r.Err(), ErrInterruptedDelay)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunnerFailures.WithLabelValues(metrics.ReasonInterruptedDelay)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunnerFailures.WithLabelValues(metrics.ReasonMalformedRecord)))
	assert.Equal(t, 1, logs.FilterMessage("Mock twitter stream interrupted during restart backoff").Len())
}

func TestMockStreamRunnerRestartRecovers(t *testing.T) {
	m := metrics.New("test")
	rec := newRecorder()

	var calls atomic.Int32
	clock := func() time.Time {
		if calls.Add(1) == 1 {
			return badYear()
		}
		return time.Now()
	}

	r, err := NewMockStreamRunner(Config{
		Keywords:  []string{"kafka"},
		MinLength: 1,
		MaxLength: 1,
		Restart: RestartPolicy{
			Enabled:         true,
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	}, rec, nil, m, WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	rec.waitFor(t, 2)

	assert.Equal(t, StateRunning, r.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunnerRestarts))

	r.Stop()
	assert.Equal(t, StateStopped, r.State())
}

func TestMockStreamRunnerListenerErrorKeepsRunning(t *testing.T) {
	log, logs := newObservedLogger()
	m := metrics.New("test")
	rec := newRecorder()
	rec.err = errors.New("publish failed")

	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 1, MaxLength: 1}, rec, log, m)
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	rec.waitFor(t, 3)
	assert.Equal(t, StateRunning, r.State())
	r.Stop()

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ListenerErrors), 3.0)
	assert.GreaterOrEqual(t, logs.FilterMessage("Listener failed to handle mock status").Len(), 3)
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestMockStreamRunnerStartTwice(t *testing.T) {
	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}, MinLength: 1, MaxLength: 1, Delay: time.Hour}, newRecorder(), nil, metrics.New("test"))
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRunning)

	r.Stop()
	assert.Equal(t, StateStopped, r.State())

	// A stopped runner can be started again.
	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, StateRunning, r.State())
	r.Stop()
}

func TestMockStreamRunnerStopBeforeStart(t *testing.T) {
	r, err := NewMockStreamRunner(Config{Keywords: []string{"kafka"}}, newRecorder(), nil, metrics.New("test"))
	require.NoError(t, err)

	r.Stop()
	assert.Equal(t, StateIdle, r.State())
	assert.Error(t, r.Check())
}
