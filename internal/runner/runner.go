// Package runner produces twitter statuses and feeds them to a listener.
package runner

import (
	"context"

	"github.com/linkmeAman/twitter-to-kafka/internal/twitter"
)

// StreamRunner is a source of statuses. Start returns once the stream is
// running in the background; Stop ends it and waits for it to exit.
type StreamRunner interface {
	Start(ctx context.Context) error
	Stop()
	Check() error
}

// StatusListener receives every status a runner produces. OnStatus is
// called synchronously from the runner goroutine, so a slow listener slows
// the stream down.
type StatusListener interface {
	OnStatus(ctx context.Context, status *twitter.Status) error
}

// ListenerFunc adapts a function to StatusListener.
type ListenerFunc func(ctx context.Context, status *twitter.Status) error

// OnStatus calls f(ctx, status).
func (f ListenerFunc) OnStatus(ctx context.Context, status *twitter.Status) error {
	return f(ctx, status)
}

// State is the lifecycle state of a runner.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)
