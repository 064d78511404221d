package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/clientpulse/internal/model"
	"github.com/crimson-sun/clientpulse/internal/output"
)

const (
	defaultBufferSize   = 16
	defaultDrainTimeout = 30 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 16.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the report) when the
// buffer is full, instead of blocking. In watch mode a newer report supersedes
// an older one, so losing an intermediate report is acceptable.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for queued reports. Default: 30s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async decouples report production from slow sinks via a buffered channel.
// A background goroutine drains it to the wrapped output. Errors from the
// inner output are passed to errFunc rather than propagated to the caller.
type Async struct {
	inner        output.Output
	ch           chan model.Report
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration
	closeOnce    sync.Once
}

// New wraps an output.Output in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Report, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write sends the report into the channel. By default, blocks if the channel
// is full (backpressure) until ctx is done. With WithDropOnFull, returns nil
// immediately and the report is lost.
func (a *Async) Write(ctx context.Context, report model.Report) error {
	if a.dropOnFull {
		select {
		case a.ch <- report:
		default:
			slog.Warn("async output buffer full, dropping report",
				"run_id", report.RunID, "dataset_id", report.DatasetID)
		}
		return nil
	}
	select {
	case a.ch <- report:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

// drain reads reports from the channel and writes them to the inner output.
func (a *Async) drain() {
	defer close(a.done)
	for report := range a.ch {
		if err := a.inner.Write(context.Background(), report); err != nil {
			a.errFunc(err)
		}
	}
}
