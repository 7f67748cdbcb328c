// Package schedule runs fixed-interval recurring tasks.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc is one iteration of a recurring task. A returned error is logged
// and the task keeps running.
type TickFunc func(ctx context.Context) error

// Recurring calls a TickFunc at a fixed interval until stopped.
// A tick that errors or panics never stops the schedule.
type Recurring struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a stopped recurring task.
func New(name string, interval time.Duration, tick TickFunc, logger *zap.Logger) *Recurring {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recurring{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger.With(zap.String("task", name)),
		done:     make(chan struct{}),
	}
}

// Start launches the task. It runs until ctx is cancelled or Stop is called.
// A Recurring can be started once.
func (r *Recurring) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive, got %v", r.name, r.interval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("task %s already started", r.name)
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
	return nil
}

// Stop cancels the task and waits for the running tick to finish.
// Stop on a task that was never started returns immediately.
func (r *Recurring) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-r.done
}

// Done is closed when the task has exited.
func (r *Recurring) Done() <-chan struct{} {
	return r.done
}

func (r *Recurring) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("Task started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Task stopped")
			return
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

func (r *Recurring) runTick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Task tick panicked", zap.Any("panic", p), zap.Stack("stacktrace"))
		}
	}()

	if err := r.tick(ctx); err != nil && ctx.Err() == nil {
		r.logger.Debug("Task tick failed", zap.Error(err))
	}
}
