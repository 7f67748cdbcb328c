package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func waitTicks(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for n.Load() < want {
		select {
		case <-deadline:
			t.Fatalf("only %d of %d ticks ran", n.Load(), want)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRecurring_Ticks(t *testing.T) {
	var n atomic.Int32
	r := New("count", 5*time.Millisecond, func(context.Context) error {
		n.Add(1)
		return nil
	}, nil)

	require.NoError(t, r.Start(context.Background()))
	waitTicks(t, &n, 3)
	r.Stop()

	stopped := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, n.Load(), "no ticks after Stop")
}

func TestRecurring_ReschedulesAfterErrorAndPanic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	var n atomic.Int32
	r := New("flaky", 5*time.Millisecond, func(context.Context) error {
		switch n.Add(1) {
		case 1:
			return errors.New("read failed")
		case 2:
			panic("decoder exploded")
		}
		return nil
	}, zap.New(core))

	require.NoError(t, r.Start(context.Background()))
	waitTicks(t, &n, 4)
	r.Stop()

	assert.Equal(t, 1, logs.FilterMessage("Task tick failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Task tick panicked").Len())
	for _, e := range logs.All() {
		assert.Equal(t, "flaky", e.ContextMap()["task"])
	}
}

func TestRecurring_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New("idle", time.Millisecond, func(context.Context) error { return nil }, nil)
	require.NoError(t, r.Start(ctx))

	cancel()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not exit after context cancellation")
	}

	// Stop after exit must not block
	r.Stop()
}

func TestRecurring_StartErrors(t *testing.T) {
	r := New("bad", 0, func(context.Context) error { return nil }, nil)
	assert.Error(t, r.Start(context.Background()))

	r = New("twice", time.Millisecond, func(context.Context) error { return nil }, nil)
	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()))
	r.Stop()
}

func TestRecurring_StopWithoutStart(t *testing.T) {
	r := New("never", time.Millisecond, func(context.Context) error { return nil }, nil)
	r.Stop()
}
