package async

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/idgate/pkg/observability"
)

func init() {
	SetLogger(observability.NewLogger(observability.ErrorLevel, io.Discard))
}

func TestSafeGo_Success(t *testing.T) {
	ctx := context.Background()
	executed := atomic.Bool{}

	SafeGo(ctx, 1*time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	if !executed.Load() {
		t.Error("SafeGo did not execute function")
	}
}

func TestSafeGo_WithError(t *testing.T) {
	ctx := context.Background()
	executed := atomic.Bool{}

	SafeGo(ctx, 1*time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return errors.New("test error")
	})

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	if !executed.Load() {
		t.Error("SafeGo did not execute function despite error")
	}
	// Error should be logged but not crash
}

func TestSafeGo_Timeout(t *testing.T) {
	ctx := context.Background()
	started := atomic.Bool{}
	completed := atomic.Bool{}

	SafeGo(ctx, 50*time.Millisecond, "test task", func(ctx context.Context) error {
		started.Store(true)
		select {
		case <-time.After(200 * time.Millisecond):
			completed.Store(true)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	time.Sleep(300 * time.Millisecond)

	if !started.Load() {
		t.Error("SafeGo did not start function")
	}
	if completed.Load() {
		t.Error("SafeGo did not enforce timeout")
	}
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	ctx := context.Background()
	executed := atomic.Bool{}

	SafeGo(ctx, 1*time.Second, "panicking task", func(ctx context.Context) error {
		executed.Store(true)
		panic("boom")
	})

	time.Sleep(100 * time.Millisecond)

	if !executed.Load() {
		t.Error("SafeGo did not execute function")
	}
	// Reaching here means the panic was recovered instead of crashing the
	// test binary.
}

func TestSafeGo_SurvivesParentCancellation(t *testing.T) {
	parentCtx, cancel := context.WithCancel(context.Background())
	cancel()

	completed := atomic.Bool{}
	SafeGo(parentCtx, 1*time.Second, "detached task", func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		completed.Store(true)
		return nil
	})

	time.Sleep(100 * time.Millisecond)

	if !completed.Load() {
		t.Error("task should run even after the parent context is cancelled")
	}
}

func TestSafeGoNoError(t *testing.T) {
	ctx := context.Background()
	executed := atomic.Bool{}

	SafeGoNoError(ctx, 1*time.Second, "test task", func(ctx context.Context) {
		executed.Store(true)
	})

	time.Sleep(100 * time.Millisecond)

	if !executed.Load() {
		t.Error("SafeGoNoError did not execute function")
	}
}
