package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/platinummonkey/idgate/pkg/observability"
)

// logger is the destination for background task failures. Replace it once
// at startup via SetLogger; the default writes JSON to stderr.
var logger atomic.Pointer[observability.Logger]

// SetLogger routes background task diagnostics to log.
func SetLogger(log *observability.Logger) {
	logger.Store(log)
}

func taskLogger() *observability.Logger {
	if log := logger.Load(); log != nil {
		return log
	}
	return observability.DefaultLogger()
}

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
//
// Example:
//
//	SafeGo(r.Context(), 5*time.Second, "login audit log", func(ctx context.Context) error {
//	    return recorder.Record(ctx, event)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	// Detach from the request's cancellation but keep its values; the task
	// must survive the response being written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				taskLogger().WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			taskLogger().WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
// Still provides panic recovery and timeout enforcement.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
