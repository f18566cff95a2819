package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/logema/payments-backend/internal/logger"
)

// Logger is the interface required for reporting recovered panics.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler runs goroutines with panic recovery.
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler creates a handler reporting to the given logger.
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo starts a goroutine that logs instead of crashing on panic.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// SafeGoWithContext starts a context-aware goroutine with panic recovery.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("Panic in goroutine (with context): %v\nStack trace:\n%s", r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}

// logrusAdapter reports through the shared structured logger, falling back to
// the standard error stream when it is not initialized yet.
type logrusAdapter struct{}

func (logrusAdapter) Errorf(format string, args ...interface{}) {
	if logger.Log != nil {
		logger.Log.Errorf(format, args...)
	}
}

// DefaultRecoveryHandler is the shared handler used by the package helpers.
var DefaultRecoveryHandler = NewRecoveryHandler(logrusAdapter{})

// SafeGo starts a goroutine with panic recovery using the default handler.
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext starts a context-aware goroutine using the default handler.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
