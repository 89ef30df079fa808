package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
)

// Dispatch executes a handler function asynchronously with panic recovery.
// Vote and archive paths use it to hand tallies to the results broadcaster
// without blocking on delivery: the caller returns immediately and a
// broadcast failure can never abort or roll back the operation it is
// attached to.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	// Detach from the request context so cancellation of the originating
	// request does not cut the background work short
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				ctxlog.From(newCtx).Error("Panic in async handler",
					"recover", r,
					"stack", string(stack),
				)
			}
		}()

		if err := handler(newCtx); err != nil {
			ctxlog.From(newCtx).Error("Error in async handler",
				"error", err,
			)
		}
	}()
}

// newBackgroundContext creates a new background context preserving the
// logger from the originating request
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()

	logger := ctxlog.From(ctx)
	if logger != nil {
		newCtx = ctxlog.With(newCtx, logger)
	}

	return newCtx
}
