package apperr

import (
	"context"

	"github.com/m-mizutani/ctxlog"
)

// Handle logs an error that has nowhere better to go, such as a failure in
// a fire-and-forget background task
func Handle(ctx context.Context, err error) {
	logger := ctxlog.From(ctx)
	logger.Error("application error", "error", err)
}
