package sweeper

import (
	"context"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/utils/apperr"
	"github.com/m-mizutani/ctxlog"
)

// Sweeper periodically triggers the archive catch-up sweep. It is
// independent of request handling: the tick fires regardless of traffic,
// and the archive use case decides whether the safety window permits any
// writes. A sweep that fails is logged and the ticker keeps going.
type Sweeper struct {
	archiveUC interfaces.Archive
	interval  time.Duration
	done      chan struct{}
	stopped   chan struct{}
}

// New creates a new Sweeper
func New(archiveUC interfaces.Archive, interval time.Duration) *Sweeper {
	return &Sweeper{
		archiveUC: archiveUC,
		interval:  interval,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start launches the periodic sweep in a background goroutine. The first
// sweep runs immediately so a service that was down across one or more
// week boundaries catches up as soon as it comes back.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.stopped)

		logger := ctxlog.From(ctx)
		logger.Info("Archive sweeper started", "interval", s.interval)

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				logger.Info("Archive sweeper stopped: context cancelled")
				return
			case <-s.done:
				logger.Info("Archive sweeper stopped")
				return
			}
		}
	}()
}

// Stop halts the sweeper and waits for the background goroutine to exit
func (s *Sweeper) Stop() {
	close(s.done)
	<-s.stopped
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.archiveUC.Sweep(ctx)
	if err != nil {
		apperr.Handle(ctx, err)
		return
	}

	if result.SkippedWindow {
		return
	}

	ctxlog.From(ctx).Info("Scheduled sweep finished",
		"weeksArchived", result.WeeksArchived,
		"weeksFailed", result.WeeksFailed,
		"votesDeleted", result.VotesDeleted,
	)
}
