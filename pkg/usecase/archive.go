package usecase

import (
	"context"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/civicpulse/pulse/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// ArchiveUseCase moves closed weeks from the active vote ledger into
// permanent weekly analytics. Every operation is idempotent and scoped to a
// single week, so overlapping runs and partial failures cannot corrupt
// other weeks.
type ArchiveUseCase struct {
	repo        interfaces.Repository
	registry    *model.IssueRegistry
	broadcaster interfaces.Broadcaster
	loc         *time.Location
	window      model.ArchiveWindow
	clock       func() time.Time
}

// ArchiveOption configures an ArchiveUseCase
type ArchiveOption func(*ArchiveUseCase)

// WithArchiveClock overrides the time source (used by tests)
func WithArchiveClock(clock func() time.Time) ArchiveOption {
	return func(uc *ArchiveUseCase) {
		uc.clock = clock
	}
}

// NewArchiveUseCase creates a new ArchiveUseCase instance
func NewArchiveUseCase(repo interfaces.Repository, registry *model.IssueRegistry, broadcaster interfaces.Broadcaster, loc *time.Location, window model.ArchiveWindow, opts ...ArchiveOption) *ArchiveUseCase {
	uc := &ArchiveUseCase{
		repo:        repo,
		registry:    registry,
		broadcaster: broadcaster,
		loc:         loc,
		window:      window,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ArchiveWeek snapshots the week's tallies into a permanent analytics
// record and purges the week's votes. Safe to re-run: the analytics upsert
// overwrites in place and reflects the votes present at the last call, and
// deleting an already-empty week is a no-op. An empty week archives nothing
// and writes nothing.
func (uc *ArchiveUseCase) ArchiveWeek(ctx context.Context, week types.WeekID) (*model.ArchiveResult, error) {
	logger := ctxlog.From(ctx)

	votes, err := uc.repo.ListVotesByWeek(ctx, week)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read votes for archiving",
			goerr.V("weekID", week))
	}

	if len(votes) == 0 {
		logger.Info("No active votes for week, nothing to archive",
			"weekID", week,
		)
		return &model.ArchiveResult{WeekID: week, Archived: false}, nil
	}

	weekEnding, err := model.WeekEnding(week, uc.loc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to derive week ending",
			goerr.V("weekID", week))
	}

	analytics := model.NewWeeklyAnalytics(week, weekEnding, uc.registry, votes, uc.clock())
	if err := uc.repo.PutWeeklyAnalytics(ctx, analytics); err != nil {
		return nil, goerr.Wrap(err, "failed to write weekly analytics",
			goerr.V("weekID", week))
	}

	deleted, err := uc.repo.DeleteVotesByWeek(ctx, week)
	if err != nil {
		// The analytics record is already in place; the next sweep will
		// pick up any votes the failed purge left behind.
		return nil, goerr.Wrap(err, "failed to purge archived votes",
			goerr.V("weekID", week))
	}

	logger.Info("Archived week",
		"weekID", week,
		"totalVotes", analytics.TotalVotes,
		"votesDeleted", deleted,
	)

	// Archive notices are best-effort, same as live tallies
	async.Dispatch(ctx, func(ctx context.Context) error {
		uc.broadcaster.Publish(ctx, model.NewArchivedEvent(analytics))
		return nil
	})

	return &model.ArchiveResult{
		WeekID:       week,
		Archived:     true,
		VotesDeleted: deleted,
		TotalVotes:   analytics.TotalVotes,
	}, nil
}

// Sweep archives every closed-but-unarchived week found in the ledger. It
// never touches the current week, and it only performs writes when the
// wall clock sits inside the archive window. One week's failure is logged
// and does not abort the sweep for the remaining weeks, which is what lets
// the service catch up after missing one or more scheduled runs.
func (uc *ArchiveUseCase) Sweep(ctx context.Context) (*model.SweepResult, error) {
	logger := ctxlog.From(ctx)
	now := uc.clock().In(uc.loc)

	if !uc.window.Contains(now) {
		// Deliberate no-op, distinct from a failure in monitoring
		logger.Info("Sweep skipped: outside archive window",
			"now", now,
			"openHour", uc.window.OpenHour,
			"closeHour", uc.window.CloseHour,
		)
		return &model.SweepResult{SkippedWindow: true}, nil
	}

	currentWeek := model.WeekIDFor(now, uc.loc)
	weeks, err := uc.repo.ListActiveWeeks(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to enumerate active weeks")
	}

	result := &model.SweepResult{}
	for _, week := range weeks {
		if week == currentWeek {
			continue
		}

		archived, err := uc.ArchiveWeek(ctx, week)
		if err != nil {
			result.WeeksFailed++
			logger.Error("Failed to archive week during sweep, continuing",
				"weekID", week,
				"error", err,
			)
			continue
		}

		if archived.Archived {
			result.WeeksArchived++
			result.VotesDeleted += archived.VotesDeleted
			result.Weeks = append(result.Weeks, week)
		}
	}

	logger.Info("Sweep complete",
		"weeksArchived", result.WeeksArchived,
		"weeksFailed", result.WeeksFailed,
		"votesDeleted", result.VotesDeleted,
	)

	return result, nil
}

// ResetCurrentWeek archives the current week immediately. It is the
// operator path: it bypasses the safety window by design, and unlike the
// sweep it only ever targets the current week, never historical ones.
func (uc *ArchiveUseCase) ResetCurrentWeek(ctx context.Context) (*model.ArchiveResult, error) {
	week := model.WeekIDFor(uc.clock(), uc.loc)

	ctxlog.From(ctx).Info("Emergency reset requested for current week",
		"weekID", week,
	)

	return uc.ArchiveWeek(ctx, week)
}

var _ interfaces.Archive = (*ArchiveUseCase)(nil)
