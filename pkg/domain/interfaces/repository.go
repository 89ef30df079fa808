package interfaces

import (
	"context"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
)

// Repository defines the interface for data persistence. Votes are
// unique-keyed on (voter hash, week); analytics are unique-keyed on week.
type Repository interface {
	// Vote ledger operations
	//
	// PutVote performs an atomic upsert keyed by (VoterHash, WeekID) and
	// reports whether a new document was created. When two first-time
	// submissions race, exactly one insert wins and the loser is retried
	// as an update; the caller never sees a duplicate-key error.
	PutVote(ctx context.Context, vote *model.Vote) (bool, error)
	GetVote(ctx context.Context, voterHash types.VoterHash, week types.WeekID) (*model.Vote, error)
	ListVotesByWeek(ctx context.Context, week types.WeekID) ([]*model.Vote, error)
	ListActiveWeeks(ctx context.Context) ([]types.WeekID, error)
	// DeleteVotesByWeek removes every vote tagged with the week and returns
	// the number deleted. Deleting an already-empty week is a no-op.
	DeleteVotesByWeek(ctx context.Context, week types.WeekID) (int, error)

	// Weekly analytics operations
	//
	// PutWeeklyAnalytics upserts by week so re-archiving never duplicates.
	PutWeeklyAnalytics(ctx context.Context, analytics *model.WeeklyAnalytics) error
	GetWeeklyAnalytics(ctx context.Context, week types.WeekID) (*model.WeeklyAnalytics, error)
	ListRecentAnalytics(ctx context.Context, limit int) ([]*model.WeeklyAnalytics, error)
	// ListAnalyticsByWeekEnding returns records whose WeekEnding falls in
	// [from, to), sorted ascending.
	ListAnalyticsByWeekEnding(ctx context.Context, from, to time.Time) ([]*model.WeeklyAnalytics, error)

	// Close closes the repository connection
	Close() error
}
