package interfaces

import (
	"context"
	"io"

	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
)

// Vote defines the vote submission use case
type Vote interface {
	// Submit validates and upserts the voter's ballot for the current week
	// (last-write-wins) and reports whether it was a first-time vote
	Submit(ctx context.Context, email string, issues []types.IssueID) (*model.Vote, bool, error)
	// Status returns the voter's current-week ballot, or nil if none exists
	Status(ctx context.Context, email string) (*model.Vote, error)
	// LiveResults recomputes the current week's tally from the ledger
	LiveResults(ctx context.Context) (*model.ResultsEvent, error)
}

// Archive defines the weekly archival use case
type Archive interface {
	// ArchiveWeek snapshots a week's tallies into permanent analytics and
	// purges its votes. Idempotent; an empty week archives nothing.
	ArchiveWeek(ctx context.Context, week types.WeekID) (*model.ArchiveResult, error)
	// Sweep archives every closed-but-unarchived week, gated by the safety
	// window. The current week is never eligible.
	Sweep(ctx context.Context) (*model.SweepResult, error)
	// ResetCurrentWeek archives the current week immediately, bypassing the
	// safety window. Operator path only.
	ResetCurrentWeek(ctx context.Context) (*model.ArchiveResult, error)
}

// Analytics defines the read path over archived records
type Analytics interface {
	RecentHistory(ctx context.Context, limit int) ([]*model.WeeklyAnalytics, error)
	// MonthlyExportCSV writes the calendar month's archived weeks as CSV.
	// A month with no archived weeks fails with model.ErrNoArchivedWeeks;
	// an empty file is never emitted.
	MonthlyExportCSV(ctx context.Context, year int, month int, w io.Writer) error
}
