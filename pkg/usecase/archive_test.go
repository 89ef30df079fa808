package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/civicpulse/pulse/pkg/repository"
	"github.com/civicpulse/pulse/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// sundayEveningClock sits inside the archive window: Sunday 2025-11-16
// 21:00, still week 2025-W46
func sundayEveningClock() time.Time {
	return time.Date(2025, 11, 16, 21, 0, 0, 0, time.UTC)
}

func newArchiveUseCase(repo interfaces.Repository, broadcaster interfaces.Broadcaster, clock func() time.Time) *usecase.ArchiveUseCase {
	return usecase.NewArchiveUseCase(repo, pollRegistry(), broadcaster, time.UTC,
		model.DefaultArchiveWindow(), usecase.WithArchiveClock(clock))
}

func TestArchiveWeek(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	broadcaster := newCaptureBroadcaster()
	uc := newArchiveUseCase(repo, broadcaster, fixedClock)

	seedVote(t, repo, "v1", "2025-W45", "roads", "parks")
	seedVote(t, repo, "v2", "2025-W45", "roads")

	result, err := uc.ArchiveWeek(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.True(t, result.Archived)
	gt.Equal(t, result.TotalVotes, 2)
	gt.Equal(t, result.VotesDeleted, 2)

	// Votes are gone, the aggregate is permanent
	votes, err := repo.ListVotesByWeek(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.Equal(t, len(votes), 0)

	analytics, err := repo.GetWeeklyAnalytics(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.Equal(t, analytics.TotalVotes, 2)
	gt.Equal(t, analytics.IssueCounts[types.IssueID("roads")], 2)
	gt.Equal(t, analytics.IssueCounts[types.IssueID("parks")], 1)
	gt.Equal(t, analytics.IssueCounts[types.IssueID("safety")], 0)
	gt.True(t, analytics.WeekEnding.Equal(
		time.Date(2025, 11, 9, 23, 59, 59, int(999*time.Millisecond), time.UTC)))

	events := broadcaster.wait(t, 1)
	gt.Equal(t, events[0].Type, model.ResultsEventArchived)
	gt.Equal(t, events[0].WeekID, types.WeekID("2025-W45"))
	gt.Equal(t, events[0].TotalVotes, 2)
}

func TestArchiveWeekEmpty(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	broadcaster := newCaptureBroadcaster()
	uc := newArchiveUseCase(repo, broadcaster, fixedClock)

	result, err := uc.ArchiveWeek(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.True(t, !result.Archived)
	gt.Equal(t, result.VotesDeleted, 0)

	// No analytics record is written for an empty week
	_, err = repo.GetWeeklyAnalytics(ctx, "2025-W45")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrAnalyticsNotFound))
	gt.Equal(t, broadcaster.count(), 0)
}

func TestArchiveWeekRerunReflectsLatestVotes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := newArchiveUseCase(repo, newCaptureBroadcaster(), fixedClock)

	seedVote(t, repo, "v1", "2025-W45", "roads")
	_, err := uc.ArchiveWeek(ctx, "2025-W45")
	gt.NoError(t, err)

	// A straggler vote lands after the first archive run
	seedVote(t, repo, "v2", "2025-W45", "parks")

	result, err := uc.ArchiveWeek(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.True(t, result.Archived)
	gt.Equal(t, result.TotalVotes, 1)

	// The overwrite reflects only the votes present at the second run
	analytics, err := repo.GetWeeklyAnalytics(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.Equal(t, analytics.TotalVotes, 1)
	gt.Equal(t, analytics.IssueCounts[types.IssueID("parks")], 1)
	gt.Equal(t, analytics.IssueCounts[types.IssueID("roads")], 0)
}

func TestSweepArchivesClosedWeeksOnly(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := newArchiveUseCase(repo, newCaptureBroadcaster(), sundayEveningClock)

	seedVote(t, repo, "v1", "2025-W44", "roads")
	seedVote(t, repo, "v2", "2025-W45", "parks")
	seedVote(t, repo, "v3", "2025-W46", "safety") // current week

	result, err := uc.Sweep(ctx)
	gt.NoError(t, err)
	gt.True(t, !result.SkippedWindow)
	gt.Equal(t, result.WeeksArchived, 2)
	gt.Equal(t, result.WeeksFailed, 0)
	gt.Equal(t, result.VotesDeleted, 2)
	gt.Equal(t, result.Weeks, []types.WeekID{"2025-W44", "2025-W45"})

	// The current week is untouched
	votes, err := repo.ListVotesByWeek(ctx, "2025-W46")
	gt.NoError(t, err)
	gt.Equal(t, len(votes), 1)

	_, err = repo.GetWeeklyAnalytics(ctx, "2025-W44")
	gt.NoError(t, err)
	_, err = repo.GetWeeklyAnalytics(ctx, "2025-W46")
	gt.Error(t, err)
}

func TestSweepSkipsOutsideWindow(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := newArchiveUseCase(repo, newCaptureBroadcaster(), fixedClock) // Wednesday

	seedVote(t, repo, "v1", "2025-W45", "roads")

	result, err := uc.Sweep(ctx)
	gt.NoError(t, err)
	gt.True(t, result.SkippedWindow)
	gt.Equal(t, result.WeeksArchived, 0)

	// Nothing was written or purged
	votes, err := repo.ListVotesByWeek(ctx, "2025-W45")
	gt.NoError(t, err)
	gt.Equal(t, len(votes), 1)
	_, err = repo.GetWeeklyAnalytics(ctx, "2025-W45")
	gt.Error(t, err)
}

// flakyRepo fails ListVotesByWeek for one specific week
type flakyRepo struct {
	interfaces.Repository
	failWeek types.WeekID
}

func (r *flakyRepo) ListVotesByWeek(ctx context.Context, week types.WeekID) ([]*model.Vote, error) {
	if week == r.failWeek {
		return nil, goerr.New("simulated read failure")
	}
	return r.Repository.ListVotesByWeek(ctx, week)
}

func TestSweepContinuesPastFailedWeek(t *testing.T) {
	ctx := context.Background()
	memory := repository.NewMemory()
	repo := &flakyRepo{Repository: memory, failWeek: "2025-W44"}
	uc := newArchiveUseCase(repo, newCaptureBroadcaster(), sundayEveningClock)

	seedVote(t, memory, "v1", "2025-W44", "roads")
	seedVote(t, memory, "v2", "2025-W45", "parks")

	result, err := uc.Sweep(ctx)
	gt.NoError(t, err)
	gt.Equal(t, result.WeeksFailed, 1)
	gt.Equal(t, result.WeeksArchived, 1)
	gt.Equal(t, result.Weeks, []types.WeekID{"2025-W45"})
}

func TestResetCurrentWeekBypassesWindow(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	broadcaster := newCaptureBroadcaster()
	uc := newArchiveUseCase(repo, broadcaster, fixedClock) // Wednesday, outside window

	seedVote(t, repo, "v1", "2025-W46", "roads")

	result, err := uc.ResetCurrentWeek(ctx)
	gt.NoError(t, err)
	gt.Equal(t, result.WeekID, types.WeekID("2025-W46"))
	gt.True(t, result.Archived)
	gt.Equal(t, result.VotesDeleted, 1)

	_, err = repo.GetWeeklyAnalytics(ctx, "2025-W46")
	gt.NoError(t, err)
}

func TestResetCurrentWeekWithNoVotes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := newArchiveUseCase(repo, newCaptureBroadcaster(), fixedClock)

	result, err := uc.ResetCurrentWeek(ctx)
	gt.NoError(t, err)
	gt.True(t, !result.Archived)
	gt.Equal(t, result.VotesDeleted, 0)
}
