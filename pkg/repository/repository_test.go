package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/civicpulse/pulse/pkg/repository"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) interfaces.Repository {
		return repository.NewMemory()
	})
}

func TestFirestoreRepository(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT and TEST_FIRESTORE_DATABASE are not set")
	}

	testRepository(t, func(t *testing.T) interfaces.Repository {
		repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
		gt.NoError(t, err)
		t.Cleanup(func() {
			if err := repo.Close(); err != nil {
				t.Logf("failed to close firestore client: %v", err)
			}
		})
		return repo
	})
}

// testRepository runs the shared contract suite against a repository
// implementation. Weeks are randomized per subtest so runs against a real
// Firestore database do not interfere with each other.
func testRepository(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	ctx := context.Background()

	newWeek := func() types.WeekID {
		// Unique but well-formed token per test run
		return types.WeekID(fmt.Sprintf("%s-W%s", uuid.NewString()[:4], uuid.NewString()[:4]))
	}

	vote := func(voter string, week types.WeekID, issues ...types.IssueID) *model.Vote {
		return &model.Vote{
			VoterHash:      types.VoterHash(voter),
			SelectedIssues: issues,
			WeekID:         week,
			VotedAt:        time.Now().UTC(),
		}
	}

	t.Run("PutVote reports creation vs update", func(t *testing.T) {
		repo := newRepo(t)
		week := newWeek()

		created, err := repo.PutVote(ctx, vote("voter-a", week, "roads"))
		gt.NoError(t, err)
		gt.True(t, created)

		// Resubmission replaces the same row
		created, err = repo.PutVote(ctx, vote("voter-a", week, "parks", "safety"))
		gt.NoError(t, err)
		gt.True(t, !created)

		got, err := repo.GetVote(ctx, "voter-a", week)
		gt.NoError(t, err)
		gt.Equal(t, got.SelectedIssues, []types.IssueID{"parks", "safety"})

		votes, err := repo.ListVotesByWeek(ctx, week)
		gt.NoError(t, err)
		gt.Equal(t, len(votes), 1)
	})

	t.Run("GetVote missing row", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetVote(ctx, "nobody", newWeek())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrVoteNotFound))
	})

	t.Run("ListVotesByWeek filters by week", func(t *testing.T) {
		repo := newRepo(t)
		week1 := newWeek()
		week2 := newWeek()

		_, err := repo.PutVote(ctx, vote("voter-a", week1, "roads"))
		gt.NoError(t, err)
		_, err = repo.PutVote(ctx, vote("voter-b", week1, "parks"))
		gt.NoError(t, err)
		_, err = repo.PutVote(ctx, vote("voter-a", week2, "safety"))
		gt.NoError(t, err)

		votes, err := repo.ListVotesByWeek(ctx, week1)
		gt.NoError(t, err)
		gt.Equal(t, len(votes), 2)

		votes, err = repo.ListVotesByWeek(ctx, week2)
		gt.NoError(t, err)
		gt.Equal(t, len(votes), 1)
		gt.Equal(t, votes[0].VoterHash, types.VoterHash("voter-a"))
	})

	t.Run("ListActiveWeeks dedupes", func(t *testing.T) {
		repo := newRepo(t)
		week := newWeek()

		_, err := repo.PutVote(ctx, vote("voter-a", week, "roads"))
		gt.NoError(t, err)
		_, err = repo.PutVote(ctx, vote("voter-b", week, "parks"))
		gt.NoError(t, err)

		weeks, err := repo.ListActiveWeeks(ctx)
		gt.NoError(t, err)

		count := 0
		for _, w := range weeks {
			if w == week {
				count++
			}
		}
		gt.Equal(t, count, 1)
	})

	t.Run("DeleteVotesByWeek purges and is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		week := newWeek()

		_, err := repo.PutVote(ctx, vote("voter-a", week, "roads"))
		gt.NoError(t, err)
		_, err = repo.PutVote(ctx, vote("voter-b", week, "parks"))
		gt.NoError(t, err)

		deleted, err := repo.DeleteVotesByWeek(ctx, week)
		gt.NoError(t, err)
		gt.Equal(t, deleted, 2)

		votes, err := repo.ListVotesByWeek(ctx, week)
		gt.NoError(t, err)
		gt.Equal(t, len(votes), 0)

		deleted, err = repo.DeleteVotesByWeek(ctx, week)
		gt.NoError(t, err)
		gt.Equal(t, deleted, 0)
	})

	t.Run("analytics upsert never duplicates", func(t *testing.T) {
		repo := newRepo(t)
		week := newWeek()
		ending := time.Date(2025, 11, 16, 23, 59, 59, 0, time.UTC)

		record := &model.WeeklyAnalytics{
			WeekID:      week,
			WeekEnding:  ending,
			TotalVotes:  3,
			IssueCounts: map[types.IssueID]int{"roads": 2, "parks": 1},
			ArchivedAt:  time.Now().UTC(),
		}
		gt.NoError(t, repo.PutWeeklyAnalytics(ctx, record))

		record.TotalVotes = 4
		record.IssueCounts["roads"] = 3
		gt.NoError(t, repo.PutWeeklyAnalytics(ctx, record))

		got, err := repo.GetWeeklyAnalytics(ctx, week)
		gt.NoError(t, err)
		gt.Equal(t, got.TotalVotes, 4)
		gt.Equal(t, got.IssueCounts[types.IssueID("roads")], 3)

		records, err := repo.ListAnalyticsByWeekEnding(ctx, ending, ending.Add(time.Second))
		gt.NoError(t, err)

		count := 0
		for _, r := range records {
			if r.WeekID == week {
				count++
			}
		}
		gt.Equal(t, count, 1)
	})

	t.Run("GetWeeklyAnalytics missing week", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetWeeklyAnalytics(ctx, newWeek())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrAnalyticsNotFound))
	})

	t.Run("ListRecentAnalytics newest first with limit", func(t *testing.T) {
		repo := newRepo(t)

		// Endings far in the future so preexisting rows in a shared
		// database cannot land between them
		base := time.Now().UTC().AddDate(10, 0, 0)
		weeks := make([]types.WeekID, 3)
		for i := range weeks {
			weeks[i] = newWeek()
			gt.NoError(t, repo.PutWeeklyAnalytics(ctx, &model.WeeklyAnalytics{
				WeekID:      weeks[i],
				WeekEnding:  base.Add(time.Duration(i) * 7 * 24 * time.Hour),
				TotalVotes:  i + 1,
				IssueCounts: map[types.IssueID]int{"roads": i + 1},
				ArchivedAt:  time.Now().UTC(),
			}))
		}

		records, err := repo.ListRecentAnalytics(ctx, 2)
		gt.NoError(t, err)
		gt.Equal(t, len(records), 2)
		gt.Equal(t, records[0].WeekID, weeks[2])
		gt.Equal(t, records[1].WeekID, weeks[1])
	})

	t.Run("ListAnalyticsByWeekEnding half-open range ascending", func(t *testing.T) {
		repo := newRepo(t)

		base := time.Date(2125, 11, 2, 23, 59, 59, 0, time.UTC)
		weeks := make([]types.WeekID, 4)
		for i := range weeks {
			weeks[i] = newWeek()
			gt.NoError(t, repo.PutWeeklyAnalytics(ctx, &model.WeeklyAnalytics{
				WeekID:      weeks[i],
				WeekEnding:  base.Add(time.Duration(i) * 7 * 24 * time.Hour),
				TotalVotes:  1,
				IssueCounts: map[types.IssueID]int{"roads": 1},
				ArchivedAt:  time.Now().UTC(),
			}))
		}

		// [week 1 ending, week 3 ending) picks the middle two
		records, err := repo.ListAnalyticsByWeekEnding(ctx,
			base.Add(7*24*time.Hour), base.Add(3*7*24*time.Hour))
		gt.NoError(t, err)
		gt.Equal(t, len(records), 2)
		gt.Equal(t, records[0].WeekID, weeks[1])
		gt.Equal(t, records[1].WeekID, weeks[2])
	})
}
