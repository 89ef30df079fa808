package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names
	votesCollection     = "votes"
	analyticsCollection = "weekly_analytics"

	// Field names
	// Note: Firestore field names match Go struct field names
	fieldWeekID     = "WeekID"
	fieldWeekEnding = "WeekEnding"
)

// Firestore implements Repository interface with Firestore
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (interfaces.Repository, error) {
	logger := ctxlog.From(ctx)

	// Create client with database ID
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	// Test connection by attempting to read from the vote ledger.
	// This fails fast on a bad project ID or missing permissions.
	_, err = client.Collection(votesCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		// Only fail if it's a real error (not just an empty collection)
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		// For other errors (like NotFound for new projects), log but continue
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore repository initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
	)

	return &Firestore{
		client: client,
	}, nil
}

// PutVote upserts a vote keyed by (voter hash, week). A first-time vote is
// inserted with Create; if a concurrent submission already created the
// document, the loser transparently retries as a replace. The caller never
// sees a duplicate-key error and no submission is silently dropped.
func (f *Firestore) PutVote(ctx context.Context, vote *model.Vote) (bool, error) {
	if vote == nil {
		return false, goerr.New("vote is nil")
	}
	if err := vote.Validate(); err != nil {
		return false, goerr.Wrap(err, "invalid vote")
	}

	doc := f.client.Collection(votesCollection).Doc(vote.DocID())

	_, err := doc.Create(ctx, vote)
	if err == nil {
		return true, nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return false, goerr.Wrap(err, "failed to create vote",
			goerr.V("weekID", vote.WeekID))
	}

	// The document exists: either a resubmission or the losing side of a
	// first-time race. Replace it, last write wins.
	if _, err := doc.Set(ctx, vote); err != nil {
		return false, goerr.Wrap(model.ErrVoteConflict, "vote update retry failed",
			goerr.V("weekID", vote.WeekID),
			goerr.V("cause", err.Error()),
		)
	}

	return false, nil
}

// GetVote retrieves a vote by voter hash and week
func (f *Firestore) GetVote(ctx context.Context, voterHash types.VoterHash, week types.WeekID) (*model.Vote, error) {
	if voterHash == "" {
		return nil, goerr.New("voter hash is empty")
	}
	if week == "" {
		return nil, goerr.New("week identifier is empty")
	}

	lookup := model.Vote{VoterHash: voterHash, WeekID: week}
	doc, err := f.client.Collection(votesCollection).Doc(lookup.DocID()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrVoteNotFound, "failed to get vote")
		}
		return nil, goerr.Wrap(err, "failed to get vote from firestore")
	}

	var vote model.Vote
	if err := doc.DataTo(&vote); err != nil {
		return nil, goerr.Wrap(err, "failed to decode vote")
	}

	return &vote, nil
}

// ListVotesByWeek lists every active vote tagged with the week
func (f *Firestore) ListVotesByWeek(ctx context.Context, week types.WeekID) ([]*model.Vote, error) {
	if week == "" {
		return nil, goerr.New("week identifier is empty")
	}

	iter := f.client.Collection(votesCollection).
		Where(fieldWeekID, "==", week.String()).
		Documents(ctx)
	defer iter.Stop()

	var votes []*model.Vote
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate votes",
				goerr.V("weekID", week))
		}

		var vote model.Vote
		if err := doc.DataTo(&vote); err != nil {
			return nil, goerr.Wrap(err, "failed to decode vote")
		}

		votes = append(votes, &vote)
	}

	return votes, nil
}

// ListActiveWeeks enumerates the distinct week tokens present in the ledger
func (f *Firestore) ListActiveWeeks(ctx context.Context) ([]types.WeekID, error) {
	iter := f.client.Collection(votesCollection).
		Select(fieldWeekID).
		Documents(ctx)
	defer iter.Stop()

	seen := make(map[types.WeekID]bool)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vote weeks")
		}

		raw, err := doc.DataAt(fieldWeekID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read week field")
		}
		if s, ok := raw.(string); ok && s != "" {
			seen[types.WeekID(s)] = true
		}
	}

	weeks := make([]types.WeekID, 0, len(seen))
	for week := range seen {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i] < weeks[j]
	})

	return weeks, nil
}

// DeleteVotesByWeek deletes every vote tagged with the week and returns the
// number deleted. Deleting an empty week is a no-op; deletes are idempotent
// so two overlapping archive attempts cannot double-count damage.
func (f *Firestore) DeleteVotesByWeek(ctx context.Context, week types.WeekID) (int, error) {
	if week == "" {
		return 0, goerr.New("week identifier is empty")
	}

	iter := f.client.Collection(votesCollection).
		Where(fieldWeekID, "==", week.String()).
		Select().
		Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, goerr.Wrap(err, "failed to iterate votes for deletion",
				goerr.V("weekID", week))
		}

		if _, err := doc.Ref.Delete(ctx); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return deleted, goerr.Wrap(err, "failed to delete vote",
				goerr.V("weekID", week))
		}
		deleted++
	}

	return deleted, nil
}

// PutWeeklyAnalytics upserts the analytics record keyed by week. Re-running
// an archive overwrites the record in place rather than duplicating it.
func (f *Firestore) PutWeeklyAnalytics(ctx context.Context, analytics *model.WeeklyAnalytics) error {
	if analytics == nil {
		return goerr.New("analytics is nil")
	}
	if err := analytics.Validate(); err != nil {
		return goerr.Wrap(err, "invalid analytics record")
	}

	_, err := f.client.Collection(analyticsCollection).Doc(analytics.WeekID.String()).Set(ctx, analytics)
	if err != nil {
		return goerr.Wrap(err, "failed to save weekly analytics",
			goerr.V("weekID", analytics.WeekID))
	}

	return nil
}

// GetWeeklyAnalytics retrieves the analytics record for a week
func (f *Firestore) GetWeeklyAnalytics(ctx context.Context, week types.WeekID) (*model.WeeklyAnalytics, error) {
	if week == "" {
		return nil, goerr.New("week identifier is empty")
	}

	doc, err := f.client.Collection(analyticsCollection).Doc(week.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrAnalyticsNotFound, "failed to get weekly analytics")
		}
		return nil, goerr.Wrap(err, "failed to get weekly analytics from firestore")
	}

	var analytics model.WeeklyAnalytics
	if err := doc.DataTo(&analytics); err != nil {
		return nil, goerr.Wrap(err, "failed to decode weekly analytics")
	}

	return &analytics, nil
}

// ListRecentAnalytics lists analytics sorted by week ending, newest first.
// Sorting happens in memory to avoid requiring a composite index.
func (f *Firestore) ListRecentAnalytics(ctx context.Context, limit int) ([]*model.WeeklyAnalytics, error) {
	iter := f.client.Collection(analyticsCollection).Documents(ctx)
	defer iter.Stop()

	var records []*model.WeeklyAnalytics
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate weekly analytics")
		}

		var analytics model.WeeklyAnalytics
		if err := doc.DataTo(&analytics); err != nil {
			return nil, goerr.Wrap(err, "failed to decode weekly analytics")
		}

		records = append(records, &analytics)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].WeekEnding.After(records[j].WeekEnding)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// ListAnalyticsByWeekEnding lists analytics whose week ending falls within
// [from, to), sorted ascending
func (f *Firestore) ListAnalyticsByWeekEnding(ctx context.Context, from, to time.Time) ([]*model.WeeklyAnalytics, error) {
	iter := f.client.Collection(analyticsCollection).
		Where(fieldWeekEnding, ">=", from).
		Where(fieldWeekEnding, "<", to).
		Documents(ctx)
	defer iter.Stop()

	var records []*model.WeeklyAnalytics
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate weekly analytics range")
		}

		var analytics model.WeeklyAnalytics
		if err := doc.DataTo(&analytics); err != nil {
			return nil, goerr.Wrap(err, "failed to decode weekly analytics")
		}

		records = append(records, &analytics)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].WeekEnding.Before(records[j].WeekEnding)
	})

	return records, nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

var _ interfaces.Repository = (*Firestore)(nil) // Compile-time interface check
