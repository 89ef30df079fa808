package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Memory implements Repository interface with in-memory storage. It is the
// development and test twin of the Firestore repository and honors the same
// key invariants: one vote per (voter hash, week), one analytics record per
// week.
type Memory struct {
	mu        sync.RWMutex
	votes     map[string]*model.Vote
	analytics map[types.WeekID]*model.WeeklyAnalytics
}

// NewMemory creates a new memory repository
func NewMemory() interfaces.Repository {
	return &Memory{
		votes:     make(map[string]*model.Vote),
		analytics: make(map[types.WeekID]*model.WeeklyAnalytics),
	}
}

// PutVote upserts a vote keyed by (voter hash, week)
func (m *Memory) PutVote(ctx context.Context, vote *model.Vote) (bool, error) {
	if vote == nil {
		return false, goerr.New("vote is nil")
	}
	if err := vote.Validate(); err != nil {
		return false, goerr.Wrap(err, "invalid vote")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.votes[vote.DocID()]
	m.votes[vote.DocID()] = vote.Clone()
	return !exists, nil
}

// GetVote retrieves a vote by voter hash and week
func (m *Memory) GetVote(ctx context.Context, voterHash types.VoterHash, week types.WeekID) (*model.Vote, error) {
	if voterHash == "" {
		return nil, goerr.New("voter hash is empty")
	}
	if week == "" {
		return nil, goerr.New("week identifier is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	lookup := model.Vote{VoterHash: voterHash, WeekID: week}
	vote, exists := m.votes[lookup.DocID()]
	if !exists {
		return nil, goerr.Wrap(model.ErrVoteNotFound, "failed to get vote")
	}

	// Return a copy to prevent external modification
	return vote.Clone(), nil
}

// ListVotesByWeek lists every active vote tagged with the week
func (m *Memory) ListVotesByWeek(ctx context.Context, week types.WeekID) ([]*model.Vote, error) {
	if week == "" {
		return nil, goerr.New("week identifier is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var votes []*model.Vote
	for _, vote := range m.votes {
		if vote.WeekID == week {
			votes = append(votes, vote.Clone())
		}
	}

	return votes, nil
}

// ListActiveWeeks enumerates the distinct week tokens present in the ledger
func (m *Memory) ListActiveWeeks(ctx context.Context) ([]types.WeekID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[types.WeekID]bool)
	for _, vote := range m.votes {
		seen[vote.WeekID] = true
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

// DeleteVotesByWeek deletes every vote tagged with the week
func (m *Memory) DeleteVotesByWeek(ctx context.Context, week types.WeekID) (int, error) {
	if week == "" {
		return 0, goerr.New("week identifier is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, vote := range m.votes {
		if vote.WeekID == week {
			delete(m.votes, id)
			deleted++
		}
	}

	return deleted, nil
}

// PutWeeklyAnalytics upserts the analytics record keyed by week
func (m *Memory) PutWeeklyAnalytics(ctx context.Context, analytics *model.WeeklyAnalytics) error {
	if analytics == nil {
		return goerr.New("analytics is nil")
	}
	if err := analytics.Validate(); err != nil {
		return goerr.Wrap(err, "invalid analytics record")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.analytics[analytics.WeekID] = analytics.Clone()
	return nil
}

// GetWeeklyAnalytics retrieves the analytics record for a week
func (m *Memory) GetWeeklyAnalytics(ctx context.Context, week types.WeekID) (*model.WeeklyAnalytics, error) {
	if week == "" {
		return nil, goerr.New("week identifier is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	analytics, exists := m.analytics[week]
	if !exists {
		return nil, goerr.Wrap(model.ErrAnalyticsNotFound, "failed to get weekly analytics")
	}

	return analytics.Clone(), nil
}

// ListRecentAnalytics lists analytics sorted by week ending, newest first
func (m *Memory) ListRecentAnalytics(ctx context.Context, limit int) ([]*model.WeeklyAnalytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*model.WeeklyAnalytics
	for _, analytics := range m.analytics {
		records = append(records, analytics.Clone())
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
func (m *Memory) ListAnalyticsByWeekEnding(ctx context.Context, from, to time.Time) ([]*model.WeeklyAnalytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*model.WeeklyAnalytics
	for _, analytics := range m.analytics {
		if analytics.WeekEnding.Before(from) || !analytics.WeekEnding.Before(to) {
			continue
		}
		records = append(records, analytics.Clone())
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].WeekEnding.Before(records[j].WeekEnding)
	})

	return records, nil
}

// Close is a no-op for the memory repository
func (m *Memory) Close() error {
	return nil
}

var _ interfaces.Repository = (*Memory)(nil) // Compile-time interface check
