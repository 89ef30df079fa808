package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

// pollRegistry returns a registry with three open issues and one retired
// issue, enough to exercise validation and zero-filled tallies.
func pollRegistry() *model.IssueRegistry {
	return &model.IssueRegistry{
		Issues: []model.Issue{
			{ID: "roads", Name: "Roads & Potholes"},
			{ID: "parks", Name: "Parks"},
			{ID: "safety", Name: "Street Safety"},
			{ID: "tramline", Name: "Tramline", Retired: true},
		},
	}
}

// fixedClock pins the use case to Wednesday 2025-11-12 (week 2025-W46)
func fixedClock() time.Time {
	return time.Date(2025, 11, 12, 12, 0, 0, 0, time.UTC)
}

// captureBroadcaster records published events. Publishers run on detached
// goroutines, so tests must use wait() rather than reading events directly
// after the triggering call returns.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []*model.ResultsEvent
	signal chan struct{}
}

func newCaptureBroadcaster() *captureBroadcaster {
	return &captureBroadcaster{
		signal: make(chan struct{}, 64),
	}
}

func (b *captureBroadcaster) Publish(ctx context.Context, event *model.ResultsEvent) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	b.signal <- struct{}{}
}

// wait blocks until n events have been published, then returns them
func (b *captureBroadcaster) wait(t *testing.T, n int) []*model.ResultsEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		b.mu.Lock()
		count := len(b.events)
		b.mu.Unlock()
		if count >= n {
			break
		}

		select {
		case <-b.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d broadcast events, got %d", n, count)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]*model.ResultsEvent, len(b.events))
	copy(events, b.events)
	return events
}

func (b *captureBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

var _ interfaces.Broadcaster = (*captureBroadcaster)(nil)

// seedVote inserts a ballot row directly into the repository
func seedVote(t *testing.T, repo interfaces.Repository, voter string, week types.WeekID, issues ...types.IssueID) {
	t.Helper()

	_, err := repo.PutVote(context.Background(), &model.Vote{
		VoterHash:      types.VoterHash(voter),
		SelectedIssues: issues,
		WeekID:         week,
		VotedAt:        time.Now().UTC(),
	})
	gt.NoError(t, err)
}
