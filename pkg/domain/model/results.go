package model

import (
	"time"

	"github.com/civicpulse/pulse/pkg/domain/types"
)

// ResultsEventType distinguishes live tally updates from archive notices
type ResultsEventType string

const (
	// ResultsEventTally is published whenever the current week's tally changes
	ResultsEventTally ResultsEventType = "tally_updated"
	// ResultsEventArchived is published when a week's votes are archived
	ResultsEventArchived ResultsEventType = "week_archived"
)

// ResultsEvent is the payload handed to the results broadcaster. Delivery
// is best-effort, at-most-once; nothing in the vote or archive path waits
// on it.
type ResultsEvent struct {
	Type        ResultsEventType      `json:"type"`
	WeekID      types.WeekID          `json:"weekIdentifier"`
	TotalVotes  int                   `json:"totalVotes"`
	IssueCounts map[types.IssueID]int `json:"issueCounts"`
	OccurredAt  time.Time             `json:"occurredAt"`
}

// NewTallyEvent builds a live tally event from persisted vote rows. Tallies
// are always recomputed from the ledger, never accumulated in memory.
func NewTallyEvent(week types.WeekID, registry *IssueRegistry, votes []*Vote, at time.Time) *ResultsEvent {
	total, counts := TallyVotes(registry, votes)
	return &ResultsEvent{
		Type:        ResultsEventTally,
		WeekID:      week,
		TotalVotes:  total,
		IssueCounts: counts,
		OccurredAt:  at,
	}
}

// NewArchivedEvent announces that a week's tallies became permanent
func NewArchivedEvent(analytics *WeeklyAnalytics) *ResultsEvent {
	clone := analytics.Clone()
	return &ResultsEvent{
		Type:        ResultsEventArchived,
		WeekID:      clone.WeekID,
		TotalVotes:  clone.TotalVotes,
		IssueCounts: clone.IssueCounts,
		OccurredAt:  clone.ArchivedAt,
	}
}
