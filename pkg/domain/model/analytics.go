package model

import (
	"time"

	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// WeeklyAnalytics is the permanent aggregate written when a week is
// archived. One record exists per week; re-archiving the same week
// overwrites it in place. Records are never deleted.
type WeeklyAnalytics struct {
	WeekID      types.WeekID          `json:"weekIdentifier"`
	WeekEnding  time.Time             `json:"weekEnding"`
	TotalVotes  int                   `json:"totalVotes"`
	IssueCounts map[types.IssueID]int `json:"issueCounts"`
	ArchivedAt  time.Time             `json:"archivedAt"`
}

// Validate validates the analytics record
func (a *WeeklyAnalytics) Validate() error {
	if a.WeekID == "" {
		return goerr.New("week identifier is required")
	}
	if a.WeekEnding.IsZero() {
		return goerr.New("week ending is required")
	}
	if a.TotalVotes < 0 {
		return goerr.New("total votes must not be negative",
			goerr.V("totalVotes", a.TotalVotes))
	}
	return nil
}

// Clone returns a deep copy
func (a *WeeklyAnalytics) Clone() *WeeklyAnalytics {
	analyticsCopy := *a
	analyticsCopy.IssueCounts = make(map[types.IssueID]int, len(a.IssueCounts))
	for id, n := range a.IssueCounts {
		analyticsCopy.IssueCounts[id] = n
	}
	return &analyticsCopy
}

// TallyVotes counts issue selections across votes. The result contains an
// entry for every issue in the registry, zero-filled, so counts are never
// sparse. Selections referencing issues the registry no longer recognizes
// are counted toward the total but get no column of their own.
func TallyVotes(registry *IssueRegistry, votes []*Vote) (int, map[types.IssueID]int) {
	counts := make(map[types.IssueID]int, len(registry.Issues))
	for _, issue := range registry.Issues {
		counts[issue.ID] = 0
	}

	for _, vote := range votes {
		for _, id := range vote.SelectedIssues {
			if _, ok := counts[id]; ok {
				counts[id]++
			}
		}
	}

	return len(votes), counts
}

// NewWeeklyAnalytics builds the archive record for a closed week
func NewWeeklyAnalytics(week types.WeekID, weekEnding time.Time, registry *IssueRegistry, votes []*Vote, archivedAt time.Time) *WeeklyAnalytics {
	total, counts := TallyVotes(registry, votes)
	return &WeeklyAnalytics{
		WeekID:      week,
		WeekEnding:  weekEnding,
		TotalVotes:  total,
		IssueCounts: counts,
		ArchivedAt:  archivedAt,
	}
}
