package model

import (
	"time"

	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ArchiveResult reports the outcome of archiving a single week
type ArchiveResult struct {
	WeekID       types.WeekID `json:"weekIdentifier"`
	Archived     bool         `json:"archived"`
	VotesDeleted int          `json:"votesDeleted"`
	TotalVotes   int          `json:"totalVotes"`
}

// SweepResult reports one catch-up sweep over all closed weeks. A sweep
// that fires outside the archive window performs no writes and reports
// SkippedWindow.
type SweepResult struct {
	SkippedWindow bool           `json:"skippedWindow"`
	WeeksArchived int            `json:"weeksArchived"`
	WeeksFailed   int            `json:"weeksFailed"`
	VotesDeleted  int            `json:"votesDeleted"`
	Weeks         []types.WeekID `json:"weeks,omitempty"`
}

// ArchiveWindow is the wall-clock interval in which a scheduled sweep may
// perform archive writes: from OpenHour on the week's closing day (Sunday)
// through CloseHour the following Monday, organization-local time. The
// guard exists so a misconfigured clock or stray extra invocation cannot
// wipe an active week's data mid-week.
type ArchiveWindow struct {
	OpenHour  int
	CloseHour int
}

// DefaultArchiveWindow spans Sunday 20:00 through Monday 12:00 local time
func DefaultArchiveWindow() ArchiveWindow {
	return ArchiveWindow{OpenHour: 20, CloseHour: 12}
}

// Validate validates the window bounds
func (w ArchiveWindow) Validate() error {
	if w.OpenHour < 0 || w.OpenHour > 23 {
		return goerr.New("archive window open hour out of range",
			goerr.V("openHour", w.OpenHour))
	}
	if w.CloseHour < 0 || w.CloseHour > 23 {
		return goerr.New("archive window close hour out of range",
			goerr.V("closeHour", w.CloseHour))
	}
	return nil
}

// Contains reports whether t falls inside the window
func (w ArchiveWindow) Contains(t time.Time) bool {
	switch t.Weekday() {
	case time.Sunday:
		return t.Hour() >= w.OpenHour
	case time.Monday:
		return t.Hour() < w.CloseHour
	default:
		return false
	}
}
