package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrInvalidVote marks validation failures on vote submission.
	// Nothing is written when a submission fails with this error.
	ErrInvalidVote = goerr.New("invalid vote submission")

	// ErrVoteConflict marks a first-time vote race that could not be
	// resolved by retrying as an update
	ErrVoteConflict = goerr.New("unresolved vote conflict")

	// ErrVoteNotFound is returned when no vote exists for a voter and week
	ErrVoteNotFound = goerr.New("vote not found")

	// ErrAnalyticsNotFound is returned when no analytics record exists for a week
	ErrAnalyticsNotFound = goerr.New("weekly analytics not found")

	// ErrNoArchivedWeeks distinguishes "no archived weeks in the requested
	// month" from an empty export file, which is never emitted
	ErrNoArchivedWeeks = goerr.New("no archived weeks in month")

	// ErrInvalidWeekID is returned for malformed or out-of-range week tokens
	ErrInvalidWeekID = goerr.New("invalid week identifier")
)
