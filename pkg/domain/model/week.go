package model

import (
	"fmt"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// WeekIDFor returns the ISO-8601 week token for the given instant in the
// organization timezone, e.g. "2025-W46". ISO weeks run Monday through
// Sunday; the year in the token is the ISO week-year, which can differ
// from the calendar year around January 1st.
func WeekIDFor(t time.Time, loc *time.Location) types.WeekID {
	year, week := t.In(loc).ISOWeek()
	return types.WeekID(fmt.Sprintf("%04d-W%02d", year, week))
}

// ParseWeekID splits a week token into its ISO week-year and week number.
// Tokens that are well-formed but name a week the year does not have
// (e.g. W53 in a 52-week year) are rejected.
func ParseWeekID(id types.WeekID) (int, int, error) {
	var year, week int
	if _, err := fmt.Sscanf(id.String(), "%4d-W%2d", &year, &week); err != nil {
		return 0, 0, goerr.Wrap(ErrInvalidWeekID, "malformed week token",
			goerr.V("weekID", id))
	}
	if id != types.WeekID(fmt.Sprintf("%04d-W%02d", year, week)) {
		return 0, 0, goerr.Wrap(ErrInvalidWeekID, "malformed week token",
			goerr.V("weekID", id))
	}
	if week < 1 || week > 53 {
		return 0, 0, goerr.Wrap(ErrInvalidWeekID, "week number out of range",
			goerr.V("weekID", id), goerr.V("week", week))
	}
	if week == 53 {
		// Round-trip through the anchor date to reject W53 in short years
		y, w := weekStart(year, week, time.UTC).ISOWeek()
		if y != year || w != week {
			return 0, 0, goerr.Wrap(ErrInvalidWeekID, "week does not exist in year",
				goerr.V("weekID", id))
		}
	}
	return year, week, nil
}

// weekStart returns the Monday 00:00:00 of the given ISO week. January 4th
// is always inside ISO week 1, which anchors the computation without any
// dependency on the current time.
func weekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	daysSinceMonday := (int(jan4.Weekday()) + 6) % 7
	week1Monday := jan4.AddDate(0, 0, -daysSinceMonday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// WeekStart returns the opening instant (Monday 00:00:00.000 local) of the
// week named by the token.
func WeekStart(id types.WeekID, loc *time.Location) (time.Time, error) {
	year, week, err := ParseWeekID(id)
	if err != nil {
		return time.Time{}, err
	}
	return weekStart(year, week, loc), nil
}

// WeekEnding returns the closing instant (Sunday 23:59:59.999 local) of the
// week named by the token. It is the inverse of WeekIDFor: deriving it from
// the token alone always yields the same instant no matter when it runs.
func WeekEnding(id types.WeekID, loc *time.Location) (time.Time, error) {
	start, err := WeekStart(id, loc)
	if err != nil {
		return time.Time{}, err
	}
	sunday := start.AddDate(0, 0, 6)
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(),
		23, 59, 59, int(999*time.Millisecond), loc), nil
}
