package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultHistoryLimit caps how many archived weeks the history endpoint
// returns when the caller does not ask for fewer
const DefaultHistoryLimit = 52

// AnalyticsUseCase is the read path over archived weekly records
type AnalyticsUseCase struct {
	repo     interfaces.Repository
	registry *model.IssueRegistry
	loc      *time.Location
}

// NewAnalyticsUseCase creates a new AnalyticsUseCase instance
func NewAnalyticsUseCase(repo interfaces.Repository, registry *model.IssueRegistry, loc *time.Location) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		repo:     repo,
		registry: registry,
		loc:      loc,
	}
}

// RecentHistory returns archived weeks sorted by week ending, newest
// first. The limit is clamped to [1, DefaultHistoryLimit].
func (uc *AnalyticsUseCase) RecentHistory(ctx context.Context, limit int) ([]*model.WeeklyAnalytics, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	records, err := uc.repo.ListRecentAnalytics(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent analytics")
	}

	return records, nil
}

// MonthlyExportCSV renders the calendar month's archived weeks as CSV: one
// row per week plus a trailing TOTAL row summing every numeric column.
// Columns cover every issue the registry recognizes, in registry order. A
// month with no archived weeks fails with model.ErrNoArchivedWeeks so the
// caller can signal not-found instead of serving an empty file.
func (uc *AnalyticsUseCase) MonthlyExportCSV(ctx context.Context, year int, month int, w io.Writer) error {
	if month < 1 || month > 12 {
		return goerr.New("month out of range", goerr.V("month", month))
	}
	if year < 2000 || year > 9999 {
		return goerr.New("year out of range", goerr.V("year", year))
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, uc.loc)
	to := from.AddDate(0, 1, 0)

	records, err := uc.repo.ListAnalyticsByWeekEnding(ctx, from, to)
	if err != nil {
		return goerr.Wrap(err, "failed to list analytics for export",
			goerr.V("year", year), goerr.V("month", month))
	}
	if len(records) == 0 {
		return goerr.Wrap(model.ErrNoArchivedWeeks, "monthly export is empty",
			goerr.V("year", year), goerr.V("month", month))
	}

	issues := uc.registry.All()

	header := []string{"Week", "Date Range", "Total Votes"}
	for _, issue := range issues {
		header = append(header, issue.Name)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return goerr.Wrap(err, "failed to write export header")
	}

	grandTotal := 0
	issueTotals := make([]int, len(issues))
	for _, record := range records {
		row := []string{
			record.WeekID.String(),
			uc.dateRange(record),
			strconv.Itoa(record.TotalVotes),
		}
		for i, issue := range issues {
			count := record.IssueCounts[issue.ID]
			issueTotals[i] += count
			row = append(row, strconv.Itoa(count))
		}
		grandTotal += record.TotalVotes

		if err := cw.Write(row); err != nil {
			return goerr.Wrap(err, "failed to write export row",
				goerr.V("weekID", record.WeekID))
		}
	}

	totalRow := []string{"TOTAL", "", strconv.Itoa(grandTotal)}
	for _, n := range issueTotals {
		totalRow = append(totalRow, strconv.Itoa(n))
	}
	if err := cw.Write(totalRow); err != nil {
		return goerr.Wrap(err, "failed to write export totals")
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush export")
	}

	return nil
}

// dateRange renders the week's Monday through Sunday span, e.g.
// "Nov 10 - Nov 16, 2025". Falls back to the week ending alone if the
// stored token is unparseable.
func (uc *AnalyticsUseCase) dateRange(record *model.WeeklyAnalytics) string {
	end := record.WeekEnding.In(uc.loc)
	start, err := model.WeekStart(record.WeekID, uc.loc)
	if err != nil {
		return end.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
}

var _ interfaces.Analytics = (*AnalyticsUseCase)(nil)
