package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
)

// AnalyticsHandler handles the archived-results read endpoints
type AnalyticsHandler struct {
	analyticsUC interfaces.Analytics
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsUC interfaces.Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsUC: analyticsUC,
	}
}

// HandleAnalytics handles GET /api/analytics
func (h *AnalyticsHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.analyticsUC.RecentHistory(r.Context(), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if records == nil {
		records = []*model.WeeklyAnalytics{}
	}

	writeJSON(w, r, http.StatusOK, records)
}

// HandleMonthlyExport handles GET /api/admin/export/{year}/{month}. The CSV
// is rendered into a buffer first so a not-found month yields a clean 404
// instead of a truncated download.
func (h *AnalyticsHandler) HandleMonthlyExport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		http.Error(w, "year must be an integer", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		http.Error(w, "month must be an integer", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.analyticsUC.MonthlyExportCSV(r.Context(), year, month, &buf); err != nil {
		handleError(w, r, err)
		return
	}

	if operator, ok := OperatorFrom(r.Context()); ok {
		ctxlog.From(r.Context()).Info("Monthly export downloaded",
			"operator", operator,
			"year", year,
			"month", month,
		)
	}

	filename := fmt.Sprintf("pulse-%04d-%02d.csv", year, month)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write export", "error", err)
	}
}
