package http

import (
	"net/http"

	"github.com/m-mizutani/ctxlog"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	archiveUC interfaces.Archive
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(archiveUC interfaces.Archive) *AdminHandler {
	return &AdminHandler{
		archiveUC: archiveUC,
	}
}

// HandleResetWeek handles POST /api/admin/reset-week: archive the current
// week right now, bypassing the safety window. The result is returned to
// the operator for audit.
func (h *AdminHandler) HandleResetWeek(w http.ResponseWriter, r *http.Request) {
	result, err := h.archiveUC.ResetCurrentWeek(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	if operator, ok := OperatorFrom(r.Context()); ok {
		ctxlog.From(r.Context()).Info("Emergency week reset executed",
			"operator", operator,
			"weekID", result.WeekID,
			"archived", result.Archived,
			"votesDeleted", result.VotesDeleted,
		)
	}

	writeJSON(w, r, http.StatusOK, result)
}
