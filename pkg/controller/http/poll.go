package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
)

// PollHandler handles the public voting endpoints
type PollHandler struct {
	voteUC   interfaces.Vote
	registry *model.IssueRegistry
}

// NewPollHandler creates a new poll handler
func NewPollHandler(voteUC interfaces.Vote, registry *model.IssueRegistry) *PollHandler {
	return &PollHandler{
		voteUC:   voteUC,
		registry: registry,
	}
}

type voteRequest struct {
	Email          string          `json:"email"`
	SelectedIssues []types.IssueID `json:"selectedIssues"`
}

type voteBody struct {
	SelectedIssues []types.IssueID `json:"selectedIssues"`
	VotedAt        time.Time       `json:"votedAt"`
}

type voteResponse struct {
	Message string   `json:"message"`
	Vote    voteBody `json:"vote"`
}

// HandleVote handles POST /api/vote
func (h *PollHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(model.ErrInvalidVote, "malformed request body"))
		return
	}

	vote, created, err := h.voteUC.Submit(r.Context(), req.Email, req.SelectedIssues)
	if err != nil {
		handleError(w, r, err)
		return
	}

	message := "Vote recorded"
	if !created {
		message = "Vote updated"
	}

	writeJSON(w, r, http.StatusOK, voteResponse{
		Message: message,
		Vote: voteBody{
			SelectedIssues: vote.SelectedIssues,
			VotedAt:        vote.VotedAt,
		},
	})
}

type statusRequest struct {
	Email string `json:"email"`
}

type statusResponse struct {
	HasVoted       bool            `json:"hasVoted"`
	SelectedIssues []types.IssueID `json:"selectedIssues"`
}

// HandleVoteStatus handles POST /api/vote/status
func (h *PollHandler) HandleVoteStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(model.ErrInvalidVote, "malformed request body"))
		return
	}

	vote, err := h.voteUC.Status(r.Context(), req.Email)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := statusResponse{}
	if vote != nil {
		resp.HasVoted = true
		resp.SelectedIssues = vote.SelectedIssues
	}

	writeJSON(w, r, http.StatusOK, resp)
}

type resultsResponse struct {
	WeekIdentifier types.WeekID          `json:"weekIdentifier"`
	TotalVotes     int                   `json:"totalVotes"`
	IssueCounts    map[types.IssueID]int `json:"issueCounts"`
	Issues         []model.Issue         `json:"issues"`
}

// HandleResults handles GET /api/results: the current week's live tally
// plus the ballot of issues open for voting
func (h *PollHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	tally, err := h.voteUC.LiveResults(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	issues := h.registry.Active()
	if issues == nil {
		issues = []model.Issue{}
	}

	writeJSON(w, r, http.StatusOK, resultsResponse{
		WeekIdentifier: tally.WeekID,
		TotalVotes:     tally.TotalVotes,
		IssueCounts:    tally.IssueCounts,
		Issues:         issues,
	})
}
