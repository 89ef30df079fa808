package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// MaxSelectedIssues is the most issues a single weekly vote may select
const MaxSelectedIssues = 3

// Vote is one voter's ballot for one week. At most one Vote exists per
// (VoterHash, WeekID) pair; a resubmission overwrites it. Votes are
// deleted only when their week is archived.
type Vote struct {
	VoterHash      types.VoterHash `json:"-"`
	SelectedIssues []types.IssueID `json:"selectedIssues"`
	WeekID         types.WeekID    `json:"weekIdentifier"`
	VotedAt        time.Time       `json:"votedAt"`
}

// HashEmail validates and normalizes a voter email (trimmed, lowercased)
// and returns its one-way digest. The raw email never leaves this function.
func HashEmail(email string) (types.VoterHash, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", goerr.Wrap(ErrInvalidVote, "email is required")
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", goerr.Wrap(ErrInvalidVote, "malformed email address")
	}

	sum := sha256.Sum256([]byte(normalized))
	return types.VoterHash(hex.EncodeToString(sum[:])), nil
}

// NewVote builds a validated Vote for the given week
func NewVote(voterHash types.VoterHash, issues []types.IssueID, week types.WeekID, votedAt time.Time) (*Vote, error) {
	if voterHash == "" {
		return nil, goerr.New("voter hash is required")
	}
	if len(issues) < 1 || len(issues) > MaxSelectedIssues {
		return nil, goerr.Wrap(ErrInvalidVote, "select between 1 and 3 issues",
			goerr.V("selected", len(issues)))
	}

	seen := make(map[types.IssueID]bool, len(issues))
	for _, id := range issues {
		if seen[id] {
			return nil, goerr.Wrap(ErrInvalidVote, "duplicate issue selection",
				goerr.V("issueID", id))
		}
		seen[id] = true
	}

	selected := make([]types.IssueID, len(issues))
	copy(selected, issues)

	return &Vote{
		VoterHash:      voterHash,
		SelectedIssues: selected,
		WeekID:         week,
		VotedAt:        votedAt,
	}, nil
}

// DocID returns the document key enforcing one vote per voter per week
func (v *Vote) DocID() string {
	return fmt.Sprintf("%s_%s", v.VoterHash, v.WeekID)
}

// Validate validates the vote
func (v *Vote) Validate() error {
	if v.VoterHash == "" {
		return goerr.New("voter hash is required")
	}
	if v.WeekID == "" {
		return goerr.New("week identifier is required")
	}
	if len(v.SelectedIssues) < 1 || len(v.SelectedIssues) > MaxSelectedIssues {
		return goerr.New("selected issues out of range",
			goerr.V("selected", len(v.SelectedIssues)))
	}
	return nil
}

// Clone returns a deep copy
func (v *Vote) Clone() *Vote {
	voteCopy := *v
	voteCopy.SelectedIssues = make([]types.IssueID, len(v.SelectedIssues))
	copy(voteCopy.SelectedIssues, v.SelectedIssues)
	return &voteCopy
}
