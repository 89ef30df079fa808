package model

import (
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Issue represents one issue of concern that visitors can vote for
type Issue struct {
	ID          types.IssueID `yaml:"id" json:"id"`                                // Unique identifier (e.g., "housing")
	Name        string        `yaml:"name" json:"name"`                            // Display name
	Description string        `yaml:"description,omitempty" json:"description,omitempty"` // Optional ballot help text
	Retired     bool          `yaml:"retired,omitempty" json:"retired,omitempty"`  // Retired issues are no longer votable but still reported
}

// Validate validates the issue
func (i *Issue) Validate() error {
	if i.ID == "" {
		return goerr.New("issue ID is required")
	}
	if i.Name == "" {
		return goerr.New("issue name is required", goerr.V("issueID", i.ID))
	}
	return nil
}

// IssueRegistry is the single source of truth for issue names. It is
// consulted everywhere an issue set matters: submission validation,
// tally zero-fill, live results, and export columns.
type IssueRegistry struct {
	Issues []Issue `yaml:"issues"`
}

// Validate validates the registry
func (r *IssueRegistry) Validate() error {
	if len(r.Issues) == 0 {
		return goerr.New("issue registry must contain at least one issue")
	}

	seen := make(map[types.IssueID]bool, len(r.Issues))
	activeCount := 0
	for i := range r.Issues {
		issue := &r.Issues[i]
		if err := issue.Validate(); err != nil {
			return goerr.Wrap(err, "invalid issue", goerr.V("index", i))
		}
		if seen[issue.ID] {
			return goerr.New("duplicate issue ID", goerr.V("issueID", issue.ID))
		}
		seen[issue.ID] = true
		if !issue.Retired {
			activeCount++
		}
	}

	if activeCount == 0 {
		return goerr.New("issue registry must contain at least one active issue")
	}

	return nil
}

// All returns every recognized issue, retired ones included. Tallies are
// zero-filled across this set so counts are never sparse.
func (r *IssueRegistry) All() []Issue {
	issues := make([]Issue, len(r.Issues))
	copy(issues, r.Issues)
	return issues
}

// Active returns the issues currently open for voting
func (r *IssueRegistry) Active() []Issue {
	var issues []Issue
	for _, issue := range r.Issues {
		if !issue.Retired {
			issues = append(issues, issue)
		}
	}
	return issues
}

// IsActive reports whether the issue exists and is open for voting
func (r *IssueRegistry) IsActive(id types.IssueID) bool {
	for _, issue := range r.Issues {
		if issue.ID == id {
			return !issue.Retired
		}
	}
	return false
}

// Find returns the issue with the given ID
func (r *IssueRegistry) Find(id types.IssueID) (*Issue, bool) {
	for i := range r.Issues {
		if r.Issues[i].ID == id {
			issue := r.Issues[i]
			return &issue, true
		}
	}
	return nil, false
}

// DefaultIssueRegistry returns the built-in issue set used when no
// registry file is configured. It flows through the same type as a
// file-backed registry so there is never a second source of truth.
func DefaultIssueRegistry() *IssueRegistry {
	return &IssueRegistry{
		Issues: []Issue{
			{ID: "housing", Name: "Housing & Affordability"},
			{ID: "public-safety", Name: "Public Safety"},
			{ID: "education", Name: "Schools & Education"},
			{ID: "transit", Name: "Transit & Roads"},
			{ID: "environment", Name: "Environment & Parks"},
			{ID: "local-economy", Name: "Jobs & Local Economy"},
			{ID: "healthcare", Name: "Healthcare Access"},
		},
	}
}
