package types

// WeekID is a week token grouping votes into one calendar week,
// e.g. "2025-W46". The rule is ISO-8601: weeks run Monday through
// Sunday and week 1 is the week containing January 4th.
type WeekID string

// String returns the string representation
func (id WeekID) String() string {
	return string(id)
}

// VoterHash is a one-way digest of a normalized voter email. The raw
// email is never persisted for poll purposes.
type VoterHash string

// String returns the string representation
func (h VoterHash) String() string {
	return string(h)
}

// IssueID identifies an issue of concern in the registry
type IssueID string

// String returns the string representation
func (id IssueID) String() string {
	return string(id)
}
