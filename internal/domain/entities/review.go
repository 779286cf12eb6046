// Package entities - review.go defines review records and issues.
package entities

import (
	"strings"
	"time"
)

// IssueType classifies a review finding.
type IssueType string

const (
	IssueError      IssueType = "error"
	IssueWarning    IssueType = "warning"
	IssueSuggestion IssueType = "suggestion"
)

// ParseIssueType maps model output onto a known type. Unknown values become suggestions.
func ParseIssueType(s string) IssueType {
	switch IssueType(strings.ToLower(strings.TrimSpace(s))) {
	case IssueError:
		return IssueError
	case IssueWarning:
		return IssueWarning
	default:
		return IssueSuggestion
	}
}

// Issue is a single finding in a review.
type Issue struct {
	Type       IssueType `json:"type"`
	Text       string    `json:"text"`
	Location   string    `json:"location"`
	Suggestion string    `json:"suggestion"`
}

// Score bounds for reviews and completeness assessments.
const (
	MinScore     = 1
	MaxScore     = 10
	NeutralScore = 5
)

// ClampScore forces a score into [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ReviewRecord is an immutable quality assessment of one requirement snapshot.
type ReviewRecord struct {
	Issues  []Issue `json:"issues"`
	Summary string  `json:"summary"`
	Score   int     `json:"score"`
}

// Normalize enforces the record invariants: non-nil issues and a clamped score.
func (r ReviewRecord) Normalize() ReviewRecord {
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	for i := range r.Issues {
		r.Issues[i].Type = ParseIssueType(string(r.Issues[i].Type))
	}
	r.Score = ClampScore(r.Score)
	return r
}

// ReviewResult wraps a review invocation. Success is false only when the
// provider call itself failed; malformed output still yields a Review.
type ReviewResult struct {
	Success     bool          `json:"success"`
	Requirement string        `json:"requirement"`
	Review      *ReviewRecord `json:"review,omitempty"`
	Structured  bool          `json:"structured"`
	Timestamp   time.Time     `json:"timestamp"`
	Error       string        `json:"error,omitempty"`
	Err         error         `json:"-"`
}
