// Package usecases - review.go reviews requirements and highlights the issues found.
package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

const reviewSystemPrompt = `You are a senior requirements review expert. You need to review requirement documents according to software engineering best practices, identify potential issues and provide improvement suggestions.

Review focus:
1. Clarity and completeness of requirements
2. Testability and implementability
3. Consistency and unambiguity
4. Consideration of non-functional requirements
5. User experience and usability
6. Technical feasibility
7. Risk identification

Output format requirements:
- Return results in JSON format
- Include issues array, each issue contains:
  - type: "error" | "warning" | "suggestion"
  - text: Issue description
  - location: Location description in the original text
  - suggestion: Improvement suggestion
- Include summary field for overall evaluation
- Include score field with quality rating from 1-10

Please conduct the review and provide feedback in English. Ensure the returned JSON format is correct.`

const defaultReviewSummary = "Review completed without a summary."

// Guidelines are the review checklists offered alongside reviews.
type Guidelines struct {
	CommonIssues  []string `json:"common_issues"`
	BestPractices []string `json:"best_practices"`
}

var reviewGuidelines = Guidelines{
	CommonIssues: []string{
		"Requirements are unclear or ambiguous",
		"Missing specific acceptance criteria",
		"Functional and non-functional requirements are confused",
		"Lack of user role definitions",
		"No clear priorities defined",
		"Technical implementation details are too complex",
		"Missing error handling and boundary conditions",
		"Performance requirements are unclear",
		"Insufficient security considerations",
		"Missing scalability requirements",
	},
	BestPractices: []string{
		"Use user story format: As [role], I want [function], so that [value]",
		"Each requirement should be testable",
		"Avoid technical jargon, use business language",
		"Clearly define acceptance criteria",
		"Consider exceptions and boundary conditions",
		"Include non-functional requirements (performance, security, usability, etc.)",
		"Ensure requirement completeness and consistency",
	},
}

// ReviewEngine scores requirement documents through the completion provider.
type ReviewEngine struct {
	llm ports.CompletionProvider
	now func() time.Time
}

// NewReviewEngine wires the engine.
func NewReviewEngine(llm ports.CompletionProvider) *ReviewEngine {
	return &ReviewEngine{llm: llm, now: time.Now}
}

// Guidelines returns copies of the review checklists.
func (e *ReviewEngine) Guidelines() Guidelines {
	return Guidelines{
		CommonIssues:  append([]string(nil), reviewGuidelines.CommonIssues...),
		BestPractices: append([]string(nil), reviewGuidelines.BestPractices...),
	}
}

// Review asks the provider for a structured review of requirement. Only a
// failed provider call yields Success=false; malformed output degrades to
// a fallback record.
func (e *ReviewEngine) Review(ctx context.Context, requirement, model string) entities.ReviewResult {
	prompt := fmt.Sprintf(`Please review the following requirement document:

"%s"

Based on software engineering best practices, identify issues and improvement points. Pay special attention to:
- Whether requirements are clear and specific
- Whether key information is missing
- Whether there are ambiguities or contradictions
- Whether non-functional requirements are sufficient
- Whether user experience is considered

Please return the review results in JSON format.`, requirement)

	raw, err := e.llm.Complete(ctx, prompt, model, reviewSystemPrompt)
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("requirement review failed")
		return entities.ReviewResult{
			Requirement: requirement,
			Timestamp:   e.now(),
			Error:       err.Error(),
			Err:         err,
		}
	}

	record, structured := ParseReview(raw)
	if !structured {
		log.Warn().Err(entities.ErrMalformedModelOutput).Int("length", len(raw)).Msg("using fallback review record")
	}
	return entities.ReviewResult{
		Success:     true,
		Requirement: requirement,
		Review:      &record,
		Structured:  structured,
		Timestamp:   e.now(),
	}
}

type wireIssue struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Location   string `json:"location"`
	Suggestion string `json:"suggestion"`
}

type wireReview struct {
	Issues  []wireIssue     `json:"issues"`
	Summary string          `json:"summary"`
	Score   json.RawMessage `json:"score"`
}

// ParseReview decodes a model response. It tries the whole response, then
// the outermost brace-delimited span. When both fail it returns the
// fallback record and false. The record always satisfies the invariants.
func ParseReview(raw string) (entities.ReviewRecord, bool) {
	if rec, ok := decodeReview(raw); ok {
		return rec, true
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if rec, ok := decodeReview(raw[start : end+1]); ok {
			return rec, true
		}
	}
	return fallbackReview(raw), false
}

func decodeReview(s string) (entities.ReviewRecord, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return entities.ReviewRecord{}, false
	}
	var w wireReview
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return entities.ReviewRecord{}, false
	}

	rec := entities.ReviewRecord{
		Issues:  make([]entities.Issue, 0, len(w.Issues)),
		Summary: strings.TrimSpace(w.Summary),
		Score:   parseScore(w.Score),
	}
	for _, i := range w.Issues {
		rec.Issues = append(rec.Issues, entities.Issue{
			Type:       entities.IssueType(i.Type),
			Text:       i.Text,
			Location:   i.Location,
			Suggestion: i.Suggestion,
		})
	}
	if rec.Summary == "" {
		rec.Summary = defaultReviewSummary
	}
	return rec.Normalize(), true
}

// parseScore accepts 7, 7.5, "7" and "7/10". Anything else is neutral.
func parseScore(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return entities.NeutralScore
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return entities.ClampScore(int(math.Round(f)))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if i := strings.Index(s, "/"); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return entities.ClampScore(int(math.Round(f)))
		}
	}
	return entities.NeutralScore
}

func fallbackReview(raw string) entities.ReviewRecord {
	summary := raw
	if strings.TrimSpace(summary) == "" {
		summary = defaultReviewSummary
	}
	return entities.ReviewRecord{
		Issues: []entities.Issue{{
			Type:       entities.IssueWarning,
			Text:       "Review result parsing failed, please check original review content",
			Location:   "Overall",
			Suggestion: "Please conduct review again",
		}},
		Summary: summary,
		Score:   entities.NeutralScore,
	}
}

var highlightKeywords = []string{
	"requirement", "function", "user", "system", "interface",
	"performance", "security", "test", "acceptance", "criteria",
}

type segment struct {
	text string
	mark *entities.Issue
}

// HighlightIssues wraps, for every error or warning issue, the first plain
// occurrence of each whitelisted keyword named in the issue text. Text is
// never removed; StripHighlights restores the input exactly.
func HighlightIssues(text string, issues []entities.Issue) string {
	segs := []segment{{text: text}}
	for i := range issues {
		issue := &issues[i]
		t := entities.ParseIssueType(string(issue.Type))
		if t != entities.IssueError && t != entities.IssueWarning {
			continue
		}
		lower := strings.ToLower(issue.Text)
		for _, kw := range highlightKeywords {
			if strings.Contains(lower, kw) {
				segs = wrapFirst(segs, kw, issue)
			}
		}
	}

	var sb strings.Builder
	for _, s := range segs {
		if s.mark == nil {
			sb.WriteString(s.text)
			continue
		}
		fmt.Fprintf(&sb, `<mark class="req-issue" data-type="%s" title="%s">%s</mark>`,
			entities.ParseIssueType(string(s.mark.Type)), html.EscapeString(s.mark.Suggestion), s.text)
	}
	return sb.String()
}

func wrapFirst(segs []segment, kw string, issue *entities.Issue) []segment {
	for i, s := range segs {
		if s.mark != nil {
			continue
		}
		j := strings.Index(s.text, kw)
		if j < 0 {
			continue
		}
		var repl []segment
		if j > 0 {
			repl = append(repl, segment{text: s.text[:j]})
		}
		repl = append(repl, segment{text: kw, mark: issue})
		if rest := s.text[j+len(kw):]; rest != "" {
			repl = append(repl, segment{text: rest})
		}
		out := make([]segment, 0, len(segs)+2)
		out = append(out, segs[:i]...)
		out = append(out, repl...)
		return append(out, segs[i+1:]...)
	}
	return segs
}

var markPattern = regexp.MustCompile(`<mark class="req-issue" data-type="[a-z]*" title="[^"]*">(.*?)</mark>`)

// StripHighlights removes the markup added by HighlightIssues.
func StripHighlights(s string) string {
	return markPattern.ReplaceAllString(s, "$1")
}
