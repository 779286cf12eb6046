package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

const validReview = `{
  "issues": [
    {"type": "error", "text": "Missing acceptance criteria", "location": "Overall", "suggestion": "Add criteria"},
    {"type": "suggestion", "text": "Consider caching", "location": "NFR", "suggestion": "Add a cache"}
  ],
  "summary": "Solid start",
  "score": 6
}`

func TestParseReview_Robustness(t *testing.T) {
	cases := map[string]struct {
		raw        string
		structured bool
	}{
		"valid json":       {raw: validReview, structured: true},
		"json in prose":    {raw: "Here is my review:\n```json\n" + validReview + "\n```\nThanks!", structured: true},
		"prose":            {raw: "The document looks fine overall.", structured: false},
		"empty":            {raw: "", structured: false},
		"broken json":      {raw: `{"issues": [`, structured: false},
		"json array":       {raw: `[1, 2, 3]`, structured: false},
		"nested braces ok": {raw: `note {"summary": "x", "score": 3, "issues": []} end`, structured: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, structured := ParseReview(tc.raw)

			assert.Equal(t, tc.structured, structured)
			assert.NotNil(t, rec.Issues)
			assert.NotEmpty(t, rec.Summary)
			assert.GreaterOrEqual(t, rec.Score, 1)
			assert.LessOrEqual(t, rec.Score, 10)
		})
	}
}

func TestParseReview_ValidFields(t *testing.T) {
	rec, ok := ParseReview(validReview)

	require.True(t, ok)
	want := entities.ReviewRecord{
		Issues: []entities.Issue{
			{Type: entities.IssueError, Text: "Missing acceptance criteria", Location: "Overall", Suggestion: "Add criteria"},
			{Type: entities.IssueSuggestion, Text: "Consider caching", Location: "NFR", Suggestion: "Add a cache"},
		},
		Summary: "Solid start",
		Score:   6,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("review mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReview_Fallback(t *testing.T) {
	raw := "I could not produce JSON, but the requirement lacks security."

	rec, ok := ParseReview(raw)

	require.False(t, ok)
	require.Len(t, rec.Issues, 1)
	assert.Equal(t, entities.IssueWarning, rec.Issues[0].Type)
	assert.Equal(t, "Overall", rec.Issues[0].Location)
	assert.Equal(t, raw, rec.Summary, "raw response must be preserved")
	assert.Equal(t, 5, rec.Score)
}

func TestParseReview_ScoreShapes(t *testing.T) {
	cases := map[string]int{
		`{"score": 7}`:      7,
		`{"score": 7.6}`:    8,
		`{"score": "9"}`:    9,
		`{"score": "8/10"}`: 8,
		`{"score": 42}`:     10,
		`{"score": -1}`:     1,
		`{"score": "high"}`: 5,
		`{"score": null}`:   5,
		`{}`:                5,
	}
	for raw, want := range cases {
		rec, ok := ParseReview(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, rec.Score, raw)
		assert.NotNil(t, rec.Issues, raw)
		assert.Equal(t, defaultReviewSummary, rec.Summary, raw)
	}
}

func TestReview_ProviderFailureIsTerminal(t *testing.T) {
	llm := &mockLLM{completeFn: func(string, string) (string, error) {
		return "", errors.New("503")
	}}
	engine := NewReviewEngine(llm)

	res := engine.Review(context.Background(), "req", "anthropic")

	assert.False(t, res.Success)
	assert.Nil(t, res.Review)
	assert.Equal(t, 1, llm.calls(), "review has no fallback prompt")
}

func TestReview_UsesReviewPrompt(t *testing.T) {
	var system string
	llm := &mockLLM{completeFn: func(_, sp string) (string, error) {
		system = sp
		return validReview, nil
	}}
	engine := NewReviewEngine(llm)

	res := engine.Review(context.Background(), "The system shall export CSV.", "demo")

	require.True(t, res.Success)
	assert.True(t, res.Structured)
	assert.Equal(t, 6, res.Review.Score)
	assert.Contains(t, strings.ToLower(system), "review")
	assert.Contains(t, llm.prompts[0], `"The system shall export CSV."`)
}

func TestReview_MalformedOutputStillSucceeds(t *testing.T) {
	engine := NewReviewEngine(&mockLLM{response: "no json here"})

	res := engine.Review(context.Background(), "req", "demo")

	require.True(t, res.Success)
	assert.False(t, res.Structured)
	assert.Equal(t, "no json here", res.Review.Summary)
}

func TestGuidelines_ReturnsCopies(t *testing.T) {
	engine := NewReviewEngine(&mockLLM{})

	g := engine.Guidelines()
	g.CommonIssues[0] = "mutated"

	assert.Len(t, g.CommonIssues, 10)
	assert.Len(t, g.BestPractices, 7)
	assert.NotEqual(t, "mutated", engine.Guidelines().CommonIssues[0])
}

func TestHighlightIssues_WrapsFirstOccurrence(t *testing.T) {
	text := "The user logs in. Every user sees a dashboard."
	issues := []entities.Issue{{Type: entities.IssueWarning, Text: "User roles unclear", Suggestion: "Define roles"}}

	out := HighlightIssues(text, issues)

	assert.Equal(t, `The <mark class="req-issue" data-type="warning" title="Define roles">user</mark> logs in. Every user sees a dashboard.`, out)
}

func TestHighlightIssues_SkipsSuggestions(t *testing.T) {
	text := "The user logs in."
	issues := []entities.Issue{{Type: entities.IssueSuggestion, Text: "user", Suggestion: "x"}}

	assert.Equal(t, text, HighlightIssues(text, issues))
}

func TestHighlightIssues_LaterIssuesTakeNextOccurrence(t *testing.T) {
	text := "user one, user two"
	issues := []entities.Issue{
		{Type: entities.IssueError, Text: "user", Suggestion: "a"},
		{Type: entities.IssueWarning, Text: "user again", Suggestion: "b"},
	}

	out := HighlightIssues(text, issues)

	assert.Equal(t, 2, strings.Count(out, "<mark"))
	assert.Contains(t, out, `title="a">user</mark> one`)
	assert.Contains(t, out, `title="b">user</mark> two`)
}

func TestHighlightIssues_EscapesSuggestion(t *testing.T) {
	out := HighlightIssues("system", []entities.Issue{{Type: "error", Text: "system", Suggestion: `say "hi" <b>`}})

	assert.Contains(t, out, `title="say &#34;hi&#34; &lt;b&gt;"`)
	assert.Equal(t, "system", StripHighlights(out))
}

func TestHighlightIssues_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"plain text without keywords",
		"The system must meet performance and security criteria; the user interface needs acceptance test coverage.",
		"requirement requirement requirement",
		"<b>user</b> & \"system\"",
	}
	issueSets := [][]entities.Issue{
		nil,
		{{Type: entities.IssueError, Text: "requirement function user system interface performance security test acceptance criteria", Suggestion: "fix"}},
		{
			{Type: entities.IssueWarning, Text: "requirement", Suggestion: "one"},
			{Type: entities.IssueWarning, Text: "requirement", Suggestion: "two"},
			{Type: entities.IssueWarning, Text: "requirement", Suggestion: "three"},
			{Type: entities.IssueWarning, Text: "requirement", Suggestion: "four"},
		},
		{{Type: entities.IssueSuggestion, Text: "system", Suggestion: "ignored"}},
	}
	for _, text := range texts {
		for _, issues := range issueSets {
			out := HighlightIssues(text, issues)
			assert.GreaterOrEqual(t, len(out), len(text))
			assert.Equal(t, text, StripHighlights(out))
		}
	}
}
