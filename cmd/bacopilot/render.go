package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

const wrapWidth = 100

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))

	phaseStyles = map[entities.Phase]lipgloss.Style{
		entities.PhaseInput:   lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("240")),
		entities.PhaseEnhance: lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("25")),
		entities.PhaseReview:  lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("90")),
	}
)

// renderMarkdown renders a requirement document for the terminal, falling
// back to the raw text when the renderer fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func phaseBadge(p entities.Phase) string {
	style, ok := phaseStyles[p]
	if !ok {
		return string(p)
	}
	return style.Render(strings.ToUpper(string(p)))
}

func issueStyle(t entities.IssueType) lipgloss.Style {
	switch t {
	case entities.IssueError:
		return errorStyle
	case entities.IssueWarning:
		return warnStyle
	default:
		return hintStyle
	}
}

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 8:
		return okStyle
	case score >= 5:
		return warnStyle
	default:
		return errorStyle
	}
}

func printSessionHeader(w io.Writer, s *entities.RequirementSession) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(s.Title), phaseBadge(s.Phase))
	fmt.Fprintf(w, "%s %s  %s %s\n",
		labelStyle.Render("id"), s.ID,
		labelStyle.Render("updated"), s.UpdatedAt.Format("2006-01-02 15:04"))
}

func printSession(w io.Writer, s *entities.RequirementSession) {
	printSessionHeader(w, s)
	if s.CurrentRequirement != "" {
		fmt.Fprint(w, renderMarkdown(s.CurrentRequirement))
	} else if s.OriginalRequirement != "" {
		fmt.Fprintln(w, s.OriginalRequirement)
	}
	if s.LastChange != nil {
		fmt.Fprintln(w, hintStyle.Render(fmt.Sprintf("last turn: +%d -%d characters", s.LastChange.Inserted, s.LastChange.Deleted)))
	}
	if s.ReviewResult != nil {
		printReview(w, *s.ReviewResult)
	}
}

func printReview(w io.Writer, r entities.ReviewRecord) {
	fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render("Review"),
		scoreStyle(r.Score).Render(fmt.Sprintf("%d/%d", r.Score, entities.MaxScore)))
	fmt.Fprintln(w, r.Summary)
	for _, is := range r.Issues {
		fmt.Fprintf(w, "  %s %s\n", issueStyle(is.Type).Render("["+string(is.Type)+"]"), is.Text)
		if is.Location != "" {
			fmt.Fprintf(w, "      %s %s\n", labelStyle.Render("at"), is.Location)
		}
		if is.Suggestion != "" {
			fmt.Fprintf(w, "      %s %s\n", labelStyle.Render("fix"), is.Suggestion)
		}
	}
}

func printList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(heading))
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func printReport(w io.Writer, r entities.ImprovementReport) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Completeness"),
		scoreStyle(r.CompletenessScore).Render(fmt.Sprintf("%d/%d", r.CompletenessScore, entities.MaxScore)))
	printList(w, "Missing elements", r.MissingElements)
	printList(w, "Best practices", r.BestPractices)
	printList(w, "Potential risks", r.PotentialRisks)
	printList(w, "Suggestions", r.Suggestions)
}

var markTag = regexp.MustCompile(`<mark class="req-issue" data-type="([a-z]*)" title="[^"]*">(.*?)</mark>`)

// terminalHighlights turns issue markup into terminal colours.
func terminalHighlights(s string) string {
	return markTag.ReplaceAllStringFunc(s, func(m string) string {
		parts := markTag.FindStringSubmatch(m)
		style := issueStyle(entities.ParseIssueType(parts[1])).Underline(true)
		return style.Render(parts[2])
	})
}
