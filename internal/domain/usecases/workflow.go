// Package usecases - workflow.go drives requirement sessions through the input, enhance and review phases.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// Workflow sequences the input, enhance and review phases of requirement
// sessions. Operations on one session run one at a time; sessions are
// independent of each other.
type Workflow struct {
	sessions ports.SessionStore
	enhancer *EnhancementEngine
	reviewer *ReviewEngine

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWorkflow wires the controller.
func NewWorkflow(sessions ports.SessionStore, enhancer *EnhancementEngine, reviewer *ReviewEngine) *Workflow {
	return &Workflow{
		sessions: sessions,
		enhancer: enhancer,
		reviewer: reviewer,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (w *Workflow) lock(id string) func() {
	w.mu.Lock()
	l, ok := w.locks[id]
	if !ok {
		l = &sync.Mutex{}
		w.locks[id] = l
	}
	w.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// NewSession creates and persists an empty session.
func (w *Workflow) NewSession(ctx context.Context, title string) (*entities.RequirementSession, error) {
	existing, err := w.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	s := entities.NewSession(title, len(existing)+1)
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Session loads one session.
func (w *Workflow) Session(ctx context.Context, id string) (*entities.RequirementSession, error) {
	return w.sessions.Load(ctx, id)
}

// Sessions lists sessions, newest first.
func (w *Workflow) Sessions(ctx context.Context) ([]*entities.RequirementSession, error) {
	list, err := w.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// DeleteSession removes a session and its state.
func (w *Workflow) DeleteSession(ctx context.Context, id string) error {
	unlock := w.lock(id)
	defer unlock()

	if err := w.sessions.Delete(ctx, id); err != nil {
		return err
	}
	w.mu.Lock()
	delete(w.locks, id)
	w.mu.Unlock()
	return nil
}

// Submit enhances the initial requirement and moves the session from input
// to enhance. The user message is persisted before the provider is called.
//
// The original requirement is fixed by the first submission. After a failed
// provider call the session stays in input; a retry may repeat the same text
// or pass an empty input to reuse it, but may not replace it.
func (w *Workflow) Submit(ctx context.Context, id, input, model string) (*entities.RequirementSession, entities.EnhancementResult, error) {
	unlock := w.lock(id)
	defer unlock()

	input = strings.TrimSpace(input)
	s, err := w.loadIn(ctx, id, entities.PhaseInput)
	if err != nil {
		return nil, entities.EnhancementResult{}, err
	}

	switch {
	case s.OriginalRequirement != "":
		if input != "" && input != s.OriginalRequirement {
			return nil, entities.EnhancementResult{}, fmt.Errorf("%w: session %s already holds its original requirement", entities.ErrInvalidPhase, id)
		}
		input = s.OriginalRequirement
	case input == "":
		return nil, entities.EnhancementResult{}, entities.ErrEmptyContent
	default:
		s.OriginalRequirement = input
		s.Append(entities.RoleUser, input)
		if err := w.sessions.Save(ctx, s); err != nil {
			return nil, entities.EnhancementResult{}, fmt.Errorf("saving session: %w", err)
		}
	}

	res := w.enhancer.Enhance(ctx, input, model)
	if !res.Success {
		return s, res, providerError(res.Err, res.Error)
	}

	s.SetRequirement(res.EnhancedRequirement)
	if err := s.MoveTo(entities.PhaseEnhance); err != nil {
		return nil, res, err
	}
	s.Append(entities.RoleAssistant, withInsights(res.EnhancedRequirement, "Knowledge Base Insights", res.KBSuggestions, res.KnowledgeBaseUsed))
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, res, fmt.Errorf("saving session: %w", err)
	}
	return s, res, nil
}

// Clarify runs one refinement turn in the enhance phase. The number of
// turns is unbounded.
func (w *Workflow) Clarify(ctx context.Context, id, question, model string) (*entities.RequirementSession, entities.ClarificationResult, error) {
	unlock := w.lock(id)
	defer unlock()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, entities.ClarificationResult{}, entities.ErrEmptyContent
	}
	s, err := w.loadIn(ctx, id, entities.PhaseEnhance)
	if err != nil {
		return nil, entities.ClarificationResult{}, err
	}

	s.Append(entities.RoleUser, question)
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, entities.ClarificationResult{}, fmt.Errorf("saving session: %w", err)
	}

	previous := s.CurrentRequirement
	res := w.enhancer.Clarify(ctx, previous, question, model)
	if !res.Success {
		return s, res, providerError(res.Err, res.Error)
	}

	stats := changeStats(previous, res.ClarifiedRequirement)
	s.SetRequirement(res.ClarifiedRequirement)
	s.LastChange = &stats
	s.Append(entities.RoleAssistant, withInsights(res.ClarifiedRequirement, "Additional Insights", res.AdditionalSuggestions, res.KnowledgeBaseUsed))
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, res, fmt.Errorf("saving session: %w", err)
	}
	log.Debug().Str("session", id).Int("inserted", stats.Inserted).Int("deleted", stats.Deleted).Msg("requirement clarified")
	return s, res, nil
}

// Review reviews the current requirement. From the enhance phase it moves
// to review; in the review phase it replaces the previous review. The
// record is assigned only once the provider call completes.
func (w *Workflow) Review(ctx context.Context, id, model string) (*entities.RequirementSession, entities.ReviewResult, error) {
	unlock := w.lock(id)
	defer unlock()

	s, err := w.loadIn(ctx, id, entities.PhaseEnhance, entities.PhaseReview)
	if err != nil {
		return nil, entities.ReviewResult{}, err
	}

	revision := s.Revision
	res := w.reviewer.Review(ctx, s.CurrentRequirement, model)
	if !res.Success {
		return s, res, providerError(res.Err, res.Error)
	}
	// Another process may share the session store.
	if s, err = w.sessions.Load(ctx, id); err != nil {
		return nil, res, err
	}
	if s.Revision != revision {
		return s, res, fmt.Errorf("%w: requirement changed during review", entities.ErrStaleReview)
	}

	if s.Phase == entities.PhaseEnhance {
		if err := s.MoveTo(entities.PhaseReview); err != nil {
			return nil, res, err
		}
	}
	s.ReviewResult = res.Review
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, res, fmt.Errorf("saving session: %w", err)
	}
	return s, res, nil
}

// BackToEnhance returns from review to enhance and drops the review.
func (w *Workflow) BackToEnhance(ctx context.Context, id string) (*entities.RequirementSession, error) {
	unlock := w.lock(id)
	defer unlock()

	s, err := w.loadIn(ctx, id, entities.PhaseReview)
	if err != nil {
		return nil, err
	}
	if err := s.MoveTo(entities.PhaseEnhance); err != nil {
		return nil, err
	}
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Improvements reports on the session's current requirement, or the
// original one before enhancement.
func (w *Workflow) Improvements(ctx context.Context, id string) (entities.ImprovementReport, error) {
	s, err := w.sessions.Load(ctx, id)
	if err != nil {
		return entities.ImprovementReport{}, err
	}
	text := s.CurrentRequirement
	if text == "" {
		text = s.OriginalRequirement
	}
	return w.enhancer.SuggestImprovements(ctx, text), nil
}

// Highlighted returns the current requirement annotated with the issues of
// the session's review.
func (w *Workflow) Highlighted(ctx context.Context, id string) (string, error) {
	s, err := w.sessions.Load(ctx, id)
	if err != nil {
		return "", err
	}
	if s.ReviewResult == nil {
		return "", fmt.Errorf("%w: session %s has no review", entities.ErrInvalidPhase, id)
	}
	return HighlightIssues(s.CurrentRequirement, s.ReviewResult.Issues), nil
}

func (w *Workflow) loadIn(ctx context.Context, id string, phases ...entities.Phase) (*entities.RequirementSession, error) {
	s, err := w.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range phases {
		if s.Phase == p {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: session is in %s phase", entities.ErrInvalidPhase, s.Phase)
}

func withInsights(content, heading string, suggestions []string, used bool) string {
	if !used || len(suggestions) == 0 {
		return content
	}
	return content + "\n\n**" + heading + ":**\n" + strings.TrimRight(bulletList(suggestions), "\n")
}

// changeStats counts inserted and deleted characters between two revisions.
func changeStats(before, after string) entities.ChangeStats {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var stats entities.ChangeStats
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			stats.Inserted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			stats.Deleted += utf8.RuneCountInString(d.Text)
		}
	}
	return stats
}

// providerError keeps the provider's own error in the chain so callers can
// tell an unknown model apart from a failed call.
func providerError(err error, msg string) error {
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", entities.ErrProviderCallFailed, msg)
	case errors.Is(err, entities.ErrProviderUnavailable), errors.Is(err, entities.ErrProviderCallFailed):
		return err
	default:
		return fmt.Errorf("%w: %w", entities.ErrProviderCallFailed, err)
	}
}
