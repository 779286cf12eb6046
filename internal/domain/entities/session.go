// Package entities - session.go defines requirement sessions and their phases.
package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is a workflow stage.
type Phase string

const (
	PhaseInput   Phase = "input"
	PhaseEnhance Phase = "enhance"
	PhaseReview  Phase = "review"
)

// CanMoveTo reports whether a phase transition is allowed:
// input -> enhance -> review, and review -> enhance.
func (p Phase) CanMoveTo(next Phase) bool {
	switch {
	case p == PhaseInput && next == PhaseEnhance:
		return true
	case p == PhaseEnhance && next == PhaseReview:
		return true
	case p == PhaseReview && next == PhaseEnhance:
		return true
	}
	return false
}

// Role of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangeStats counts characters changed by one clarification turn.
type ChangeStats struct {
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

// RequirementSession is one elicitation conversation.
type RequirementSession struct {
	ID                  string        `json:"id"`
	Title               string        `json:"title"`
	Phase               Phase         `json:"phase"`
	OriginalRequirement string        `json:"original_requirement"`
	CurrentRequirement  string        `json:"current_requirement"`
	History             []Message     `json:"conversation_history"`
	ReviewResult        *ReviewRecord `json:"review_result,omitempty"`
	LastChange          *ChangeStats  `json:"last_change,omitempty"`
	Revision            int           `json:"revision"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// NewSession creates a session in the input phase.
func NewSession(title string, seq int) *RequirementSession {
	if title == "" {
		title = fmt.Sprintf("New Session %d", seq)
	}
	now := time.Now()
	return &RequirementSession{
		ID:        uuid.NewString(),
		Title:     title,
		Phase:     PhaseInput,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append records a conversation entry. History is append-only.
func (s *RequirementSession) Append(role Role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: time.Now()})
	s.UpdatedAt = time.Now()
}

// SetRequirement replaces the current requirement and invalidates any review.
func (s *RequirementSession) SetRequirement(text string) {
	s.CurrentRequirement = text
	s.ReviewResult = nil
	s.Revision++
	s.UpdatedAt = time.Now()
}

// MoveTo transitions the phase or returns ErrInvalidPhase.
// Leaving the review phase clears the review result.
func (s *RequirementSession) MoveTo(next Phase) error {
	if !s.Phase.CanMoveTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPhase, s.Phase, next)
	}
	if s.Phase == PhaseReview {
		s.ReviewResult = nil
	}
	s.Phase = next
	s.UpdatedAt = time.Now()
	return nil
}
