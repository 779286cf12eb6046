// Package usecases - enhance.go enhances and clarifies requirements with knowledge base insights.
package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

const enhancementSystemPrompt = `You are an advanced requirements analyst with access to a comprehensive knowledge base. Your task is to help users refine and enhance their requirement descriptions using best practices and industry standards.

Please follow these principles:
1. Analyze user requirements using knowledge base insights
2. Identify gaps and missing information based on similar projects
3. Ask targeted questions derived from domain expertise
4. Provide structured, comprehensive requirement documents
5. Include both functional and non-functional requirements
6. Suggest best practices and potential risks

Format your responses clearly using Markdown, and always explain your reasoning for suggested improvements.`

const enhancementDeliverables = `Please analyze this requirement and provide:
1. A comprehensive, enhanced requirement document
2. Identification of any missing critical information
3. Specific recommendations based on industry best practices
4. Potential risks or challenges to consider
5. Suggested next steps for requirement clarification

Make your response detailed, structured, and actionable.`

// basicQuestions are used whenever knowledge questions are unavailable.
var basicQuestions = []string{
	"What is the main goal of this system?",
	"Who are the primary users?",
	"What is the expected number of users?",
	"Are there any special technical requirements?",
	"What are the project time and budget constraints?",
}

// EnhancementEngine turns raw requirements into structured documents and
// refines them turn by turn. Every operation first tries a
// knowledge-augmented prompt and falls back to a plain one.
type EnhancementEngine struct {
	knowledge KnowledgeQuerier
	llm       ports.CompletionProvider
	taxonomy  Taxonomy
	limits    Limits
	now       func() time.Time
}

// NewEnhancementEngine wires the engine.
func NewEnhancementEngine(knowledge KnowledgeQuerier, llm ports.CompletionProvider, limits Limits) *EnhancementEngine {
	return &EnhancementEngine{
		knowledge: knowledge,
		llm:       llm,
		taxonomy:  DefaultTaxonomy(),
		limits:    limits.withDefaults(),
		now:       time.Now,
	}
}

// Enhance produces an enhanced requirement document for input.
func (e *EnhancementEngine) Enhance(ctx context.Context, input, model string) entities.EnhancementResult {
	kb := e.knowledge.Query(ctx, input, "")

	enhanced, err := e.llm.Complete(ctx, buildEnhancementPrompt(input, kb), model, enhancementSystemPrompt)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("knowledge-augmented enhancement failed, using plain prompt")
		return e.plainEnhance(ctx, input, model)
	}

	return entities.EnhancementResult{
		Success:                true,
		OriginalRequirement:    input,
		EnhancedRequirement:    enhanced,
		KBSuggestions:          kb.Suggestions,
		ClarificationQuestions: kb.Questions,
		KnowledgeBaseUsed:      kb.Success,
		Timestamp:              e.now(),
	}
}

func (e *EnhancementEngine) plainEnhance(ctx context.Context, input, model string) entities.EnhancementResult {
	prompt := fmt.Sprintf(`User's original requirement:
"%s"

Please help me analyze and enhance this requirement, providing a more detailed and complete requirement description. If key information is missing, please point out what needs further clarification.`, input)

	enhanced, err := e.llm.Complete(ctx, prompt, model, enhancementSystemPrompt)
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("requirement enhancement failed")
		return entities.EnhancementResult{
			OriginalRequirement: input,
			Timestamp:           e.now(),
			Error:               err.Error(),
			Err:                 err,
		}
	}

	return entities.EnhancementResult{
		Success:                true,
		OriginalRequirement:    input,
		EnhancedRequirement:    enhanced,
		KBSuggestions:          []string{},
		ClarificationQuestions: append([]string(nil), basicQuestions...),
		Timestamp:              e.now(),
	}
}

func buildEnhancementPrompt(input string, kb entities.KnowledgeQueryResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User's original requirement:\n\"%s\"\n\n", input)
	if kb.Success && len(kb.Suggestions) > 0 {
		sb.WriteString("Knowledge Base Suggestions:\n")
		sb.WriteString(bulletList(kb.Suggestions))
		sb.WriteString("\n")
	}
	if len(kb.Questions) > 0 {
		sb.WriteString("Key Questions to Address:\n")
		sb.WriteString(bulletList(kb.Questions))
		sb.WriteString("\n")
	}
	sb.WriteString(enhancementDeliverables)
	return sb.String()
}

// Clarify refines current with the user's new input. Its output is meant to
// be the next call's current requirement.
func (e *EnhancementEngine) Clarify(ctx context.Context, current, question, model string) entities.ClarificationResult {
	kb := e.knowledge.Query(ctx, current+"\n\nUser question: "+question, "")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current requirement document:\n\"%s\"\n\nUser question or additional information:\n\"%s\"\n\n", current, question)
	if kb.Success && len(kb.Suggestions) > 0 {
		sb.WriteString("Relevant knowledge base insights:\n")
		sb.WriteString(bulletList(kb.Suggestions))
		sb.WriteString("\n")
	}
	sb.WriteString("Please update and refine the requirement document based on the user's input and knowledge base insights. Ensure the new requirement is clearer, more complete, and follows best practices.")

	clarified, err := e.llm.Complete(ctx, sb.String(), model, enhancementSystemPrompt)
	if err == nil {
		return entities.ClarificationResult{
			Success:               true,
			ClarifiedRequirement:  clarified,
			AdditionalSuggestions: kb.Suggestions,
			KnowledgeBaseUsed:     kb.Success,
			Timestamp:             e.now(),
		}
	}
	log.Warn().Err(err).Str("model", model).Msg("knowledge-augmented clarification failed, using plain prompt")

	prompt := fmt.Sprintf(`Current requirement document:
"%s"

User question or additional information:
"%s"

Please update the requirement document based on the user's input so that it is clearer and more complete.`, current, question)

	clarified, err = e.llm.Complete(ctx, prompt, model, enhancementSystemPrompt)
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("requirement clarification failed")
		return entities.ClarificationResult{Timestamp: e.now(), Error: err.Error(), Err: err}
	}
	return entities.ClarificationResult{
		Success:               true,
		ClarifiedRequirement:  clarified,
		AdditionalSuggestions: []string{},
		Timestamp:             e.now(),
	}
}

// SmartQuestions returns knowledge questions for text, or the basic list
// when the knowledge base cannot answer.
func (e *EnhancementEngine) SmartQuestions(ctx context.Context, text string) []string {
	kb := e.knowledge.Query(ctx, text, "")
	if kb.Success {
		return kb.Questions
	}
	return append([]string(nil), basicQuestions...)
}

// SuggestImprovements combines the offline assessment with live knowledge
// suggestions. A failed knowledge query leaves Suggestions empty.
func (e *EnhancementEngine) SuggestImprovements(ctx context.Context, text string) entities.ImprovementReport {
	report := e.Assess(text)
	kb := e.knowledge.Query(ctx, text, "")
	report.Suggestions = kb.Suggestions
	if report.Suggestions == nil {
		report.Suggestions = []string{}
	}
	return report
}

// Assess is the deterministic part of SuggestImprovements: it depends on
// the text alone.
func (e *EnhancementEngine) Assess(text string) entities.ImprovementReport {
	return entities.ImprovementReport{
		CompletenessScore: completenessScore(text),
		MissingElements:   missingElements(text),
		BestPractices:     truncate(append(e.taxonomy.BestPractices(text), genericBestPractices...), e.limits.MaxBestPractices),
		PotentialRisks:    truncate(potentialRisks(text), e.limits.MaxRisks),
		Suggestions:       []string{},
	}
}

func completenessScore(text string) int {
	score := entities.NeutralScore
	for _, group := range completenessRules {
		if hasAnyKeyword(text, group) {
			score++
		}
	}
	if len(strings.Fields(text)) > detailedWordCount {
		score++
	}
	return entities.ClampScore(score)
}

func missingElements(text string) []string {
	missing := []string{}
	for _, r := range elementRules {
		if !hasAnyKeyword(text, r.Keywords) {
			missing = append(missing, r.Element)
		}
	}
	return missing
}

func potentialRisks(text string) []string {
	var risks []string
	for _, r := range riskRules {
		if hasAnyKeyword(text, r.Triggers) {
			risks = append(risks, r.Risk)
		}
	}
	return append(risks, genericRisks...)
}
