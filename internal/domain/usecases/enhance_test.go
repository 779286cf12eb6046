package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

func knowledgeHit() *stubKnowledge {
	return &stubKnowledge{result: entities.KnowledgeQueryResult{
		Success:     true,
		Suggestions: []string{"Define payment providers"},
		Questions:   []string{"Which payment methods must be supported?"},
	}}
}

func TestEnhance_KnowledgeAugmentedPrompt(t *testing.T) {
	llm := &mockLLM{response: "## Enhanced"}
	engine := NewEnhancementEngine(knowledgeHit(), llm, Limits{})

	res := engine.Enhance(context.Background(), "a shop", "demo")

	require.True(t, res.Success)
	assert.True(t, res.KnowledgeBaseUsed)
	assert.Equal(t, "## Enhanced", res.EnhancedRequirement)
	assert.Equal(t, "a shop", res.OriginalRequirement)
	assert.Equal(t, []string{"Define payment providers"}, res.KBSuggestions)

	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "\"a shop\"")
	assert.Contains(t, prompt, "Knowledge Base Suggestions:\n- Define payment providers")
	assert.Contains(t, prompt, "Key Questions to Address:\n- Which payment methods must be supported?")
	assert.Contains(t, prompt, "5. Suggested next steps")
}

func TestEnhance_OmitsEmptyKnowledgeBlocks(t *testing.T) {
	llm := &mockLLM{}
	kb := &stubKnowledge{result: entities.FailedQuery(entities.ErrKnowledgeBaseUnavailable)}
	engine := NewEnhancementEngine(kb, llm, Limits{})

	res := engine.Enhance(context.Background(), "a shop", "demo")

	require.True(t, res.Success)
	assert.False(t, res.KnowledgeBaseUsed)
	assert.NotContains(t, llm.prompts[0], "Knowledge Base Suggestions")
	assert.NotContains(t, llm.prompts[0], "Key Questions")
}

func TestEnhance_FallsBackToPlainPrompt(t *testing.T) {
	llm := &mockLLM{completeFn: func(prompt, _ string) (string, error) {
		if strings.Contains(prompt, "Knowledge Base Suggestions") {
			return "", errors.New("rate limited")
		}
		return "plain result", nil
	}}
	engine := NewEnhancementEngine(knowledgeHit(), llm, Limits{})

	res := engine.Enhance(context.Background(), "a shop", "openai")

	require.True(t, res.Success)
	assert.False(t, res.KnowledgeBaseUsed)
	assert.Equal(t, "plain result", res.EnhancedRequirement)
	assert.Equal(t, basicQuestions, res.ClarificationQuestions)
	assert.Empty(t, res.KBSuggestions)
	assert.Equal(t, 2, llm.calls())
}

func TestEnhance_BothTiersFail(t *testing.T) {
	llm := &mockLLM{completeFn: func(string, string) (string, error) {
		return "", entities.ErrProviderUnavailable
	}}
	engine := NewEnhancementEngine(knowledgeHit(), llm, Limits{})

	res := engine.Enhance(context.Background(), "a shop", "openai")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, entities.ErrProviderUnavailable)
	assert.NotEmpty(t, res.Error)
}

func TestClarify_QueriesWithQuestion(t *testing.T) {
	kb := knowledgeHit()
	llm := &mockLLM{response: "updated"}
	engine := NewEnhancementEngine(kb, llm, Limits{})

	res := engine.Clarify(context.Background(), "current doc", "add refunds", "demo")

	require.True(t, res.Success)
	assert.Equal(t, "updated", res.ClarifiedRequirement)
	assert.True(t, res.KnowledgeBaseUsed)
	assert.Equal(t, "current doc\n\nUser question: add refunds", kb.queries[0])
	assert.Contains(t, llm.prompts[0], "Relevant knowledge base insights:")
}

func TestClarify_Fallback(t *testing.T) {
	llm := &mockLLM{completeFn: func(prompt, _ string) (string, error) {
		if strings.Contains(prompt, "insights") {
			return "", errors.New("boom")
		}
		return "plain clarified", nil
	}}
	engine := NewEnhancementEngine(knowledgeHit(), llm, Limits{})

	res := engine.Clarify(context.Background(), "doc", "more", "demo")

	require.True(t, res.Success)
	assert.Equal(t, "plain clarified", res.ClarifiedRequirement)
	assert.False(t, res.KnowledgeBaseUsed)
}

func TestClarify_Failure(t *testing.T) {
	llm := &mockLLM{completeFn: func(string, string) (string, error) { return "", errors.New("down") }}
	engine := NewEnhancementEngine(knowledgeHit(), llm, Limits{})

	res := engine.Clarify(context.Background(), "doc", "more", "demo")

	assert.False(t, res.Success)
	assert.Equal(t, "down", res.Error)
}

func TestSmartQuestions(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})
	assert.Equal(t, []string{"Which payment methods must be supported?"}, engine.SmartQuestions(context.Background(), "x"))

	degraded := NewEnhancementEngine(&stubKnowledge{result: entities.FailedQuery(nil)}, &mockLLM{}, Limits{})
	assert.Equal(t, basicQuestions, degraded.SmartQuestions(context.Background(), "x"))
}

func TestSuggestImprovements_EcommerceScenario(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})

	report := engine.SuggestImprovements(context.Background(), "I need an e-commerce platform for handmade products")

	assert.Contains(t, report.BestPractices, "PCI DSS compliance for payment security")
	assert.Contains(t, report.MissingElements, "Security requirements")
	assert.Equal(t, []string{"Define payment providers"}, report.Suggestions)
	assert.LessOrEqual(t, len(report.BestPractices), 5)
	assert.LessOrEqual(t, len(report.PotentialRisks), 4)
}

func TestSuggestImprovements_DegradedKnowledge(t *testing.T) {
	engine := NewEnhancementEngine(&stubKnowledge{result: entities.FailedQuery(nil)}, &mockLLM{}, Limits{})

	report := engine.SuggestImprovements(context.Background(), "x")

	assert.NotNil(t, report.Suggestions)
	assert.Empty(t, report.Suggestions)
}

func TestAssess_ScoreAlwaysInRange(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})
	inputs := []string{
		"",
		"x",
		strings.Repeat("user performance interface technology ", 200),
		strings.Repeat("a", 100000),
	}
	for _, in := range inputs {
		score := engine.Assess(in).CompletenessScore
		assert.GreaterOrEqual(t, score, 1)
		assert.LessOrEqual(t, score, 10)
	}
}

func TestAssess_ScoreIncrements(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})

	assert.Equal(t, 5, engine.Assess("nothing relevant").CompletenessScore)
	assert.Equal(t, 6, engine.Assess("users can log in").CompletenessScore)
	assert.Equal(t, 9, engine.Assess("user security ui platform").CompletenessScore)
	assert.Equal(t, 10, engine.Assess("user security ui platform "+strings.Repeat("word ", 50)).CompletenessScore)
}

func TestAssess_Deterministic(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})
	text := "A mobile app with live payment integration at large scale"

	first := engine.Assess(text)
	second := engine.Assess(text)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{
		"Technical integration complexity",
		"Real-time performance challenges",
		"Financial transaction security risks",
		"Scalability and performance bottlenecks",
	}, first.PotentialRisks)
	assert.Equal(t, "Cross-platform compatibility consideration", first.BestPractices[0])
}

func TestAssess_MissingElements(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})

	all := engine.Assess("build something")
	assert.Len(t, all.MissingElements, 5)

	none := engine.Assess("customers use features with fast load, authentication and a clean interface")
	assert.Empty(t, none.MissingElements)
	assert.NotNil(t, none.MissingElements)
}

func TestAssess_GenericBestPracticesTail(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{})

	report := engine.Assess("an internal tool")

	assert.Equal(t, genericBestPractices, report.BestPractices)
	assert.Equal(t, []string{
		"User adoption and change management",
		"Data privacy and compliance requirements",
		"Technical debt accumulation",
	}, report.PotentialRisks)
}

func TestAssess_CustomLimits(t *testing.T) {
	engine := NewEnhancementEngine(knowledgeHit(), &mockLLM{}, Limits{MaxBestPractices: 2, MaxRisks: 1})

	report := engine.Assess("web shopping app with payment")

	assert.Len(t, report.BestPractices, 2)
	assert.Len(t, report.PotentialRisks, 1)
}
