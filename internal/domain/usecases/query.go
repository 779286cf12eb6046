// Package usecases - query.go handles document search and response generation.
package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// RetrievalMode selects how the index is consulted.
type RetrievalMode string

const (
	ModeLocal  RetrievalMode = "local"  // embedding similarity
	ModeGlobal RetrievalMode = "global" // keyword overlap
	ModeHybrid RetrievalMode = "hybrid" // rank fusion of both
)

// ParseRetrievalMode validates a mode name. Empty means hybrid.
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	switch RetrievalMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeLocal:
		return ModeLocal, nil
	case ModeGlobal:
		return ModeGlobal, nil
	}
	return "", fmt.Errorf("unknown retrieval mode %q", s)
}

const retrievalSystemPrompt = `You are a knowledge assistant for software requirement analysis.
Answer using the provided knowledge context. Give concrete, actionable advice as short lines.`

// QueryUseCase retrieves context from the index and asks the completion
// provider to answer with it.
type QueryUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	llm         ports.CompletionProvider
	model       string
	topK        int
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	llm ports.CompletionProvider,
	model string,
	topK int,
) *QueryUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &QueryUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		llm:         llm,
		model:       model,
		topK:        topK,
	}
}

// Query retrieves relevant chunks and generates an answer grounded in them.
func (uc *QueryUseCase) Query(ctx context.Context, question string, mode RetrievalMode) (string, []entities.QueryResult, error) {
	results, err := uc.Search(ctx, question, mode)
	if err != nil {
		return "", nil, err
	}

	contextParts := make([]string, len(results))
	for i, r := range results {
		contextParts[i] = fmt.Sprintf("[Source: %s]\n%s", r.SourceDoc, r.Chunk.Content)
	}

	answer, err := uc.llm.Complete(ctx, buildRetrievalPrompt(question, contextParts), uc.model, retrievalSystemPrompt)
	if err != nil {
		return "", results, fmt.Errorf("generating response: %w", err)
	}
	return answer, results, nil
}

// Search only retrieves relevant chunks without generation.
func (uc *QueryUseCase) Search(ctx context.Context, query string, mode RetrievalMode) ([]entities.QueryResult, error) {
	switch mode {
	case ModeLocal:
		return uc.searchVector(ctx, query)
	case ModeGlobal:
		return uc.vectorStore.KeywordSearch(ctx, keywordTerms(query), uc.topK)
	case ModeHybrid:
		byVector, err := uc.searchVector(ctx, query)
		if err != nil {
			return nil, err
		}
		byKeyword, err := uc.vectorStore.KeywordSearch(ctx, keywordTerms(query), uc.topK)
		if err != nil {
			return nil, err
		}
		return fuseRanks(uc.topK, byVector, byKeyword), nil
	}
	return nil, fmt.Errorf("unknown retrieval mode %q", mode)
}

func (uc *QueryUseCase) searchVector(ctx context.Context, query string) ([]entities.QueryResult, error) {
	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := uc.vectorStore.Search(ctx, embedding, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	return results, nil
}

// fuseRanks merges ranked lists with reciprocal rank fusion (k=60).
func fuseRanks(topK int, lists ...[]entities.QueryResult) []entities.QueryResult {
	const k = 60.0
	scores := make(map[string]float64)
	byID := make(map[string]entities.QueryResult)
	var order []string

	for _, list := range lists {
		for rank, r := range list {
			id := r.Chunk.ID
			if _, seen := byID[id]; !seen {
				byID[id] = r
				order = append(order, id)
			}
			scores[id] += 1.0 / (k + float64(rank+1))
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > topK {
		order = order[:topK]
	}

	fused := make([]entities.QueryResult, len(order))
	for i, id := range order {
		r := byID[id]
		r.Score = scores[id]
		fused[i] = r
	}
	return fused
}

func buildRetrievalPrompt(query string, context []string) string {
	var sb strings.Builder
	if len(context) > 0 {
		sb.WriteString("Knowledge context:\n")
		sb.WriteString(strings.Join(context, "\n\n"))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
