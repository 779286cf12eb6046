// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// IngestUseCase writes text into the indexed representation:
// it chunks the text, embeds every chunk and stores the result.
type IngestUseCase struct {
	embedder     ports.EmbeddingService
	vectorStore  ports.VectorStore
	chunkSize    int
	chunkOverlap int
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	chunkSize, chunkOverlap int,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = 800 // characters
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &IngestUseCase{
		embedder:     embedder,
		vectorStore:  vectorStore,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Ingest chunks, embeds and stores content under documentID.
func (uc *IngestUseCase) Ingest(ctx context.Context, documentID, source, content string) error {
	chunks := uc.chunk(documentID, source, content)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding chunks: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	// Chunks of an earlier, longer version would otherwise survive.
	if err := uc.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("dropping previous chunks: %w", err)
	}
	if err := uc.vectorStore.Store(ctx, chunks); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}
	return nil
}

// Delete removes a document from the index.
func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	return uc.vectorStore.Delete(ctx, documentID)
}

// Reset drops everything from the index.
func (uc *IngestUseCase) Reset(ctx context.Context) error {
	return uc.vectorStore.Clear(ctx)
}

// chunk splits content into overlapping chunks, breaking at whitespace where possible.
func (uc *IngestUseCase) chunk(documentID, source, content string) []entities.Chunk {
	text := []rune(strings.TrimSpace(content))
	if len(text) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	index := 0

	for start < len(text) {
		end := start + uc.chunkSize
		if end > len(text) {
			end = len(text)
		}

		// Try to break at word boundary
		if end < len(text) {
			for i := end - 1; i > start+uc.chunkSize/2; i-- {
				if unicode.IsSpace(text[i]) {
					end = i
					break
				}
			}
		}

		piece := strings.TrimSpace(string(text[start:end]))
		if piece != "" {
			chunks = append(chunks, entities.Chunk{
				ID:         chunkID(documentID, index),
				DocumentID: documentID,
				Source:     source,
				Content:    piece,
				Index:      index,
			})
			index++
		}

		if end >= len(text) {
			break
		}
		next := end - uc.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// chunkID creates a deterministic ID for a chunk.
func chunkID(documentID string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", documentID, index)))
	return hex.EncodeToString(hash[:8])
}
