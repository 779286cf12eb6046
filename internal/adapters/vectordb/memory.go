// Package vectordb provides the chunk index adapters behind the knowledge
// store: an in-memory index and a persistent SQLite index.
package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// InMemoryStore keeps chunks in maps. Nothing survives a restart, so the
// knowledge store re-indexes on start when this index is used.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]entities.Chunk       // chunkID -> chunk
	docs   map[string]map[string]struct{} // docID -> chunkIDs
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks: make(map[string]entities.Chunk),
		docs:   make(map[string]map[string]struct{}),
	}
}

// Store saves chunks with their embeddings. Existing chunk IDs are replaced.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
		ids, ok := s.docs[chunk.DocumentID]
		if !ok {
			ids = make(map[string]struct{})
			s.docs[chunk.DocumentID] = ids
		}
		ids[chunk.ID] = struct{}{}
	}
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(embedding, chunk.Embedding),
			SourceDoc: sourceOf(chunk),
		})
	}
	return topResults(results, topK), nil
}

// KeywordSearch ranks chunks containing at least one term.
func (s *InMemoryStore) KeywordSearch(ctx context.Context, terms []string, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []entities.QueryResult
	for _, chunk := range s.chunks {
		if score := keywordScore(chunk.Content, terms); score > 0 {
			results = append(results, entities.QueryResult{Chunk: chunk, Score: score, SourceDoc: sourceOf(chunk)})
		}
	}
	return topResults(results, topK), nil
}

// Delete removes all chunks for a document.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.docs[documentID] {
		delete(s.chunks, id)
	}
	delete(s.docs, documentID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.Chunk)
	s.docs = make(map[string]map[string]struct{})
	return nil
}

// ChunkCount returns the number of stored chunks.
func (s *InMemoryStore) ChunkCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
