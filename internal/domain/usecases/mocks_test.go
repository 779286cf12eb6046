package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

// mockVectorStore implements ports.VectorStore for testing
type mockVectorStore struct {
	mu      sync.Mutex
	chunks  []entities.Chunk
	storeFn func(chunks []entities.Chunk) error
	cleared int
}

func (m *mockVectorStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if m.storeFn != nil {
		return m.storeFn(chunks)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, emb []float32, topK int) ([]entities.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []entities.QueryResult
	for i, c := range m.chunks {
		if i >= topK {
			break
		}
		results = append(results, entities.QueryResult{Chunk: c, Score: 0.9, SourceDoc: c.Source})
	}
	return results, nil
}

func (m *mockVectorStore) KeywordSearch(ctx context.Context, terms []string, topK int) ([]entities.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []entities.QueryResult
	for _, c := range m.chunks {
		for _, term := range terms {
			if strings.Contains(strings.ToLower(c.Content), term) {
				results = append(results, entities.QueryResult{Chunk: c, Score: 1, SourceDoc: c.Source})
				break
			}
		}
		if len(results) >= topK {
			break
		}
	}
	return results, nil
}

func (m *mockVectorStore) Delete(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != docID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *mockVectorStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.cleared++
	return nil
}

func (m *mockVectorStore) sources() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, c := range m.chunks {
		out[c.Source] = true
	}
	return out
}

// mockLLM implements ports.CompletionProvider for testing
type mockLLM struct {
	mu         sync.Mutex
	response   string
	completeFn func(prompt, systemPrompt string) (string, error)
	prompts    []string
}

func (m *mockLLM) Complete(ctx context.Context, prompt, model, systemPrompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.completeFn != nil {
		return m.completeFn(prompt, systemPrompt)
	}
	if m.response != "" {
		return m.response, nil
	}
	return "mocked answer", nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// memMetadata implements ports.MetadataStore in memory.
type memMetadata struct {
	docs       []entities.KnowledgeDocument
	replaceErr error
	writes     int
	stale      bool
	staleErr   error
}

func (m *memMetadata) LoadAll(ctx context.Context) ([]entities.KnowledgeDocument, error) {
	return append([]entities.KnowledgeDocument(nil), m.docs...), nil
}

func (m *memMetadata) ReplaceAll(ctx context.Context, docs []entities.KnowledgeDocument) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.docs = append([]entities.KnowledgeDocument(nil), docs...)
	m.writes++
	return nil
}

func (m *memMetadata) IndexStale(ctx context.Context) (bool, error) {
	return m.stale, nil
}

func (m *memMetadata) SetIndexStale(ctx context.Context, stale bool) error {
	if m.staleErr != nil {
		return m.staleErr
	}
	m.stale = stale
	return nil
}

// memBlobs implements ports.BlobStore in memory.
type memBlobs struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) Put(key string, content []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = content
	return nil
}

func (m *memBlobs) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return b, nil
}

func (m *memBlobs) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// memSessions implements ports.SessionStore in memory. Sessions are
// stored as copies so tests observe only saved state.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]entities.RequirementSession
	saves    []entities.RequirementSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]entities.RequirementSession)}
}

func (m *memSessions) Save(ctx context.Context, s *entities.RequirementSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.History = append([]entities.Message(nil), s.History...)
	m.sessions[s.ID] = cp
	m.saves = append(m.saves, cp)
	return nil
}

func (m *memSessions) Load(ctx context.Context, id string) (*entities.RequirementSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, entities.ErrSessionNotFound
	}
	s.History = append([]entities.Message(nil), s.History...)
	return &s, nil
}

func (m *memSessions) List(ctx context.Context) ([]*entities.RequirementSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.RequirementSession
	for _, s := range m.sessions {
		cp := s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return entities.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// stubKnowledge implements KnowledgeQuerier with a fixed result.
type stubKnowledge struct {
	mu      sync.Mutex
	result  entities.KnowledgeQueryResult
	queries []string
}

func (s *stubKnowledge) Query(ctx context.Context, requirement, mode string) entities.KnowledgeQueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, requirement)
	return s.result
}
