// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, not on concrete implementations.
// Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// CompletionProvider generates text from a language model backend.
// model selects the backend ("openai", "anthropic", "ollama", "demo");
// an empty model means the configured default.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt, model, systemPrompt string) (string, error)
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists and queries document chunks. It is the indexed
// representation behind the knowledge store and has no selective delete
// contract beyond what Delete offers to the ingest use case.
type VectorStore interface {
	// Store saves chunks with their embeddings.
	Store(ctx context.Context, chunks []entities.Chunk) error

	// Search finds the most similar chunks to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)

	// KeywordSearch ranks chunks by overlap with the given terms.
	KeywordSearch(ctx context.Context, terms []string, topK int) ([]entities.QueryResult, error)

	// Delete removes all chunks for a document.
	Delete(ctx context.Context, documentID string) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error
}

// MetadataStore persists the knowledge document metadata collection.
// Only full-collection reads and overwrites are supported.
type MetadataStore interface {
	LoadAll(ctx context.Context) ([]entities.KnowledgeDocument, error)
	ReplaceAll(ctx context.Context, docs []entities.KnowledgeDocument) error
	// IndexStale and SetIndexStale keep the "removed documents may still be
	// indexed" flag across restarts of a persistent index.
	IndexStale(ctx context.Context) (bool, error)
	SetIndexStale(ctx context.Context, stale bool) error
}

// BlobStore keeps one raw-content blob per ingested document.
type BlobStore interface {
	Put(key string, content []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// SessionStore persists requirement sessions.
type SessionStore interface {
	Save(ctx context.Context, s *entities.RequirementSession) error
	Load(ctx context.Context, id string) (*entities.RequirementSession, error)
	List(ctx context.Context) ([]*entities.RequirementSession, error)
	Delete(ctx context.Context, id string) error
}

// TextExtractor turns an uploaded file into plain text.
// ok is false when nothing usable could be extracted; it never panics.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (text string, ok bool)
}

// Classifier maps requirement text onto domain categories
// ("web", "mobile", "ecommerce", "management"). Order of the returned
// categories is significant: content blocks are concatenated in that order.
type Classifier interface {
	Classify(text string) []string
}

// DocumentParser extracts text from binary document formats (PDF, DOCX).
type DocumentParser interface {
	// Parse extracts text content from document bytes.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf", "docx").
	SupportedFormats() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
