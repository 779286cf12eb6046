// Package vectordb provides the persistent SQLite chunk index.
// Clean Architecture: Adapter implementing ports.VectorStore.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

// SQLiteIndex implements ports.VectorStore on a SQLite file. Similarity is
// computed by brute force over the stored embeddings.
type SQLiteIndex struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteIndex opens (or creates) index.db inside dataPath.
func NewSQLiteIndex(dataPath string) (*SQLiteIndex, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "index.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return idx, nil
}

func (s *SQLiteIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Store upserts chunks with their embeddings in one transaction.
func (s *SQLiteIndex) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, document_id, source, content, chunk_index, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err = stmt.ExecContext(ctx,
			chunk.ID,
			chunk.DocumentID,
			chunk.Source,
			chunk.Content,
			chunk.Index,
			encodeEmbedding(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// Search finds the most similar chunks to a query embedding.
func (s *SQLiteIndex) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, err := s.scan(ctx, `SELECT id, document_id, source, content, chunk_index, embedding FROM chunks`)
	if err != nil {
		return nil, err
	}

	results := make([]entities.QueryResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, entities.QueryResult{
			Chunk:     c,
			Score:     cosineSimilarity(embedding, c.Embedding),
			SourceDoc: sourceOf(c),
		})
	}
	return topResults(results, topK), nil
}

// KeywordSearch prefilters with LIKE and ranks by the share of matched terms.
func (s *SQLiteIndex) KeywordSearch(ctx context.Context, terms []string, topK int) ([]entities.QueryResult, error) {
	var conds []string
	var args []any
	for _, t := range terms {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		conds = append(conds, `content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(t)+"%")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, document_id, source, content, chunk_index, embedding FROM chunks WHERE ` + strings.Join(conds, " OR ")
	chunks, err := s.scan(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	results := make([]entities.QueryResult, 0, len(chunks))
	for _, c := range chunks {
		if score := keywordScore(c.Content, terms); score > 0 {
			results = append(results, entities.QueryResult{Chunk: c, Score: score, SourceDoc: sourceOf(c)})
		}
	}
	return topResults(results, topK), nil
}

func (s *SQLiteIndex) scan(ctx context.Context, query string, args ...any) ([]entities.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []entities.Chunk
	for rows.Next() {
		var c entities.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Source, &c.Content, &c.Index, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.Embedding = decodeEmbedding(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Delete removes all chunks for a document.
func (s *SQLiteIndex) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	return err
}

// Clear removes all data from the store.
func (s *SQLiteIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// ChunkCount returns the number of stored chunks.
func (s *SQLiteIndex) ChunkCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// Embeddings are stored as little-endian float32 arrays.
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
