// Package storage provides the SQLite knowledge metadata store.
// Clean Architecture: Adapter implementing ports.MetadataStore.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

const metadataSchema = `
CREATE TABLE IF NOT EXISTS documents (
	position INTEGER NOT NULL,
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	upload_time TEXT NOT NULL,
	file_size INTEGER NOT NULL,
	file_type TEXT NOT NULL,
	content_preview TEXT NOT NULL,
	storage_key TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const indexStaleKey = "index_stale"

// MetadataStore keeps the knowledge document collection in SQLite. The
// collection is only ever read or overwritten as a whole.
type MetadataStore struct {
	db *sql.DB
}

// NewMetadataStore opens the metadata database at dbPath.
func NewMetadataStore(dbPath string) (*MetadataStore, error) {
	db, err := openDB(dbPath, metadataSchema)
	if err != nil {
		return nil, err
	}
	return &MetadataStore{db: db}, nil
}

// LoadAll returns the collection in insertion order.
func (m *MetadataStore) LoadAll(ctx context.Context) ([]entities.KnowledgeDocument, error) {
	rows, err := m.db.QueryContext(ctx, `
	SELECT id, filename, content_hash, upload_time, file_size, file_type, content_preview, storage_key
	FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %v", entities.ErrStorage, err)
	}
	defer rows.Close()

	docs := []entities.KnowledgeDocument{}
	for rows.Next() {
		var d entities.KnowledgeDocument
		var uploaded string
		if err := rows.Scan(&d.ID, &d.Filename, &d.ContentHash, &uploaded, &d.FileSizeBytes, &d.FileType, &d.ContentPreview, &d.StorageKey); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", entities.ErrStorage, err)
		}
		if d.UploadTime, err = time.Parse(time.RFC3339Nano, uploaded); err != nil {
			return nil, fmt.Errorf("%w: document %s upload time: %v", entities.ErrStorage, d.ID, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrStorage, err)
	}
	return docs, nil
}

// ReplaceAll overwrites the collection in a single transaction; on failure
// the previous collection is left intact.
func (m *MetadataStore) ReplaceAll(ctx context.Context, docs []entities.KnowledgeDocument) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", entities.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("%w: clear documents: %v", entities.ErrStorage, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO documents (position, id, filename, content_hash, upload_time, file_size, file_type, content_preview, storage_key)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", entities.ErrStorage, err)
	}
	defer stmt.Close()

	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, i, d.ID, d.Filename, d.ContentHash,
			d.UploadTime.UTC().Format(time.RFC3339Nano), d.FileSizeBytes, d.FileType, d.ContentPreview, d.StorageKey); err != nil {
			return fmt.Errorf("%w: insert document %s: %v", entities.ErrStorage, d.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", entities.ErrStorage, err)
	}
	return nil
}

// IndexStale reports the persisted index staleness flag. A database that
// never stored one is not stale.
func (m *MetadataStore) IndexStale(ctx context.Context) (bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, indexStaleKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", entities.ErrStorage, indexStaleKey, err)
	}
	return value == "true", nil
}

// SetIndexStale persists the index staleness flag.
func (m *MetadataStore) SetIndexStale(ctx context.Context, stale bool) error {
	_, err := m.db.ExecContext(ctx, `
	INSERT INTO meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, indexStaleKey, strconv.FormatBool(stale))
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", entities.ErrStorage, indexStaleKey, err)
	}
	return nil
}

// Close closes the database.
func (m *MetadataStore) Close() error {
	return m.db.Close()
}
