// Package usecases - knowledge.go manages the knowledge corpus, its metadata and the retrieval index.
package usecases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// Limits bounds the list lengths produced by the heuristics and queries.
type Limits struct {
	MaxSuggestions   int `mapstructure:"max_suggestions" yaml:"max_suggestions"`
	MaxQuestions     int `mapstructure:"max_questions" yaml:"max_questions"`
	MaxBestPractices int `mapstructure:"max_best_practices" yaml:"max_best_practices"`
	MaxRisks         int `mapstructure:"max_risks" yaml:"max_risks"`
}

// DefaultLimits returns 5 suggestions, 6 questions, 5 best practices and 4 risks.
func DefaultLimits() Limits {
	return Limits{MaxSuggestions: 5, MaxQuestions: 6, MaxBestPractices: 5, MaxRisks: 4}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxSuggestions <= 0 {
		l.MaxSuggestions = d.MaxSuggestions
	}
	if l.MaxQuestions <= 0 {
		l.MaxQuestions = d.MaxQuestions
	}
	if l.MaxBestPractices <= 0 {
		l.MaxBestPractices = d.MaxBestPractices
	}
	if l.MaxRisks <= 0 {
		l.MaxRisks = d.MaxRisks
	}
	return l
}

// KnowledgeQuerier answers knowledge queries for a requirement text.
type KnowledgeQuerier interface {
	Query(ctx context.Context, requirement, mode string) entities.KnowledgeQueryResult
}

// KnowledgeOptions tunes a KnowledgeStore.
type KnowledgeOptions struct {
	Mode           string // default retrieval mode
	Limits         Limits
	Taxonomy       *Taxonomy
	RebuildWorkers int
	// ReindexOnStart re-ingests uploaded documents at startup. Set it for
	// indexes that do not survive a restart.
	ReindexOnStart bool
}

const previewLength = 100

// KnowledgeStore owns the knowledge corpus: the built-in guides plus the
// uploaded documents. Without an index it runs degraded: documents are
// still stored but queries fail.
type KnowledgeStore struct {
	metadata  ports.MetadataStore
	blobs     ports.BlobStore
	ingest    *IngestUseCase
	retrieval *QueryUseCase

	mode     string
	limits   Limits
	taxonomy Taxonomy
	workers  int

	mu       sync.RWMutex // guards docs, stale and removals
	docs     []entities.KnowledgeDocument
	stale    bool
	removals uint64

	indexMu sync.RWMutex // rebuild holds it exclusively
	rebuild singleflight.Group
}

// NewKnowledgeStore loads persisted metadata and, when an index is given,
// ingests the built-in corpus. A nil ingest or retrieval puts the store
// in degraded mode. Failing to load metadata is fatal.
func NewKnowledgeStore(
	ctx context.Context,
	metadata ports.MetadataStore,
	blobs ports.BlobStore,
	ingest *IngestUseCase,
	retrieval *QueryUseCase,
	opts KnowledgeOptions,
) (*KnowledgeStore, error) {
	docs, err := metadata.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading document metadata: %v", entities.ErrStorage, err)
	}
	if docs == nil {
		docs = []entities.KnowledgeDocument{}
	}

	taxonomy := DefaultTaxonomy()
	if opts.Taxonomy != nil {
		taxonomy = *opts.Taxonomy
	}
	workers := opts.RebuildWorkers
	if workers <= 0 {
		workers = 4
	}

	s := &KnowledgeStore{
		metadata: metadata,
		blobs:    blobs,
		mode:     opts.Mode,
		limits:   opts.Limits.withDefaults(),
		taxonomy: taxonomy,
		workers:  workers,
		docs:     docs,
	}
	if ingest == nil || retrieval == nil {
		log.Warn().Msg("knowledge index unavailable, running without retrieval")
		return s, nil
	}
	s.ingest = ingest
	s.retrieval = retrieval

	if opts.ReindexOnStart {
		if err := s.Rebuild(ctx); err != nil {
			log.Warn().Err(err).Msg("initial knowledge index build failed")
		}
		return s, nil
	}
	if s.stale, err = metadata.IndexStale(ctx); err != nil {
		return nil, fmt.Errorf("%w: loading index state: %v", entities.ErrStorage, err)
	}
	if s.stale {
		log.Warn().Msg("knowledge index still holds removed documents, rebuild it")
	}
	s.ingestCorpus(ctx)
	return s, nil
}

// IsInitialized reports whether the retrieval index is available.
func (s *KnowledgeStore) IsInitialized() bool {
	return s.ingest != nil
}

// IsIndexStale reports whether removed documents may still be present in
// the index. The flag is persisted with the metadata and only Rebuild
// clears it.
func (s *KnowledgeStore) IsIndexStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Limits returns the effective list limits.
func (s *KnowledgeStore) Limits() Limits {
	return s.limits
}

// AddDocument stores content unless a document with the same fingerprint
// exists. Indexing failures are logged; the add still succeeds once the
// metadata is persisted.
func (s *KnowledgeStore) AddDocument(ctx context.Context, filename, content string) entities.AddResult {
	if strings.TrimSpace(content) == "" {
		return entities.AddResult{Error: entities.ErrEmptyContent.Error(), Err: entities.ErrEmptyContent}
	}
	hash := Fingerprint(content)

	s.mu.Lock()
	for _, d := range s.docs {
		if d.ContentHash == hash {
			s.mu.Unlock()
			existing := d
			err := fmt.Errorf("%w: same content as %s", entities.ErrDuplicateDocument, d.Filename)
			return entities.AddResult{Duplicate: true, Document: &existing, Error: err.Error(), Err: err}
		}
	}

	doc := entities.KnowledgeDocument{
		ID:             uuid.NewString(),
		Filename:       filename,
		ContentHash:    hash,
		UploadTime:     time.Now(),
		FileSizeBytes:  int64(len(content)),
		FileType:       fileType(filename),
		ContentPreview: preview(content, previewLength),
		StorageKey:     storageKey(hash, filename),
	}

	if err := s.blobs.Put(doc.StorageKey, []byte(content)); err != nil {
		s.mu.Unlock()
		return storageFailure(filename, fmt.Errorf("writing content: %w", err))
	}

	next := make([]entities.KnowledgeDocument, len(s.docs), len(s.docs)+1)
	copy(next, s.docs)
	next = append(next, doc)
	if err := s.metadata.ReplaceAll(ctx, next); err != nil {
		s.mu.Unlock()
		if derr := s.blobs.Delete(doc.StorageKey); derr != nil {
			log.Warn().Err(derr).Str("key", doc.StorageKey).Msg("orphaned document content")
		}
		return storageFailure(filename, fmt.Errorf("writing metadata: %w", err))
	}
	s.docs = next
	s.mu.Unlock()

	log.Info().Str("filename", filename).Str("hash", hash[:12]).Msg("knowledge document added")

	if s.IsInitialized() {
		s.indexMu.RLock()
		err := s.ingest.Ingest(ctx, doc.ID, doc.Filename, formatIndexed(doc, content))
		s.indexMu.RUnlock()
		if err != nil {
			log.Warn().Err(err).Str("filename", filename).Msg("indexing document failed")
		}
	}

	return entities.AddResult{Success: true, Document: &doc}
}

func storageFailure(filename string, err error) entities.AddResult {
	err = fmt.Errorf("%w: %v", entities.ErrStorage, err)
	log.Error().Err(err).Str("filename", filename).Msg("adding document failed")
	return entities.AddResult{Error: err.Error(), Err: err}
}

// RemoveDocument removes the first document with the given filename.
// Its indexed content stays until the next Rebuild.
func (s *KnowledgeStore) RemoveDocument(ctx context.Context, filename string) entities.RemoveResult {
	return s.removeWhere(ctx, filename, func(d entities.KnowledgeDocument) bool {
		return d.Filename == filename
	})
}

// RemoveDocumentByHash removes the document with the given content hash.
func (s *KnowledgeStore) RemoveDocumentByHash(ctx context.Context, hash string) entities.RemoveResult {
	return s.removeWhere(ctx, hash, func(d entities.KnowledgeDocument) bool {
		return d.ContentHash == hash
	})
}

func (s *KnowledgeStore) removeWhere(ctx context.Context, key string, match func(entities.KnowledgeDocument) bool) entities.RemoveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, d := range s.docs {
		if match(d) {
			idx = i
			break
		}
	}
	if idx < 0 {
		err := fmt.Errorf("%w: %s", entities.ErrDocumentNotFound, key)
		return entities.RemoveResult{Error: err.Error(), Err: err}
	}

	removed := s.docs[idx]
	if s.IsInitialized() && !s.stale {
		if err := s.metadata.SetIndexStale(ctx, true); err != nil {
			err = fmt.Errorf("%w: marking index stale: %v", entities.ErrStorage, err)
			log.Error().Err(err).Str("filename", removed.Filename).Msg("removing document failed")
			return entities.RemoveResult{Error: err.Error(), Err: err}
		}
		s.stale = true
	}

	next := make([]entities.KnowledgeDocument, 0, len(s.docs)-1)
	next = append(next, s.docs[:idx]...)
	next = append(next, s.docs[idx+1:]...)

	if err := s.metadata.ReplaceAll(ctx, next); err != nil {
		err = fmt.Errorf("%w: writing metadata: %v", entities.ErrStorage, err)
		log.Error().Err(err).Str("filename", removed.Filename).Msg("removing document failed")
		return entities.RemoveResult{Error: err.Error(), Err: err}
	}
	s.docs = next

	if err := s.blobs.Delete(removed.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", removed.StorageKey).Msg("deleting document content failed")
	}
	s.removals++

	log.Info().Str("filename", removed.Filename).Msg("knowledge document removed")
	return entities.RemoveResult{Success: true, Document: &removed}
}

// Rebuild recreates the index from the built-in corpus and the stored
// content of every tracked document. Per-document failures are logged and
// skipped. Concurrent callers share one rebuild.
func (s *KnowledgeStore) Rebuild(ctx context.Context) error {
	if !s.IsInitialized() {
		return entities.ErrKnowledgeBaseUnavailable
	}
	_, err, _ := s.rebuild.Do("rebuild", func() (any, error) {
		return nil, s.rebuildIndex(ctx)
	})
	return err
}

func (s *KnowledgeStore) rebuildIndex(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if err := s.ingest.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	s.ingestCorpus(ctx)

	s.mu.RLock()
	docs := append([]entities.KnowledgeDocument(nil), s.docs...)
	removals := s.removals
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, doc := range docs {
		g.Go(func() error {
			raw, err := s.blobs.Get(doc.StorageKey)
			if err != nil {
				log.Warn().Err(err).Str("filename", doc.Filename).Msg("reading document content for rebuild failed")
				return nil
			}
			if err := s.ingest.Ingest(gctx, doc.ID, doc.Filename, formatIndexed(doc, string(raw))); err != nil {
				log.Warn().Err(err).Str("filename", doc.Filename).Msg("re-indexing document failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A removal during the rebuild may have been re-ingested from the snapshot.
	if s.removals == removals {
		if err := s.metadata.SetIndexStale(ctx, false); err != nil {
			return fmt.Errorf("%w: clearing index state: %v", entities.ErrStorage, err)
		}
		s.stale = false
	}

	log.Info().Int("documents", len(docs)).Msg("knowledge index rebuilt")
	return nil
}

func (s *KnowledgeStore) ingestCorpus(ctx context.Context) {
	for _, g := range BuiltinCorpus() {
		if err := s.ingest.Ingest(ctx, "corpus:"+g.Name, g.Name, g.Content); err != nil {
			log.Warn().Err(err).Str("guide", g.Name).Msg("indexing built-in guide failed")
		}
	}
}

// Query asks the index for improvement suggestions for requirement and
// derives clarification questions from the requirement text itself.
// It never returns nil collections and never panics on backend errors.
func (s *KnowledgeStore) Query(ctx context.Context, requirement, mode string) entities.KnowledgeQueryResult {
	if !s.IsInitialized() {
		return entities.FailedQuery(entities.ErrKnowledgeBaseUnavailable)
	}
	if mode == "" {
		mode = s.mode
	}
	m, err := ParseRetrievalMode(mode)
	if err != nil {
		return entities.FailedQuery(err)
	}

	query := "Analyze the following requirement and provide improvement suggestions: " + requirement
	answer, _, err := s.retrieval.Query(ctx, query, m)
	if err != nil {
		log.Warn().Err(err).Str("mode", string(m)).Msg("knowledge query failed")
		return entities.FailedQuery(err)
	}

	return entities.KnowledgeQueryResult{
		Success:     true,
		Suggestions: s.parseSuggestions(answer),
		Questions:   s.clarificationQuestions(requirement),
		RawResponse: answer,
	}
}

var suggestionMarkers = []string{"suggest", "recommend", "should"}

// parseSuggestions keeps response lines that read like advice.
func (s *KnowledgeStore) parseSuggestions(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, m := range suggestionMarkers {
			if strings.Contains(lower, m) {
				out = append(out, stripBullet(line))
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, genericSuggestions...)
	}
	return truncate(out, s.limits.MaxSuggestions)
}

func stripBullet(line string) string {
	trimmed := strings.TrimLeft(line, "-*• ")
	if i := strings.IndexAny(trimmed, ".)"); i > 0 && i <= 3 && isDigits(trimmed[:i]) {
		trimmed = trimmed[i+1:]
	}
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return line
	}
	return trimmed
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (s *KnowledgeStore) clarificationQuestions(requirement string) []string {
	questions := s.taxonomy.Questions(requirement)
	if len(questions) == 0 {
		questions = append(questions, genericQuestions...)
	}
	return truncate(questions, s.limits.MaxQuestions)
}

// Summary aggregates the uploaded document metadata.
func (s *KnowledgeStore) Summary() entities.DocumentsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := entities.DocumentsSummary{
		TotalDocuments: len(s.docs),
		FileTypes:      make(map[string]int),
		IndexStale:     s.stale,
		Initialized:    s.ingest != nil,
	}
	for i, d := range s.docs {
		sum.TotalSizeBytes += d.FileSizeBytes
		sum.FileTypes[d.FileType]++
		if sum.LatestUpload == nil || d.UploadTime.After(*sum.LatestUpload) {
			t := s.docs[i].UploadTime
			sum.LatestUpload = &t
			sum.LatestFilename = d.Filename
		}
	}
	return sum
}

// UploadedDocuments returns a copy of the document metadata in upload order.
func (s *KnowledgeStore) UploadedDocuments() []entities.KnowledgeDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.KnowledgeDocument, len(s.docs))
	copy(out, s.docs)
	return out
}

// Document finds a document by ID.
func (s *KnowledgeStore) Document(id string) (entities.KnowledgeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return entities.KnowledgeDocument{}, fmt.Errorf("%w: %s", entities.ErrDocumentNotFound, id)
}

func fileType(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return "pdf"
	case "docx", "doc":
		return "word"
	case "txt":
		return "text"
	case "md", "markdown":
		return "markdown"
	}
	return "other"
}

// storageKey derives a filesystem-safe key that cannot collide across
// different contents: hash prefix plus the sanitized original name.
func storageKey(hash, filename string) string {
	var sb strings.Builder
	for _, r := range filepath.Base(filename) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	name := strings.Trim(sb.String(), "._")
	if name == "" {
		name = "document"
	}
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	return hash[:16] + "_" + name
}

func formatIndexed(doc entities.KnowledgeDocument, content string) string {
	return fmt.Sprintf("Document: %s\nUploaded: %s\nType: %s\n\nContent:\n%s",
		doc.Filename, doc.UploadTime.Format("2006-01-02 15:04:05"), doc.FileType, content)
}
