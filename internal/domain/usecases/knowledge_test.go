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

type knowledgeFixture struct {
	store    *KnowledgeStore
	metadata *memMetadata
	blobs    *memBlobs
	index    *mockVectorStore
	llm      *mockLLM
}

func newKnowledgeFixture(t *testing.T, indexed bool) *knowledgeFixture {
	t.Helper()
	f := &knowledgeFixture{
		metadata: &memMetadata{},
		blobs:    newMemBlobs(),
		index:    &mockVectorStore{},
		llm:      &mockLLM{response: "You should define user roles.\nUnrelated line\n- We recommend HTTPS everywhere"},
	}
	var ingest *IngestUseCase
	var retrieval *QueryUseCase
	if indexed {
		ingest = NewIngestUseCase(&mockEmbedder{}, f.index, 200, 20)
		retrieval = NewQueryUseCase(&mockEmbedder{}, f.index, f.llm, "demo", 5)
	}
	store, err := NewKnowledgeStore(context.Background(), f.metadata, f.blobs, ingest, retrieval, KnowledgeOptions{})
	require.NoError(t, err)
	f.store = store
	return f
}

func TestKnowledgeStore_IngestsCorpusOnStart(t *testing.T) {
	f := newKnowledgeFixture(t, true)

	sources := f.index.sources()
	for _, g := range BuiltinCorpus() {
		assert.True(t, sources[g.Name], "guide %s should be indexed", g.Name)
	}
	assert.True(t, f.store.IsInitialized())
	assert.Empty(t, f.store.UploadedDocuments(), "corpus is not an uploaded document")
}

func TestKnowledgeStore_AddDocument(t *testing.T) {
	f := newKnowledgeFixture(t, true)

	res := f.store.AddDocument(context.Background(), "guide.md", "# Checklist\nUse HTTPS.")

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Document)
	assert.Equal(t, "markdown", res.Document.FileType)
	assert.Equal(t, Fingerprint("# Checklist\nUse HTTPS."), res.Document.ContentHash)
	assert.Len(t, f.metadata.docs, 1, "metadata must be flushed immediately")
	assert.Contains(t, f.blobs.blobs, res.Document.StorageKey)
	assert.True(t, f.index.sources()["guide.md"], "document should be indexed")
}

func TestKnowledgeStore_DuplicateContentIsIdempotent(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()

	first := f.store.AddDocument(ctx, "a.txt", "same content\r\n")
	second := f.store.AddDocument(ctx, "b.txt", "same content  ")

	require.True(t, first.Success)
	assert.False(t, second.Success)
	assert.True(t, second.Duplicate)
	assert.ErrorIs(t, second.Err, entities.ErrDuplicateDocument)
	assert.Len(t, f.store.UploadedDocuments(), 1)
	assert.Equal(t, 1, f.metadata.writes)
}

func TestKnowledgeStore_EmptyContentRejected(t *testing.T) {
	f := newKnowledgeFixture(t, false)

	res := f.store.AddDocument(context.Background(), "blank.txt", " \n ")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, entities.ErrEmptyContent)
}

func TestKnowledgeStore_StorageFailure(t *testing.T) {
	f := newKnowledgeFixture(t, false)
	f.metadata.replaceErr = errors.New("disk full")

	res := f.store.AddDocument(context.Background(), "a.txt", "content")

	assert.False(t, res.Success)
	assert.False(t, res.Duplicate)
	assert.ErrorIs(t, res.Err, entities.ErrStorage)
	assert.Empty(t, f.store.UploadedDocuments())
	assert.Empty(t, f.blobs.blobs, "content written before the failure should be rolled back")
}

func TestKnowledgeStore_IndexFailureStillSucceeds(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	f.index.storeFn = func([]entities.Chunk) error { return errors.New("index down") }

	res := f.store.AddDocument(context.Background(), "a.txt", "content")

	assert.True(t, res.Success)
	assert.Len(t, f.store.UploadedDocuments(), 1)
}

func TestKnowledgeStore_RemoveMissingLeavesCollection(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()
	f.store.AddDocument(ctx, "a.txt", "alpha")
	f.store.AddDocument(ctx, "b.txt", "beta")
	before := f.store.UploadedDocuments()

	res := f.store.RemoveDocument(ctx, "ghost.txt")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, entities.ErrDocumentNotFound)
	assert.Contains(t, res.Error, "not found")
	assert.Equal(t, before, f.store.UploadedDocuments())
	assert.False(t, f.store.IsIndexStale())
}

func TestKnowledgeStore_RemoveMarksIndexStale(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()
	added := f.store.AddDocument(ctx, "a.txt", "alpha")

	res := f.store.RemoveDocument(ctx, "a.txt")

	require.True(t, res.Success)
	assert.Empty(t, f.store.UploadedDocuments())
	assert.Empty(t, f.metadata.docs)
	assert.NotContains(t, f.blobs.blobs, added.Document.StorageKey)
	assert.True(t, f.store.IsIndexStale())
	assert.True(t, f.metadata.stale, "staleness is persisted")
	assert.True(t, f.index.sources()["a.txt"], "removal does not touch the index")
}

func TestKnowledgeStore_StaleSurvivesReopen(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()
	f.store.AddDocument(ctx, "a.txt", "alpha")
	require.True(t, f.store.RemoveDocument(ctx, "a.txt").Success)

	ingest := NewIngestUseCase(&mockEmbedder{}, f.index, 200, 20)
	retrieval := NewQueryUseCase(&mockEmbedder{}, f.index, f.llm, "demo", 5)
	reopened, err := NewKnowledgeStore(ctx, f.metadata, f.blobs, ingest, retrieval, KnowledgeOptions{})
	require.NoError(t, err)
	assert.True(t, reopened.IsIndexStale())

	require.NoError(t, reopened.Rebuild(ctx))
	assert.False(t, reopened.IsIndexStale())
	assert.False(t, f.metadata.stale)

	rebuilt, err := NewKnowledgeStore(ctx, f.metadata, f.blobs, ingest, retrieval, KnowledgeOptions{ReindexOnStart: true})
	require.NoError(t, err)
	assert.False(t, rebuilt.IsIndexStale())
}

func TestKnowledgeStore_ReindexOnStartIgnoresStaleFlag(t *testing.T) {
	metadata := &memMetadata{stale: true}
	index := &mockVectorStore{}
	store, err := NewKnowledgeStore(context.Background(), metadata, newMemBlobs(),
		NewIngestUseCase(&mockEmbedder{}, index, 200, 20),
		NewQueryUseCase(&mockEmbedder{}, index, &mockLLM{}, "demo", 5),
		KnowledgeOptions{ReindexOnStart: true})

	require.NoError(t, err)
	assert.False(t, store.IsIndexStale())
	assert.False(t, metadata.stale)
}

func TestKnowledgeStore_RemoveFailsWhenStaleCannotBePersisted(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()
	f.store.AddDocument(ctx, "a.txt", "alpha")
	f.metadata.staleErr = errors.New("disk full")

	res := f.store.RemoveDocument(ctx, "a.txt")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, entities.ErrStorage)
	assert.Len(t, f.store.UploadedDocuments(), 1)
	assert.False(t, f.store.IsIndexStale())
}

func TestKnowledgeStore_RemoveFirstMatchOnly(t *testing.T) {
	f := newKnowledgeFixture(t, false)
	ctx := context.Background()
	f.store.AddDocument(ctx, "notes.txt", "first")
	second := f.store.AddDocument(ctx, "notes.txt", "second")

	res := f.store.RemoveDocument(ctx, "notes.txt")

	require.True(t, res.Success)
	docs := f.store.UploadedDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, second.Document.ContentHash, docs[0].ContentHash)
	assert.False(t, f.store.IsIndexStale(), "degraded store has no index to go stale")
}

func TestKnowledgeStore_RemoveByHash(t *testing.T) {
	f := newKnowledgeFixture(t, false)
	ctx := context.Background()
	f.store.AddDocument(ctx, "notes.txt", "first")
	second := f.store.AddDocument(ctx, "notes.txt", "second")

	res := f.store.RemoveDocumentByHash(ctx, second.Document.ContentHash)

	require.True(t, res.Success)
	docs := f.store.UploadedDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, Fingerprint("first"), docs[0].ContentHash)
}

func TestKnowledgeStore_RebuildDropsRemovedContent(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()
	f.store.AddDocument(ctx, "keep.txt", "keep me")
	f.store.AddDocument(ctx, "drop.txt", "drop me")
	f.store.RemoveDocument(ctx, "drop.txt")

	require.NoError(t, f.store.Rebuild(ctx))

	sources := f.index.sources()
	assert.True(t, sources["keep.txt"])
	assert.False(t, sources["drop.txt"])
	assert.True(t, sources["web_applications"], "corpus is re-ingested")
	assert.False(t, f.store.IsIndexStale())
}

func TestKnowledgeStore_RebuildSkipsUnreadableDocuments(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	ctx := context.Background()
	lost := f.store.AddDocument(ctx, "lost.txt", "lost content")
	f.store.AddDocument(ctx, "fine.txt", "fine content")
	require.NoError(t, f.blobs.Delete(lost.Document.StorageKey))

	require.NoError(t, f.store.Rebuild(ctx))

	assert.True(t, f.index.sources()["fine.txt"])
	assert.False(t, f.index.sources()["lost.txt"])
}

func TestKnowledgeStore_RebuildDegraded(t *testing.T) {
	f := newKnowledgeFixture(t, false)

	err := f.store.Rebuild(context.Background())

	assert.ErrorIs(t, err, entities.ErrKnowledgeBaseUnavailable)
}

func TestKnowledgeStore_ReloadsMetadata(t *testing.T) {
	f := newKnowledgeFixture(t, false)
	f.store.AddDocument(context.Background(), "a.txt", "alpha")

	reopened, err := NewKnowledgeStore(context.Background(), f.metadata, f.blobs, nil, nil, KnowledgeOptions{})

	require.NoError(t, err)
	assert.Len(t, reopened.UploadedDocuments(), 1)
}

func TestKnowledgeStore_QueryDegraded(t *testing.T) {
	f := newKnowledgeFixture(t, false)

	res := f.store.Query(context.Background(), "anything", "")

	assert.False(t, res.Success)
	assert.NotNil(t, res.Suggestions)
	assert.NotNil(t, res.Questions)
	assert.Empty(t, res.Suggestions)
	assert.Empty(t, res.Questions)
}

func TestKnowledgeStore_QueryParsesSuggestions(t *testing.T) {
	f := newKnowledgeFixture(t, true)

	res := f.store.Query(context.Background(), "a web shop", "hybrid")

	require.True(t, res.Success)
	assert.Equal(t, []string{"You should define user roles.", "We recommend HTTPS everywhere"}, res.Suggestions)
	assert.NotEmpty(t, res.RawResponse)
	assert.True(t, strings.HasPrefix(f.llm.prompts[len(f.llm.prompts)-1], "Knowledge context:"))
}

func TestKnowledgeStore_QueryGenericSuggestions(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	f.llm.response = "Nothing useful here."

	res := f.store.Query(context.Background(), "something", "")

	require.True(t, res.Success)
	assert.Equal(t, genericSuggestions, res.Suggestions)
}

func TestKnowledgeStore_QuerySuggestionsBounded(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	f.llm.response = strings.Repeat("We suggest more detail\n", 9)

	res := f.store.Query(context.Background(), "x", "")

	assert.Len(t, res.Suggestions, 5)
}

func TestKnowledgeStore_QuestionsFromRequirementText(t *testing.T) {
	f := newKnowledgeFixture(t, true)

	web := f.store.Query(context.Background(), "A website for a library", "")
	assert.Equal(t, DefaultProfiles()[0].Questions, web.Questions)

	multi := f.store.Query(context.Background(), "web and mobile shopping", "")
	assert.Len(t, multi.Questions, 6, "questions are capped")

	generic := f.store.Query(context.Background(), "a thing", "")
	assert.Equal(t, genericQuestions, generic.Questions)
}

func TestKnowledgeStore_QueryUnknownMode(t *testing.T) {
	f := newKnowledgeFixture(t, true)

	res := f.store.Query(context.Background(), "x", "naive")

	assert.False(t, res.Success)
	assert.NotNil(t, res.Suggestions)
}

func TestKnowledgeStore_QueryProviderFailure(t *testing.T) {
	f := newKnowledgeFixture(t, true)
	f.llm.completeFn = func(string, string) (string, error) { return "", errors.New("timeout") }

	res := f.store.Query(context.Background(), "x", "")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timeout")
	assert.Empty(t, res.Questions)
}

func TestKnowledgeStore_Summary(t *testing.T) {
	f := newKnowledgeFixture(t, false)
	ctx := context.Background()
	f.store.AddDocument(ctx, "a.txt", "alpha")
	f.store.AddDocument(ctx, "b.pdf", "beta beta")

	sum := f.store.Summary()

	assert.Equal(t, 2, sum.TotalDocuments)
	assert.Equal(t, int64(len("alpha")+len("beta beta")), sum.TotalSizeBytes)
	assert.Equal(t, map[string]int{"text": 1, "pdf": 1}, sum.FileTypes)
	require.NotNil(t, sum.LatestUpload)
	assert.False(t, sum.Initialized)
}

func TestStorageKey(t *testing.T) {
	hash := Fingerprint("x")

	key := storageKey(hash, "../../etc/pass wd?.txt")

	assert.Equal(t, hash[:16]+"_pass_wd_.txt", key)
	assert.NotContains(t, key, "/")
	assert.Equal(t, hash[:16]+"_document", storageKey(hash, "???"))
}

func TestFileType(t *testing.T) {
	cases := map[string]string{
		"a.PDF": "pdf", "b.docx": "word", "c.doc": "word", "d.txt": "text", "e.md": "markdown", "f.csv": "other",
	}
	for name, want := range cases {
		assert.Equal(t, want, fileType(name), name)
	}
}
