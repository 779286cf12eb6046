package main

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/adapters/embedding"
	"github.com/0xcro3dile/bacopilot-go/internal/adapters/llm"
	"github.com/0xcro3dile/bacopilot-go/internal/adapters/loader"
	"github.com/0xcro3dile/bacopilot-go/internal/adapters/parser"
	"github.com/0xcro3dile/bacopilot-go/internal/adapters/storage"
	"github.com/0xcro3dile/bacopilot-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/bacopilot-go/internal/config"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/usecases"
)

// app holds the wired components. Dependencies are injected explicitly,
// outermost last.
type app struct {
	cfg       *config.Config
	router    *llm.Router
	loader    *loader.MultiLoader
	knowledge *usecases.KnowledgeStore
	enhancer  *usecases.EnhancementEngine
	reviewer  *usecases.ReviewEngine
	workflow  *usecases.Workflow

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.router, err = newRouter(cfg); err != nil {
		return nil, err
	}
	a.loader = loader.NewMultiLoader(parser.NewPDFParser(), parser.NewDOCXParser())

	metadata, err := storage.NewMetadataStore(cfg.Knowledge.MetadataDB())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, metadata)

	blobs, err := storage.NewFileBlobStore(cfg.Knowledge.BlobDir())
	if err != nil {
		return nil, err
	}

	sessions, err := storage.NewSessionStore(cfg.Storage.SessionsDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sessions)

	opts := usecases.KnowledgeOptions{
		Mode:           cfg.Knowledge.RetrievalMode,
		Limits:         cfg.Limits,
		RebuildWorkers: cfg.Knowledge.RebuildWorkers,
	}
	var ingest *usecases.IngestUseCase
	var retrieval *usecases.QueryUseCase
	if cfg.Knowledge.IndexEnabled {
		index, reindex, err := a.openIndex()
		if err != nil {
			// The store runs degraded without an index.
			log.Warn().Err(err).Msg("opening knowledge index failed")
		} else {
			opts.ReindexOnStart = reindex
			embedder := newEmbedder(cfg)
			ingest = usecases.NewIngestUseCase(embedder, index, cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
			retrieval = usecases.NewQueryUseCase(embedder, index, a.router, cfg.Knowledge.QueryModel, cfg.Knowledge.TopK)
		}
	}

	a.knowledge, err = usecases.NewKnowledgeStore(ctx, metadata, blobs, ingest, retrieval, opts)
	if err != nil {
		return nil, err
	}
	a.enhancer = usecases.NewEnhancementEngine(a.knowledge, a.router, cfg.Limits)
	a.reviewer = usecases.NewReviewEngine(a.router)
	a.workflow = usecases.NewWorkflow(sessions, a.enhancer, a.reviewer)
	return a, nil
}

func (a *app) openIndex() (ports.VectorStore, bool, error) {
	switch a.cfg.Knowledge.Index {
	case "memory":
		return vectordb.NewInMemoryStore(), true, nil
	default:
		idx, err := vectordb.NewSQLiteIndex(a.cfg.Knowledge.IndexDir())
		if err != nil {
			return nil, false, err
		}
		a.closers = append(a.closers, idx)
		return idx, false, nil
	}
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// model resolves the --model flag against the configured default.
func (a *app) model() string {
	if modelFlag != "" {
		return modelFlag
	}
	return a.router.DefaultModel()
}

// newRouter registers every backend listed in the model catalog.
func newRouter(cfg *config.Config) (*llm.Router, error) {
	timeout, err := cfg.LLM.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	delay, err := cfg.LLM.DemoDelayDuration()
	if err != nil {
		return nil, err
	}

	router := llm.NewRouter(cfg.LLM.DefaultModel, timeout)
	for _, m := range cfg.AvailableModels() {
		router.Register(m.Name, m.Description, newProvider(cfg.LLM, m.Name, delay))
	}
	if _, ok := findModel(router.Models(), router.DefaultModel()); !ok {
		log.Warn().Str("model", router.DefaultModel()).Msg("default model is not configured, calls without --model will fail")
	}
	return router, nil
}

func newProvider(cfg config.LLMConfig, name string, demoDelay time.Duration) ports.CompletionProvider {
	switch name {
	case llm.ModelOpenAI:
		return llm.NewOpenAIAdapter(cfg.OpenAI.Endpoint, cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case llm.ModelAnthropic:
		return llm.NewAnthropicAdapter(cfg.Anthropic.Endpoint, cfg.Anthropic.APIKey, cfg.Anthropic.Model)
	case llm.ModelOllama:
		return llm.NewOllamaAdapter(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return llm.NewDemoAdapter(demoDelay)
	}
}

func newEmbedder(cfg *config.Config) ports.EmbeddingService {
	if cfg.Knowledge.Embedder == "ollama" {
		return embedding.NewOllamaAdapter(cfg.LLM.Ollama.Endpoint, cfg.Knowledge.EmbedderModel)
	}
	return embedding.NewHashEmbedder(cfg.Knowledge.EmbedDims)
}

func findModel(models []llm.ModelInfo, name string) (llm.ModelInfo, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return llm.ModelInfo{}, false
}
