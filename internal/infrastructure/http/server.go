// Package http exposes the requirement workflow and the knowledge base as
// a JSON API.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/adapters/llm"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/usecases"
)

// maxUploadBytes bounds uploaded knowledge documents.
const maxUploadBytes = 20 << 20

// ModelCatalog lists the selectable completion backends.
type ModelCatalog interface {
	Models() []llm.ModelInfo
	DefaultModel() string
}

// Server is the HTTP server for the requirement workflow API.
type Server struct {
	workflow  *usecases.Workflow
	knowledge *usecases.KnowledgeStore
	enhancer  *usecases.EnhancementEngine
	reviewer  *usecases.ReviewEngine
	extractor ports.TextExtractor
	models    ModelCatalog
	addr      string
}

// NewServer creates a new HTTP server.
func NewServer(
	workflow *usecases.Workflow,
	knowledge *usecases.KnowledgeStore,
	enhancer *usecases.EnhancementEngine,
	reviewer *usecases.ReviewEngine,
	extractor ports.TextExtractor,
	models ModelCatalog,
	addr string,
) *Server {
	return &Server{
		workflow:  workflow,
		knowledge: knowledge,
		enhancer:  enhancer,
		reviewer:  reviewer,
		extractor: extractor,
		models:    models,
		addr:      addr,
	}
}

// Handler returns the routed API with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/models", s.handleModels)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleNewSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/sessions/{id}/clarify", s.handleClarify)
	mux.HandleFunc("POST /api/sessions/{id}/review", s.handleReview)
	mux.HandleFunc("POST /api/sessions/{id}/back", s.handleBack)
	mux.HandleFunc("GET /api/sessions/{id}/improvements", s.handleImprovements)
	mux.HandleFunc("GET /api/sessions/{id}/highlighted", s.handleHighlighted)

	mux.HandleFunc("GET /api/knowledge/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/knowledge/documents", s.handleAddDocument)
	mux.HandleFunc("DELETE /api/knowledge/documents/{filename}", s.handleRemoveDocument)
	mux.HandleFunc("DELETE /api/knowledge/hashes/{hash}", s.handleRemoveByHash)
	mux.HandleFunc("GET /api/knowledge/summary", s.handleSummary)
	mux.HandleFunc("POST /api/knowledge/rebuild", s.handleRebuild)
	mux.HandleFunc("POST /api/knowledge/query", s.handleKnowledgeQuery)

	mux.HandleFunc("POST /api/questions", s.handleSmartQuestions)
	mux.HandleFunc("POST /api/assess", s.handleAssess)
	mux.HandleFunc("GET /api/review/guidelines", s.handleGuidelines)

	return corsMiddleware(loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // provider calls can be slow
	}

	log.Info().Str("addr", s.addr).Msg("bacopilot server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"knowledge_indexed": s.knowledge.IsInitialized(),
		"index_stale":       s.knowledge.IsIndexStale(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.models.DefaultModel(),
		"models":  s.models.Models(),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
