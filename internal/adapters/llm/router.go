// Package llm - router.go dispatches completions to the backend registered for a model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// Backend names accepted as model selectors.
const (
	ModelOpenAI    = "openai"
	ModelAnthropic = "anthropic"
	ModelOllama    = "ollama"
	ModelDemo      = "demo"
)

// ModelInfo describes one selectable backend.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type backend struct {
	info     ModelInfo
	provider ports.CompletionProvider
}

// Router dispatches completions to named backends. Only registered backends
// are selectable; an unknown selector fails instead of falling back to the
// default.
type Router struct {
	defaultModel string
	timeout      time.Duration

	mu       sync.RWMutex
	backends map[string]backend
	order    []string
}

// NewRouter creates an empty router. timeout bounds each call; zero means
// no per-call limit beyond ctx.
func NewRouter(defaultModel string, timeout time.Duration) *Router {
	if defaultModel == "" {
		defaultModel = ModelDemo
	}
	return &Router{
		defaultModel: strings.ToLower(defaultModel),
		timeout:      timeout,
		backends:     make(map[string]backend),
	}
}

// Register adds or replaces a backend under name.
func (r *Router) Register(name, description string, p ports.CompletionProvider) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; !ok {
		r.order = append(r.order, name)
	}
	r.backends[name] = backend{info: ModelInfo{Name: name, Description: description}, provider: p}
}

// DefaultModel is the selector used for empty model arguments.
func (r *Router) DefaultModel() string { return r.defaultModel }

// Models lists the registered backends in registration order.
func (r *Router) Models() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.backends[name].info)
	}
	return out
}

// Complete implements ports.CompletionProvider.
func (r *Router) Complete(ctx context.Context, prompt, model, systemPrompt string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		name = r.defaultModel
	}

	r.mu.RLock()
	b, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: model %s is not available or API key not configured", entities.ErrProviderUnavailable, name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := b.provider.Complete(ctx, prompt, name, systemPrompt)
	if err != nil {
		log.Warn().Err(err).Str("model", name).Dur("elapsed", time.Since(start)).Msg("completion failed")
		if errors.Is(err, entities.ErrProviderUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", entities.ErrProviderCallFailed, name, err)
	}
	log.Debug().Str("model", name).Dur("elapsed", time.Since(start)).Int("chars", len(out)).Msg("completion done")
	return out, nil
}
