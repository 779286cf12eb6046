// Package filewatcher - inbox.go feeds files dropped into the inbox to the knowledge base.
package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/adapters/loader"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/ports"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// FileLoader reads and extracts a file from disk.
type FileLoader interface {
	Load(ctx context.Context, path string) (*loader.File, error)
}

// DocumentAdder receives extracted documents.
type DocumentAdder interface {
	AddDocument(ctx context.Context, filename, content string) entities.AddResult
}

// Inbox adds every file dropped into a directory to the knowledge store.
// Deleting a file from the inbox does not remove the document.
type Inbox struct {
	dir     string
	watcher ports.FileWatcher
	loader  FileLoader
	store   DocumentAdder
	settle  time.Duration

	// OnResult, when set, is called after each ingestion attempt.
	OnResult func(path string, res entities.AddResult)
}

// NewInbox wires an inbox; settle <= 0 uses DefaultSettle.
func NewInbox(dir string, watcher ports.FileWatcher, l FileLoader, store DocumentAdder, settle time.Duration) *Inbox {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Inbox{dir: dir, watcher: watcher, loader: l, store: store, settle: settle}
}

// Run ingests files already present, then watches until ctx ends.
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.dir, 0o755); err != nil {
		return err
	}
	events, err := in.watcher.Watch(ctx, in.dir)
	if err != nil {
		return err
	}
	in.scan(ctx)

	ready := make(chan string)
	done := make(chan struct{})
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	defer func() {
		close(done)
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Operation == ports.FileDeleted {
				log.Debug().Str("path", ev.Path).Msg("inbox file removed")
				continue
			}
			path := ev.Path
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Reset(in.settle)
			} else {
				pending[path] = time.AfterFunc(in.settle, func() {
					select {
					case ready <- path:
					case <-done:
					}
				})
			}
			mu.Unlock()
		case path := <-ready:
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			in.ingest(ctx, path)
		}
	}
}

func (in *Inbox) scan(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", in.dir).Msg("scanning inbox failed")
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(in.dir, e.Name())
		if s, ok := in.loader.(interface{ Supports(string) bool }); ok && !s.Supports(path) {
			continue
		}
		in.ingest(ctx, path)
	}
}

func (in *Inbox) ingest(ctx context.Context, path string) {
	f, err := in.loader.Load(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("inbox file skipped")
		return
	}
	res := in.store.AddDocument(ctx, f.Name, f.Content)
	switch {
	case res.Success:
		log.Info().Str("filename", f.Name).Msg("inbox document added")
	case res.Duplicate:
		log.Debug().Str("filename", f.Name).Msg("inbox document already known")
	default:
		log.Warn().Str("filename", f.Name).Str("error", res.Error).Msg("inbox document rejected")
	}
	if in.OnResult != nil {
		in.OnResult(path, res)
	}
}
