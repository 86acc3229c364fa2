// Package watch monitors a directory for new 3D asset files and runs
// extraction as they arrive.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkendall/layerlens/pkg/extract"
)

// Watcher emits an extraction Result for every .glb or .3dm file created or
// written under its directory. Writes are debounced so a file is read once
// after the last change, not mid-copy.
type Watcher struct {
	dir      string
	debounce time.Duration
	results  chan extract.Result
}

// New creates a Watcher over dir.
func New(dir string, debounce time.Duration) *Watcher {
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		results:  make(chan extract.Result, 16),
	}
}

// Results returns the channel extraction outcomes are delivered on.
func (w *Watcher) Results() <-chan extract.Result {
	return w.results
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(ev.Name))
			if ext != ".glb" && ext != ".3dm" {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				w.emit(ctx, path)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		}
	}
}

func (w *Watcher) emit(ctx context.Context, path string) {
	name := filepath.Base(path)
	var res extract.Result
	if data, err := os.ReadFile(path); err != nil {
		res = extract.Failure(name, err)
	} else {
		res = extract.File(name, data)
	}
	select {
	case w.results <- res:
	case <-ctx.Done():
	}
}
