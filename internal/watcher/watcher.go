// Package watcher provides inbox-directory watching with fsnotify and
// debouncing. Files dropped into a watched directory are ingested for the
// configured owner and removed on success.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/docs"
	"github.com/hyperdock/hokan/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches inbox directories and ingests dropped files.
type Watcher struct {
	documents  *docs.Service
	owner      string
	roots      []string
	extensions []string
	debounce   time.Duration
	watcher    *fsnotify.Watcher

	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher ingesting into documents as owner. roots are
// the inbox directories; extensions filter which files (empty = all).
func NewWatcher(documents *docs.Service, owner string, roots, extensions []string, opts ...Option) *Watcher {
	w := &Watcher{
		documents:   documents,
		owner:       owner,
		roots:       roots,
		extensions:  extensions,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	for _, root := range w.roots {
		if err := w.watcher.Add(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.String("owner", w.owner))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	path := ev.Name
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if !w.matchExtension(path) {
		return
	}
	w.debounceIngest(ctx, path)
}

// debounceIngest delays ingestion so a file still being written settles
// before it is read.
func (w *Watcher) debounceIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounceMap[path]; ok {
		timer.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

// ingest reads the file, runs the upload pipeline, and removes the inbox
// file on success. Failures leave the file in place for a retry.
func (w *Watcher) ingest(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("inbox file read failed", zap.String("path", path), zap.Error(err))
		return
	}
	doc, err := w.documents.Ingest(ctx, &models.UploadInput{
		Filename:       filepath.Base(path),
		Content:        content,
		OwnerID:        w.owner,
		AutoCategorize: true,
	})
	if err != nil {
		w.logger.Warn("inbox ingestion failed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("inbox file removal failed", zap.String("path", path), zap.Error(err))
	}
	w.logger.Info("inbox file ingested",
		zap.String("path", path),
		zap.String("doc_id", doc.ID),
		zap.String("category", doc.Category))
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range w.extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		for _, timer := range w.debounceMap {
			timer.Stop()
		}
		w.mu.Unlock()
	})
}
