// Package watcher keeps the corpus in step with a folder on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docrag/internal/domain/document"
	"github.com/kailas-cloud/docrag/internal/usecase/document"
)

// DefaultExtensions are watched when none are configured.
var DefaultExtensions = []string{".pdf", ".txt", ".md"}

// DefaultDebounce coalesces bursts of write events for one file.
const DefaultDebounce = 500 * time.Millisecond

// Ingester is the part of the document service the watcher drives.
type Ingester interface {
	IngestFile(ctx context.Context, path string, maxBytes int64) (document.IngestResult, error)
	Delete(ctx context.Context, sourceID string) bool
}

// Options configures a Watcher.
type Options struct {
	Extensions []string
	MaxBytes   int64
	Debounce   time.Duration
}

type op int

const (
	opUpsert op = iota + 1
	opRemove
)

type pending struct {
	op   op
	seen time.Time
}

// Watcher ingests files created or modified in a folder and deletes removed ones.
type Watcher struct {
	ingester   Ingester
	extensions map[string]struct{}
	maxBytes   int64
	debounce   time.Duration
	log        *zap.Logger

	pending map[string]pending
}

// New creates a watcher. Extensions are matched case-insensitively.
func New(ing Ingester, opts Options, log *zap.Logger) *Watcher {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	d := opts.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	return &Watcher{
		ingester:   ing,
		extensions: set,
		maxBytes:   opts.MaxBytes,
		debounce:   d,
		log:        log,
		pending:    make(map[string]pending),
	}
}

// Sync ingests every matching file already in dir and returns how many succeeded.
func (w *Watcher) Sync(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read watch dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !w.matches(path) {
			continue
		}
		if w.ingest(ctx, path) {
			n++
		}
	}
	return n, nil
}

// Run syncs dir and then follows its changes until ctx is done.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	n, err := w.Sync(ctx, dir)
	if err != nil {
		return err
	}
	w.log.Info("watch folder synced", zap.String("dir", dir), zap.Int("documents", n))

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.record(ev, time.Now())
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// record queues a filesystem event; the latest event per path wins.
func (w *Watcher) record(ev fsnotify.Event, now time.Time) {
	if !w.matches(ev.Name) {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.pending[ev.Name] = pending{op: opRemove, seen: now}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.pending[ev.Name] = pending{op: opUpsert, seen: now}
	}
}

// flush applies queued events that have been quiet for the debounce interval.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for path, p := range w.pending {
		if now.Sub(p.seen) < w.debounce {
			continue
		}
		delete(w.pending, path)
		switch p.op {
		case opUpsert:
			w.ingest(ctx, path)
		case opRemove:
			id := domdoc.SourceIDFromPath(path)
			found := w.ingester.Delete(ctx, id)
			w.log.Info("watched file removed", zap.String("path", path), zap.String("source_id", id), zap.Bool("found", found))
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) bool {
	res, err := w.ingester.IngestFile(ctx, path, w.maxBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}
		w.log.Warn("watched file not ingested", zap.String("path", path), zap.Error(err))
		return false
	}
	w.log.Info("watched file ingested",
		zap.String("path", path),
		zap.String("source_id", res.SourceID),
		zap.Int("chunks", res.ChunksIndexed),
	)
	return true
}

func (w *Watcher) matches(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
