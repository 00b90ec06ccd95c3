// Package watcher notices changes to Java mod sources so a running
// translation loop can retranslate only what actually changed.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"modport/internal/crawler"
)

// eventBuffer is the size of the watch event channel.
const eventBuffer = 256

// Op indicates the type of file operation.
type Op string

// OpCreate, OpModify, and OpDelete enumerate the watch operation types.
const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Event describes a change to a watched source file.
type Event struct {
	// Path is the file path relative to the watched root, slash-separated.
	Path string

	// AbsPath is the absolute file path.
	AbsPath string

	// Op is the kind of change.
	Op Op
}

// Options configures a Watcher.
type Options struct {
	// Root is the mod project directory to watch.
	Root string

	// Matcher selects which files emit events. Defaults to a crawler with
	// its standard Java source patterns.
	Matcher *crawler.Crawler

	// Debounce is how long to wait for more changes before processing.
	// Defaults to 500ms.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher watches a mod project for Java source changes and emits debounced
// events once file contents actually differ.
type Watcher struct {
	root     string
	matcher  *crawler.Crawler
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before processing.
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection.
	hashMu sync.RWMutex
	hashes map[string]string

	events chan Event

	droppedEvents atomic.Int64
}

// New creates a watcher for the project root.
func New(opts Options) (*Watcher, error) {
	matcher := opts.Matcher
	if matcher == nil {
		var err error
		matcher, err = crawler.New(crawler.Options{})
		if err != nil {
			return nil, err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounce := opts.Debounce
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		root:     opts.Root,
		matcher:  matcher,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Event, eventBuffer),
	}, nil
}

// Events returns the channel of watch events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Prime hashes every matching file under the root so later events reflect
// real content changes, and returns the matched paths for an initial
// translation pass.
func (w *Watcher) Prime() ([]string, error) {
	var paths []string
	err := w.matcher.ScanProject(w.root, func(path string) {
		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("failed to read source while priming", "path", path, "error", err)
			return
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return
		}
		w.SetHash(filepath.ToSlash(rel), contentHash(content))
		paths = append(paths, path)
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Start begins watching the project root for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("watching mod sources",
		"root", w.root,
		"debounce", w.debounce)

	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// SetHash records the content hash for a root-relative path.
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded hash for a root-relative path.
func (w *Watcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive adds watches to all directories under root.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		base := d.Name()
		if path != root && (w.matcher.IgnoredDir(base) || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent accumulates a single fsnotify event for the next flush.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if !w.matcher.Matches(rel) {
		// A new directory still needs a watch added.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("source change detected",
		"path", rel,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.matcher.IgnoredDir(base) || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	} else {
		w.logger.Debug("added watch for new directory", "path", path)
	}
}

// flushPending turns accumulated changes into events.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	toProcess := make(map[string]fsnotify.Op, len(w.pending))
	for k, v := range w.pending {
		toProcess[k] = v
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		event := Event{Path: rel, AbsPath: path}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			// A rename surfaces as delete; the new name arrives as create.
			event.Op = OpDelete

			w.hashMu.Lock()
			delete(w.hashes, rel)
			w.hashMu.Unlock()

			w.sendEvent(event)
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			event.Op = OpDelete
			w.sendEvent(event)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("failed to read changed source", "path", rel, "error", err)
			continue
		}

		newHash := contentHash(content)
		oldHash, hadHash := w.GetHash(rel)
		if hadHash && oldHash == newHash {
			// Content unchanged, skip.
			continue
		}
		w.SetHash(rel, newHash)

		if op.Has(fsnotify.Create) || !hadHash {
			event.Op = OpCreate
		} else {
			event.Op = OpModify
		}

		w.sendEvent(event)
	}
}

// sendEvent sends an event to the output channel without blocking.
func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("sent watch event",
			"path", event.Path,
			"op", event.Op)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
