package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	eventChannelBuffer = 256
	defaultDebounce    = 500 * time.Millisecond
)

// WatchConfig configures model file watching.
type WatchConfig struct {
	// Debounce is how long to wait for more changes before emitting events.
	Debounce string `json:"debounce" yaml:"debounce"`

	// Extensions lists model file extensions to watch.
	Extensions []string `json:"extensions" yaml:"extensions"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `json:"exclude_dirs" yaml:"exclude_dirs"`
}

// DefaultWatchConfig returns default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Debounce:    "500ms",
		Extensions:  append([]string(nil), DefaultExtensions...),
		ExcludeDirs: []string{".git", "node_modules"},
	}
}

// DebounceDelay returns the debounce delay as a duration.
func (c WatchConfig) DebounceDelay() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return defaultDebounce
	}
	return d
}

// Op is the kind of change a watch event reports.
type Op string

// Op values.
const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Event is a debounced model file change.
type Event struct {
	// Path is relative to the watched root.
	Path    string
	AbsPath string
	Op      Op
}

// Watcher watches a directory tree for model file changes. Bursts of
// filesystem events are collapsed per file, and writes that leave the
// content unchanged are suppressed.
type Watcher struct {
	config   WatchConfig
	root     string
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	exts     map[string]bool
	excludes map[string]bool

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string

	events  chan Event
	dropped atomic.Int64
}

// NewWatcher creates a watcher rooted at dir.
func NewWatcher(config WatchConfig, dir string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	excludes := make(map[string]bool, len(config.ExcludeDirs))
	for _, d := range config.ExcludeDirs {
		excludes[d] = true
	}

	return &Watcher{
		config:   config,
		root:     dir,
		fsw:      fsw,
		logger:   logger,
		exts:     extensionSet(config.Extensions),
		excludes: excludes,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of debounced events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start adds watches below the root and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}
	go w.processEvents(ctx)

	w.logger.Info("Model watcher started",
		"dir", w.root,
		"debounce", w.config.DebounceDelay())
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// Seed records the content hash of an existing file so that an unchanged
// rewrite does not produce an event.
func (w *Watcher) Seed(relPath string, content []byte) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[relPath] = ContentHash(content)
}

// DroppedEvents returns the number of events dropped on a full channel.
func (w *Watcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (w *Watcher) skipDir(path string) bool {
	base := filepath.Base(path)
	return w.excludes[base] || (strings.HasPrefix(base, ".") && base != "." && path != w.root)
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.DebounceDelay())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.exts[strings.ToLower(filepath.Ext(path))] {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !w.skipDir(path) {
				if err := w.addWatchesRecursive(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range batch {
		if ctx.Err() != nil {
			return
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}
		event := Event{Path: rel, AbsPath: path}

		content, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			w.hashMu.Lock()
			_, known := w.hashes[rel]
			delete(w.hashes, rel)
			w.hashMu.Unlock()
			if known || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
				event.Op = OpDelete
				w.send(event)
			}
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read changed model", "path", rel, "error", err)
			continue
		}

		hash := ContentHash(content)
		w.hashMu.Lock()
		old, known := w.hashes[rel]
		w.hashes[rel] = hash
		w.hashMu.Unlock()
		if known && old == hash {
			continue
		}

		event.Op = OpModify
		if !known {
			event.Op = OpCreate
		}
		w.send(event)
	}
}

func (w *Watcher) send(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Model change", "path", event.Path, "op", event.Op)
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}
