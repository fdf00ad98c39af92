// Package watcher provides filesystem watching for watch and serve modes: an
// fsnotify wrapper with composable path filters and a debouncer that
// coalesces editor save bursts into single change batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pavanpakhare/javanotes/internal/logging"
)

// FileWatcher watches content roots for document changes with debouncing.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
}

// ChangeEvent represents a single file change.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType classifies a file change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a changed path is of interest. A path must pass
// every registered filter to reach the handlers.
type FileFilter func(path string) bool

// ChangeHandler receives debounced change batches.
type ChangeHandler func(events []ChangeEvent) error

// Debouncer groups rapid file changes together, deduplicating by path.
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewFileWatcher creates a watcher that flushes change batches after the
// given debounce delay.
func NewFileWatcher(debounce time.Duration, logger logging.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:   fsw,
		debouncer: newDebouncer(debounce),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

func newDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}
}

// AddFilter adds a path filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath adds a single path to the watch.
func (fw *FileWatcher) AddPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	return fw.watcher.Add(abs)
}

// AddRecursive watches root and every directory below it, skipping hidden
// directories, node_modules and vendor.
func (fw *FileWatcher) AddRecursive(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}
	return fw.watchTree(abs)
}

func (fw *FileWatcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.watcher.Add(p)
	})
}

// skipDir reports whether a directory subtree is never watched.
func skipDir(base string) bool {
	if strings.HasPrefix(base, ".") {
		return true
	}
	return base == "node_modules" || base == "vendor"
}

// Start launches the watch loops. They exit when ctx is cancelled or the
// watcher is stopped.
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.debouncer.run(ctx)
	go fw.dispatchLoop(ctx)
	go fw.watchLoop(ctx)
}

// Stop closes the underlying watcher. Pending batches are dropped.
func (fw *FileWatcher) Stop() error {
	fw.debouncer.stopTimer()
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error(ctx, err, "watch error")
		}
	}
}

func (fw *FileWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)

	// Directories created after start join the watch so files written into
	// them are seen too.
	if statErr == nil && info.IsDir() {
		if !event.Op.Has(fsnotify.Create) || skipDir(filepath.Base(event.Name)) {
			return
		}
		if err := fw.watchTree(event.Name); err != nil {
			fw.logger.Warn(ctx, err, "watching new directory", "path", event.Name)
			return
		}
		fw.logger.Debug(ctx, "watching new directory", "path", event.Name)
		// A moved-in tree produces no per-file events, so announce the
		// directory itself once its watch is in place.
		select {
		case fw.debouncer.events <- ChangeEvent{Type: EventTypeCreated, Path: event.Name, ModTime: info.ModTime()}:
		default:
		}
		return
	}

	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()
	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	var modTime time.Time
	var size int64
	if statErr == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	change := ChangeEvent{
		Type:    eventType(event.Op),
		Path:    event.Name,
		ModTime: modTime,
		Size:    size,
	}

	select {
	case fw.debouncer.events <- change:
	default:
		// Burst overflow; the next change to this path will be seen.
	}
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := make([]ChangeHandler, len(fw.handlers))
			copy(handlers, fw.handlers)
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					fw.logger.Error(ctx, err, "change handler failed")
				}
			}
		}
	}
}

func (d *Debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// flush deduplicates pending events by path (the last event for a path wins)
// and emits one batch sorted by path.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	latest := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		latest[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(latest))
	for _, event := range latest {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

func (d *Debouncer) stopTimer() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// MarkdownFilter accepts the given Markdown extensions (leading dot optional,
// matched case-insensitively). With none given, .md and .markdown apply.
func MarkdownFilter(extensions ...string) FileFilter {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	if len(exts) == 0 {
		exts[".md"] = true
		exts[".markdown"] = true
	}
	return func(path string) bool {
		return exts[strings.ToLower(filepath.Ext(path))]
	}
}

// NoHiddenFilter rejects dotfiles and paths under dot directories.
func NoHiddenFilter(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return !strings.Contains(path, string(os.PathSeparator)+".")
}

// ExcludeDirFilter rejects paths under any of the given directories. Bare
// names match path elements anywhere; absolute entries match their subtree.
func ExcludeDirFilter(dirs ...string) FileFilter {
	var subtrees []string
	names := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if filepath.IsAbs(dir) {
			subtrees = append(subtrees, filepath.Clean(dir))
			continue
		}
		names[dir] = true
	}
	return func(path string) bool {
		for _, dir := range subtrees {
			if path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator)) {
				return false
			}
		}
		if len(names) == 0 {
			return true
		}
		for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
			if names[elem] {
				return false
			}
		}
		return true
	}
}
