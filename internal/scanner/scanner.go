// Package scanner provides document discovery for the tutorial corpus.
//
// The scanner traverses the configured content roots to find Markdown files,
// parses them into document metadata (headings, links, code blocks, front
// matter), and registers the results with the document registry, which
// broadcasts change events. It supports recursive scanning with exclude
// patterns, maintains CRC32 content hashes for change detection, and provides
// both single-file and batch scanning. Batch scans run through a persistent
// worker pool.
package scanner

import (
	"fmt"
	"hash/crc32"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pavanpakhare/javanotes/internal/errors"
	"github.com/pavanpakhare/javanotes/internal/markdown"
	"github.com/pavanpakhare/javanotes/internal/registry"
)

// ScanJob represents a scanning job for the worker pool containing the file
// path to scan and a result channel for asynchronous communication.
type ScanJob struct {
	// filePath is the absolute path to the Markdown file to be scanned
	filePath string
	// result channel receives the scan result or error asynchronously
	result chan<- ScanResult
}

// ScanResult represents the result of a scanning operation, containing either
// success status or error information for a specific file.
type ScanResult struct {
	// filePath is the path that was scanned
	filePath string
	// err contains any error that occurred during scanning, nil on success
	err error
}

// WorkerPool manages persistent scanning workers so repeated corpus scans do
// not pay goroutine creation overhead.
type WorkerPool struct {
	// jobQueue buffers scanning jobs for worker distribution
	jobQueue chan ScanJob
	// workers holds references to all active worker goroutines
	workers []*scanWorker
	// workerCount defines the number of concurrent workers (typically NumCPU)
	workerCount int
	// stop signals all workers to terminate gracefully
	stop chan struct{}
	// stopped tracks pool shutdown state
	stopped bool
	// mu protects concurrent access to pool state
	mu sync.RWMutex
}

// scanWorker is a persistent worker goroutine that processes scanning jobs
// from the shared job queue.
type scanWorker struct {
	id       int
	jobQueue <-chan ScanJob
	scanner  *DocumentScanner
	stop     chan struct{}
}

// DocumentScanner discovers tutorial documents under the configured content
// roots and parses them into the registry.
//
// The scanner provides:
//   - Recursive content root traversal with exclude patterns
//   - Markdown metadata extraction (headings, links, code blocks)
//   - Concurrent processing via a persistent worker pool
//   - Integration with the document registry for event broadcasting
//   - File change detection using CRC32 hashing
//   - Path validation confining scans to the content roots
type DocumentScanner struct {
	// registry receives discovered documents and broadcasts change events
	registry *registry.DocumentRegistry
	// parser extracts document metadata from Markdown source
	parser *markdown.Parser
	// roots are the absolute paths of the content roots, in configured order
	roots []string
	// extensions lists the recognized Markdown file extensions (lower case,
	// with leading dot)
	extensions []string
	// excludes holds user-configured glob patterns matched against relative
	// paths and path elements
	excludes []string
	// workerPool manages concurrent scanning operations
	workerPool *WorkerPool
	// collector aggregates per-file failures so one broken document does not
	// abort a corpus scan
	collector *errors.ErrorCollector
}

// NewDocumentScanner creates a scanner for the given content roots. Roots are
// resolved to absolute paths; a root that cannot be resolved is an error.
// Exclude patterns are globs matched against root-relative paths and against
// individual path elements ("node_modules" and ".git" are always excluded).
func NewDocumentScanner(reg *registry.DocumentRegistry, roots []string, excludes []string) (*DocumentScanner, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no content roots configured")
	}

	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving content root %s: %w", root, err)
		}
		absRoots = append(absRoots, abs)
	}

	scanner := &DocumentScanner{
		registry:   reg,
		parser:     markdown.NewParser(),
		roots:      absRoots,
		extensions: []string{".md", ".markdown"},
		excludes:   excludes,
		collector:  errors.NewErrorCollector(),
	}

	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8 // diminishing returns past 8 for file-bound work
	}
	scanner.workerPool = newWorkerPool(workerCount, scanner)

	return scanner, nil
}

// SetExtensions overrides the recognized Markdown file extensions.
func (s *DocumentScanner) SetExtensions(exts []string) {
	if len(exts) == 0 {
		return
	}
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if len(normalized) > 0 {
		s.extensions = normalized
	}
}

// GetRegistry returns the document registry.
func (s *DocumentScanner) GetRegistry() *registry.DocumentRegistry {
	return s.registry
}

// Errors returns the collector holding per-file scan failures from the most
// recent scans. Callers surface these alongside lint diagnostics.
func (s *DocumentScanner) Errors() *errors.ErrorCollector {
	return s.collector
}

// Roots returns the absolute content root paths.
func (s *DocumentScanner) Roots() []string {
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// Close gracefully shuts down the scanner and its worker pool.
func (s *DocumentScanner) Close() error {
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	return nil
}

// newWorkerPool creates a worker pool for scanning operations.
func newWorkerPool(workerCount int, scanner *DocumentScanner) *WorkerPool {
	pool := &WorkerPool{
		jobQueue:    make(chan ScanJob, workerCount*2),
		workerCount: workerCount,
		stop:        make(chan struct{}),
	}

	pool.workers = make([]*scanWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		worker := &scanWorker{
			id:       i,
			jobQueue: pool.jobQueue,
			scanner:  scanner,
			stop:     make(chan struct{}),
		}
		pool.workers[i] = worker
		go worker.start()
	}

	return pool
}

// start begins the worker's processing loop.
func (w *scanWorker) start() {
	for {
		select {
		case job := <-w.jobQueue:
			err := w.scanner.scanFileInternal(job.filePath)
			job.result <- ScanResult{filePath: job.filePath, err: err}
		case <-w.stop:
			return
		}
	}
}

// Stop gracefully shuts down the worker pool.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stop)

	for _, worker := range p.workers {
		close(worker.stop)
	}
	close(p.jobQueue)
}

// ScanAll walks every content root and registers each discovered document.
// Individual file failures are collected rather than aborting the walk; the
// returned error summarizes them.
func (s *DocumentScanner) ScanAll() error {
	s.collector.Clear()

	var files []string
	for _, root := range s.roots {
		rootFiles, err := s.collectFiles(root)
		if err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
		files = append(files, rootFiles...)
	}

	return s.processBatchWithWorkerPool(files)
}

// ScanDirectory scans one directory, which must lie inside a content root.
func (s *DocumentScanner) ScanDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	if _, _, err := s.relPath(abs); err != nil {
		return fmt.Errorf("invalid directory path: %w", err)
	}

	files, err := s.collectFiles(abs)
	if err != nil {
		return err
	}
	return s.processBatchWithWorkerPool(files)
}

// collectFiles walks dir collecting recognized Markdown files that survive
// the exclude patterns.
func (s *DocumentScanner) collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p != dir && s.excluded(p, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.recognized(p) || s.excluded(p, d.Name()) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// recognized reports whether the file carries one of the configured
// Markdown extensions.
func (s *DocumentScanner) recognized(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, want := range s.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// excluded applies the built-in and configured exclude patterns.
func (s *DocumentScanner) excluded(absPath, base string) bool {
	if base == "node_modules" || base == ".git" || base == "vendor" {
		return true
	}
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}

	rel, _, err := s.relPath(absPath)
	if err != nil {
		return true
	}
	for _, pattern := range s.excludes {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// processBatchWithWorkerPool distributes files across the persistent worker
// pool, falling back to a synchronous path for tiny batches.
func (s *DocumentScanner) processBatchWithWorkerPool(files []string) error {
	if len(files) == 0 {
		return nil
	}

	// Small batches: the pool's channel round trips cost more than they save.
	if len(files) <= 5 {
		return s.processBatchSynchronous(files)
	}

	resultChan := make(chan ScanResult, len(files))
	for _, file := range files {
		job := ScanJob{filePath: file, result: resultChan}

		select {
		case s.workerPool.jobQueue <- job:
		default:
			// Pool saturated; scan inline rather than block the producer.
			err := s.scanFileInternal(file)
			resultChan <- ScanResult{filePath: file, err: err}
		}
	}

	var failed int
	var first error
	for i := 0; i < len(files); i++ {
		result := <-resultChan
		if result.err != nil {
			failed++
			if first == nil {
				first = fmt.Errorf("scanning %s: %w", result.filePath, result.err)
			}
		}
	}
	close(resultChan)

	if failed > 0 {
		return fmt.Errorf("scan completed with %d errors: %w", failed, first)
	}
	return nil
}

// processBatchSynchronous scans small batches inline.
func (s *DocumentScanner) processBatchSynchronous(files []string) error {
	var failed int
	var first error
	for _, file := range files {
		if err := s.scanFileInternal(file); err != nil {
			failed++
			if first == nil {
				first = fmt.Errorf("scanning %s: %w", file, err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("scan completed with %d errors: %w", failed, first)
	}
	return nil
}

// ScanFile scans a single file, registering or refreshing its registry
// entry. A file that has vanished is removed from the registry instead; that
// is not an error, so watch mode can feed deletions through the same path.
// Unrecognized extensions and excluded paths are skipped.
func (s *DocumentScanner) ScanFile(p string) error {
	abs, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", p, err)
	}

	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		if rel, _, relErr := s.relPath(abs); relErr == nil {
			s.registry.Remove(rel)
		}
		return nil
	}

	if !s.recognized(abs) {
		return nil
	}
	if _, _, err := s.relPath(abs); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if s.excluded(abs, filepath.Base(abs)) {
		return nil
	}

	return s.scanFileInternal(abs)
}

// scanFileInternal reads, hashes, and parses one document, then registers it.
func (s *DocumentScanner) scanFileInternal(p string) error {
	rel, _, err := s.relPath(p)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("opening file %s: %w", p, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("getting file info for %s: %w", p, err)
	}

	content := make([]byte, info.Size())
	if _, err := file.Read(content); err != nil && info.Size() > 0 {
		return fmt.Errorf("reading file %s: %w", p, err)
	}

	hash := fmt.Sprintf("%x", crc32.ChecksumIEEE(content))

	doc, err := s.parser.Parse(rel, content)
	if err != nil {
		s.collector.Add(errors.New(rel, p, 1, errors.ErrorSeverityError, err.Error()))
		return fmt.Errorf("parsing %s: %w", rel, err)
	}

	doc.AbsPath = p
	doc.LastMod = info.ModTime()
	doc.Hash = hash

	s.registry.Register(doc)
	return nil
}

// relPath maps an absolute path to its content-root-relative, slash-separated
// form, and reports which root it belongs to. Paths outside every root are
// rejected, which doubles as traversal protection for watch events.
func (s *DocumentScanner) relPath(abs string) (string, string, error) {
	clean := filepath.Clean(abs)
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, clean)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.ToSlash(rel), root, nil
	}
	return "", "", fmt.Errorf("path %s is outside the content roots", abs)
}

// RelPath exposes content-root-relative path resolution for callers that
// translate watcher events into registry keys.
func (s *DocumentScanner) RelPath(abs string) (string, bool) {
	rel, _, err := s.relPath(abs)
	if err != nil {
		return "", false
	}
	return rel, true
}

// PruneMissing removes registry entries whose backing files no longer exist
// and returns the removed relative paths. Watch mode calls this after rename
// bursts, where fsnotify reports the old name only.
func (s *DocumentScanner) PruneMissing() []string {
	var removed []string
	for rel, doc := range s.registry.GetAll() {
		if doc.AbsPath == "" {
			continue
		}
		if _, err := os.Stat(doc.AbsPath); os.IsNotExist(err) {
			s.registry.Remove(rel)
			removed = append(removed, rel)
		}
	}
	sort.Strings(removed)
	return removed
}
