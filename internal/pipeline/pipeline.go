// Package pipeline provides the incremental render pipeline behind serve
// mode: a worker pool that re-renders documents as they change, backed by an
// LRU cache keyed by document content hash so unchanged documents are served
// without re-rendering.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pavanpakhare/javanotes/internal/lint"
	"github.com/pavanpakhare/javanotes/internal/logging"
	"github.com/pavanpakhare/javanotes/internal/metrics"
	"github.com/pavanpakhare/javanotes/internal/types"
)

// RenderFunc produces the rendered page for a document.
type RenderFunc func(doc *types.DocumentInfo) ([]byte, error)

// LintFunc checks a single document; diagnostics ride along on the result so
// subscribers see rendering and lint outcomes together.
type LintFunc func(doc *types.DocumentInfo) []lint.Diagnostic

// RenderResult is delivered to callbacks when a render completes.
type RenderResult struct {
	Document    *types.DocumentInfo
	Output      []byte
	Error       error
	Diagnostics []lint.Diagnostic
	Duration    time.Duration
	CacheHit    bool
	Hash        string
}

// RenderCallback is called for every completed render.
type RenderCallback func(result RenderResult)

// RenderMetrics is a snapshot of pipeline throughput counters.
type RenderMetrics struct {
	TotalRenders      int64
	SuccessfulRenders int64
	FailedRenders     int64
	CacheHits         int64
	AverageDuration   time.Duration
	TotalDuration     time.Duration
}

// renderTask is one queued document.
type renderTask struct {
	doc       *types.DocumentInfo
	priority  int
	timestamp time.Time
}

// renderQueue carries tasks to workers and results back out.
type renderQueue struct {
	tasks    chan renderTask
	results  chan RenderResult
	priority chan renderTask
}

// RenderPipeline renders documents through a bounded worker pool with
// caching, metrics, and completion callbacks.
type RenderPipeline struct {
	renderFn  RenderFunc
	lintFn    LintFunc
	cache     *RenderCache
	queue     *renderQueue
	workers   int
	metricsMu sync.RWMutex
	metrics   RenderMetrics
	callbacks []RenderCallback
	cbMutex   sync.RWMutex
	logger    logging.Logger
	workerWg  sync.WaitGroup
	resultWg  sync.WaitGroup
	cancel    context.CancelFunc
}

// NewRenderPipeline creates a pipeline with the given worker count.
func NewRenderPipeline(workers int, renderFn RenderFunc, logger logging.Logger) *RenderPipeline {
	if workers < 1 {
		workers = 1
	}
	return &RenderPipeline{
		renderFn: renderFn,
		cache:    NewRenderCache(50*1024*1024, time.Hour),
		queue: &renderQueue{
			tasks:    make(chan renderTask, 100),
			results:  make(chan RenderResult, 100),
			priority: make(chan renderTask, 10),
		},
		workers: workers,
		logger:  logger.WithComponent("pipeline"),
	}
}

// SetLintFunc attaches per-document linting to render tasks. Must be set
// before Start.
func (p *RenderPipeline) SetLintFunc(fn LintFunc) {
	p.lintFn = fn
}

// Start launches the workers and the result dispatcher.
func (p *RenderPipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.workerWg.Add(1)
		go p.worker(ctx)
	}

	p.resultWg.Add(1)
	go p.processResults(ctx)
}

// Stop cancels the workers and waits for them to drain.
func (p *RenderPipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.workerWg.Wait()
	p.resultWg.Wait()
}

// Render queues a document at normal priority. A full queue drops the task;
// the next change or a manual refresh re-queues it.
func (p *RenderPipeline) Render(doc *types.DocumentInfo) {
	task := renderTask{doc: doc, priority: 1, timestamp: time.Now()}
	select {
	case p.queue.tasks <- task:
	default:
		p.logger.Warn(context.Background(), nil, "render queue full, dropping task", "path", doc.RelPath)
	}
}

// RenderWithPriority queues a document ahead of normal tasks, used for the
// file the author just saved.
func (p *RenderPipeline) RenderWithPriority(doc *types.DocumentInfo) {
	task := renderTask{doc: doc, priority: 10, timestamp: time.Now()}
	select {
	case p.queue.priority <- task:
	default:
		p.logger.Warn(context.Background(), nil, "priority render queue full, dropping task", "path", doc.RelPath)
	}
}

// AddCallback registers a completion callback.
func (p *RenderPipeline) AddCallback(cb RenderCallback) {
	p.cbMutex.Lock()
	defer p.cbMutex.Unlock()
	p.callbacks = append(p.callbacks, cb)
}

// Metrics returns a snapshot of the pipeline counters.
func (p *RenderPipeline) Metrics() RenderMetrics {
	p.metricsMu.RLock()
	defer p.metricsMu.RUnlock()
	return p.metrics
}

// ClearCache drops all cached pages.
func (p *RenderPipeline) ClearCache() {
	p.cache.Clear()
}

// CacheStats returns entry count, current size, and max size.
func (p *RenderPipeline) CacheStats() (int, int64, int64) {
	return p.cache.Stats()
}

// Invalidate removes a document's cached page, forcing the next render.
func (p *RenderPipeline) Invalidate(doc *types.DocumentInfo) {
	p.cache.Remove(cacheKey(doc))
}

func (p *RenderPipeline) worker(ctx context.Context) {
	defer p.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue.priority:
			p.process(task)
		case task := <-p.queue.tasks:
			p.process(task)
		}
	}
}

func (p *RenderPipeline) process(task renderTask) {
	start := time.Now()
	key := cacheKey(task.doc)

	var diags []lint.Diagnostic
	if p.lintFn != nil {
		diags = p.lintFn(task.doc)
	}

	if cached, ok := p.cache.Get(key); ok {
		p.queue.results <- RenderResult{
			Document:    task.doc,
			Output:      cached,
			Diagnostics: diags,
			Duration:    time.Since(start),
			CacheHit:    true,
			Hash:        key,
		}
		return
	}

	output, err := p.renderFn(task.doc)
	if err == nil {
		p.cache.Set(key, output)
	}

	p.queue.results <- RenderResult{
		Document:    task.doc,
		Output:      output,
		Error:       err,
		Diagnostics: diags,
		Duration:    time.Since(start),
		Hash:        key,
	}
}

func (p *RenderPipeline) processResults(ctx context.Context) {
	defer p.resultWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case result := <-p.queue.results:
			p.handleResult(result)
		}
	}
}

func (p *RenderPipeline) handleResult(result RenderResult) {
	p.updateMetrics(result)

	switch {
	case result.Error != nil:
		metrics.RecordRender("failure", result.Duration)
		p.logger.Error(context.Background(), result.Error, "render failed", "path", result.Document.RelPath)
	case result.CacheHit:
		metrics.RecordRender("cached", result.Duration)
		p.logger.Debug(context.Background(), "render served from cache", "path", result.Document.RelPath)
	default:
		metrics.RecordRender("success", result.Duration)
		p.logger.Debug(context.Background(), "render completed",
			"path", result.Document.RelPath,
			"duration", result.Duration.String(),
			"diagnostics", len(result.Diagnostics),
		)
	}

	p.cbMutex.RLock()
	callbacks := make([]RenderCallback, len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.cbMutex.RUnlock()

	for _, cb := range callbacks {
		cb(result)
	}
}

func (p *RenderPipeline) updateMetrics(result RenderResult) {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	p.metrics.TotalRenders++
	p.metrics.TotalDuration += result.Duration

	if result.CacheHit {
		p.metrics.CacheHits++
	}
	if result.Error != nil {
		p.metrics.FailedRenders++
	} else {
		p.metrics.SuccessfulRenders++
	}
	if p.metrics.TotalRenders > 0 {
		p.metrics.AverageDuration = p.metrics.TotalDuration / time.Duration(p.metrics.TotalRenders)
	}
}

// cacheKey derives the cache key from the scanner's content hash, falling
// back to path and mtime for documents that never went through the scanner.
func cacheKey(doc *types.DocumentInfo) string {
	if doc.Hash != "" {
		return doc.RelPath + "@" + doc.Hash
	}
	return fmt.Sprintf("%s@%d", doc.RelPath, doc.LastMod.Unix())
}
