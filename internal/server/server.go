// Package server implements the authoring server: the rendered corpus served
// over HTTP with live reload, JSON APIs over the registry, search, and lint
// state, and Prometheus metrics. File changes flow watcher -> scanner ->
// render pipeline -> websocket broadcast.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/lint"
	"github.com/pavanpakhare/javanotes/internal/logging"
	"github.com/pavanpakhare/javanotes/internal/metrics"
	"github.com/pavanpakhare/javanotes/internal/pipeline"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/scanner"
	"github.com/pavanpakhare/javanotes/internal/site"
	"github.com/pavanpakhare/javanotes/internal/types"
	"github.com/pavanpakhare/javanotes/internal/watcher"
)

// Client represents one connected live-reload websocket client.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *AuthoringServer
}

// AuthoringServer serves the tutorial corpus with live reload.
type AuthoringServer struct {
	config *config.Config
	logger logging.Logger

	httpServer  *http.Server
	serverMutex sync.RWMutex

	registry *registry.DocumentRegistry
	scanner  *scanner.DocumentScanner
	watcher  *watcher.FileWatcher
	linter   *lint.Engine
	renderer *site.Renderer
	pipeline *pipeline.RenderPipeline
	limiter  *rateLimiter

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn

	// pages holds rendered pages keyed by emitted page path
	// ("core-java/collections.html"). navFP fingerprints the sidebar the
	// cached pages were rendered with; when it changes they are all stale.
	pages      map[string][]byte
	pagesMutex sync.RWMutex
	navFP      string

	searchIndex *site.SearchIndex
	searchMutex sync.RWMutex

	lastReport *lint.Report
	lintMutex  sync.RWMutex

	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// UpdateMessage is one websocket payload pushed to connected clients.
type UpdateMessage struct {
	Type      string       `json:"type"`
	Target    string       `json:"target,omitempty"`
	Content   string       `json:"content,omitempty"`
	Report    *lint.Report `json:"report,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// New creates an authoring server over the configured content roots.
func New(cfg *config.Config, logger logging.Logger) (*AuthoringServer, error) {
	reg := registry.NewDocumentRegistry()

	sc, err := scanner.NewDocumentScanner(reg, cfg.Docs.Roots, cfg.Docs.Exclude)
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}
	sc.SetExtensions(cfg.Docs.Extensions)

	fw, err := watcher.NewFileWatcher(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, logger)
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	renderer, err := site.NewRenderer(site.Options{Title: cfg.Site.Title, BaseURL: cfg.Site.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	linter := lint.NewEngine(reg, logger)
	if err := linter.EnableOnly(cfg.Lint.Rules); err != nil {
		return nil, fmt.Errorf("applying lint rules: %w", err)
	}
	if err := linter.Disable(cfg.Lint.Disable...); err != nil {
		return nil, fmt.Errorf("applying lint rules: %w", err)
	}

	s := &AuthoringServer{
		config:     cfg,
		logger:     logger.WithComponent("server"),
		registry:   reg,
		scanner:    sc,
		watcher:    fw,
		linter:     linter,
		renderer:   renderer,
		limiter:    newRateLimiter(),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client, 16),
		unregister: make(chan *websocket.Conn, 16),
		pages:      make(map[string][]byte),
	}

	s.pipeline = pipeline.NewRenderPipeline(4, s.renderDocument, logger)
	s.pipeline.SetLintFunc(s.lintDocument)

	return s, nil
}

// Start scans the corpus, begins watching it, and serves HTTP until the
// listener fails or Shutdown is called.
func (s *AuthoringServer) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.pipeline.Start(ctx)
	s.pipeline.AddCallback(s.handleRenderResult)

	go s.runHub(ctx)

	if err := s.scanner.ScanAll(); err != nil {
		s.logger.Warn(ctx, err, "initial scan finished with errors")
	}
	s.logger.Info(ctx, "corpus scanned", "documents", s.registry.Count())
	s.refreshCorpus(ctx)

	// Warm the page cache so first requests do not render synchronously.
	for _, doc := range s.docs() {
		s.pipeline.Render(doc)
	}

	s.setupWatcher(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/documents", s.handleDocuments)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/lint", s.handleLint)
	mux.HandleFunc("/view/", s.handleView)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(site.Assets()))))
	mux.HandleFunc("/", s.handleRoot)

	handler := s.addMiddleware(mux)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	if s.config.Server.Open {
		go s.openBrowser(fmt.Sprintf("http://%s", addr))
	}

	s.logger.Info(ctx, "authoring server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *AuthoringServer) setupWatcher(ctx context.Context) {
	s.watcher.AddFilter(watcher.MarkdownFilter(s.config.Docs.Extensions...))
	s.watcher.AddFilter(watcher.NoHiddenFilter)
	s.watcher.AddFilter(watcher.ExcludeDirFilter(s.config.Site.Output, "node_modules", "vendor"))

	s.watcher.AddHandler(s.handleFileChange)

	for _, root := range s.config.Docs.Roots {
		if err := s.watcher.AddRecursive(root); err != nil {
			s.logger.Warn(ctx, err, "watching content root", "root", root)
		}
	}

	s.watcher.Start(ctx)
}

// handleFileChange feeds one debounced batch of filesystem changes through
// the scanner, refreshes the corpus-wide state, and queues re-renders.
func (s *AuthoringServer) handleFileChange(events []watcher.ChangeEvent) error {
	ctx := context.Background()
	metrics.ScansTotal.Inc()

	var changed []string
	removed := false

	for _, event := range events {
		s.logger.Debug(ctx, "file changed", "path", event.Path, "event", event.Type.String())

		if info, err := os.Stat(event.Path); err == nil && info.IsDir() {
			// Moved-in trees arrive as a single directory event.
			if err := s.scanner.ScanDirectory(event.Path); err != nil {
				s.logger.Warn(ctx, err, "rescanning directory", "path", event.Path)
			}
			continue
		}

		rel, ok := s.scanner.RelPath(event.Path)
		if !ok {
			continue
		}
		if err := s.scanner.ScanFile(event.Path); err != nil {
			s.logger.Warn(ctx, err, "rescanning file", "path", event.Path)
		}
		if _, exists := s.registry.Get(rel); exists {
			changed = append(changed, rel)
		} else {
			s.dropPage(site.PageHref(rel))
			removed = true
		}
	}

	// Renames report the old name only; sweep for entries whose files are gone.
	for _, rel := range s.scanner.PruneMissing() {
		s.dropPage(site.PageHref(rel))
		removed = true
	}

	navChanged := s.refreshCorpus(ctx)

	for _, rel := range changed {
		if doc, ok := s.registry.Get(rel); ok {
			s.pipeline.RenderWithPriority(doc)
		}
	}

	// Changed documents trigger their own reload from the render callback;
	// removals and sidebar changes need one here.
	if removed || navChanged {
		s.broadcastMessage(UpdateMessage{Type: "reload", Timestamp: time.Now()})
	}
	return nil
}

// refreshCorpus rebuilds the corpus-derived state: document gauge, navigation
// fingerprint, search index, and the lint report. It reports whether the
// sidebar changed, which invalidates every cached page.
func (s *AuthoringServer) refreshCorpus(ctx context.Context) bool {
	docs := s.docs()
	metrics.DocumentsTotal.Set(float64(len(docs)))

	nav := site.BuildNav(docs)
	fp := navFingerprint(nav)

	s.pagesMutex.Lock()
	navChanged := fp != s.navFP
	s.navFP = fp
	if navChanged {
		s.pages = make(map[string][]byte)
	}
	s.pagesMutex.Unlock()

	if navChanged {
		// Cached pipeline output embeds the old sidebar.
		s.pipeline.ClearCache()
	}

	index := site.BuildSearchIndex(docs)
	s.searchMutex.Lock()
	s.searchIndex = index
	s.searchMutex.Unlock()

	start := time.Now()
	report, err := s.linter.Lint(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "linting corpus")
		return navChanged
	}
	if buildErrs := s.scanner.Errors().GetErrors(); len(buildErrs) > 0 {
		report = lint.MergeReports(len(docs), time.Since(start),
			report.Diagnostics, lint.FromBuildErrors(buildErrs))
	}

	s.lintMutex.Lock()
	s.lastReport = report
	s.lintMutex.Unlock()

	metrics.SetLintCounts(report.Summary.Errors, report.Summary.Warnings, report.Summary.Infos)
	s.broadcastMessage(UpdateMessage{Type: "lint_report", Report: report, Timestamp: time.Now()})

	return navChanged
}

// renderDocument is the pipeline's render function: the document's source and
// the current sidebar, through the shared page renderer.
func (s *AuthoringServer) renderDocument(doc *types.DocumentInfo) ([]byte, error) {
	source, err := os.ReadFile(doc.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", doc.RelPath, err)
	}
	nav := site.BuildNav(s.docs())
	return s.renderer.Render(doc, source, nav, s.pageOptions())
}

// lintDocument is the pipeline's lint function; its diagnostics ride along on
// render results. Cross-file rules resolve against the full registry.
func (s *AuthoringServer) lintDocument(doc *types.DocumentInfo) []lint.Diagnostic {
	report, err := s.linter.LintDocuments(context.Background(), []*types.DocumentInfo{doc})
	if err != nil {
		s.logger.Warn(context.Background(), err, "linting changed document", "path", doc.RelPath)
		return nil
	}
	return report.Diagnostics
}

// handleRenderResult publishes completed renders and notifies clients.
func (s *AuthoringServer) handleRenderResult(result pipeline.RenderResult) {
	page := site.PageHref(result.Document.RelPath)

	if result.Error != nil {
		s.broadcastMessage(UpdateMessage{
			Type:      "render_error",
			Target:    page,
			Content:   result.Error.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	s.pagesMutex.Lock()
	s.pages[page] = result.Output
	s.pagesMutex.Unlock()

	s.broadcastMessage(UpdateMessage{Type: "reload", Target: page, Timestamp: time.Now()})
}

// pageOptions are the render options for served pages: absolute prefixes
// under this server's routes, search against the API, live reload on.
func (s *AuthoringServer) pageOptions() site.PageOptions {
	return site.PageOptions{
		Root:       "/view/",
		Assets:     "/static/",
		SearchAPI:  "/api/search?q=",
		LiveReload: true,
	}
}

// docs returns the registered documents in registry path order.
func (s *AuthoringServer) docs() []*types.DocumentInfo {
	all := s.registry.GetAll()
	docs := make([]*types.DocumentInfo, 0, len(all))
	for _, rel := range s.registry.Paths() {
		docs = append(docs, all[rel])
	}
	return docs
}

func (s *AuthoringServer) dropPage(page string) {
	s.pagesMutex.Lock()
	delete(s.pages, page)
	s.pagesMutex.Unlock()
}

// navFingerprint identifies one sidebar rendering, so corpus changes that
// reshape it can invalidate cached pages.
func navFingerprint(nav []site.NavSection) string {
	var b strings.Builder
	for _, sec := range nav {
		b.WriteString(sec.Dir)
		b.WriteByte('\x1f')
		b.WriteString(sec.Title)
		b.WriteByte('\x1e')
		for _, p := range sec.Pages {
			b.WriteString(p.Href)
			b.WriteByte('\x1f')
			b.WriteString(p.Title)
			b.WriteByte('\x1e')
		}
	}
	return b.String()
}

// broadcastMessage queues a message for every connected client. Messages are
// dropped rather than blocking the caller when the hub is saturated.
func (s *AuthoringServer) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "marshaling update message")
		data = []byte(`{"type":"reload"}`)
	}
	select {
	case s.broadcast <- data:
	default:
		s.logger.Warn(context.Background(), nil, "broadcast channel full, dropping message", "type", msg.Type)
	}
}

func (s *AuthoringServer) openBrowser(url string) {
	time.Sleep(100 * time.Millisecond) // give the listener a moment

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(context.Background(), err, "opening browser", "url", url)
	}
}

// Shutdown stops the watcher, pipeline, and scanner, closes every websocket
// client, and shuts the HTTP server down within ctx's deadline.
func (s *AuthoringServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down authoring server")

		if s.cancel != nil {
			s.cancel()
		}

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "stopping file watcher")
			}
		}
		if s.pipeline != nil {
			s.pipeline.Stop()
		}
		if s.scanner != nil {
			_ = s.scanner.Close()
		}

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()
		metrics.WebsocketClients.Set(0)

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
