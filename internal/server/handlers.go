package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pavanpakhare/javanotes/internal/site"
	"github.com/pavanpakhare/javanotes/internal/types"
	"github.com/pavanpakhare/javanotes/internal/version"
)

// documentSummary is one entry in the /api/documents listing.
type documentSummary struct {
	Path        string    `json:"path"`
	Page        string    `json:"page"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Weight      int       `json:"weight,omitempty"`
	Draft       bool      `json:"draft,omitempty"`
	Headings    int       `json:"headings"`
	Links       int       `json:"links"`
	CodeBlocks  int       `json:"code_blocks"`
	Words       int       `json:"words"`
	LastMod     time.Time `json:"last_modified"`
}

func (s *AuthoringServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/view/index.html", http.StatusFound)
}

// handleView serves rendered document pages under /view/, plus raw corpus
// assets (images and the like) referenced by them.
func (s *AuthoringServer) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.Trim(strings.TrimPrefix(r.URL.Path, "/view/"), "/")
	if rel == "" {
		rel = "index.html"
	}

	// Source paths are served as their rendered pages.
	switch strings.ToLower(path.Ext(rel)) {
	case ".md", ".markdown", ".mdx":
		rel = site.PageHref(rel)
	}

	if strings.HasSuffix(rel, ".html") {
		s.servePage(w, r, rel)
		return
	}

	abs, ok := s.resolveAsset(rel)
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// servePage writes the rendered page, rendering synchronously when the
// pipeline has not produced it yet.
func (s *AuthoringServer) servePage(w http.ResponseWriter, r *http.Request, page string) {
	s.pagesMutex.RLock()
	out, ok := s.pages[page]
	s.pagesMutex.RUnlock()

	if !ok {
		doc := s.docForPage(page)
		if doc == nil {
			if page == "index.html" {
				s.serveGeneratedIndex(w, r)
				return
			}
			http.NotFound(w, r)
			return
		}

		rendered, err := s.renderDocument(doc)
		if err != nil {
			s.logger.Error(r.Context(), err, "rendering page", "page", page)
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}
		s.pagesMutex.Lock()
		s.pages[page] = rendered
		s.pagesMutex.Unlock()
		out = rendered
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(out)

	// Stale content is served when the latest save failed to parse; the
	// overlay tells the author why the page is not updating.
	if overlay := s.scanner.Errors().ErrorOverlay(); overlay != "" {
		_, _ = io.WriteString(w, overlay)
	}
}

// docForPage finds the document whose emitted page path matches. Drafts are
// viewable here even though they are excluded from navigation and search;
// this is an authoring tool.
func (s *AuthoringServer) docForPage(page string) *types.DocumentInfo {
	for rel, doc := range s.registry.GetAll() {
		if site.PageHref(rel) == page {
			return doc
		}
	}
	return nil
}

// serveGeneratedIndex renders a home page listing the corpus, for roots that
// carry no index.md of their own.
func (s *AuthoringServer) serveGeneratedIndex(w http.ResponseWriter, r *http.Request) {
	nav := site.BuildNav(s.docs())
	doc := &types.DocumentInfo{RelPath: "index.md", Title: s.config.Site.Title}

	out, err := s.renderer.Render(doc, s.indexMarkdown(nav), nav, s.pageOptions())
	if err != nil {
		s.logger.Error(r.Context(), err, "rendering generated index")
		http.Error(w, "failed to render index", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(out)
}

// indexMarkdown lists every section and page as Markdown, which the normal
// render path turns into a linked table of contents.
func (s *AuthoringServer) indexMarkdown(nav []site.NavSection) []byte {
	var b strings.Builder
	b.WriteString("# " + s.config.Site.Title + "\n")
	for _, sec := range nav {
		b.WriteString("\n## " + sec.Title + "\n\n")
		for _, p := range sec.Pages {
			fmt.Fprintf(&b, "- [%s](%s)\n", p.Title, p.Rel)
		}
	}
	return []byte(b.String())
}

// resolveAsset maps a request path to a file inside one of the content
// roots. Traversal is neutralized and dotfiles are never served.
func (s *AuthoringServer) resolveAsset(rel string) (string, bool) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" {
		return "", false
	}
	for _, part := range strings.Split(clean, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}

	for _, root := range s.scanner.Roots() {
		abs := filepath.Join(root, filepath.FromSlash(clean))
		if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
			return abs, true
		}
	}
	return "", false
}

func (s *AuthoringServer) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docs := s.docs()
	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, documentSummary{
			Path:        doc.RelPath,
			Page:        site.PageHref(doc.RelPath),
			Title:       doc.Title,
			Description: doc.Description,
			Tags:        doc.Tags,
			Weight:      doc.Weight,
			Draft:       doc.Draft,
			Headings:    len(doc.Headings),
			Links:       len(doc.Links),
			CodeBlocks:  len(doc.CodeBlocks),
			Words:       doc.WordCount,
			LastMod:     doc.LastMod,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": summaries,
		"count":     len(summaries),
	})
}

func (s *AuthoringServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query().Get("q")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	s.searchMutex.RLock()
	index := s.searchIndex
	s.searchMutex.RUnlock()

	results := []site.SearchEntry{}
	if index != nil {
		if hits := index.Query(q, limit); hits != nil {
			results = hits
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
		"count":   len(results),
	})
}

func (s *AuthoringServer) handleLint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.lintMutex.RLock()
	report := s.lastReport
	s.lintMutex.RUnlock()

	if report == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "lint report not ready",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *AuthoringServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.clientsMutex.RLock()
	clientCount := len(s.clients)
	s.clientsMutex.RUnlock()

	pm := s.pipeline.Metrics()

	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]interface{}{
			"server":   map[string]interface{}{"status": "healthy", "message": "HTTP server operational"},
			"registry": map[string]interface{}{"status": "healthy", "documents": s.registry.Count()},
			"watcher":  map[string]interface{}{"status": "healthy", "message": "file watcher operational"},
			"pipeline": map[string]interface{}{
				"status":     "healthy",
				"renders":    pm.TotalRenders,
				"failed":     pm.FailedRenders,
				"cache_hits": pm.CacheHits,
			},
		},
		"websocket_clients": clientCount,
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *AuthoringServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), err, "encoding response")
	}
}
