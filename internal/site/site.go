// Package site renders the document corpus to a static HTML site: one page
// per document with shared navigation, chroma-highlighted code, a JSON search
// index, and embedded static assets. A post-build verification pass re-parses
// the emitted HTML and confirms every intra-site link and image target exists.
package site

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pavanpakhare/javanotes/internal/logging"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/types"
)

//go:embed assets
var assetFS embed.FS

// Assets returns the embedded static assets (CSS, JS) rooted at their
// servable paths, for callers that mount them on an HTTP route.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(fmt.Sprintf("embedded assets missing: %v", err))
	}
	return sub
}

// ErrNoDocuments is returned when a build is attempted over an empty corpus.
var ErrNoDocuments = errors.New("no documents to build")

// BuildStats summarizes one build.
type BuildStats struct {
	Pages         int
	Assets        int
	SearchEntries int
	Duration      time.Duration
}

// Builder renders every registered document into the output directory.
type Builder struct {
	registry *registry.DocumentRegistry
	renderer *Renderer
	opts     Options
	logger   logging.Logger
}

// NewBuilder creates a builder over the registry.
func NewBuilder(reg *registry.DocumentRegistry, opts Options, logger logging.Logger) (*Builder, error) {
	if opts.Output == "" {
		return nil, errors.New("output directory not set")
	}
	renderer, err := NewRenderer(opts)
	if err != nil {
		return nil, err
	}
	return &Builder{
		registry: reg,
		renderer: renderer,
		opts:     opts,
		logger:   logger.WithComponent("site"),
	}, nil
}

// Renderer exposes the page renderer, shared with the authoring server.
func (b *Builder) Renderer() *Renderer {
	return b.renderer
}

// Build renders all publishable documents, writes the search index and static
// assets, copies referenced corpus assets, and verifies the output when
// configured to. Returned stats are valid even when verification fails.
func (b *Builder) Build(ctx context.Context) (*BuildStats, error) {
	start := time.Now()

	docs := b.publishable()
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	nav := BuildNav(docs)

	if err := os.MkdirAll(b.opts.Output, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return b.renderToFile(doc, nav)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := len(docs)
	if _, ok := b.registry.Get("index.md"); !ok {
		if err := b.writeGeneratedIndex(nav); err != nil {
			return nil, err
		}
		pages++
	}

	index := BuildSearchIndex(docs)
	if err := index.WriteFile(filepath.Join(b.opts.Output, "search-index.json")); err != nil {
		return nil, err
	}

	assets, err := b.writeStaticAssets()
	if err != nil {
		return nil, err
	}
	copied, err := b.copyDocAssets(docs)
	if err != nil {
		return nil, err
	}
	assets += copied

	stats := &BuildStats{
		Pages:         pages,
		Assets:        assets,
		SearchEntries: index.Len(),
		Duration:      time.Since(start),
	}
	b.logger.Info(ctx, "site built",
		"pages", stats.Pages,
		"assets", stats.Assets,
		"output", b.opts.Output,
		"duration", stats.Duration.String(),
	)

	if b.opts.Verify {
		issues, err := Verify(b.opts.Output)
		if err != nil {
			return stats, fmt.Errorf("verifying output: %w", err)
		}
		if len(issues) > 0 {
			return stats, &VerifyError{Issues: issues}
		}
	}
	return stats, nil
}

// publishable returns non-draft documents ordered by path.
func (b *Builder) publishable() []*types.DocumentInfo {
	all := b.registry.GetAll()
	docs := make([]*types.DocumentInfo, 0, len(all))
	for _, doc := range all {
		if doc.Draft {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	return docs
}

func (b *Builder) renderToFile(doc *types.DocumentInfo, nav []NavSection) error {
	if doc.AbsPath == "" {
		return fmt.Errorf("rendering %s: document has no source file", doc.RelPath)
	}
	source, err := os.ReadFile(doc.AbsPath)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", doc.RelPath, err)
	}

	page, err := b.renderer.Render(doc, source, nav, PageOptions{})
	if err != nil {
		return err
	}

	out := filepath.Join(b.opts.Output, filepath.FromSlash(PageHref(doc.RelPath)))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("rendering %s: %w", doc.RelPath, err)
	}
	if err := os.WriteFile(out, page, 0o644); err != nil {
		return fmt.Errorf("rendering %s: %w", doc.RelPath, err)
	}
	return nil
}

// writeGeneratedIndex synthesizes a home page listing every section when the
// corpus has no index.md of its own. The listing is generated as Markdown and
// rendered through the normal page path so links get the same rewriting.
func (b *Builder) writeGeneratedIndex(nav []NavSection) error {
	var sb strings.Builder
	sb.WriteString("# " + b.opts.Title + "\n")
	for _, section := range nav {
		sb.WriteString("\n## " + section.Title + "\n\n")
		for _, page := range section.Pages {
			sb.WriteString("- [" + page.Title + "](" + page.Rel + ")\n")
		}
	}

	doc := &types.DocumentInfo{RelPath: "index.md", Title: b.opts.Title}
	page, err := b.renderer.Render(doc, []byte(sb.String()), nav, PageOptions{})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.opts.Output, "index.html"), page, 0o644); err != nil {
		return fmt.Errorf("writing generated index: %w", err)
	}
	return nil
}

// writeStaticAssets copies the embedded stylesheet and search script into
// output/static.
func (b *Builder) writeStaticAssets() (int, error) {
	staticDir := filepath.Join(b.opts.Output, "static")
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating static directory: %w", err)
	}

	count := 0
	err := fs.WalkDir(assetFS, "assets", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := assetFS.ReadFile(p)
		if err != nil {
			return err
		}
		name := path.Base(p)
		if err := os.WriteFile(filepath.Join(staticDir, name), data, 0o644); err != nil {
			return fmt.Errorf("writing asset %s: %w", name, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

// copyDocAssets copies non-markdown files the corpus references (images,
// downloads) into the output tree at their source-relative paths, so relative
// references in rendered pages keep resolving. Missing sources are left to
// lint and sitecheck to report.
func (b *Builder) copyDocAssets(docs []*types.DocumentInfo) (int, error) {
	seen := make(map[string]struct{})
	count := 0
	for _, doc := range docs {
		root := contentRoot(doc)
		if root == "" {
			continue
		}
		for _, link := range doc.Links {
			if link.Kind != types.LinkInternal || isMarkdownPath(link.Path) {
				continue
			}
			if _, dup := seen[link.Path]; dup {
				continue
			}
			seen[link.Path] = struct{}{}

			src := filepath.Join(root, filepath.FromSlash(link.Path))
			data, err := os.ReadFile(src)
			if err != nil {
				continue
			}
			dst := filepath.Join(b.opts.Output, filepath.FromSlash(link.Path))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return count, fmt.Errorf("copying asset %s: %w", link.Path, err)
			}
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				return count, fmt.Errorf("copying asset %s: %w", link.Path, err)
			}
			count++
		}
	}
	return count, nil
}

// contentRoot recovers the content root a document was scanned from.
func contentRoot(doc *types.DocumentInfo) string {
	if doc.AbsPath == "" {
		return ""
	}
	suffix := filepath.FromSlash(doc.RelPath)
	if !strings.HasSuffix(doc.AbsPath, suffix) {
		return ""
	}
	return strings.TrimSuffix(doc.AbsPath, suffix)
}
