package site

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"github.com/pavanpakhare/javanotes/internal/markdown"
	"github.com/pavanpakhare/javanotes/internal/types"
	"github.com/pavanpakhare/javanotes/internal/version"
)

//go:embed templates/layout.html
var layoutHTML string

// Options configure site output.
type Options struct {
	// Title is shown in the header and page titles.
	Title string
	// BaseURL is recorded in the search index for absolute addressing; page
	// links themselves are emitted relative so output works from any prefix.
	BaseURL string
	// Output is the directory pages are written to.
	Output string
	// Verify runs post-build output verification.
	Verify bool
}

// PageOptions adjust how a single page is assembled. The zero value suits
// static output: link prefixes derived from page depth, no live reload.
type PageOptions struct {
	// Root prefixes page hrefs. Empty derives "../" repetition from the
	// page's depth.
	Root string
	// Assets prefixes stylesheet/script hrefs. Empty derives Root + "static/".
	Assets string
	// SearchAPI switches the client search from the static index to a server
	// endpoint (the query string is appended).
	SearchAPI string
	// LiveReload injects the websocket reload script.
	LiveReload bool
}

// Renderer converts one document to a finished HTML page: goldmark with the
// corpus anchor assignment, chroma highlighting with inline styles so pages
// carry no stylesheet dependency for code, and internal links rewritten from
// source paths to emitted page paths.
type Renderer struct {
	opts   Options
	md     goldmark.Markdown
	layout *template.Template
	stamp  string
}

// NewRenderer builds a renderer for the given site options.
func NewRenderer(opts Options) (*Renderer, error) {
	layout, err := template.New("layout").Parse(layoutHTML)
	if err != nil {
		return nil, fmt.Errorf("parsing layout template: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		markdown.WithHeadingAnchors(),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(linkRewriter{}, 200)),
		),
	)

	return &Renderer{
		opts:   opts,
		md:     md,
		layout: layout,
		stamp:  time.Now().UTC().Format("2006-01-02 15:04 UTC"),
	}, nil
}

type pageData struct {
	SiteTitle   string
	Title       string
	Description string
	Tags        []string
	Nav         []NavSection
	Breadcrumb  []Crumb
	Content     template.HTML
	Current     string
	Root        string
	Assets      string
	SearchAPI   string
	LiveReload  bool
	GeneratedAt string
	Version     string
}

// Render produces the full HTML page for a document. source is the raw file
// content including front matter; nav is shared across all pages of a build.
func (r *Renderer) Render(doc *types.DocumentInfo, source []byte, nav []NavSection, po PageOptions) ([]byte, error) {
	_, body, _, err := markdown.SplitFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", doc.RelPath, err)
	}

	var content bytes.Buffer
	pc := parser.NewContext()
	pc.Set(renderPathKey, doc.RelPath)
	if err := r.md.Convert(body, &content, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", doc.RelPath, err)
	}

	root := po.Root
	if root == "" {
		root = strings.Repeat("../", strings.Count(doc.RelPath, "/"))
	}
	assets := po.Assets
	if assets == "" {
		assets = root + "static/"
	}

	data := pageData{
		SiteTitle:   r.opts.Title,
		Title:       doc.Title,
		Description: doc.Description,
		Tags:        doc.Tags,
		Nav:         nav,
		Breadcrumb:  Breadcrumbs(doc),
		Content:     template.HTML(content.String()),
		Current:     PageHref(doc.RelPath),
		Root:        root,
		Assets:      assets,
		SearchAPI:   po.SearchAPI,
		LiveReload:  po.LiveReload,
		GeneratedAt: r.stamp,
		Version:     version.Version,
	}

	var out bytes.Buffer
	if err := r.layout.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("rendering %s: executing layout: %w", doc.RelPath, err)
	}
	return out.Bytes(), nil
}

// PageHref maps a source document path to its emitted page path.
func PageHref(relPath string) string {
	ext := path.Ext(relPath)
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".mdx":
		return strings.TrimSuffix(relPath, ext) + ".html"
	}
	return relPath
}

func isMarkdownPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

var renderPathKey = parser.NewContextKey()

// linkRewriter replaces internal destinations with page-relative hrefs:
// markdown targets point at their emitted .html paths, asset targets at
// their copied location. External, mailto, and same-page anchor links pass
// through untouched.
type linkRewriter struct{}

func (linkRewriter) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	rel, _ := pc.Get(renderPathKey).(string)
	if rel == "" {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			v.Destination = []byte(rewriteDestination(rel, string(v.Destination)))
		case *ast.Image:
			v.Destination = []byte(rewriteDestination(rel, string(v.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

func rewriteDestination(docRel, raw string) string {
	link := markdown.ClassifyLink(docRel, raw)
	if link.Kind != types.LinkInternal {
		return raw
	}

	target := link.Path
	if isMarkdownPath(target) {
		target = PageHref(target)
	}
	href := relativeTo(path.Dir(docRel), target)
	if link.Fragment != "" {
		href += "#" + link.Fragment
	}
	return href
}

// relativeTo computes the href from a page's directory to a site-root-relative
// target, both slash-separated.
func relativeTo(fromDir, target string) string {
	if fromDir == "." || fromDir == "" {
		return target
	}
	from := strings.Split(fromDir, "/")
	tgt := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(tgt)-1 && from[i] == tgt[i] {
		i++
	}
	return strings.Repeat("../", len(from)-i) + strings.Join(tgt[i:], "/")
}
