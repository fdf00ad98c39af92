// Package markdown parses tutorial documents into structured metadata:
// headings with their GitHub-style anchors, link and image destinations,
// fenced code blocks, and front matter. The same anchor assignment is used
// when rendering, so references checked here hold in the generated site.
package markdown

import (
	"bytes"
	"net/url"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/pavanpakhare/javanotes/internal/types"
)

// Parser turns raw Markdown into a types.DocumentInfo. It is safe for
// concurrent use.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a parser with GitHub Flavored Markdown enabled.
func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Parse extracts document metadata from src. relPath is the document's
// slash-separated path relative to the content root; it is recorded on the
// result and used to resolve relative link destinations.
//
// The returned DocumentInfo carries structure only. Filesystem fields
// (AbsPath, LastMod, Hash) are filled in by the scanner.
func (p *Parser) Parse(relPath string, src []byte) (*types.DocumentInfo, error) {
	fm, body, fmLines, err := SplitFrontMatter(src)
	if err != nil {
		return nil, err
	}

	doc := p.md.Parser().Parse(text.NewReader(body))
	lt := newLineTable(body, fmLines)
	slugger := NewSlugger()

	info := &types.DocumentInfo{
		RelPath:     relPath,
		Title:       fm.Title,
		Description: fm.Description,
		Tags:        fm.Tags,
		Weight:      fm.Weight,
		Draft:       fm.Draft,
	}

	words := 0
	inHeading := 0
	var excerpt strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if _, ok := n.(*ast.Heading); ok && !entering {
			inHeading--
		}
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			inHeading++
			txt := nodeText(v, body)
			info.Headings = append(info.Headings, types.Heading{
				Level:  v.Level,
				Text:   txt,
				Anchor: slugger.Slug(txt),
				Line:   lt.nodeLine(v),
			})
		case *ast.Link:
			link := ClassifyLink(relPath, string(v.Destination))
			link.Line = lt.nodeLine(v)
			info.Links = append(info.Links, link)
		case *ast.Image:
			link := ClassifyLink(relPath, string(v.Destination))
			link.Image = true
			link.Line = lt.nodeLine(v)
			info.Links = append(info.Links, link)
		case *ast.AutoLink:
			kind := types.LinkExternal
			if v.AutoLinkType == ast.AutoLinkEmail {
				kind = types.LinkMailto
			}
			info.Links = append(info.Links, types.Link{
				RawDestination: string(v.URL(body)),
				Kind:           kind,
				Line:           lt.nodeLine(v),
			})
		case *ast.FencedCodeBlock:
			block := types.CodeBlock{
				Language: strings.ToLower(string(v.Language(body))),
				Source:   blockSource(v, body),
				Fenced:   true,
			}
			if v.Info != nil {
				block.Line = lt.lineFor(v.Info.Segment.Start)
			} else if v.Lines().Len() > 0 {
				block.Line = lt.lineFor(v.Lines().At(0).Start) - 1
			}
			info.CodeBlocks = append(info.CodeBlocks, block)
		case *ast.CodeBlock:
			block := types.CodeBlock{
				Source: blockSource(v, body),
			}
			if v.Lines().Len() > 0 {
				block.Line = lt.lineFor(v.Lines().At(0).Start)
			}
			info.CodeBlocks = append(info.CodeBlocks, block)
		case *ast.Paragraph:
			if excerpt.Len() > 0 {
				excerpt.WriteByte(' ')
			}
		case *ast.Text:
			seg := v.Segment.Value(body)
			words += len(strings.Fields(string(seg)))
			if inHeading == 0 && excerpt.Len() <= excerptLimit {
				excerpt.Write(seg)
				if v.SoftLineBreak() || v.HardLineBreak() {
					excerpt.WriteByte(' ')
				}
			}
		}
		return ast.WalkContinue, nil
	})

	info.WordCount = words
	info.Excerpt = clampExcerpt(excerpt.String(), excerptLimit)

	if info.Title == "" {
		for _, h := range info.Headings {
			if h.Level == 1 {
				info.Title = h.Text
				break
			}
		}
	}
	if info.Title == "" {
		base := path.Base(relPath)
		info.Title = strings.TrimSuffix(base, path.Ext(base))
		info.TitleFallback = true
	}

	return info, nil
}

// ClassifyLink resolves a raw link destination against the document it
// appears in. Internal destinations are normalized to content-root-relative
// paths; root-relative destinations ("/core-java/oop.md") are resolved
// against the content root the way GitHub resolves them against the
// repository root. Caller fills in Line and Image.
func ClassifyLink(docRel, raw string) types.Link {
	link := types.Link{RawDestination: raw}

	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "mailto:"):
		link.Kind = types.LinkMailto
		return link
	case strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "//"):
		link.Kind = types.LinkExternal
		return link
	case strings.HasPrefix(trimmed, "#"):
		link.Kind = types.LinkAnchor
		link.Fragment = trimmed[1:]
		return link
	}

	link.Kind = types.LinkInternal

	pathPart := trimmed
	if idx := strings.IndexByte(pathPart, '#'); idx >= 0 {
		link.Fragment = pathPart[idx+1:]
		pathPart = pathPart[:idx]
	}
	if idx := strings.IndexByte(pathPart, '?'); idx >= 0 {
		pathPart = pathPart[:idx]
	}
	if unescaped, err := url.PathUnescape(pathPart); err == nil {
		pathPart = unescaped
	}

	switch {
	case pathPart == "":
		// Bare fragment handled above; an empty destination points at the
		// document itself.
		link.Path = docRel
	case strings.HasPrefix(pathPart, "/"):
		link.Path = path.Clean(strings.TrimPrefix(pathPart, "/"))
	default:
		link.Path = path.Clean(path.Join(path.Dir(docRel), pathPart))
	}

	return link
}

// WithHeadingAnchors returns a goldmark option that assigns the same
// GitHub-style heading ids Parse reports, so rendered pages expose every
// anchor the corpus links to.
func WithHeadingAnchors() goldmark.Option {
	return goldmark.WithParserOptions(
		parser.WithASTTransformers(util.Prioritized(headingIDTransformer{}, 100)),
	)
}

type headingIDTransformer struct{}

func (headingIDTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	slugger := NewSlugger()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			h.SetAttributeString("id", []byte(slugger.Slug(nodeText(h, reader.Source()))))
		}
		return ast.WalkContinue, nil
	})
}

// excerptLimit caps the stored excerpt length in bytes.
const excerptLimit = 280

// clampExcerpt normalizes whitespace and cuts the excerpt at a word
// boundary, never splitting a UTF-8 sequence.
func clampExcerpt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndexByte(s[:limit], ' ')
	if cut <= 0 {
		cut = limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return strings.TrimRight(s[:cut], " ")
}

// nodeText renders the plain text of an inline subtree, the text GitHub
// feeds its anchor generator.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func blockSource(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// lineTable maps byte offsets in the Markdown body back to 1-based line
// numbers in the original file, accounting for stripped front matter.
type lineTable struct {
	starts []int
	offset int
}

func newLineTable(body []byte, lineOffset int) *lineTable {
	starts := []int{0}
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' && i+1 < len(body) {
			starts = append(starts, i+1)
		}
	}
	return &lineTable{starts: starts, offset: lineOffset}
}

func (lt *lineTable) lineFor(byteOffset int) int {
	idx := sort.Search(len(lt.starts), func(i int) bool {
		return lt.starts[i] > byteOffset
	})
	return idx + lt.offset
}

// nodeLine finds the source line of a node: block nodes report their first
// line directly, inline nodes fall back to their first text segment or the
// enclosing block.
func (lt *lineTable) nodeLine(n ast.Node) int {
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lt.lineFor(lines.At(0).Start)
		}
	}

	var seg *text.Segment
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			s := t.Segment
			seg = &s
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if seg != nil {
		return lt.lineFor(seg.Start)
	}

	for b := n.Parent(); b != nil; b = b.Parent() {
		if b.Type() == ast.TypeBlock {
			if lines := b.Lines(); lines != nil && lines.Len() > 0 {
				return lt.lineFor(lines.At(0).Start)
			}
		}
	}
	return 0
}
