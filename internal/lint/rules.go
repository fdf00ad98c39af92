package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/pavanpakhare/javanotes/internal/javasrc"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/types"
)

// Corpus gives rules read access to the rest of the corpus: other documents,
// their anchors, and non-Markdown assets on disk.
type Corpus struct {
	registry *registry.DocumentRegistry
}

// Document looks up a registered document by relative path.
func (c *Corpus) Document(relPath string) (*types.DocumentInfo, bool) {
	return c.registry.Get(relPath)
}

// Anchors returns the anchor set of a registered document.
func (c *Corpus) Anchors(relPath string) (map[string]struct{}, bool) {
	return c.registry.Anchors(relPath)
}

// AssetExists reports whether a root-relative path resolves to a registered
// document or to a file on disk under the referencing document's content
// root. Documents without a filesystem location (unit-test fixtures) can only
// see the registry.
func (c *Corpus) AssetExists(doc *types.DocumentInfo, relPath string) bool {
	if _, ok := c.registry.Get(relPath); ok {
		return true
	}
	if doc.AbsPath == "" {
		return false
	}

	suffix := filepath.FromSlash(doc.RelPath)
	if !strings.HasSuffix(doc.AbsPath, suffix) {
		return false
	}
	root := strings.TrimSuffix(doc.AbsPath, suffix)
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(relPath)))
	return err == nil
}

// defaultRules returns the built-in rule set.
func defaultRules() []Rule {
	return []Rule{
		anchorResolveRule{},
		javaSyntaxRule{},
		headingDuplicateRule{},
		linkTargetRule{},
		imageTargetRule{},
		headingSequenceRule{},
		titleMissingRule{},
		fenceLanguageRule{},
	}
}

func isMarkdownPath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".md" || ext == ".markdown"
}

// anchorResolveRule verifies that every link fragment resolves to a heading
// anchor: same-document fragments against the document itself, cross-document
// fragments against the target. Fragments pointing at unregistered targets
// are left to link-target so one broken link yields one diagnostic.
type anchorResolveRule struct{}

func (anchorResolveRule) ID() string                { return "anchor-resolve" }
func (anchorResolveRule) DefaultSeverity() Severity { return SeverityError }

func (r anchorResolveRule) Check(doc *types.DocumentInfo, corpus *Corpus) []Diagnostic {
	var diags []Diagnostic
	for _, link := range doc.Links {
		if link.Fragment == "" {
			continue
		}

		switch link.Kind {
		case types.LinkAnchor:
			if _, ok := doc.HeadingByAnchor(link.Fragment); !ok {
				diags = append(diags, Diagnostic{
					Rule:     r.ID(),
					Severity: r.DefaultSeverity(),
					Path:     doc.RelPath,
					Line:     link.Line,
					Message:  fmt.Sprintf("anchor %q not found in this document", link.Fragment),
				})
			}
		case types.LinkInternal:
			anchors, ok := corpus.Anchors(link.Path)
			if !ok {
				continue
			}
			if _, found := anchors[link.Fragment]; !found {
				diags = append(diags, Diagnostic{
					Rule:     r.ID(),
					Severity: r.DefaultSeverity(),
					Path:     doc.RelPath,
					Line:     link.Line,
					Message:  fmt.Sprintf("anchor %q not found in %s", link.Fragment, link.Path),
				})
			}
		}
	}
	return diags
}

// javaSyntaxRule runs the lexical Java check over every fenced block tagged
// java. Reported lines are absolute document lines.
type javaSyntaxRule struct{}

func (javaSyntaxRule) ID() string                { return "java-syntax" }
func (javaSyntaxRule) DefaultSeverity() Severity { return SeverityError }

func (r javaSyntaxRule) Check(doc *types.DocumentInfo, _ *Corpus) []Diagnostic {
	var diags []Diagnostic
	for _, block := range doc.CodeBlocks {
		if !block.Fenced || block.Language != "java" {
			continue
		}
		for _, issue := range javasrc.Check(block.Source) {
			// Snippet line 1 is the line after the opening fence.
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: r.DefaultSeverity(),
				Path:     doc.RelPath,
				Line:     block.Line + issue.Line,
				Message:  issue.Message,
			})
		}
	}
	return diags
}

// headingDuplicateRule flags repeated top-level heading text within a file.
type headingDuplicateRule struct{}

func (headingDuplicateRule) ID() string                { return "heading-duplicate" }
func (headingDuplicateRule) DefaultSeverity() Severity { return SeverityError }

func (r headingDuplicateRule) Check(doc *types.DocumentInfo, _ *Corpus) []Diagnostic {
	var diags []Diagnostic
	firstSeen := make(map[string]int)
	for _, h := range doc.Headings {
		if h.Level != 1 {
			continue
		}
		if first, ok := firstSeen[h.Text]; ok {
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: r.DefaultSeverity(),
				Path:     doc.RelPath,
				Line:     h.Line,
				Message:  fmt.Sprintf("duplicate top-level heading %q (first at line %d)", h.Text, first),
			})
			continue
		}
		firstSeen[h.Text] = h.Line
	}
	return diags
}

// linkTargetRule verifies internal non-image links point at registered
// documents, or at files that exist on disk for non-Markdown targets.
type linkTargetRule struct{}

func (linkTargetRule) ID() string                { return "link-target" }
func (linkTargetRule) DefaultSeverity() Severity { return SeverityError }

func (r linkTargetRule) Check(doc *types.DocumentInfo, corpus *Corpus) []Diagnostic {
	var diags []Diagnostic
	for _, link := range doc.Links {
		if link.Image || link.Kind != types.LinkInternal || link.Path == doc.RelPath {
			continue
		}

		var found bool
		if isMarkdownPath(link.Path) {
			_, found = corpus.Document(link.Path)
		} else {
			found = corpus.AssetExists(doc, link.Path)
		}
		if !found {
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: r.DefaultSeverity(),
				Path:     doc.RelPath,
				Line:     link.Line,
				Message:  fmt.Sprintf("link target %q not found (resolved to %s)", link.RawDestination, link.Path),
			})
		}
	}
	return diags
}

// imageTargetRule verifies image destinations exist.
type imageTargetRule struct{}

func (imageTargetRule) ID() string                { return "image-target" }
func (imageTargetRule) DefaultSeverity() Severity { return SeverityError }

func (r imageTargetRule) Check(doc *types.DocumentInfo, corpus *Corpus) []Diagnostic {
	var diags []Diagnostic
	for _, link := range doc.Links {
		if !link.Image || link.Kind != types.LinkInternal {
			continue
		}
		if !corpus.AssetExists(doc, link.Path) {
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: r.DefaultSeverity(),
				Path:     doc.RelPath,
				Line:     link.Line,
				Message:  fmt.Sprintf("image %q not found (resolved to %s)", link.RawDestination, link.Path),
			})
		}
	}
	return diags
}

// headingSequenceRule flags heading levels that increase by more than one.
// The first heading is exempt so documents may open at any level.
type headingSequenceRule struct{}

func (headingSequenceRule) ID() string                { return "heading-sequence" }
func (headingSequenceRule) DefaultSeverity() Severity { return SeverityWarning }

func (r headingSequenceRule) Check(doc *types.DocumentInfo, _ *Corpus) []Diagnostic {
	var diags []Diagnostic
	prev := 0
	for _, h := range doc.Headings {
		if prev > 0 && h.Level > prev+1 {
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: r.DefaultSeverity(),
				Path:     doc.RelPath,
				Line:     h.Line,
				Message:  fmt.Sprintf("heading level jumps from H%d to H%d", prev, h.Level),
			})
		}
		prev = h.Level
	}
	return diags
}

// titleMissingRule flags documents that declare no title of their own.
type titleMissingRule struct{}

func (titleMissingRule) ID() string                { return "title-missing" }
func (titleMissingRule) DefaultSeverity() Severity { return SeverityWarning }

func (r titleMissingRule) Check(doc *types.DocumentInfo, _ *Corpus) []Diagnostic {
	if !doc.TitleFallback {
		return nil
	}
	return []Diagnostic{{
		Rule:     r.ID(),
		Severity: r.DefaultSeverity(),
		Path:     doc.RelPath,
		Line:     0,
		Message:  "document has neither a level-1 heading nor a front-matter title",
	}}
}

// fenceLanguageRule nudges fences toward usable language tags: a missing tag
// is informational, a tag the highlighter does not know (usually a typo like
// "jvaa") is a warning.
type fenceLanguageRule struct{}

func (fenceLanguageRule) ID() string                { return "fence-language" }
func (fenceLanguageRule) DefaultSeverity() Severity { return SeverityWarning }

func (r fenceLanguageRule) Check(doc *types.DocumentInfo, _ *Corpus) []Diagnostic {
	var diags []Diagnostic
	for _, block := range doc.CodeBlocks {
		if !block.Fenced {
			continue
		}
		if block.Language == "" {
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: SeverityInfo,
				Path:     doc.RelPath,
				Line:     block.Line,
				Message:  "code fence has no language tag",
			})
			continue
		}
		if lexers.Get(block.Language) == nil {
			diags = append(diags, Diagnostic{
				Rule:     r.ID(),
				Severity: SeverityWarning,
				Path:     doc.RelPath,
				Line:     block.Line,
				Message:  fmt.Sprintf("unknown code fence language %q", block.Language),
			})
		}
	}
	return diags
}
