package site

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageIssue is one broken reference found in emitted HTML.
type PageIssue struct {
	// Page is the emitted page the reference appears on.
	Page string
	// Ref is the href or src attribute value as written.
	Ref string
	// Message says what failed to resolve.
	Message string
}

func (i PageIssue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Page, i.Message, i.Ref)
}

// VerifyError reports a build whose output contains broken references.
type VerifyError struct {
	Issues []PageIssue
}

func (e *VerifyError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("site verification: 1 broken reference: %s", e.Issues[0])
	}
	return fmt.Sprintf("site verification: %d broken references (first: %s)", len(e.Issues), e.Issues[0])
}

// pageRefs holds what one emitted page defines and references.
type pageRefs struct {
	ids  map[string]struct{}
	refs []htmlRef
}

type htmlRef struct {
	raw   string
	image bool
}

// Verify re-parses every emitted HTML page and confirms that intra-site
// hrefs and image sources resolve: the target file exists under the output
// directory, and a fragment, when present, names an id in the target page.
// External and mailto references are not checked.
func Verify(outputDir string) ([]PageIssue, error) {
	pages := make(map[string]*pageRefs)

	err := filepath.WalkDir(outputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		rel, err := filepath.Rel(outputDir, p)
		if err != nil {
			return err
		}
		parsed, err := parsePage(p)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", rel, err)
		}
		pages[filepath.ToSlash(rel)] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	var issues []PageIssue
	for page, parsed := range pages {
		for _, ref := range parsed.refs {
			if issue, broken := checkRef(outputDir, pages, page, ref); broken {
				issues = append(issues, issue)
			}
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Page != issues[j].Page {
			return issues[i].Page < issues[j].Page
		}
		return issues[i].Ref < issues[j].Ref
	})
	return issues, nil
}

func parsePage(path string) (*pageRefs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := html.Parse(f)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	parsed := &pageRefs{ids: make(map[string]struct{})}
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			parsed.ids[id] = struct{}{}
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			parsed.refs = append(parsed.refs, htmlRef{raw: href})
		}
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			parsed.refs = append(parsed.refs, htmlRef{raw: src, image: true})
		}
	})
	return parsed, nil
}

// checkRef resolves one reference against the output tree.
func checkRef(outputDir string, pages map[string]*pageRefs, page string, ref htmlRef) (PageIssue, bool) {
	raw := strings.TrimSpace(ref.raw)
	if raw == "" || isExternalRef(raw) {
		return PageIssue{}, false
	}

	pathPart := raw
	fragment := ""
	if idx := strings.IndexByte(pathPart, '#'); idx >= 0 {
		fragment = pathPart[idx+1:]
		pathPart = pathPart[:idx]
	}
	if idx := strings.IndexByte(pathPart, '?'); idx >= 0 {
		pathPart = pathPart[:idx]
	}
	if unescaped, err := url.PathUnescape(pathPart); err == nil {
		pathPart = unescaped
	}
	if frag, err := url.PathUnescape(fragment); err == nil {
		fragment = frag
	}

	noun := "link"
	if ref.image {
		noun = "image"
	}

	// Resolve to an output-relative path.
	target := page
	if pathPart != "" {
		if strings.HasPrefix(pathPart, "/") {
			target = path.Clean(strings.TrimPrefix(pathPart, "/"))
		} else {
			target = path.Clean(path.Join(path.Dir(page), pathPart))
		}
		if target == ".." || strings.HasPrefix(target, "../") {
			return PageIssue{Page: page, Ref: ref.raw, Message: noun + " escapes the site root"}, true
		}
	}

	targetPage, isPage := pages[target]
	if !isPage {
		if _, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(target))); err != nil {
			return PageIssue{Page: page, Ref: ref.raw, Message: noun + " target does not exist"}, true
		}
	}

	if fragment != "" && isPage {
		if _, ok := targetPage.ids[fragment]; !ok {
			return PageIssue{Page: page, Ref: ref.raw, Message: fmt.Sprintf("fragment #%s not found in %s", fragment, target)}, true
		}
	}
	return PageIssue{}, false
}

func isExternalRef(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(raw, "://") ||
		strings.HasPrefix(raw, "//") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "data:")
}
