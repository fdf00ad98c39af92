package site

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pavanpakhare/javanotes/internal/types"
)

// NavPage is one sidebar entry.
type NavPage struct {
	Title string
	// Rel is the source document path ("core-java/oop-basics.md").
	Rel string
	// Href is the emitted page path ("core-java/oop-basics.html").
	Href   string
	Weight int
}

// NavSection groups pages by their top-level directory.
type NavSection struct {
	// Dir is the raw directory name; empty for root-level documents.
	Dir   string
	Title string
	Pages []NavPage
}

// Crumb is one breadcrumb segment. Href is empty for the current page.
type Crumb struct {
	Title string
	Href  string
}

var titleCaser = cases.Title(language.English)

// SectionTitle derives a display name from a directory name: "core-java"
// becomes "Core Java", short names like "jvm" are upper-cased whole.
func SectionTitle(dir string) string {
	if dir == "" {
		return "General"
	}
	words := strings.FieldsFunc(dir, func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(words) == 1 && len(words[0]) <= 3 {
		return strings.ToUpper(words[0])
	}
	return titleCaser.String(strings.Join(words, " "))
}

// BuildNav assembles the sidebar from the corpus. Drafts and the home page
// (index.md) are excluded; sections are ordered by directory name with
// root-level documents first, pages by front-matter weight (zero means
// unweighted and sorts last) then title.
func BuildNav(docs []*types.DocumentInfo) []NavSection {
	grouped := make(map[string][]NavPage)
	for _, doc := range docs {
		if doc.Draft || doc.RelPath == "index.md" {
			continue
		}
		dir := ""
		if idx := strings.IndexByte(doc.RelPath, '/'); idx >= 0 {
			dir = doc.RelPath[:idx]
		}
		grouped[dir] = append(grouped[dir], NavPage{
			Title:  doc.Title,
			Rel:    doc.RelPath,
			Href:   PageHref(doc.RelPath),
			Weight: doc.Weight,
		})
	}

	dirs := make([]string, 0, len(grouped))
	for dir := range grouped {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	sections := make([]NavSection, 0, len(dirs))
	for _, dir := range dirs {
		pages := grouped[dir]
		sort.Slice(pages, func(i, j int) bool {
			wi, wj := pages[i].Weight, pages[j].Weight
			if wi != wj {
				if wi == 0 {
					return false
				}
				if wj == 0 {
					return true
				}
				return wi < wj
			}
			if pages[i].Title != pages[j].Title {
				return pages[i].Title < pages[j].Title
			}
			return pages[i].Href < pages[j].Href
		})
		sections = append(sections, NavSection{
			Dir:   dir,
			Title: SectionTitle(dir),
			Pages: pages,
		})
	}
	return sections
}

// Breadcrumbs builds the trail for a document: home, its section, then the
// page itself without a link.
func Breadcrumbs(doc *types.DocumentInfo) []Crumb {
	if doc.RelPath == "index.md" {
		return nil
	}
	crumbs := []Crumb{{Title: "Home", Href: "index.html"}}
	if idx := strings.IndexByte(doc.RelPath, '/'); idx >= 0 {
		crumbs = append(crumbs, Crumb{Title: SectionTitle(doc.RelPath[:idx])})
	}
	return append(crumbs, Crumb{Title: doc.Title})
}
