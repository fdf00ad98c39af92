package site

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pavanpakhare/javanotes/internal/types"
)

// SearchEntry is one document's record in the client-side search index.
type SearchEntry struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Headings    []string `json:"headings,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

// SearchIndex answers substring queries over the corpus. The same entries
// back the emitted search-index.json and the authoring server's /api/search.
type SearchIndex struct {
	entries []SearchEntry
}

// BuildSearchIndex creates the index from the corpus, drafts excluded,
// ordered by page path.
func BuildSearchIndex(docs []*types.DocumentInfo) *SearchIndex {
	entries := make([]SearchEntry, 0, len(docs))
	for _, doc := range docs {
		if doc.Draft {
			continue
		}
		entry := SearchEntry{
			Path:        PageHref(doc.RelPath),
			Title:       doc.Title,
			Description: doc.Description,
			Tags:        doc.Tags,
			Excerpt:     doc.Excerpt,
		}
		for _, h := range doc.Headings {
			entry.Headings = append(entry.Headings, h.Text)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return &SearchIndex{entries: entries}
}

// Entries returns the index records in page-path order.
func (ix *SearchIndex) Entries() []SearchEntry {
	return ix.entries
}

// Len returns the number of indexed documents.
func (ix *SearchIndex) Len() int {
	return len(ix.entries)
}

// Query returns up to limit entries matching q, best first. Matching is
// case-insensitive substring over title, tags, headings, excerpt, and path;
// title matches outrank tag matches outrank the rest.
func (ix *SearchIndex) Query(q string, limit int) []SearchEntry {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" || limit == 0 {
		return nil
	}
	if limit < 0 {
		limit = len(ix.entries)
	}

	type hit struct {
		entry SearchEntry
		score int
	}
	var hits []hit
	for _, e := range ix.entries {
		if score := scoreEntry(e, q); score > 0 {
			hits = append(hits, hit{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.Path < hits[j].entry.Path
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]SearchEntry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out
}

func scoreEntry(e SearchEntry, q string) int {
	score := 0
	title := strings.ToLower(e.Title)
	switch {
	case title == q:
		score = 100
	case strings.HasPrefix(title, q):
		score = 80
	case strings.Contains(title, q):
		score = 60
	}
	for _, tag := range e.Tags {
		if strings.ToLower(tag) == q {
			score = max(score, 70)
		}
	}
	if score >= 60 {
		return score
	}
	for _, h := range e.Headings {
		if strings.Contains(strings.ToLower(h), q) {
			return max(score, 40)
		}
	}
	if strings.Contains(strings.ToLower(e.Description), q) ||
		strings.Contains(strings.ToLower(e.Excerpt), q) {
		return max(score, 20)
	}
	if strings.Contains(strings.ToLower(e.Path), q) {
		return max(score, 10)
	}
	return score
}

// WriteFile emits the index as pretty-printed JSON.
func (ix *SearchIndex) WriteFile(path string) error {
	data, err := json.MarshalIndent(ix.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding search index: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing search index: %w", err)
	}
	return nil
}
