package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanpakhare/javanotes/internal/types"
)

func searchFixture() *SearchIndex {
	return BuildSearchIndex([]*types.DocumentInfo{
		{RelPath: "core-java/collections.md", Title: "Collections",
			Tags:     []string{"java", "collections"},
			Headings: []types.Heading{{Text: "Collections"}, {Text: "ArrayList"}, {Text: "HashMap"}},
			Excerpt:  "Lists, sets and maps in the java.util package."},
		{RelPath: "core-java/generics.md", Title: "Generics",
			Headings: []types.Heading{{Text: "Generics"}, {Text: "Type Erasure"}},
			Excerpt:  "Parameterized types and bounded wildcards."},
		{RelPath: "concurrency/collections-concurrent.md", Title: "Concurrent Collections",
			Headings: []types.Heading{{Text: "Concurrent Collections"}},
			Excerpt:  "ConcurrentHashMap and CopyOnWriteArrayList."},
		{RelPath: "drafts/wip.md", Title: "Collections Draft", Draft: true},
	})
}

func TestSearchIndexExcludesDrafts(t *testing.T) {
	ix := searchFixture()
	assert.Equal(t, 3, ix.Len())
	for _, e := range ix.Entries() {
		assert.NotContains(t, e.Path, "drafts/")
	}
}

func TestSearchQueryRanking(t *testing.T) {
	ix := searchFixture()

	hits := ix.Query("collections", 10)
	require.Len(t, hits, 2)
	// Exact title match leads the title-substring match.
	assert.Equal(t, "Collections", hits[0].Title)
	assert.Equal(t, "Concurrent Collections", hits[1].Title)
}

func TestSearchQueryHeadingsAndExcerpt(t *testing.T) {
	ix := searchFixture()

	hits := ix.Query("type erasure", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "Generics", hits[0].Title)

	hits = ix.Query("wildcards", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "Generics", hits[0].Title)
}

func TestSearchQueryCaseInsensitive(t *testing.T) {
	ix := searchFixture()
	assert.Len(t, ix.Query("COLLECTIONS", 10), 2)
	assert.Len(t, ix.Query("  ERASURE ", 10), 1)
}

func TestSearchQueryLimitAndEmpty(t *testing.T) {
	ix := searchFixture()

	assert.Len(t, ix.Query("collections", 1), 1)
	assert.Empty(t, ix.Query("", 10))
	assert.Empty(t, ix.Query("   ", 10))
	assert.Empty(t, ix.Query("nosuchterm", 10))
	assert.Empty(t, ix.Query("collections", 0))
	assert.Len(t, ix.Query("collections", -1), 2)
}
