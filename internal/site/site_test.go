package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanpakhare/javanotes/internal/logging"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/scanner"
	"github.com/pavanpakhare/javanotes/internal/types"
)

// corpusFixture writes a small linked corpus and scans it into a registry.
func corpusFixture(t *testing.T) (*registry.DocumentRegistry, string) {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"index.md": "# Java Notes\n\nStart with [OOP basics](core-java/oop-basics.md).\n",
		"core-java/oop-basics.md": `---
title: OOP Basics
description: Classes and objects
tags: [java, oop]
weight: 1
---
# OOP Basics

See [collections](collections.md#arraylist) and the [JVM notes](../jvm/memory.md).

` + "```java\nclass Point { int x; }\n```\n",
		"core-java/collections.md": `---
title: Collections
weight: 2
---
# Collections

## ArrayList

![layout](../img/heap.png)
`,
		"jvm/memory.md":       "# Memory\n\nHeap and stack.\n",
		"drafts-wip/notes.md": "---\ntitle: WIP\ndraft: true\n---\n# WIP\n",
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img", "heap.png"), []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	reg := registry.NewDocumentRegistry()
	sc, err := scanner.NewDocumentScanner(reg, []string{root}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Close() })
	require.NoError(t, sc.ScanAll())

	return reg, root
}

func newTestBuilder(t *testing.T, reg *registry.DocumentRegistry, output string, verify bool) *Builder {
	t.Helper()
	b, err := NewBuilder(reg, Options{
		Title:  "Java Notes",
		Output: output,
		Verify: verify,
	}, logging.NewDiscardLogger())
	require.NoError(t, err)
	return b
}

func TestBuildEmitsSite(t *testing.T) {
	reg, _ := corpusFixture(t)
	output := t.TempDir()
	b := newTestBuilder(t, reg, output, true)

	stats, err := b.Build(context.Background())
	require.NoError(t, err)

	// 4 publishable documents; the draft is excluded.
	assert.Equal(t, 4, stats.Pages)
	assert.Equal(t, 4, stats.SearchEntries)
	assert.GreaterOrEqual(t, stats.Assets, 3) // style.css, search.js, heap.png

	for _, rel := range []string{
		"index.html",
		"core-java/oop-basics.html",
		"core-java/collections.html",
		"jvm/memory.html",
		"static/style.css",
		"static/search.js",
		"img/heap.png",
		"search-index.json",
	} {
		_, err := os.Stat(filepath.Join(output, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	_, err = os.Stat(filepath.Join(output, "drafts-wip", "notes.html"))
	assert.True(t, os.IsNotExist(err), "draft must not be emitted")
}

func TestBuildRewritesLinks(t *testing.T) {
	reg, _ := corpusFixture(t)
	output := t.TempDir()
	b := newTestBuilder(t, reg, output, false)

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	page, err := os.ReadFile(filepath.Join(output, "core-java", "oop-basics.html"))
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, `href="collections.html#arraylist"`)
	assert.Contains(t, html, `href="../jvm/memory.html"`)
	assert.Contains(t, html, `id="oop-basics"`)

	collections, err := os.ReadFile(filepath.Join(output, "core-java", "collections.html"))
	require.NoError(t, err)
	assert.Contains(t, string(collections), `src="../img/heap.png"`)
}

func TestBuildHighlightsJava(t *testing.T) {
	reg, _ := corpusFixture(t)
	output := t.TempDir()
	b := newTestBuilder(t, reg, output, false)

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	page, err := os.ReadFile(filepath.Join(output, "core-java", "oop-basics.html"))
	require.NoError(t, err)
	// Inline chroma styles, no class-based stylesheet required.
	assert.Contains(t, string(page), `<span style=`)
}

func TestBuildSearchIndexContents(t *testing.T) {
	reg, _ := corpusFixture(t)
	output := t.TempDir()
	b := newTestBuilder(t, reg, output, false)

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(output, "search-index.json"))
	require.NoError(t, err)

	var entries []SearchEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 4)

	byPath := make(map[string]SearchEntry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}
	oop, ok := byPath["core-java/oop-basics.html"]
	require.True(t, ok)
	assert.Equal(t, "OOP Basics", oop.Title)
	assert.Equal(t, []string{"java", "oop"}, oop.Tags)
	assert.Contains(t, oop.Headings, "OOP Basics")

	_, draft := byPath["drafts-wip/notes.html"]
	assert.False(t, draft, "draft must not be indexed")
}

func TestBuildGeneratedIndex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "jvm"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "jvm", "memory.md"), []byte("# Memory\n"), 0o644))

	reg := registry.NewDocumentRegistry()
	sc, err := scanner.NewDocumentScanner(reg, []string{root}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Close() })
	require.NoError(t, sc.ScanAll())

	output := t.TempDir()
	b := newTestBuilder(t, reg, output, true)
	stats, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages) // memory.html plus the synthesized index

	index, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `href="jvm/memory.html"`)
}

func TestBuildEmptyCorpus(t *testing.T) {
	reg := registry.NewDocumentRegistry()
	b := newTestBuilder(t, reg, t.TempDir(), false)

	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestBuildVerifyCatchesBrokenOutput(t *testing.T) {
	reg, _ := corpusFixture(t)
	output := t.TempDir()

	// First build without verification, then plant a broken page and rebuild
	// with verification on.
	b := newTestBuilder(t, reg, output, false)
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	broken := `<!DOCTYPE html><html><body><a href="nowhere.html">gone</a></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(output, "broken.html"), []byte(broken), 0o644))

	bv := newTestBuilder(t, reg, output, true)
	_, err = bv.Build(context.Background())
	require.Error(t, err)

	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "broken.html", verr.Issues[0].Page)
	assert.Equal(t, "nowhere.html", verr.Issues[0].Ref)
}

func TestRenderServerMode(t *testing.T) {
	reg, root := corpusFixture(t)
	doc, ok := reg.Get("core-java/oop-basics.md")
	require.True(t, ok)

	renderer, err := NewRenderer(Options{Title: "Java Notes"})
	require.NoError(t, err)

	source, err := os.ReadFile(filepath.Join(root, "core-java", "oop-basics.md"))
	require.NoError(t, err)

	all := reg.GetAll()
	docs := make([]*types.DocumentInfo, 0, len(all))
	for _, d := range all {
		docs = append(docs, d)
	}

	page, err := renderer.Render(doc, source, BuildNav(docs), PageOptions{
		Root:       "/view/",
		Assets:     "/static/",
		SearchAPI:  "/api/search?q=",
		LiveReload: true,
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `href="/static/style.css"`)
	assert.Contains(t, html, `href="/view/index.html"`)
	assert.Contains(t, html, "new WebSocket")
	assert.Contains(t, html, "/api/search?q=")
}
