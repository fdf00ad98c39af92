package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanpakhare/javanotes/internal/registry"
)

// writeDoc creates a Markdown file under root, creating parent directories.
func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return abs
}

func newTestScanner(t *testing.T, root string, excludes ...string) (*DocumentScanner, *registry.DocumentRegistry) {
	t.Helper()
	reg := registry.NewDocumentRegistry()
	s, err := NewDocumentScanner(reg, []string{root}, excludes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, reg
}

func TestNewDocumentScanner(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	assert.Equal(t, reg, s.GetRegistry())
	require.Len(t, s.Roots(), 1)
	assert.True(t, filepath.IsAbs(s.Roots()[0]))
}

func TestNewDocumentScannerRequiresRoots(t *testing.T) {
	_, err := NewDocumentScanner(registry.NewDocumentRegistry(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content roots")
}

func TestScanFile(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	abs := writeDoc(t, root, "core-java/collections.md", "# Collections\n\nSome prose.\n\n```java\nList<String> xs;\n```\n")

	require.NoError(t, s.ScanFile(abs))
	require.Equal(t, 1, reg.Count())

	doc, ok := reg.Get("core-java/collections.md")
	require.True(t, ok)
	assert.Equal(t, "Collections", doc.Title)
	assert.Equal(t, abs, doc.AbsPath)
	assert.NotEmpty(t, doc.Hash)
	assert.False(t, doc.LastMod.IsZero())
	require.Len(t, doc.CodeBlocks, 1)
	assert.Equal(t, "java", doc.CodeBlocks[0].Language)
}

func TestScanFileHashChangesWithContent(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	abs := writeDoc(t, root, "a.md", "# One\n")
	require.NoError(t, s.ScanFile(abs))
	first, _ := reg.Get("a.md")

	writeDoc(t, root, "a.md", "# One updated\n")
	require.NoError(t, s.ScanFile(abs))
	second, _ := reg.Get("a.md")

	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestScanFileRemovesVanished(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	abs := writeDoc(t, root, "gone.md", "# Gone\n")
	require.NoError(t, s.ScanFile(abs))
	require.Equal(t, 1, reg.Count())

	require.NoError(t, os.Remove(abs))
	require.NoError(t, s.ScanFile(abs))
	assert.Equal(t, 0, reg.Count())
}

func TestScanFileSkipsExcludedAndUnrecognized(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root, "drafts/*")

	excluded := writeDoc(t, root, "drafts/wip.md", "# WIP\n")
	require.NoError(t, s.ScanFile(excluded))
	assert.Equal(t, 0, reg.Count())

	plain := writeDoc(t, root, "notes.txt", "not markdown")
	require.NoError(t, s.ScanFile(plain))
	assert.Equal(t, 0, reg.Count())
}

func TestScanFileOutsideRootsRejected(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	s, _ := newTestScanner(t, root)

	abs := writeDoc(t, other, "outside.md", "# Outside\n")
	err := s.ScanFile(abs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the content roots")
}

func TestScanAll(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	writeDoc(t, root, "index.md", "# Index\n")
	writeDoc(t, root, "core-java/oop.md", "# OOP\n")
	writeDoc(t, root, "core-java/generics.markdown", "# Generics\n")
	writeDoc(t, root, "notes.txt", "not markdown")
	writeDoc(t, root, "node_modules/pkg/readme.md", "# Ignored\n")
	writeDoc(t, root, ".hidden/notes.md", "# Ignored\n")

	require.NoError(t, s.ScanAll())

	assert.Equal(t, 3, reg.Count())
	assert.Equal(t, []string{"core-java/generics.markdown", "core-java/oop.md", "index.md"}, reg.Paths())
}

func TestScanAllExcludePatterns(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root, "drafts/*", "*.tmp.md")

	writeDoc(t, root, "keep.md", "# Keep\n")
	writeDoc(t, root, "drafts/wip.md", "# WIP\n")
	writeDoc(t, root, "scratch.tmp.md", "# Scratch\n")

	require.NoError(t, s.ScanAll())

	assert.Equal(t, 1, reg.Count())
	_, ok := reg.Get("keep.md")
	assert.True(t, ok)
}

func TestScanAllCollectsParseFailures(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	writeDoc(t, root, "good.md", "# Good\n")
	writeDoc(t, root, "bad.md", "---\ntitle: [broken\n---\n# Bad\n")

	err := s.ScanAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.md")

	// The good document still lands in the registry.
	assert.Equal(t, 1, reg.Count())

	collected := s.Errors().GetErrors()
	require.Len(t, collected, 1)
	assert.Equal(t, "bad.md", collected[0].Document)
}

func TestScanAllManyFilesUsesWorkerPool(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	// More than the synchronous-batch threshold.
	docs := []string{"a.md", "b.md", "c.md", "d.md", "e.md", "f.md", "g.md", "h.md"}
	for _, rel := range docs {
		writeDoc(t, root, rel, "# "+rel+"\n")
	}

	require.NoError(t, s.ScanAll())
	assert.Equal(t, len(docs), reg.Count())
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	writeDoc(t, root, "spring/boot.md", "# Boot\n")
	writeDoc(t, root, "jvm/gc.md", "# GC\n")

	require.NoError(t, s.ScanDirectory(filepath.Join(root, "spring")))

	assert.Equal(t, 1, reg.Count())
	_, ok := reg.Get("spring/boot.md")
	assert.True(t, ok)
}

func TestRelPathMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	reg := registry.NewDocumentRegistry()
	s, err := NewDocumentScanner(reg, []string{rootA, rootB}, nil)
	require.NoError(t, err)
	defer s.Close()

	abs := writeDoc(t, rootB, "guide/setup.md", "# Setup\n")

	rel, ok := s.RelPath(abs)
	require.True(t, ok)
	assert.Equal(t, "guide/setup.md", rel)

	_, ok = s.RelPath(filepath.Join(filepath.Dir(rootA), "escape.md"))
	assert.False(t, ok)
}

func TestPruneMissing(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)

	writeDoc(t, root, "keep.md", "# Keep\n")
	gone := writeDoc(t, root, "gone.md", "# Gone\n")
	require.NoError(t, s.ScanAll())
	require.Equal(t, 2, reg.Count())

	require.NoError(t, os.Remove(gone))
	removed := s.PruneMissing()

	assert.Equal(t, []string{"gone.md"}, removed)
	assert.Equal(t, 1, reg.Count())
	_, ok := reg.Get("keep.md")
	assert.True(t, ok)
}

func TestSetExtensions(t *testing.T) {
	root := t.TempDir()
	s, reg := newTestScanner(t, root)
	s.SetExtensions([]string{"mdx"})

	writeDoc(t, root, "page.mdx", "# Page\n")
	writeDoc(t, root, "plain.md", "# Plain\n")

	require.NoError(t, s.ScanAll())

	assert.Equal(t, 1, reg.Count())
	_, ok := reg.Get("page.mdx")
	assert.True(t, ok)
}
