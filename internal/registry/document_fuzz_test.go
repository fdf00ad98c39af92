package registry

import (
	"sort"
	"strings"
	"testing"

	"github.com/pavanpakhare/javanotes/internal/types"
)

// FuzzDocumentRegistration tests document registration with hostile inputs
func FuzzDocumentRegistration(f *testing.F) {
	f.Add("core-java/collections.md\x00Collections\x00java")
	f.Add("../../../etc/passwd\x00malicious\x00")
	f.Add("<script>alert('xss')</script>.md\x00XSS title\x00tag")
	f.Add("\x00\x00")
	f.Add("unicode💻.md\x00Unicode🎯\x00emoji")
	f.Add("very/deep/" + strings.Repeat("a/", 500) + "doc.md\x00Deep\x00nested")

	f.Fuzz(func(t *testing.T, regData string) {
		if len(regData) > 50000 {
			t.Skip("Registration data too large")
		}

		parts := strings.Split(regData, "\x00")
		if len(parts) != 3 {
			t.Skip("Invalid registration data format")
		}

		relPath, title, tag := parts[0], parts[1], parts[2]

		registry := NewDocumentRegistry()

		doc := &types.DocumentInfo{
			RelPath: relPath,
			AbsPath: "/corpus/" + relPath,
			Title:   title,
		}
		if tag != "" {
			doc.Tags = []string{tag}
		}

		// Registration must not panic, whatever the input
		registry.Register(doc)

		retrieved, exists := registry.Get(relPath)
		if !exists {
			t.Fatalf("registered document %q not found", relPath)
		}
		if retrieved.Title != title {
			t.Errorf("title mutated by registry: got %q, want %q", retrieved.Title, title)
		}

		if registry.Count() != 1 {
			t.Errorf("expected 1 document, got %d", registry.Count())
		}

		if tag != "" {
			tagged := registry.ByTag(tag)
			if len(tagged) != 1 {
				t.Errorf("ByTag(%q) returned %d documents, want 1", tag, len(tagged))
			}
		}
	})
}

// FuzzRegistryOperations drives operation sequences against registry state
func FuzzRegistryOperations(f *testing.F) {
	f.Add("register\x00guide.md")
	f.Add("remove\x00guide.md")
	f.Add("remove\x00missing.md")
	f.Add("get\x00../../../etc/passwd")
	f.Add("paths\x00")
	f.Add("anchors\x00guide.md")

	f.Fuzz(func(t *testing.T, opData string) {
		if len(opData) > 5000 {
			t.Skip("Operation data too large")
		}

		parts := strings.Split(opData, "\x00")
		if len(parts) != 2 {
			t.Skip("Invalid operation data format")
		}

		operation, arg := parts[0], parts[1]

		registry := NewDocumentRegistry()
		registry.Register(&types.DocumentInfo{
			RelPath: "seed.md",
			AbsPath: "/corpus/seed.md",
			Title:   "Seed",
			Headings: []types.Heading{
				{Level: 1, Text: "Seed", Anchor: "seed", Line: 1},
			},
		})

		switch operation {
		case "register":
			registry.Register(&types.DocumentInfo{RelPath: arg, Title: "Fuzzed"})
		case "remove":
			registry.Remove(arg)
		case "get":
			registry.Get(arg)
		case "paths":
			registry.Paths()
		case "anchors":
			registry.Anchors(arg)
		}

		// Paths stays sorted regardless of the operation applied
		paths := registry.Paths()
		if !sort.StringsAreSorted(paths) {
			t.Errorf("Paths() not sorted after %q operation: %v", operation, paths)
		}

		// Every listed path must resolve
		for _, p := range paths {
			if _, exists := registry.Get(p); !exists {
				t.Errorf("path %q listed but not retrievable after %q operation", p, operation)
			}
		}
	})
}
