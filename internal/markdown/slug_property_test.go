//go:build property

package markdown

import (
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSlugProperties validates invariants of the anchor generator
func TestSlugProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2024)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Property: slugs only contain characters that survive slugging
	properties.Property("slug alphabet is closed", prop.ForAll(
		func(text string) bool {
			for _, r := range Slug(text) {
				if r == '-' || r == '_' {
					continue
				}
				if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
					if unicode.IsUpper(r) {
						return false
					}
					continue
				}
				return false
			}
			return true
		},
		gen.AnyString(),
	))

	// Property: slugging is idempotent
	properties.Property("slug is idempotent", prop.ForAll(
		func(text string) bool {
			once := Slug(text)
			return Slug(once) == once
		},
		gen.AnyString(),
	))

	// Property: a slugger never hands out the same anchor twice
	properties.Property("slugger anchors are unique per document", prop.ForAll(
		func(headings []string) bool {
			s := NewSlugger()
			seen := make(map[string]bool)
			for _, h := range headings {
				anchor := s.Slug(h)
				if seen[anchor] {
					return false
				}
				seen[anchor] = true
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf(
			"Overview", "Overview", "Setup 1", "Setup", "setup-1",
			"What is JVM?", "???", "Install & Run",
		)),
	))

	// Property: whitespace-only differences do not change the slug
	properties.Property("surrounding whitespace is ignored", prop.ForAll(
		func(text string) bool {
			return Slug("  "+text+"  ") == Slug(text)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
