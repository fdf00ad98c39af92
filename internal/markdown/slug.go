package markdown

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugger assigns GitHub-style anchors to heading text, keeping them unique
// within one document. GitHub lowercases the text, strips everything that is
// not a letter, digit, mark, underscore, hyphen, or space, turns spaces into
// hyphens, and suffixes repeats with -1, -2, and so on.
type Slugger struct {
	seen map[string]int
}

// NewSlugger returns a Slugger with an empty anchor history.
func NewSlugger() *Slugger {
	return &Slugger{seen: make(map[string]int)}
}

// Slug returns the anchor for the given heading text, appending a numeric
// suffix when the base anchor was already handed out. Unlike GitHub, a
// suffixed anchor that collides with a later literal heading is skipped
// rather than duplicated, so every returned anchor is unique.
func (s *Slugger) Slug(text string) string {
	base := Slug(text)
	n, ok := s.seen[base]
	if !ok {
		s.seen[base] = 0
		return base
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := s.seen[candidate]; !taken {
			s.seen[base] = n
			s.seen[candidate] = 0
			return candidate
		}
	}
}

// Slug converts heading text to its GitHub anchor form without applying
// any uniqueness suffix.
func Slug(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == ' ':
			sb.WriteByte('-')
		case r == '-' || r == '_':
			sb.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
