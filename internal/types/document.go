// Package types provides common type definitions used throughout the javanotes CLI.
// This package contains shared types to avoid circular dependencies between packages.
package types

import "time"

// DocumentInfo contains metadata about a discovered tutorial document,
// including its structure, outbound links, and embedded code blocks. It is
// produced by the scanner and consumed by the registry, lint engine, site
// builder, and authoring server.
type DocumentInfo struct {
	// RelPath is the document's slash-separated path relative to its content
	// root (e.g. "core-java/collections.md"). It is the registry key.
	RelPath string
	// AbsPath is the absolute filesystem path the document was read from.
	AbsPath string
	// Title is the front-matter title, or the text of the first level-1
	// heading, or the filename stem when neither exists.
	Title string
	// TitleFallback is true when Title fell back to the filename stem
	// because the document declares no title of its own.
	TitleFallback bool
	// Description is the optional front-matter description.
	Description string
	// Tags holds the optional front-matter tag list.
	Tags []string
	// Weight orders documents within a section; lower sorts first.
	Weight int
	// Draft marks documents excluded from site output and navigation.
	Draft bool
	// Headings lists every heading in source order.
	Headings []Heading
	// Links lists every link and image destination in source order.
	Links []Link
	// CodeBlocks lists every fenced or indented code block in source order.
	CodeBlocks []CodeBlock
	// WordCount is the approximate prose word count (code blocks excluded).
	WordCount int
	// Excerpt is a short plain-text lead (headings and code excluded) used by
	// the search index.
	Excerpt string
	// LastMod tracks the last modification time for change detection.
	LastMod time.Time
	// Hash provides a CRC32 checksum for efficient change detection.
	Hash string
}

// Heading describes one heading extracted during Markdown parsing.
type Heading struct {
	// Level is the heading level, 1 through 6.
	Level int
	// Text is the heading's plain rendered text.
	Text string
	// Anchor is the GitHub-style slug assigned to the heading, unique
	// within the document.
	Anchor string
	// Line is the 1-based source line of the heading.
	Line int
}

// LinkKind classifies a link destination.
type LinkKind int

const (
	// LinkInternal points at another file in the corpus, optionally with a
	// fragment ("guide.md", "../jvm/gc.md#generations").
	LinkInternal LinkKind = iota
	// LinkAnchor points at a heading in the same document ("#setup").
	LinkAnchor
	// LinkExternal uses a scheme such as http, https, or ftp.
	LinkExternal
	// LinkMailto is a mailto: destination.
	LinkMailto
)

// String returns the string representation of the LinkKind.
func (k LinkKind) String() string {
	switch k {
	case LinkInternal:
		return "internal"
	case LinkAnchor:
		return "anchor"
	case LinkExternal:
		return "external"
	case LinkMailto:
		return "mailto"
	default:
		return "unknown"
	}
}

// Link describes one link or image destination found in a document.
type Link struct {
	// RawDestination is the destination exactly as written.
	RawDestination string
	// Kind classifies the destination.
	Kind LinkKind
	// Path is the referenced file, relative to the content root, for
	// internal links. Empty for anchor-only and external links.
	Path string
	// Fragment is the anchor part without the leading '#', if any.
	Fragment string
	// Image is true for image destinations (![alt](src)).
	Image bool
	// Line is the 1-based source line the destination appears on.
	Line int
}

// CodeBlock describes one code block found in a document.
type CodeBlock struct {
	// Language is the lower-cased first word of the fence info string
	// ("java", "xml", ...). Empty for untagged and indented blocks.
	Language string
	// Source is the verbatim block content.
	Source string
	// Line is the 1-based source line of the opening fence (or first
	// content line for indented blocks).
	Line int
	// Fenced is false for indented code blocks.
	Fenced bool
}

// EventType represents the type of document change event.
type EventType string

const (
	EventTypeAdded   EventType = "added"
	EventTypeUpdated EventType = "updated"
	EventTypeRemoved EventType = "removed"
)

// DocumentEvent represents a change in the document registry, used for
// real-time notifications to watchers like the authoring server.
type DocumentEvent struct {
	// Type indicates the kind of change (added, updated, removed).
	Type EventType
	// Document contains the document information (may be nil for removed
	// events observed before the first scan).
	Document *DocumentInfo
	// Timestamp records when the event occurred for ordering and filtering.
	Timestamp time.Time
}

// HeadingByAnchor returns the heading carrying the given anchor, if any.
func (d *DocumentInfo) HeadingByAnchor(anchor string) (Heading, bool) {
	for _, h := range d.Headings {
		if h.Anchor == anchor {
			return h, true
		}
	}
	return Heading{}, false
}

// Anchors returns the set of anchors defined by the document's headings.
func (d *DocumentInfo) Anchors() map[string]struct{} {
	set := make(map[string]struct{}, len(d.Headings))
	for _, h := range d.Headings {
		set[h.Anchor] = struct{}{}
	}
	return set
}
