package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter holds the optional YAML metadata block at the top of a
// document, delimited by "---" lines.
type FrontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Weight      int      `yaml:"weight"`
	Draft       bool     `yaml:"draft"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SplitFrontMatter separates a document into its front matter and Markdown
// body. It returns the parsed metadata, the body, and the number of source
// lines the front matter block occupied (so body line numbers can be mapped
// back to the file).
//
// A file that does not open with a "---" line, or whose block is never
// closed, is treated as having no front matter, matching how GitHub renders
// such files. Malformed YAML inside a well-delimited block is an error.
func SplitFrontMatter(src []byte) (FrontMatter, []byte, int, error) {
	var fm FrontMatter

	body := bytes.TrimPrefix(src, utf8BOM)
	lines := bytes.SplitAfter(body, []byte("\n"))
	if len(lines) == 0 || !isFrontMatterDelim(lines[0]) {
		return fm, body, 0, nil
	}

	innerStart := len(lines[0])
	pos := innerStart
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if isFrontMatterDelim(line) {
			if err := yaml.Unmarshal(body[innerStart:pos], &fm); err != nil {
				return FrontMatter{}, body, 0, fmt.Errorf("front matter: %w", err)
			}
			consumed := pos + len(line)
			return fm, body[consumed:], i + 1, nil
		}
		pos += len(line)
	}

	// Opening delimiter with no closing one: the whole file is content.
	return FrontMatter{}, body, 0, nil
}

func isFrontMatterDelim(line []byte) bool {
	return strings.TrimRight(string(line), " \t\r\n") == "---"
}
