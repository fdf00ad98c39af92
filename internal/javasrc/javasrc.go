// Package javasrc performs a lexical sanity check of Java code snippets
// embedded in tutorial documents. It verifies bracket balance and literal
// and comment termination without parsing, so fragments that lack an
// enclosing class or method still pass.
package javasrc

import "fmt"

// Issue describes one problem found in a snippet. Line and Column are
// 1-based and relative to the snippet, not the embedding document.
type Issue struct {
	Line    int
	Column  int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%d:%d: %s", i.Line, i.Column, i.Message)
}

type bracket struct {
	r    byte
	line int
	col  int
}

func closerFor(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

// Check scans src as Java and reports lexical problems: unbalanced brackets,
// unterminated string, character, and text-block literals, and unterminated
// block comments. Bracket characters inside literals and comments are
// ignored. Angle brackets are not tracked since generics cannot be told
// apart from comparison operators lexically.
func Check(src string) []Issue {
	var issues []Issue
	var stack []bracket

	i, n := 0, len(src)
	line, col := 1, 1

	// advance consumes k bytes, keeping line and col pointed at src[i].
	advance := func(k int) {
		for ; k > 0 && i < n; k-- {
			if src[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < n {
		c := src[i]

		switch {
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				advance(1)
			}

		case c == '/' && i+1 < n && src[i+1] == '*':
			openLine, openCol := line, col
			advance(2)
			closed := false
			for i < n {
				if src[i] == '*' && i+1 < n && src[i+1] == '/' {
					advance(2)
					closed = true
					break
				}
				advance(1)
			}
			if !closed {
				issues = append(issues, Issue{openLine, openCol, "unterminated block comment"})
			}

		case c == '"' && i+2 < n && src[i+1] == '"' && src[i+2] == '"':
			openLine, openCol := line, col
			advance(3)
			closed := false
			for i < n {
				if src[i] == '\\' {
					advance(2)
					continue
				}
				if src[i] == '"' && i+2 < n && src[i+1] == '"' && src[i+2] == '"' {
					advance(3)
					closed = true
					break
				}
				advance(1)
			}
			if !closed {
				issues = append(issues, Issue{openLine, openCol, "unterminated text block"})
			}

		case c == '"':
			openLine, openCol := line, col
			advance(1)
			closed := false
			for i < n && src[i] != '\n' {
				if src[i] == '\\' {
					advance(2)
					continue
				}
				if src[i] == '"' {
					advance(1)
					closed = true
					break
				}
				advance(1)
			}
			if !closed {
				issues = append(issues, Issue{openLine, openCol, "unterminated string literal"})
			}

		case c == '\'':
			openLine, openCol := line, col
			advance(1)
			closed := false
			for i < n && src[i] != '\n' {
				if src[i] == '\\' {
					advance(2)
					continue
				}
				if src[i] == '\'' {
					advance(1)
					closed = true
					break
				}
				advance(1)
			}
			if !closed {
				issues = append(issues, Issue{openLine, openCol, "unterminated character literal"})
			}

		case c == '(' || c == '[' || c == '{':
			stack = append(stack, bracket{c, line, col})
			advance(1)

		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 {
				issues = append(issues, Issue{line, col, fmt.Sprintf("unmatched '%c'", c)})
			} else {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if closerFor(top.r) != c {
					issues = append(issues, Issue{line, col, fmt.Sprintf(
						"expected '%c' to close '%c' opened at %d:%d, found '%c'",
						closerFor(top.r), top.r, top.line, top.col, c)})
				}
			}
			advance(1)

		default:
			advance(1)
		}
	}

	for j := len(stack) - 1; j >= 0; j-- {
		b := stack[j]
		issues = append(issues, Issue{b.line, b.col, fmt.Sprintf("unclosed '%c'", b.r)})
	}

	return issues
}
