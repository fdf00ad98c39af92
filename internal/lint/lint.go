// Package lint checks the tutorial corpus for content defects: internal
// links and anchors that do not resolve, Java snippets that fail the lexical
// check, duplicate top-level headings, broken heading sequences, and fences
// without a usable language tag. Checks are offline; external links are never
// fetched.
package lint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseSeverity converts a severity name to a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", name)
	}
}

// Diagnostic is one problem found in one document.
type Diagnostic struct {
	// Rule is the ID of the rule that produced the diagnostic.
	Rule string `json:"rule"`
	// Severity grades the diagnostic after any configured overrides.
	Severity Severity `json:"severity"`
	// Path is the document's content-root-relative path.
	Path string `json:"path"`
	// Line is the 1-based source line, 0 when the problem is file-scoped.
	Line int `json:"line"`
	// Message describes the problem.
	Message string `json:"message"`
}

// String renders the diagnostic in file:line: severity [rule] message form.
func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s [%s] %s", d.Path, d.Line, d.Severity, d.Rule, d.Message)
	}
	return fmt.Sprintf("%s: %s [%s] %s", d.Path, d.Severity, d.Rule, d.Message)
}

// Summary aggregates a report for quick display and threshold decisions.
type Summary struct {
	FilesChecked int            `json:"files_checked"`
	Errors       int            `json:"errors"`
	Warnings     int            `json:"warnings"`
	Infos        int            `json:"infos"`
	ByRule       map[string]int `json:"by_rule"`
	Duration     time.Duration  `json:"duration_ns"`
}

// Report is the outcome of linting the corpus.
type Report struct {
	// ID identifies one lint run, for correlating live-reload payloads.
	ID string `json:"id"`
	// GeneratedAt records when the run finished.
	GeneratedAt time.Time `json:"generated_at"`
	// Diagnostics is sorted by path, then line, then rule.
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Summary aggregates the diagnostics.
	Summary Summary `json:"summary"`
}

// sortDiagnostics puts diagnostics into the report's stable order.
func sortDiagnostics(diags []Diagnostic) {
	sort.Slice(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

// summarize computes the summary for a diagnostic set.
func summarize(diags []Diagnostic, files int, duration time.Duration) Summary {
	s := Summary{
		FilesChecked: files,
		ByRule:       make(map[string]int),
		Duration:     duration,
	}
	for _, d := range diags {
		s.ByRule[d.Rule]++
		switch d.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Infos++
		}
	}
	return s
}

// Failed reports whether the run contains diagnostics at or above the
// threshold severity, the condition under which lint exits non-zero.
func (r *Report) Failed(threshold Severity) bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= threshold {
			return true
		}
	}
	return false
}

// ByPath returns the diagnostics for one document, preserving report order.
func (r *Report) ByPath(relPath string) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Path == relPath {
			out = append(out, d)
		}
	}
	return out
}
