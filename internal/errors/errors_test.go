package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverityFatal, "fatal"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestBuildErrorError(t *testing.T) {
	err := BuildError{
		Document:  "core-java/oop-basics.md",
		File:      "docs/core-java/oop-basics.md",
		Line:      10,
		Column:    5,
		Message:   "front matter: unmarshal failed",
		Severity:  ErrorSeverityError,
		Timestamp: time.Now(),
	}

	assert.Equal(t, "docs/core-java/oop-basics.md:10:5: error: front matter: unmarshal failed", err.Error())
}

func TestNew(t *testing.T) {
	before := time.Now()
	err := New("guide.md", "docs/guide.md", 3, ErrorSeverityWarning, "odd heading")
	after := time.Now()

	assert.Equal(t, "guide.md", err.Document)
	assert.Equal(t, "docs/guide.md", err.File)
	assert.Equal(t, 3, err.Line)
	assert.Equal(t, ErrorSeverityWarning, err.Severity)
	assert.Equal(t, "odd heading", err.Message)
	assert.False(t, err.Timestamp.Before(before))
	assert.False(t, err.Timestamp.After(after))
}

func TestNewErrorCollector(t *testing.T) {
	collector := NewErrorCollector()

	assert.NotNil(t, collector)
	assert.Empty(t, collector.GetErrors())
	assert.False(t, collector.HasErrors())
}

func TestErrorCollectorAdd(t *testing.T) {
	collector := NewErrorCollector()

	err := BuildError{
		Document: "guide.md",
		File:     "docs/guide.md",
		Line:     10,
		Column:   5,
		Message:  "unterminated fence",
		Severity: ErrorSeverityError,
	}

	before := time.Now()
	collector.Add(err)
	after := time.Now()

	assert.True(t, collector.HasErrors())
	assert.Len(t, collector.GetErrors(), 1)

	added := collector.GetErrors()[0]
	assert.Equal(t, "guide.md", added.Document)
	assert.Equal(t, "docs/guide.md", added.File)
	assert.Equal(t, 10, added.Line)
	assert.Equal(t, 5, added.Column)
	assert.Equal(t, "unterminated fence", added.Message)
	assert.Equal(t, ErrorSeverityError, added.Severity)

	// Add fills in the timestamp when the caller left it zero
	assert.False(t, added.Timestamp.Before(before))
	assert.False(t, added.Timestamp.After(after))
}

func TestErrorCollectorAddKeepsTimestamp(t *testing.T) {
	collector := NewErrorCollector()
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	collector.Add(BuildError{Message: "stamped", Timestamp: stamp})

	assert.Equal(t, stamp, collector.GetErrors()[0].Timestamp)
}

func TestErrorCollectorAddError(t *testing.T) {
	collector := NewErrorCollector()

	collector.AddError(nil)
	assert.False(t, collector.HasErrors())

	collector.AddError(stderrors.New("walk failed"))
	assert.True(t, collector.HasErrors())
	assert.Empty(t, collector.GetErrors())

	all := collector.GetAllErrors()
	assert.Len(t, all, 1)
	assert.EqualError(t, all[0], "walk failed")
}

func TestErrorCollectorGetAllErrors(t *testing.T) {
	collector := NewErrorCollector()

	collector.Add(New("a.md", "docs/a.md", 1, ErrorSeverityError, "build error"))
	collector.AddError(stderrors.New("general error"))

	all := collector.GetAllErrors()
	assert.Len(t, all, 2)
	assert.Contains(t, all[0].Error(), "build error")
	assert.EqualError(t, all[1], "general error")
}

func TestErrorCollectorGetErrors(t *testing.T) {
	collector := NewErrorCollector()

	collector.Add(BuildError{
		Document: "a.md",
		File:     "docs/a.md",
		Message:  "error 1",
		Severity: ErrorSeverityError,
	})
	collector.Add(BuildError{
		Document: "b.md",
		File:     "docs/b.md",
		Message:  "error 2",
		Severity: ErrorSeverityWarning,
	})

	errs := collector.GetErrors()
	assert.Len(t, errs, 2)
	assert.Equal(t, "error 1", errs[0].Message)
	assert.Equal(t, "error 2", errs[1].Message)

	// The returned slice is a copy
	errs[0].Message = "mutated"
	assert.Equal(t, "error 1", collector.GetErrors()[0].Message)
}

func TestErrorCollectorClear(t *testing.T) {
	collector := NewErrorCollector()

	for i := 0; i < 3; i++ {
		collector.Add(BuildError{Message: "build error", Severity: ErrorSeverityError})
	}
	collector.AddError(stderrors.New("general error"))

	assert.True(t, collector.HasErrors())
	assert.Len(t, collector.GetErrors(), 3)

	collector.Clear()

	assert.False(t, collector.HasErrors())
	assert.Empty(t, collector.GetErrors())
	assert.Empty(t, collector.GetAllErrors())
}

func TestErrorCollectorGetErrorsByFile(t *testing.T) {
	collector := NewErrorCollector()

	collector.Add(BuildError{File: "docs/a.md", Message: "error in a", Severity: ErrorSeverityError})
	collector.Add(BuildError{File: "docs/b.md", Message: "error in b", Severity: ErrorSeverityWarning})
	collector.Add(BuildError{File: "docs/a.md", Message: "another error in a", Severity: ErrorSeverityError})

	aErrors := collector.GetErrorsByFile("docs/a.md")
	assert.Len(t, aErrors, 2)
	assert.Equal(t, "error in a", aErrors[0].Message)
	assert.Equal(t, "another error in a", aErrors[1].Message)

	bErrors := collector.GetErrorsByFile("docs/b.md")
	assert.Len(t, bErrors, 1)
	assert.Equal(t, "error in b", bErrors[0].Message)

	assert.Empty(t, collector.GetErrorsByFile("docs/missing.md"))
}

func TestErrorCollectorGetErrorsByDocument(t *testing.T) {
	collector := NewErrorCollector()

	collector.Add(BuildError{Document: "a.md", Message: "error in a", Severity: ErrorSeverityError})
	collector.Add(BuildError{Document: "b.md", Message: "error in b", Severity: ErrorSeverityWarning})
	collector.Add(BuildError{Document: "a.md", Message: "another error in a", Severity: ErrorSeverityError})

	aErrors := collector.GetErrorsByDocument("a.md")
	assert.Len(t, aErrors, 2)
	assert.Equal(t, "error in a", aErrors[0].Message)
	assert.Equal(t, "another error in a", aErrors[1].Message)

	bErrors := collector.GetErrorsByDocument("b.md")
	assert.Len(t, bErrors, 1)
	assert.Equal(t, "error in b", bErrors[0].Message)

	assert.Empty(t, collector.GetErrorsByDocument("missing.md"))
}

func TestErrorCollectorErrorOverlayEmpty(t *testing.T) {
	collector := NewErrorCollector()
	assert.Empty(t, collector.ErrorOverlay())
}

func TestErrorCollectorErrorOverlay(t *testing.T) {
	collector := NewErrorCollector()

	collector.Add(BuildError{
		Document:  "guide.md",
		File:      "docs/guide.md",
		Line:      10,
		Column:    5,
		Message:   "front matter: unmarshal failed",
		Severity:  ErrorSeverityError,
		Timestamp: time.Now(),
	})
	collector.Add(BuildError{
		Document:  "notes.md",
		File:      "docs/notes.md",
		Line:      20,
		Column:    10,
		Message:   "odd heading jump",
		Severity:  ErrorSeverityWarning,
		Timestamp: time.Now(),
	})

	overlay := collector.ErrorOverlay()

	assert.Contains(t, overlay, "javanotes-error-overlay")
	assert.Contains(t, overlay, "Build Errors")
	assert.Contains(t, overlay, "front matter: unmarshal failed")
	assert.Contains(t, overlay, "odd heading jump")
	assert.Contains(t, overlay, "docs/guide.md")
	assert.Contains(t, overlay, "docs/notes.md")
	assert.Contains(t, overlay, "10:5")
	assert.Contains(t, overlay, "20:10")

	assert.Contains(t, overlay, "<div")
	assert.Contains(t, overlay, "</div>")
	assert.Contains(t, overlay, "Close")
}

func TestErrorOverlaySeverityColors(t *testing.T) {
	collector := NewErrorCollector()

	testCases := []struct {
		severity ErrorSeverity
		color    string
	}{
		{ErrorSeverityError, "#ff6b6b"},
		{ErrorSeverityWarning, "#feca57"},
		{ErrorSeverityInfo, "#48dbfb"},
		{ErrorSeverityFatal, "#ff6b6b"},
	}

	for _, tc := range testCases {
		collector.Clear()

		collector.Add(BuildError{
			Document:  "guide.md",
			File:      "docs/guide.md",
			Line:      1,
			Column:    1,
			Message:   "test message",
			Severity:  tc.severity,
			Timestamp: time.Now(),
		})

		overlay := collector.ErrorOverlay()
		assert.Contains(t, overlay, tc.color)
		assert.Contains(t, overlay, tc.severity.String())
	}
}

func TestErrorCollectorConcurrency(t *testing.T) {
	collector := NewErrorCollector()

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(i int) {
			collector.Add(BuildError{
				Document: fmt.Sprintf("doc%d.md", i),
				Message:  fmt.Sprintf("error %d", i),
				Severity: ErrorSeverityError,
			})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Len(t, collector.GetErrors(), 10)
	assert.True(t, collector.HasErrors())
}
