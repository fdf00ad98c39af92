package config

import (
	"path/filepath"
	"strings"
	"testing"
)

// FuzzValidatePath checks that path validation never admits a traversal and
// never panics on arbitrary input.
func FuzzValidatePath(f *testing.F) {
	f.Add("docs")
	f.Add("docs/core-java")
	f.Add("../escape")
	f.Add("docs/../../etc/passwd")
	f.Add("docs;rm -rf /")
	f.Add("")
	f.Add("/srv/notes")

	f.Fuzz(func(t *testing.T, path string) {
		err := validatePath(path)
		if err != nil {
			return
		}
		if path == "" {
			t.Error("empty path validated")
		}
		if strings.Contains(filepath.Clean(path), "..") {
			t.Errorf("traversal path validated: %q", path)
		}
	})
}
