// Package allowlist decides which file paths are exempt from delegation
// accounting. Configuration, memory-log and project metadata files may be
// touched by the Conductor directly without counting as unsupervised work.
package allowlist

import (
	"path/filepath"
	"strings"
)

// exemptDirs are path segments that exempt everything beneath them.
var exemptDirs = map[string]bool{
	".claude": true,
	"memory":  true,
}

// exemptFiles are base names of project metadata files.
var exemptFiles = map[string]bool{
	"pyproject.toml": true,
	"settings.json":  true,
	".gitignore":     true,
	"go.mod":         true,
	"package.json":   true,
}

// Allowed reports whether operations on path bypass delegation accounting.
// An empty path is never allowed.
func Allowed(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}

	segments := strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
	for _, seg := range segments {
		if exemptDirs[seg] {
			return true
		}
	}
	if len(segments) == 0 {
		return false
	}
	return exemptFiles[segments[len(segments)-1]]
}
