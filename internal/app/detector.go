package app

import (
	"path/filepath"
	"strings"

	"github.com/quantmind-br/repocrawl-go/internal/repourl"
)

// InputKind is what a command-line argument refers to
type InputKind string

const (
	InputRepository InputKind = "repository"
	InputManifest   InputKind = "manifest"
	InputUnknown    InputKind = "unknown"
)

// DetectInput classifies an argument as a repository identifier or a batch
// manifest path
func DetectInput(arg string) InputKind {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return InputUnknown
	}
	lower := strings.ToLower(arg)

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return InputRepository
	}

	if repourl.IsSSH(arg) {
		return InputRepository
	}

	switch filepath.Ext(lower) {
	case ".yaml", ".yml", ".json":
		return InputManifest
	}

	return InputUnknown
}

// IsFileURL reports whether a browse URL points at a single file rather than
// a tree
func IsFileURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "/-/blob/") || strings.Contains(lower, "/blob/")
}
