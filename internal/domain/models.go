package domain

import (
	"strings"
	"time"
)

// HostKind identifies the REST dialect spoken by a code-hosting service
type HostKind string

const (
	HostGitLab HostKind = "gitlab"
	HostGitHub HostKind = "github"
	HostAuto   HostKind = "auto"
)

// TreeMarkerIndex returns the path segment index where the "tree" marker
// appears in a browse URL for this kind of host.
//
//	gitlab: namespace/project/-/tree/<ref>/<path>
//	github: owner/repo/tree/<ref>/<path>
func (k HostKind) TreeMarkerIndex() int {
	if k == HostGitHub {
		return 2
	}
	return 3
}

// RepositoryLocator identifies the remote project being crawled
type RepositoryLocator struct {
	Kind        HostKind
	Namespace   string
	Project     string
	Domain      string
	Protocol    string
	HostBaseURL string
	// Segments holds the unescaped path segments of the normalized URL,
	// including namespace and project.
	Segments []string
}

// ProjectPath returns "namespace/project"
func (l *RepositoryLocator) ProjectPath() string {
	return l.Namespace + "/" + l.Project
}

// ReferenceSpec is the outcome of reference resolution
type ReferenceSpec struct {
	// Ref is a branch, tag or commit SHA. Only meaningful when HasRef is true.
	Ref    string
	HasRef bool
	// SpecificPath is the sub-directory the walk is rooted at, without
	// leading or trailing slashes. Empty means repository root.
	SpecificPath string
}

// DefaultBranch returns a spec that lets the host pick its default branch
func DefaultBranch() ReferenceSpec {
	return ReferenceSpec{}
}

// EntryType distinguishes files from directories in a tree listing
type EntryType string

const (
	EntryBlob EntryType = "blob"
	EntryTree EntryType = "tree"
)

// TreeEntry is a single host-neutral directory listing entry
type TreeEntry struct {
	Path string
	Name string
	Type EntryType
}

// BaseName returns the final path component of the entry
func (e TreeEntry) BaseName() string {
	if e.Name != "" {
		return e.Name
	}
	if idx := strings.LastIndex(e.Path, "/"); idx >= 0 {
		return e.Path[idx+1:]
	}
	return e.Path
}

// FileContent is the raw payload of a file fetch. When Data is nil but Size
// is set, the host reported a size above the requested limit and the body was
// not retained.
type FileContent struct {
	Data    []byte
	Size    int64
	Charset string
}

// SkippedFile records a file left out for exceeding the size ceiling
type SkippedFile struct {
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// CrawlStats summarises a crawl
type CrawlStats struct {
	DownloadedCount int           `json:"downloaded_count" yaml:"downloaded_count"`
	SkippedCount    int           `json:"skipped_count" yaml:"skipped_count"`
	SkippedFiles    []SkippedFile `json:"skipped_files" yaml:"skipped_files"`
	BasePath        string        `json:"base_path,omitempty" yaml:"base_path,omitempty"`
	IncludePatterns []string      `json:"include_patterns,omitempty" yaml:"include_patterns,omitempty"`
	ExcludePatterns []string      `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty"`
	HostKind        HostKind      `json:"host_kind" yaml:"host_kind"`
	HostDomain      string        `json:"host_domain" yaml:"host_domain"`
	HostProtocol    string        `json:"host_protocol" yaml:"host_protocol"`
	Ref             string        `json:"ref,omitempty" yaml:"ref,omitempty"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
	Error           string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// CrawlResult is the mapping of relative path to file text plus statistics
type CrawlResult struct {
	Files map[string]string `json:"files" yaml:"files"`
	Stats CrawlStats        `json:"stats" yaml:"stats"`
}

// Failed reports whether reference resolution failed
func (r *CrawlResult) Failed() bool {
	return r.Stats.Error != ""
}
