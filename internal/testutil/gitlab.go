// Package testutil provides fake code-hosting servers and helpers for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// FakeGitLab is an in-memory GitLab REST v4 server for one project.
// The same file tree is served for every ref; the refs requested are
// recorded so tests can assert on them.
type FakeGitLab struct {
	*httptest.Server

	// Project is "namespace/project"
	Project  string
	Branches []string
	Commits  map[string]bool
	// Files maps repository path to content
	Files map[string]string
	// ContentTypes overrides the Content-Type of a file download
	ContentTypes map[string]string
	// TreeStatus and FileStatus force a status for a directory or file
	TreeStatus     map[string]int
	FileStatus     map[string]int
	BranchesStatus int
	// TreeRateLimits answers 429 this many times before serving a directory
	TreeRateLimits map[string]int
	// Token, when set, is required in the PRIVATE-TOKEN header
	Token   string
	PerPage int

	mu       sync.Mutex
	requests []*http.Request
}

// NewFakeGitLab starts a fake server and registers its shutdown
func NewFakeGitLab(t *testing.T, project string) *FakeGitLab {
	t.Helper()

	f := &FakeGitLab{
		Project:        project,
		Commits:        map[string]bool{},
		Files:          map[string]string{},
		ContentTypes:   map[string]string{},
		TreeStatus:     map[string]int{},
		FileStatus:     map[string]int{},
		TreeRateLimits: map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Requests returns a copy of the requests received so far
func (f *FakeGitLab) Requests() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

// CountRequests counts requests whose escaped path contains fragment
func (f *FakeGitLab) CountRequests(fragment string) int {
	n := 0
	for _, r := range f.Requests() {
		if strings.Contains(r.URL.EscapedPath(), fragment) {
			n++
		}
	}
	return n
}

// TreeRequests returns the "path" query of every tree listing, in order
func (f *FakeGitLab) TreeRequests() []string {
	var paths []string
	for _, r := range f.Requests() {
		if strings.HasSuffix(r.URL.EscapedPath(), "/repository/tree") {
			paths = append(paths, r.URL.Query().Get("path"))
		}
	}
	return paths
}

func (f *FakeGitLab) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(r.Context()))
	f.mu.Unlock()

	if f.Token != "" && r.Header.Get("PRIVATE-TOKEN") != f.Token {
		http.Error(w, `{"message":"401 Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	escaped := r.URL.EscapedPath()
	rest, ok := strings.CutPrefix(escaped, "/api/v4/projects/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	projectID, action, ok := strings.Cut(rest, "/repository/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if project, err := url.PathUnescape(projectID); err != nil || project != f.Project || strings.Contains(projectID, "/") {
		http.Error(w, `{"message":"404 Project Not Found"}`, http.StatusNotFound)
		return
	}

	switch {
	case action == "branches":
		f.serveBranches(w, r)
	case action == "tree":
		f.serveTree(w, r)
	case strings.HasPrefix(action, "commits/"):
		sha := strings.TrimPrefix(action, "commits/")
		if !f.Commits[sha] {
			http.Error(w, `{"message":"404 Commit Not Found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]string{"id": sha})
	case strings.HasPrefix(action, "files/") && strings.HasSuffix(action, "/raw"):
		encoded := strings.TrimSuffix(strings.TrimPrefix(action, "files/"), "/raw")
		path, err := url.PathUnescape(encoded)
		if err != nil || strings.Contains(encoded, "/") {
			http.Error(w, `{"message":"400 Bad Request"}`, http.StatusBadRequest)
			return
		}
		f.serveFile(w, path)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeGitLab) serveBranches(w http.ResponseWriter, r *http.Request) {
	if f.BranchesStatus != 0 {
		http.Error(w, `{"message":"error"}`, f.BranchesStatus)
		return
	}
	items := make([]any, 0, len(f.Branches))
	for _, b := range f.Branches {
		items = append(items, map[string]string{"name": b})
	}
	f.writePage(w, r, items)
}

func (f *FakeGitLab) serveTree(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("path")

	f.mu.Lock()
	remaining := f.TreeRateLimits[dir]
	if remaining > 0 {
		f.TreeRateLimits[dir] = remaining - 1
	}
	f.mu.Unlock()
	if remaining > 0 {
		w.Header().Set("RateLimit-Reset", strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10))
		http.Error(w, `{"message":"429 Too Many Requests"}`, http.StatusTooManyRequests)
		return
	}

	if status := f.TreeStatus[dir]; status != 0 {
		http.Error(w, `{"message":"error"}`, status)
		return
	}

	type entry struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Path string `json:"path"`
	}
	seen := map[string]entry{}
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	for p := range f.Files {
		rel, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		name, _, isDir := strings.Cut(rel, "/")
		typ := "blob"
		if isDir {
			typ = "tree"
		}
		seen[name] = entry{Name: name, Type: typ, Path: prefix + name}
	}
	if len(seen) == 0 && dir != "" {
		http.Error(w, `{"message":"404 Tree Not Found"}`, http.StatusNotFound)
		return
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	items := make([]any, 0, len(names))
	for _, name := range names {
		items = append(items, seen[name])
	}
	f.writePage(w, r, items)
}

func (f *FakeGitLab) serveFile(w http.ResponseWriter, path string) {
	if status := f.FileStatus[path]; status != 0 {
		http.Error(w, `{"message":"error"}`, status)
		return
	}
	content, ok := f.Files[path]
	if !ok {
		http.Error(w, `{"message":"404 File Not Found"}`, http.StatusNotFound)
		return
	}
	contentType := f.ContentTypes[path]
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Write([]byte(content))
}

func (f *FakeGitLab) writePage(w http.ResponseWriter, r *http.Request, items []any) {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	}
	if perPage <= 0 {
		perPage = 20
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	if end < len(items) {
		w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
	}
	writeJSON(w, items[start:end])
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
