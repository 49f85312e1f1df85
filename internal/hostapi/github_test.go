package hostapi_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitHub(t *testing.T, handler http.HandlerFunc) *hostapi.GitHub {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	host, err := hostapi.NewGitHub(context.Background(), hostapi.GitHubOptions{
		APIURL:  server.URL,
		Owner:   "octo",
		Repo:    "repo",
		Token:   "ghp_test",
		Retrier: fastRetrier(3),
	})
	require.NoError(t, err)
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func fileJSON(path, content string) map[string]any {
	name := path[strings.LastIndex(path, "/")+1:]
	return map[string]any{
		"type":     "file",
		"name":     name,
		"path":     path,
		"size":     len(content),
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

func TestGitHub_ListBranches(t *testing.T) {
	var serverURL string
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/repo/branches", r.URL.Path)
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		serverURL = "http://" + r.Host

		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, []map[string]string{{"name": "release/2.0"}})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octo/repo/branches?page=2>; rel="next"`, serverURL))
		writeJSON(w, http.StatusOK, []map[string]string{{"name": "main"}, {"name": "dev"}})
	})

	branches, err := host.ListBranches(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"main", "dev", "release/2.0"}, branches)
}

func TestGitHub_CommitExists(t *testing.T) {
	known := strings.Repeat("c", 40)
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/octo/repo/commits/"+known {
			writeJSON(w, http.StatusOK, map[string]string{"sha": known})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "No commit found for SHA"})
	})

	ok, err := host.CommitExists(context.Background(), known)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = host.CommitExists(context.Background(), strings.Repeat("d", 40))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGitHub_ListTree(t *testing.T) {
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/repo/contents/src", r.URL.Path)
		assert.Equal(t, "v1.2.0", r.URL.Query().Get("ref"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"type": "file", "name": "main.go", "path": "src/main.go"},
			{"type": "dir", "name": "pkg", "path": "src/pkg"},
			{"type": "submodule", "name": "vendor", "path": "src/vendor"},
		})
	})

	entries, err := host.ListTree(context.Background(), "src", domain.ReferenceSpec{Ref: "v1.2.0", HasRef: true})

	require.NoError(t, err)
	assert.Equal(t, []domain.TreeEntry{
		{Path: "src/main.go", Name: "main.go", Type: domain.EntryBlob},
		{Path: "src/pkg", Name: "pkg", Type: domain.EntryTree},
	}, entries)
}

func TestGitHub_ListTree_NotFound(t *testing.T) {
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})

	_, err := host.ListTree(context.Background(), "", domain.DefaultBranch())

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
}

func TestGitHub_ListTree_RateLimited(t *testing.T) {
	var calls atomic.Int32
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(-time.Second).Unix(), 10))
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "API rate limit exceeded"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"type": "file", "name": "a.go", "path": "a.go"}})
	})

	entries, err := host.ListTree(context.Background(), "", domain.DefaultBranch())

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGitHub_TooManyRequests(t *testing.T) {
	var calls atomic.Int32
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, fileJSON("a.go", "package a"))
	})

	content, err := host.FetchFile(context.Background(), "a.go", domain.DefaultBranch(), 1024)

	require.NoError(t, err)
	assert.Equal(t, "package a", string(content.Data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGitHub_FetchFile(t *testing.T) {
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octo/repo/contents/src/main.go":
			writeJSON(w, http.StatusOK, fileJSON("src/main.go", "package main\n"))
		case "/repos/octo/repo/contents/big.bin":
			writeJSON(w, http.StatusOK, map[string]any{
				"type": "file", "name": "big.bin", "path": "big.bin",
				"size": 2_000_000, "encoding": "none", "content": "",
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		}
	})

	t.Run("inline content", func(t *testing.T) {
		content, err := host.FetchFile(context.Background(), "src/main.go", domain.DefaultBranch(), 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, "package main\n", string(content.Data))
		assert.Equal(t, int64(13), content.Size)
	})

	t.Run("oversize from metadata", func(t *testing.T) {
		content, err := host.FetchFile(context.Background(), "big.bin", domain.DefaultBranch(), 1_000_000)
		require.NoError(t, err)
		assert.Nil(t, content.Data)
		assert.Equal(t, int64(2_000_000), content.Size)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := host.FetchFile(context.Background(), "nope.go", domain.DefaultBranch(), 1_000_000)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
	})
}

func TestGitHub_FetchFile_Download(t *testing.T) {
	var serverURL string
	host := newGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		serverURL = "http://" + r.Host
		switch r.URL.Path {
		case "/repos/octo/repo/contents/data/large.txt":
			writeJSON(w, http.StatusOK, map[string]any{
				"type": "file", "name": "large.txt", "path": "data/large.txt",
				"size": 11, "encoding": "none", "content": "",
			})
		case "/repos/octo/repo/contents/data":
			writeJSON(w, http.StatusOK, []map[string]any{{
				"type": "file", "name": "large.txt", "path": "data/large.txt",
				"download_url": serverURL + "/raw/data/large.txt",
			}})
		case "/raw/data/large.txt":
			w.Write([]byte("hello world"))
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		}
	})

	content, err := host.FetchFile(context.Background(), "data/large.txt", domain.DefaultBranch(), 1_000_000)

	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content.Data))
}
