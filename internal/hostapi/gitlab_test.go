package hostapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/quantmind-br/repocrawl-go/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitLab(t *testing.T, server *testutil.FakeGitLab, token string) *hostapi.GitLab {
	t.Helper()
	host, err := hostapi.NewGitLab(hostapi.GitLabOptions{
		BaseURL: server.URL,
		Project: server.Project,
		Token:   token,
		Retrier: fastRetrier(3),
	})
	require.NoError(t, err)
	return host
}

func TestGitLab_ListBranches_Paginates(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Branches = []string{"main", "develop", "release/2.0"}
	server.PerPage = 2

	branches, err := newGitLab(t, server, "").ListBranches(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"main", "develop", "release/2.0"}, branches)
	assert.Equal(t, 2, server.CountRequests("/repository/branches"))
}

func TestGitLab_EncodesProjectID(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Branches = []string{"main"}

	_, err := newGitLab(t, server, "").ListBranches(context.Background())
	require.NoError(t, err)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v4/projects/group%2Fproject/repository/branches", reqs[0].URL.EscapedPath())
	assert.Equal(t, "100", reqs[0].URL.Query().Get("per_page"))
}

func TestGitLab_SendsToken(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Branches = []string{"main"}
	server.Token = "secret"

	_, err := newGitLab(t, server, "").ListBranches(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, domain.StatusCode(err))

	branches, err := newGitLab(t, server, "secret").ListBranches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, branches)
}

func TestGitLab_ListBranches_NotFound(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.BranchesStatus = http.StatusNotFound

	_, err := newGitLab(t, server, "").ListBranches(context.Background())

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
	assert.False(t, domain.IsRetryable(err))
}

func TestGitLab_CommitExists(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	sha := strings.Repeat("a", 40)
	server.Commits[sha] = true
	host := newGitLab(t, server, "")

	ok, err := host.CommitExists(context.Background(), sha)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = host.CommitExists(context.Background(), strings.Repeat("b", 40))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGitLab_ListTree(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Files["README.md"] = "# readme"
	server.Files["src/main.go"] = "package main"
	server.Files["src/util/helpers.go"] = "package util"
	host := newGitLab(t, server, "")

	t.Run("root without ref", func(t *testing.T) {
		entries, err := host.ListTree(context.Background(), "", domain.DefaultBranch())
		require.NoError(t, err)
		assert.Equal(t, []domain.TreeEntry{
			{Path: "README.md", Name: "README.md", Type: domain.EntryBlob},
			{Path: "src", Name: "src", Type: domain.EntryTree},
		}, entries)

		reqs := server.Requests()
		last := reqs[len(reqs)-1]
		_, hasRef := last.URL.Query()["ref"]
		assert.False(t, hasRef, "ref must be omitted when unresolved")
		assert.Equal(t, "false", last.URL.Query().Get("recursive"))
	})

	t.Run("subdirectory with ref", func(t *testing.T) {
		entries, err := host.ListTree(context.Background(), "src", domain.ReferenceSpec{Ref: "release/2.0", HasRef: true})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		reqs := server.Requests()
		last := reqs[len(reqs)-1]
		assert.Equal(t, "src", last.URL.Query().Get("path"))
		assert.Equal(t, "release/2.0", last.URL.Query().Get("ref"))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := host.ListTree(context.Background(), "nope", domain.DefaultBranch())
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
	})
}

func TestGitLab_ListTree_RetriesRateLimit(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Files["a.go"] = "package a"
	server.TreeRateLimits[""] = 2

	entries, err := newGitLab(t, server, "").ListTree(context.Background(), "", domain.DefaultBranch())

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, server.CountRequests("/repository/tree"))
}

func TestGitLab_ListTree_GivesUpAfterCeiling(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Files["a.go"] = "package a"
	server.TreeRateLimits[""] = 100

	host, err := hostapi.NewGitLab(hostapi.GitLabOptions{
		BaseURL: server.URL,
		Project: server.Project,
		Retrier: fastRetrier(2),
	})
	require.NoError(t, err)
	_, err = host.ListTree(context.Background(), "", domain.DefaultBranch())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 3, server.CountRequests("/repository/tree"))
}

func TestGitLab_FetchFile(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Files["src/dir with space/main.go"] = "package main"
	server.Files["big.txt"] = strings.Repeat("x", 2_000_000)
	server.ContentTypes["src/dir with space/main.go"] = "text/plain; charset=ISO-8859-1"
	host := newGitLab(t, server, "")

	t.Run("encodes path and passes ref", func(t *testing.T) {
		content, err := host.FetchFile(context.Background(), "src/dir with space/main.go", domain.ReferenceSpec{Ref: "main", HasRef: true}, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, "package main", string(content.Data))
		assert.Equal(t, "iso-8859-1", content.Charset)

		reqs := server.Requests()
		last := reqs[len(reqs)-1]
		escaped := last.URL.EscapedPath()
		assert.True(t, strings.HasPrefix(escaped, "/api/v4/projects/group%2Fproject/repository/files/src%2Fdir%20with%20space%2Fmain"), escaped)
		assert.True(t, strings.HasSuffix(escaped, "/raw"), escaped)
		assert.Equal(t, "/api/v4/projects/group/project/repository/files/src/dir with space/main.go/raw", last.URL.Path)
		assert.Equal(t, "main", last.URL.Query().Get("ref"))
	})

	t.Run("oversize reports size only", func(t *testing.T) {
		content, err := host.FetchFile(context.Background(), "big.txt", domain.DefaultBranch(), 1_000_000)
		require.NoError(t, err)
		assert.Nil(t, content.Data)
		assert.Equal(t, int64(2_000_000), content.Size)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := host.FetchFile(context.Background(), "missing.go", domain.DefaultBranch(), 1_000_000)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, domain.StatusCode(err))
	})
}

func TestNew_SelectsBackend(t *testing.T) {
	gitlab, err := hostapi.New(context.Background(), hostapi.Options{
		Locator: &domain.RepositoryLocator{Kind: domain.HostGitLab, Namespace: "g", Project: "p", HostBaseURL: "https://gitlab.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.HostGitLab, gitlab.Kind())

	github, err := hostapi.New(context.Background(), hostapi.Options{
		Locator: &domain.RepositoryLocator{Kind: domain.HostGitHub, Namespace: "o", Project: "r", HostBaseURL: "https://github.com"},
		Token:   "t",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.HostGitHub, github.Kind())

	_, err = hostapi.New(context.Background(), hostapi.Options{
		Locator: &domain.RepositoryLocator{Kind: "bitbucket"},
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedHost)

	_, err = hostapi.New(context.Background(), hostapi.Options{})
	assert.Error(t, err)
}

func TestGitLab_SendsUserAgentWithoutExtraRequests(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Branches = []string{"main"}
	host := newGitLab(t, server, "")

	_, err := host.ListBranches(context.Background())
	require.NoError(t, err)
	_, err = host.ListBranches(context.Background())
	require.NoError(t, err)

	reqs := server.Requests()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("User-Agent"), "repocrawl")
	}
}

func TestGitLab_FetchFile_RateLimitIsRetried(t *testing.T) {
	server := testutil.NewFakeGitLab(t, "group/project")
	server.Files["a.go"] = "package a"
	server.FileStatus["a.go"] = http.StatusTooManyRequests
	host := newGitLab(t, server, "")

	_, err := host.FetchFile(context.Background(), "a.go", domain.DefaultBranch(), 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 4, server.CountRequests("/repository/files/"))
}
