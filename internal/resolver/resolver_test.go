package resolver_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/mocks"
	"github.com/quantmind-br/repocrawl-go/internal/repourl"
	"github.com/quantmind-br/repocrawl-go/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func locator(t *testing.T, rawURL string) *domain.RepositoryLocator {
	t.Helper()
	loc, err := repourl.Parse(rawURL, repourl.Options{
		Kind:   domain.HostAuto,
		Getenv: func(string) string { return "" },
	})
	require.NoError(t, err)
	return loc
}

func newResolver(t *testing.T) (*resolver.Resolver, *mocks.MockHost) {
	t.Helper()
	ctrl := gomock.NewController(t)
	host := mocks.NewMockHost(ctrl)
	return resolver.New(resolver.Options{Host: host}), host
}

func TestResolve_NoTreeMarker(t *testing.T) {
	r, _ := newResolver(t)

	spec, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project"), "")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBranch(), spec)
	assert.False(t, spec.HasRef)
}

func TestResolve_BranchWithSlash(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"plain", "https://gitlab.com/group/project/-/tree/release/2.0/src"},
		{"encoded", "https://gitlab.com/group/project/-/tree/release%2F2.0/src"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, host := newResolver(t)
			host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main", "release/2.0"}, nil)

			spec, err := r.Resolve(context.Background(), locator(t, tt.url), "")

			require.NoError(t, err)
			assert.Equal(t, domain.ReferenceSpec{Ref: "release/2.0", HasRef: true, SpecificPath: "src"}, spec)
		})
	}
}

func TestResolve_BranchAtRoot(t *testing.T) {
	r, host := newResolver(t)
	host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main"}, nil)

	spec, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/main"), "")

	require.NoError(t, err)
	assert.Equal(t, domain.ReferenceSpec{Ref: "main", HasRef: true}, spec)
}

func TestResolve_LongestBranchWins(t *testing.T) {
	r, host := newResolver(t)
	host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main", "main-v2"}, nil)

	spec, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/main-v2/docs/api"), "")

	require.NoError(t, err)
	assert.Equal(t, "main-v2", spec.Ref)
	assert.Equal(t, "docs/api", spec.SpecificPath)
}

func TestResolve_BranchListUnavailable(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		r, host := newResolver(t)
		host.EXPECT().Kind().Return(domain.HostGitLab).AnyTimes()
		host.EXPECT().ListBranches(gomock.Any()).
			Return(nil, domain.NewAPIError("list branches", "https://gitlab.com", http.StatusNotFound, nil))

		_, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/main"), "")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBranchesUnavailable)
	})

	t.Run("empty list", func(t *testing.T) {
		r, host := newResolver(t)
		host.EXPECT().ListBranches(gomock.Any()).Return([]string{}, nil)

		_, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/main"), "")

		assert.ErrorIs(t, err, domain.ErrBranchesUnavailable)
	})
}

func TestResolve_CommitSHA(t *testing.T) {
	sha := "0123456789abcdef0123456789abcdef01234567"

	t.Run("sha checked and adopted", func(t *testing.T) {
		r, host := newResolver(t)
		host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main"}, nil)
		host.EXPECT().CommitExists(gomock.Any(), sha).Return(true, nil)

		spec, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/"+sha+"/lib/core"), "")

		require.NoError(t, err)
		assert.Equal(t, domain.ReferenceSpec{Ref: sha, HasRef: true, SpecificPath: "lib/core"}, spec)
	})

	t.Run("unknown commit", func(t *testing.T) {
		r, host := newResolver(t)
		host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main"}, nil)
		host.EXPECT().CommitExists(gomock.Any(), sha).Return(false, nil)

		_, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/"+sha), "")

		assert.ErrorIs(t, err, domain.ErrNoMatchingRef)
	})

	t.Run("commit lookup error", func(t *testing.T) {
		r, host := newResolver(t)
		host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main"}, nil)
		host.EXPECT().CommitExists(gomock.Any(), sha).
			Return(false, domain.NewAPIError("get commit", "https://gitlab.com", http.StatusBadRequest, nil))

		_, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/"+sha), "")

		assert.ErrorIs(t, err, domain.ErrNoMatchingRef)
	})

	t.Run("uppercase is not checked", func(t *testing.T) {
		r, host := newResolver(t)
		host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main"}, nil)

		_, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/"+strings.ToUpper(sha)), "")

		assert.ErrorIs(t, err, domain.ErrNoMatchingRef)
	})
}

func TestResolve_NoMatch(t *testing.T) {
	r, host := newResolver(t)
	host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main", "develop"}, nil)

	_, err := r.Resolve(context.Background(), locator(t, "https://gitlab.com/group/project/-/tree/feature/x"), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMatchingRef))
}

func TestResolve_ExplicitRef(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ref  string
		want domain.ReferenceSpec
	}{
		{
			name: "no marker",
			url:  "https://gitlab.com/group/project",
			ref:  "v1.0",
			want: domain.ReferenceSpec{Ref: "v1.0", HasRef: true},
		},
		{
			name: "single segment ref",
			url:  "https://gitlab.com/group/project/-/tree/v1.0/src/pkg",
			ref:  "v1.0",
			want: domain.ReferenceSpec{Ref: "v1.0", HasRef: true, SpecificPath: "src/pkg"},
		},
		{
			name: "multi segment ref",
			url:  "https://gitlab.com/group/project/-/tree/release/2.0/src",
			ref:  "release/2.0",
			want: domain.ReferenceSpec{Ref: "release/2.0", HasRef: true, SpecificPath: "src"},
		},
		{
			name: "ref differs from url",
			url:  "https://gitlab.com/group/project/-/tree/main/src",
			ref:  "develop",
			want: domain.ReferenceSpec{Ref: "develop", HasRef: true, SpecificPath: "src"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// no EXPECT calls: any host access fails the test
			r, _ := newResolver(t)

			spec, err := r.Resolve(context.Background(), locator(t, tt.url), tt.ref)

			require.NoError(t, err)
			assert.Equal(t, tt.want, spec)
		})
	}
}

func TestResolve_GitHubLayout(t *testing.T) {
	r, host := newResolver(t)
	host.EXPECT().ListBranches(gomock.Any()).Return([]string{"main", "feature/login"}, nil)

	spec, err := r.Resolve(context.Background(), locator(t, "https://github.com/octo/repo/tree/feature/login/web"), "")

	require.NoError(t, err)
	assert.Equal(t, domain.ReferenceSpec{Ref: "feature/login", HasRef: true, SpecificPath: "web"}, spec)
}

func TestResolve_ContextCancelled(t *testing.T) {
	r, host := newResolver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	host.EXPECT().ListBranches(gomock.Any()).Return(nil, context.Canceled)

	_, err := r.Resolve(ctx, locator(t, "https://gitlab.com/group/project/-/tree/main"), "")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchBranch(t *testing.T) {
	tests := []struct {
		name     string
		branches []string
		relevant string
		want     string
		ok       bool
	}{
		{"exact", []string{"main"}, "main", "main", true},
		{"with path", []string{"main"}, "main/src", "main", true},
		{"boundary", []string{"main"}, "main-v2/src", "", false},
		{"longest", []string{"release", "release/2.0"}, "release/2.0/src", "release/2.0", true},
		{"order independent", []string{"release/2.0", "release"}, "release/2.0", "release/2.0", true},
		{"empty branch ignored", []string{""}, "main", "", false},
		{"empty path", []string{"main"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolver.MatchBranch(tt.branches, tt.relevant)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestIsCommitSHA(t *testing.T) {
	assert.True(t, resolver.IsCommitSHA("0123456789abcdef0123456789abcdef01234567"))
	assert.False(t, resolver.IsCommitSHA("0123456789ABCDEF0123456789ABCDEF01234567"))
	assert.False(t, resolver.IsCommitSHA("0123456"))
	assert.False(t, resolver.IsCommitSHA("g123456789abcdef0123456789abcdef01234567"))
	assert.False(t, resolver.IsCommitSHA(""))
}
