// Package resolver works out which branch, tag or commit a browse URL points
// at, and which sub-directory the crawl should start from.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
)

const treeMarker = "tree"

// Options configures a Resolver
type Options struct {
	Host domain.Host
	// HasToken selects the diagnostic wording for failed calls
	HasToken bool
	Logger   *utils.Logger
}

// Resolver turns a RepositoryLocator into a ReferenceSpec
type Resolver struct {
	host     domain.Host
	hasToken bool
	logger   *utils.Logger
}

// New creates a Resolver
func New(opts Options) *Resolver {
	return &Resolver{
		host:     opts.Host,
		hasToken: opts.HasToken,
		logger:   opts.Logger.OrNop().WithComponent("resolver"),
	}
}

// Resolve decides the reference and sub-path of a crawl.
//
// An explicit ref is trusted without any network call. Otherwise a URL
// carrying a tree marker is matched against the live branch list and, failing
// that, checked as a commit SHA. A URL without a marker resolves to the host's
// default branch at the repository root.
//
// Failures wrap domain.ErrBranchesUnavailable or domain.ErrNoMatchingRef.
func (r *Resolver) Resolve(ctx context.Context, loc *domain.RepositoryLocator, explicitRef string) (domain.ReferenceSpec, error) {
	marker := loc.Kind.TreeMarkerIndex()
	segments := loc.Segments
	hasMarker := len(segments) > marker && segments[marker] == treeMarker

	var relevant string
	if hasMarker {
		relevant = strings.Join(segments[marker+1:], "/")
	}

	if explicitRef != "" {
		r.logger.Debug().Str("ref", explicitRef).Msg("Using user-provided ref")
		spec := domain.ReferenceSpec{Ref: explicitRef, HasRef: true}
		if hasMarker {
			spec.SpecificPath = explicitSubPath(segments, marker, relevant, explicitRef)
		}
		return spec, nil
	}

	if !hasMarker {
		return domain.DefaultBranch(), nil
	}

	branches, err := r.host.ListBranches(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ReferenceSpec{}, ctx.Err()
		}
		r.logger.Error().
			Err(err).
			Str("hint", hostapi.DiagnoseError(loc.Kind, err, r.hasToken, "")).
			Msgf("Failed to fetch the branches of %s", loc.ProjectPath())
		return domain.ReferenceSpec{}, fmt.Errorf("%w: %v", domain.ErrBranchesUnavailable, err)
	}
	if len(branches) == 0 {
		r.logger.Error().Msgf("No branches returned for %s", loc.ProjectPath())
		return domain.ReferenceSpec{}, domain.ErrBranchesUnavailable
	}

	if branch, ok := MatchBranch(branches, relevant); ok {
		r.logger.Debug().Str("branch", branch).Msg("Matched branch")
		return domain.ReferenceSpec{
			Ref:          branch,
			HasRef:       true,
			SpecificPath: strings.Trim(strings.TrimPrefix(relevant, branch), "/"),
		}, nil
	}

	if len(segments) > marker+1 && IsCommitSHA(segments[marker+1]) {
		sha := segments[marker+1]
		exists, err := r.host.CommitExists(ctx, sha)
		switch {
		case err != nil && ctx.Err() != nil:
			return domain.ReferenceSpec{}, ctx.Err()
		case err != nil:
			r.logger.Warn().
				Err(err).
				Str("sha", sha).
				Str("hint", hostapi.DiagnoseError(loc.Kind, err, r.hasToken, "")).
				Msg("Commit check failed")
		case exists:
			r.logger.Debug().Str("sha", sha).Msg("Matched commit")
			return domain.ReferenceSpec{
				Ref:          sha,
				HasRef:       true,
				SpecificPath: strings.Join(segments[marker+2:], "/"),
			}, nil
		}
	}

	r.logger.Error().
		Str("path", relevant).
		Msg("The given path does not match any branch or commit in the repository")
	return domain.ReferenceSpec{}, domain.ErrNoMatchingRef
}

// MatchBranch finds the branch the relevant path starts with. Matches stop at
// segment boundaries and the longest one wins, so "main" never shadows
// "main-v2" and "release" never shadows "release/2.0".
func MatchBranch(branches []string, relevant string) (string, bool) {
	best := ""
	for _, b := range branches {
		if b == "" || len(b) <= len(best) {
			continue
		}
		if relevant == b || strings.HasPrefix(relevant, b+"/") {
			best = b
		}
	}
	return best, best != ""
}

// IsCommitSHA reports whether s is a full lowercase hex commit id
func IsCommitSHA(s string) bool {
	return len(s) == 40 && plumbing.IsHash(s) && s == strings.ToLower(s)
}

func explicitSubPath(segments []string, marker int, relevant, ref string) string {
	if relevant == ref {
		return ""
	}
	if rest, ok := strings.CutPrefix(relevant, ref+"/"); ok {
		return strings.Trim(rest, "/")
	}
	if len(segments) > marker+2 {
		return strings.Trim(strings.Join(segments[marker+2:], "/"), "/")
	}
	return ""
}
