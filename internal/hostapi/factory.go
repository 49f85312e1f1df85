package hostapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
)

// Options selects and configures a host backend
type Options struct {
	Locator    *domain.RepositoryLocator
	Token      string
	HTTPClient *http.Client
	RateLimit  RetrierOptions
	// APIURL overrides the REST root of a GitHub host
	APIURL string
	Logger *utils.Logger
}

// New creates the host backend matching the locator's kind
func New(ctx context.Context, opts Options) (domain.Host, error) {
	if opts.Locator == nil {
		return nil, domain.NewValidationError("locator", "is required")
	}
	if opts.RateLimit.Logger == nil {
		opts.RateLimit.Logger = opts.Logger
	}
	retrier := NewRetrier(opts.RateLimit)

	switch opts.Locator.Kind {
	case domain.HostGitLab:
		gitlab, err := NewGitLab(GitLabOptions{
			BaseURL:    opts.Locator.HostBaseURL,
			Project:    opts.Locator.ProjectPath(),
			Token:      opts.Token,
			HTTPClient: opts.HTTPClient,
			Retrier:    retrier,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return gitlab, nil
	case domain.HostGitHub:
		gh, err := NewGitHub(ctx, GitHubOptions{
			BaseURL:    opts.Locator.HostBaseURL,
			APIURL:     opts.APIURL,
			Owner:      opts.Locator.Namespace,
			Repo:       opts.Locator.Project,
			Token:      opts.Token,
			HTTPClient: opts.HTTPClient,
			Retrier:    retrier,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return gh, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedHost, opts.Locator.Kind)
	}
}
