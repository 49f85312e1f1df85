// Package crawler extracts the text files of a remote repository.
//
// Crawl runs the whole pipeline: the URL is normalised and parsed, the
// reference is resolved against the host, and a Walker collects every file
// that passes the size ceiling and the include/exclude patterns.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/quantmind-br/repocrawl-go/internal/pattern"
	"github.com/quantmind-br/repocrawl-go/internal/repourl"
	"github.com/quantmind-br/repocrawl-go/internal/resolver"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
)

// DefaultMaxFileSize is the size ceiling when none is given (1 MiB)
const DefaultMaxFileSize int64 = 1 << 20

// Messages stored in CrawlStats.Error when the reference cannot be resolved
const (
	MsgBranchesUnavailable = "Failed to fetch branches"
	MsgNoMatchingRef       = "Invalid branch or commit reference"
)

// Options configures a crawl
type Options struct {
	RepositoryURL string
	// Token authenticates against the host. Falls back to GITLAB_TOKEN or
	// GITHUB_TOKEN.
	Token        string
	HostKind     domain.HostKind
	HostDomain   string
	HostProtocol string
	// MaxFileSize is the per-file ceiling in bytes. Defaults to 1 MiB.
	MaxFileSize      int64
	UseRelativePaths bool
	Include          []string
	Exclude          []string
	// Ref overrides the reference found in the URL
	Ref   string
	Debug bool

	Logger *utils.Logger
	// RateLimit configures retries on rate limiting. Nil uses the defaults.
	RateLimit *hostapi.RetrierOptions
	// HTTPClient replaces the default client with fixed timeouts
	HTTPClient *http.Client
	// APIURL overrides the REST root of a GitHub host
	APIURL string
	// Host replaces the backend built from the URL
	Host     domain.Host
	Progress func(Event)
	// Getenv is used for environment lookups. Defaults to os.Getenv.
	Getenv func(string) string
}

// Crawl fetches the text files of a repository.
//
// An error is returned only for invalid input: an unusable URL, an invalid
// glob or an unsupported host, or when ctx is cancelled. A reference that
// cannot be resolved is reported through Stats.Error with an empty file map.
func Crawl(ctx context.Context, opts Options) (*domain.CrawlResult, error) {
	start := time.Now()

	logger := opts.Logger.OrNop()
	if opts.Debug {
		logger = logger.WithDebug()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	patterns, err := pattern.New(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	identifier, err := repourl.Normalize(opts.RepositoryURL, opts.HostProtocol)
	if err != nil {
		logger.Warn().Err(err).Msg("Falling back to the identifier as given")
	} else if identifier != opts.RepositoryURL {
		logger.Info().Str("url", identifier).Msg("Converted repository URL")
	}

	loc, err := repourl.Parse(identifier, repourl.Options{
		Kind:     opts.HostKind,
		Domain:   opts.HostDomain,
		Protocol: opts.HostProtocol,
		Getenv:   getenv,
	})
	if err != nil {
		return nil, err
	}
	logger = logger.WithRepository(loc.ProjectPath())

	token := opts.Token
	if token == "" {
		token = getenv(hostapi.TokenEnv(loc.Kind))
	}
	if token == "" {
		logger.Warn().Msgf("No token provided. Private repositories may not be accessible; set %s or pass a token", hostapi.TokenEnv(loc.Kind))
	}

	logger.Debug().
		Str("base_url", loc.HostBaseURL).
		Bool("token", token != "").
		Str("kind", string(loc.Kind)).
		Msg("Starting crawl")

	host := opts.Host
	if host == nil {
		rateLimit := hostapi.DefaultRetrierOptions()
		if opts.RateLimit != nil {
			rateLimit = *opts.RateLimit
		}
		host, err = hostapi.New(ctx, hostapi.Options{
			Locator:    loc,
			Token:      token,
			HTTPClient: opts.HTTPClient,
			RateLimit:  rateLimit,
			APIURL:     opts.APIURL,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
	}

	result := &domain.CrawlResult{
		Files: map[string]string{},
		Stats: domain.CrawlStats{
			SkippedFiles:    []domain.SkippedFile{},
			IncludePatterns: patterns.Include(),
			ExcludePatterns: patterns.Exclude(),
			HostKind:        loc.Kind,
			HostDomain:      loc.Domain,
			HostProtocol:    loc.Protocol,
		},
	}

	spec, err := resolver.New(resolver.Options{
		Host:     host,
		HasToken: token != "",
		Logger:   logger,
	}).Resolve(ctx, loc, opts.Ref)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBranchesUnavailable):
			result.Stats.Error = MsgBranchesUnavailable
		case errors.Is(err, domain.ErrNoMatchingRef):
			result.Stats.Error = MsgNoMatchingRef
		default:
			return nil, fmt.Errorf("failed to resolve reference: %w", err)
		}
		result.Stats.Duration = time.Since(start)
		return result, nil
	}

	result.Stats.Ref = spec.Ref
	if opts.UseRelativePaths {
		result.Stats.BasePath = spec.SpecificPath
	}

	acc := NewAccumulator()
	walker := NewWalker(WalkerOptions{
		Host:             host,
		Ref:              spec,
		Patterns:         patterns,
		MaxFileSize:      maxFileSize,
		UseRelativePaths: opts.UseRelativePaths,
		HasToken:         token != "",
		Logger:           logger,
		Progress:         opts.Progress,
	})
	if err := walker.Walk(ctx, spec.SpecificPath, acc); err != nil {
		return nil, err
	}

	result.Files = acc.Files
	result.Stats.SkippedFiles = append(result.Stats.SkippedFiles, acc.Skipped...)
	result.Stats.DownloadedCount = len(acc.Files)
	result.Stats.SkippedCount = len(acc.Skipped)
	result.Stats.Duration = time.Since(start)

	logger.Info().
		Int("downloaded", result.Stats.DownloadedCount).
		Int("skipped", result.Stats.SkippedCount).
		Str("ref", spec.Ref).
		Dur("duration", result.Stats.Duration).
		Msg("Crawl complete")

	return result, nil
}
