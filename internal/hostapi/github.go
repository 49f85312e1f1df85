package hostapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
	"golang.org/x/oauth2"
)

const githubPerPage = 100

// GitHubOptions configures a GitHub host
type GitHubOptions struct {
	// BaseURL is "<protocol>://<domain>". Anything other than github.com is
	// treated as a GitHub Enterprise Server.
	BaseURL string
	// APIURL overrides the REST root, e.g. for a test server
	APIURL     string
	Owner      string
	Repo       string
	Token      string
	HTTPClient *http.Client
	Retrier    *Retrier
	Logger     *utils.Logger
}

// GitHub implements domain.Host through go-github
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	retrier *Retrier
	logger  *utils.Logger
}

// NewGitHub creates a GitHub host for one repository
func NewGitHub(ctx context.Context, opts GitHubOptions) (*GitHub, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient()
	}
	if opts.Retrier == nil {
		opts.Retrier = NewRetrier(DefaultRetrierOptions())
	}

	httpClient := opts.HTTPClient
	if opts.Token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	client.UserAgent = userAgent

	switch {
	case opts.APIURL != "":
		apiURL, err := url.Parse(strings.TrimRight(opts.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", opts.APIURL, err)
		}
		client.BaseURL = apiURL
	case opts.BaseURL != "" && !isPublicGitHub(opts.BaseURL):
		var err error
		client, err = client.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid enterprise URL %q: %w", opts.BaseURL, err)
		}
	}

	return &GitHub{
		client:  client,
		owner:   opts.Owner,
		repo:    opts.Repo,
		retrier: opts.Retrier,
		logger:  opts.Logger.OrNop().WithComponent("github"),
	}, nil
}

func isPublicGitHub(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || host == "api.github.com"
}

// Kind implements domain.Host
func (g *GitHub) Kind() domain.HostKind {
	return domain.HostGitHub
}

// ListBranches implements domain.Host
func (g *GitHub) ListBranches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: githubPerPage}}

	for {
		var (
			branches []*github.Branch
			resp     *github.Response
		)
		err := g.retrier.Do(ctx, func() error {
			var err error
			branches, resp, err = g.client.Repositories.ListBranches(ctx, g.owner, g.repo, opts)
			g.logRequest(OpListBranches, resp)
			return g.mapError(OpListBranches, resp, err)
		})
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}
		if resp == nil || resp.NextPage == 0 || resp.NextPage <= opts.Page {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// CommitExists implements domain.Host
func (g *GitHub) CommitExists(ctx context.Context, sha string) (bool, error) {
	err := g.retrier.Do(ctx, func() error {
		_, resp, err := g.client.Repositories.GetCommit(ctx, g.owner, g.repo, sha, nil)
		g.logRequest(OpGetCommit, resp)
		return g.mapError(OpGetCommit, resp, err)
	})
	if err != nil {
		// unknown SHAs come back as 422 from GitHub
		switch domain.StatusCode(err) {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListTree implements domain.Host
func (g *GitHub) ListTree(ctx context.Context, dir string, ref domain.ReferenceSpec) ([]domain.TreeEntry, error) {
	var listing []*github.RepositoryContent
	err := g.retrier.Do(ctx, func() error {
		file, dirContent, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dir, contentOptions(ref))
		g.logRequest(OpListTree, resp)
		if err != nil {
			return g.mapError(OpListTree, resp, err)
		}
		if file != nil {
			return domain.NewAPIError(OpListTree, dir, http.StatusBadRequest, []byte("path is a file"))
		}
		listing = dirContent
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TreeEntry, 0, len(listing))
	for _, c := range listing {
		var typ domain.EntryType
		switch c.GetType() {
		case "file", "symlink":
			typ = domain.EntryBlob
		case "dir":
			typ = domain.EntryTree
		default:
			continue
		}
		entries = append(entries, domain.TreeEntry{Path: c.GetPath(), Name: c.GetName(), Type: typ})
	}
	return entries, nil
}

// FetchFile implements domain.Host. Files are returned inline by the contents
// API up to 1 MB; larger ones come back with encoding "none" and are
// downloaded separately.
func (g *GitHub) FetchFile(ctx context.Context, path string, ref domain.ReferenceSpec, limit int64) (*domain.FileContent, error) {
	var file *github.RepositoryContent
	err := g.retrier.Do(ctx, func() error {
		f, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, contentOptions(ref))
		g.logRequest(OpFetchFile, resp)
		if err != nil {
			return g.mapError(OpFetchFile, resp, err)
		}
		if f == nil {
			return domain.NewAPIError(OpFetchFile, path, http.StatusBadRequest, []byte("path is a directory"))
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	size := int64(file.GetSize())
	if limit > 0 && size > limit {
		return &domain.FileContent{Size: size}, nil
	}

	if file.GetEncoding() != "none" {
		text, err := file.GetContent()
		if err != nil {
			return nil, &domain.APIError{Op: OpFetchFile, URL: path, Err: err}
		}
		return readLimited(strings.NewReader(text), int64(len(text)), limit)
	}

	return RetryWithValue(ctx, g.retrier, func() (*domain.FileContent, error) {
		rc, resp, err := g.client.Repositories.DownloadContents(ctx, g.owner, g.repo, path, contentOptions(ref))
		g.logRequest(OpFetchFile, resp)
		if err != nil {
			return nil, g.mapError(OpFetchFile, resp, err)
		}
		defer rc.Close()
		return readLimited(rc, -1, limit)
	})
}

func contentOptions(ref domain.ReferenceSpec) *github.RepositoryContentGetOptions {
	if !ref.HasRef {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: ref.Ref}
}

func (g *GitHub) logRequest(op string, resp *github.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	event := g.logger.Debug().Str("op", op).Int("status", resp.StatusCode)
	if resp.Request != nil {
		event = event.Str("url", resp.Request.URL.String())
	}
	event.Msg("Host request")
}

// mapError converts go-github errors into domain errors
func (g *GitHub) mapError(op string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.RateLimitError{Op: op, Reset: rateErr.Rate.Reset.Time}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var wait time.Duration
		if abuseErr.RetryAfter != nil {
			wait = *abuseErr.RetryAfter
		}
		return &domain.RateLimitError{Op: op, RetryAfter: wait}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		target := ""
		if respErr.Response.Request != nil {
			target = respErr.Response.Request.URL.String()
		}
		if status == http.StatusTooManyRequests {
			return &domain.RateLimitError{
				Op:         op,
				RetryAfter: ParseRetryAfter(respErr.Response.Header.Get("Retry-After"), time.Now()),
			}
		}
		apiErr := domain.NewAPIError(op, target, status, []byte(respErr.Message))
		apiErr.Err = err
		return apiErr
	}

	if resp != nil && resp.Response != nil {
		return &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return &domain.APIError{Op: op, Err: err}
}
