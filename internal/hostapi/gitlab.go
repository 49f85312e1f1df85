package hostapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"
)

const gitlabPerPage = 100

// GitLabOptions configures a GitLab host
type GitLabOptions struct {
	// BaseURL is "<protocol>://<domain>"
	BaseURL string
	// Project is "namespace/project"
	Project    string
	Token      string
	HTTPClient *http.Client
	Retrier    *Retrier
	Logger     *utils.Logger
}

// GitLab implements domain.Host over the GitLab REST v4 API
type GitLab struct {
	client  *gl.Client
	project string
	retrier *Retrier
	logger  *utils.Logger
}

// NewGitLab creates a GitLab host for one project. Retries and throttling
// are left to the Retrier, so the client's own are switched off.
func NewGitLab(opts GitLabOptions) (*GitLab, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient()
	}
	if opts.Retrier == nil {
		opts.Retrier = NewRetrier(DefaultRetrierOptions())
	}

	client, err := gl.NewClient(opts.Token,
		gl.WithBaseURL(opts.BaseURL),
		gl.WithHTTPClient(opts.HTTPClient),
		gl.WithCustomRetryMax(0),
		gl.WithCustomLimiter(rate.NewLimiter(rate.Inf, 0)),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid GitLab URL %q: %w", opts.BaseURL, err)
	}
	client.UserAgent = userAgent

	return &GitLab{
		client:  client,
		project: opts.Project,
		retrier: opts.Retrier,
		logger:  opts.Logger.OrNop().WithComponent("gitlab"),
	}, nil
}

// Kind implements domain.Host
func (g *GitLab) Kind() domain.HostKind {
	return domain.HostGitLab
}

// ListBranches implements domain.Host
func (g *GitLab) ListBranches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &gl.ListBranchesOptions{ListOptions: gl.ListOptions{PerPage: gitlabPerPage}}

	for {
		var (
			branches []*gl.Branch
			resp     *gl.Response
		)
		err := g.retrier.Do(ctx, func() error {
			var err error
			branches, resp, err = g.client.Branches.ListBranches(g.project, opts, gl.WithContext(ctx))
			g.logRequest(OpListBranches, resp)
			return g.mapError(OpListBranches, resp, err)
		})
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			names = append(names, b.Name)
		}
		if resp == nil || resp.NextPage == 0 || resp.NextPage <= opts.Page {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// CommitExists implements domain.Host
func (g *GitLab) CommitExists(ctx context.Context, sha string) (bool, error) {
	err := g.retrier.Do(ctx, func() error {
		_, resp, err := g.client.Commits.GetCommit(g.project, sha, nil, gl.WithContext(ctx))
		g.logRequest(OpGetCommit, resp)
		return g.mapError(OpGetCommit, resp, err)
	})
	if err != nil {
		if domain.StatusCode(err) == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListTree implements domain.Host. Only one level is listed; an unresolved
// ref leaves the ref parameter out so the host picks its default branch.
func (g *GitLab) ListTree(ctx context.Context, dir string, ref domain.ReferenceSpec) ([]domain.TreeEntry, error) {
	opts := &gl.ListTreeOptions{
		ListOptions: gl.ListOptions{PerPage: gitlabPerPage},
		Recursive:   gl.Ptr(false),
	}
	if dir != "" {
		opts.Path = gl.Ptr(dir)
	}
	if ref.HasRef {
		opts.Ref = gl.Ptr(ref.Ref)
	}

	var entries []domain.TreeEntry
	for {
		var (
			nodes []*gl.TreeNode
			resp  *gl.Response
		)
		err := g.retrier.Do(ctx, func() error {
			var err error
			nodes, resp, err = g.client.Repositories.ListTree(g.project, opts, gl.WithContext(ctx))
			g.logRequest(OpListTree, resp)
			return g.mapError(OpListTree, resp, err)
		})
		if err != nil {
			return nil, err
		}

		for _, node := range nodes {
			var typ domain.EntryType
			switch node.Type {
			case "blob":
				typ = domain.EntryBlob
			case "tree":
				typ = domain.EntryTree
			default:
				// submodules are listed as "commit"
				continue
			}
			entries = append(entries, domain.TreeEntry{Path: node.Path, Name: node.Name, Type: typ})
		}

		if resp == nil || resp.NextPage == 0 || resp.NextPage <= opts.Page {
			break
		}
		opts.Page = resp.NextPage
	}
	return entries, nil
}

// FetchFile implements domain.Host
func (g *GitLab) FetchFile(ctx context.Context, path string, ref domain.ReferenceSpec, limit int64) (*domain.FileContent, error) {
	opts := &gl.GetRawFileOptions{}
	if ref.HasRef {
		opts.Ref = gl.Ptr(ref.Ref)
	}

	return RetryWithValue(ctx, g.retrier, func() (*domain.FileContent, error) {
		raw, resp, err := g.client.RepositoryFiles.GetRawFile(g.project, path, opts, gl.WithContext(ctx))
		g.logRequest(OpFetchFile, resp)
		if err != nil {
			return nil, g.mapError(OpFetchFile, resp, err)
		}

		content, err := readLimited(bytes.NewReader(raw), int64(len(raw)), limit)
		if err != nil {
			return nil, &domain.APIError{Op: OpFetchFile, URL: path, Err: err}
		}
		if resp != nil && resp.Response != nil {
			content.Charset = contentCharset(resp.Header.Get("Content-Type"))
		}
		return content, nil
	})
}

func (g *GitLab) logRequest(op string, resp *gl.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	event := g.logger.Debug().Str("op", op).Int("status", resp.StatusCode)
	if resp.Request != nil {
		event = event.Str("url", resp.Request.URL.String())
	}
	event.Msg("Host request")
}

// mapError converts client-go errors into domain errors
func (g *GitLab) mapError(op string, resp *gl.Response, err error) error {
	if err == nil {
		return nil
	}

	var httpResp *http.Response
	var message string
	var respErr *gl.ErrorResponse
	if errors.As(err, &respErr) {
		httpResp = respErr.Response
		message = respErr.Message
	}
	if httpResp == nil && resp != nil {
		httpResp = resp.Response
	}
	if httpResp == nil {
		return &domain.APIError{Op: op, Err: err}
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return &domain.RateLimitError{
			Op:         op,
			Reset:      ParseResetEpoch(httpResp.Header.Get("RateLimit-Reset")),
			RetryAfter: ParseRetryAfter(httpResp.Header.Get("Retry-After"), time.Now()),
		}
	}

	target := ""
	if httpResp.Request != nil {
		target = httpResp.Request.URL.String()
	}
	apiErr := domain.NewAPIError(op, target, httpResp.StatusCode, []byte(message))
	apiErr.Err = err
	return apiErr
}
