package hostapi

import (
	"fmt"
	"net/http"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
)

// Operation names used in errors and diagnostics
const (
	OpListBranches = "list branches"
	OpGetCommit    = "get commit"
	OpListTree     = "list tree"
	OpFetchFile    = "fetch file"
)

// TokenEnv returns the environment variable consulted for a host's token
func TokenEnv(kind domain.HostKind) string {
	if kind == domain.HostGitHub {
		return "GITHUB_TOKEN"
	}
	return "GITLAB_TOKEN"
}

// Diagnose turns a failed call into a human-readable hint. The wording
// depends on whether a token was supplied, since a private repository looks
// exactly like a missing one to an anonymous caller.
func Diagnose(kind domain.HostKind, op string, status int, hasToken bool, path string) string {
	env := TokenEnv(kind)
	switch status {
	case http.StatusNotFound:
		if !hasToken {
			return fmt.Sprintf("repository not found or is private; provide a token with --token or %s", env)
		}
		if path != "" {
			return fmt.Sprintf("path %q not found, or the token has no access to this repository", path)
		}
		return "repository not found, or the token has no access to this repository"
	case http.StatusUnauthorized:
		return fmt.Sprintf("authentication failed; check that %s holds a valid token", env)
	case http.StatusForbidden:
		if !hasToken {
			return "access forbidden; the repository may require a token"
		}
		return "access forbidden; the token may lack the read_repository scope"
	case http.StatusBadRequest:
		return fmt.Sprintf("bad request during %s; check the path encoding and the ref", op)
	case 0:
		return fmt.Sprintf("%s failed", op)
	default:
		return fmt.Sprintf("%s returned unexpected status %d", op, status)
	}
}

// DiagnoseError extracts the status from err and diagnoses it
func DiagnoseError(kind domain.HostKind, err error, hasToken bool, path string) string {
	op := ""
	if apiErr, ok := asAPIError(err); ok {
		op = apiErr.Op
	}
	return Diagnose(kind, op, domain.StatusCode(err), hasToken, path)
}
