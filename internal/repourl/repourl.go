package repourl

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
)

const (
	DefaultGitLabDomain = "gitlab.com"
	DefaultGitHubDomain = "github.com"
	DefaultProtocol     = "https"
)

var sshUserPrefix = regexp.MustCompile(`^[^@/:\s]+@`)

// Options carries caller overrides for the host. Empty fields fall back to
// the environment, then to the identifier's own host, then to public defaults.
type Options struct {
	Kind     domain.HostKind
	Domain   string
	Protocol string
	// Getenv is used for environment lookups. Defaults to os.Getenv.
	Getenv func(string) string
}

// IsSSH reports whether the identifier needs rewriting before it can be
// parsed as an HTTP URL
func IsSSH(identifier string) bool {
	return sshUserPrefix.MatchString(identifier) || strings.HasSuffix(identifier, ".git")
}

// Normalize rewrites SSH-style identifiers into <protocol>://<host>/<path>
// and strips a trailing ".git". When the SSH form cannot be split into
// exactly host and path the identifier is returned unchanged together with a
// non-fatal ErrUnparseableSSH warning.
func Normalize(identifier, protocol string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if !IsSSH(identifier) {
		return identifier, nil
	}

	protocol = NormalizeProtocol(protocol)

	if sshUserPrefix.MatchString(identifier) {
		rest := identifier[strings.Index(identifier, "@")+1:]
		parts := strings.Split(rest, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return identifier, fmt.Errorf("%w: %s", domain.ErrUnparseableSSH, identifier)
		}
		path := strings.TrimPrefix(strings.TrimSuffix(parts[1], ".git"), "/")
		return fmt.Sprintf("%s://%s/%s", protocol, parts[0], path), nil
	}

	return strings.TrimSuffix(identifier, ".git"), nil
}

// NormalizeProtocol restricts the protocol to http or https
func NormalizeProtocol(protocol string) string {
	switch p := strings.ToLower(strings.TrimSpace(protocol)); p {
	case "http", "https":
		return p
	default:
		return DefaultProtocol
	}
}

// Segments splits the path of a URL into unescaped segments. Segments are cut
// on the escaped path so an encoded slash ("release%2F2.0") stays in one
// segment.
func Segments(u *url.URL) []string {
	raw := strings.Trim(u.EscapedPath(), "/")
	parts := strings.Split(raw, "/")
	for i, p := range parts {
		if unescaped, err := url.PathUnescape(p); err == nil {
			parts[i] = unescaped
		}
	}
	return parts
}

// Parse builds a RepositoryLocator from an already normalized identifier
func Parse(identifier string, opts Options) (*domain.RepositoryLocator, error) {
	u, err := url.Parse(identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidRepoURL, identifier, err)
	}

	segments := Segments(u)
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRepoURL, identifier)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	kind := detectKind(opts.Kind, opts.Domain, u.Hostname())
	envPrefix := "GITLAB"
	defaultDomain := DefaultGitLabDomain
	if kind == domain.HostGitHub {
		envPrefix = "GITHUB"
		defaultDomain = DefaultGitHubDomain
	}

	host := firstNonEmpty(opts.Domain, getenv(envPrefix+"_DOMAIN"), u.Host, defaultDomain)
	protocol := NormalizeProtocol(firstNonEmpty(opts.Protocol, getenv(envPrefix+"_PROTOCOL")))

	return &domain.RepositoryLocator{
		Kind:        kind,
		Namespace:   segments[0],
		Project:     segments[1],
		Domain:      host,
		Protocol:    protocol,
		HostBaseURL: protocol + "://" + host,
		Segments:    segments,
	}, nil
}

func detectKind(kind domain.HostKind, domainOverride, urlHost string) domain.HostKind {
	switch kind {
	case domain.HostGitLab, domain.HostGitHub:
		return kind
	}
	candidate := strings.ToLower(firstNonEmpty(domainOverride, urlHost))
	if strings.Contains(candidate, "github") {
		return domain.HostGitHub
	}
	return domain.HostGitLab
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
