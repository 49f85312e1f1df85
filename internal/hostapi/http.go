package hostapi

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/pkg/version"
)

const (
	// ConnectTimeout bounds establishing a connection
	ConnectTimeout = 30 * time.Second
	// ResponseTimeout bounds waiting for response headers
	ResponseTimeout = 30 * time.Second
)

// userAgent identifies the crawler to the host
var userAgent = version.UserAgent()

// NewHTTPClient returns a client with the fixed connect and response timeouts
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = ResponseTimeout
	transport.TLSHandshakeTimeout = ConnectTimeout

	return &http.Client{Transport: transport}
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an
// HTTP date
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// ParseResetEpoch parses a RateLimit-Reset header holding Unix seconds
func ParseResetEpoch(value string) time.Time {
	epoch, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}

func asAPIError(err error) (*domain.APIError, bool) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
