package hostapi

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
)

// readLimited reads at most limit bytes of body. A larger body is drained so
// the exact size can be reported, and its data is dropped. A non-positive
// limit reads everything.
func readLimited(body io.Reader, contentLength, limit int64) (*domain.FileContent, error) {
	if limit > 0 && contentLength > limit {
		return &domain.FileContent{Size: contentLength}, nil
	}

	if limit <= 0 {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return &domain.FileContent{Data: data, Size: int64(len(data))}, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) <= limit {
		return &domain.FileContent{Data: data, Size: int64(len(data))}, nil
	}

	rest, err := io.Copy(io.Discard, body)
	if err != nil {
		return nil, fmt.Errorf("failed to drain body: %w", err)
	}
	return &domain.FileContent{Size: int64(len(data)) + rest}, nil
}

// contentCharset returns the lower-cased charset parameter of a Content-Type
// header, or "" when absent
func contentCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}
