package crawler

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// DecodeText converts a fetched file into text. Content declared in a
// charset other than UTF-8 is transcoded; anything that is not valid UTF-8
// afterwards, or that contains NUL bytes, is reported as binary.
func DecodeText(content *domain.FileContent) (string, error) {
	data := content.Data

	switch content.Charset {
	case "", "utf-8", "utf8", "us-ascii":
	default:
		enc, name := charset.Lookup(content.Charset)
		if enc == nil {
			return "", fmt.Errorf("%w: unknown charset %q", domain.ErrBinaryContent, content.Charset)
		}
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("%w: decoding %s: %v", domain.ErrBinaryContent, name, err)
		}
		data = decoded
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid UTF-8", domain.ErrBinaryContent)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%w: NUL byte", domain.ErrBinaryContent)
	}
	return string(data), nil
}
