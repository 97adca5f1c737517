package engine

import (
	"bytes"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// compressibleTypes is the text MIME-type allowlist for response
// compression (SPEC_FULL.md §4.B). Compressing already-compressed media
// (images, video, archives) wastes CPU for no size benefit, so the
// allowlist is restricted to textual content.
var compressibleTypes = map[string]bool{
	"text/html":                true,
	"text/plain":               true,
	"text/css":                 true,
	"text/csv":                 true,
	"text/xml":                 true,
	"application/javascript":   true,
	"application/x-javascript": true,
	"application/json":         true,
	"application/xml":          true,
	"image/svg+xml":            true,
}

// Compressible reports whether contentType is eligible for response
// compression. Parameters (e.g. "; charset=utf-8") are ignored.
func Compressible(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i != -1 {
		contentType = contentType[:i]
	}
	return compressibleTypes[strings.TrimSpace(contentType)]
}

// NegotiateEncoding picks a response content-coding from an Accept-Encoding
// header value, preferring brotli over gzip when both are acceptable.
// Returns ok=false if neither is acceptable.
func NegotiateEncoding(acceptEncoding string) (encoding string, ok bool) {
	if acceptEncoding == "" {
		return "", false
	}
	if containsToken(acceptEncoding, "br") {
		return "br", true
	}
	if containsToken(acceptEncoding, "gzip") {
		return "gzip", true
	}
	return "", false
}

// Compress returns data encoded with the given content-coding ("br" or
// "gzip"). The caller is responsible for only invoking this when
// Compressible and NegotiateEncoding have both agreed, and for recomputing
// Content-Length from the result (SPEC_FULL.md §4.B: Content-Length is the
// compressed length).
func Compress(encoding string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch encoding {
	case "br":
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "gzip":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}
	return buf.Bytes(), nil
}
