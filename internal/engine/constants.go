package engine

// Limits, grounded in the teacher's own MaxRequestLineSize/MaxHeadersSize
// (shockwave/pkg/shockwave/http11/constants.go), which the source repo
// notes as an explicit TODO ("pick a bound... and enforce it with a 400").
const (
	// MaxLineLength bounds a single request-line or header-line, including CRLF.
	MaxLineLength = 8192

	// MaxHeaderBytes bounds the accumulated size of all header lines for one request.
	MaxHeaderBytes = 8192

	// DefaultReadBufferSize is the initial capacity of a connection's input buffer.
	DefaultReadBufferSize = 1024

	// sendfileBlockSize is used by the portable (non-sendfile) streaming payload path.
	sendfileBlockSize = 64 * 1024
)

// reasonPhraseFor returns the fixed reason phrase for the status codes this
// engine ever emits (spec.md §1: only 200, 301, 304, 400, 404 are produced).
func reasonPhraseFor(code int) string {
	switch code {
	case 200:
		return "OK"
	case 301:
		return "Moved Permanently"
	case 304:
		return "Not Modified"
	case 404:
		return "Not Found"
	default:
		return "Bad Request"
	}
}

const (
	headerConnection      = "Connection"
	headerHost            = "Host"
	headerIfModifiedSince = "If-Modified-Since"
	headerKeepAlive       = "Keep-Alive"
	headerUserAgent       = "User-Agent"
	headerReferer         = "Referer"
	headerAcceptEncoding  = "Accept-Encoding"

	tokenClose     = "close"
	tokenKeepAlive = "keep-alive"
)
