package engine

import (
	"strconv"
	"strings"
	"time"
)

// persistentToken returns the exact Connection header value §8 requires:
// "keep-alive" when the connection survives this response, "close" otherwise.
func persistentToken(persistent bool) string {
	if persistent {
		return tokenKeepAlive
	}
	return tokenClose
}

// writeStatusLine writes "HTTP/major.minor code reason\r\n". Responses are
// always HTTP/1.1 per spec.md §6 ("emits HTTP/1.1 responses"), regardless of
// the request's version.
func writeStatusLine(ob *OutputBuffer, code int) {
	ob.Write([]byte("HTTP/1.1 "))
	ob.Write([]byte(strconv.Itoa(code)))
	ob.Write([]byte(" "))
	ob.Write([]byte(reasonPhraseFor(code)))
	ob.Write(crlf)
}

var crlf = []byte("\r\n")

func writeHeaderLine(ob *OutputBuffer, name, value string) {
	ob.Write([]byte(name))
	ob.Write([]byte(": "))
	ob.Write([]byte(value))
	ob.Write(crlf)
}

func writeServerAndDate(ob *OutputBuffer, cfg *Config) {
	if cfg.ServerString != "" {
		writeHeaderLine(ob, "Server", cfg.ServerString)
	}
	writeHeaderLine(ob, "Date", httpDate())
}

// WriteSuccessResponse queues a 200 response header in the exact order
// spec.md §4.4 specifies. The caller enters WRITE_RESPONSE (for GET) or
// restarts directly (for HEAD) afterward.
func WriteSuccessResponse(ob *OutputBuffer, cfg *Config, contentType string, contentLength int64, lastModified time.Time, persistent bool) {
	WriteSuccessResponseEncoded(ob, cfg, contentType, "", contentLength, lastModified, persistent)
}

// WriteSuccessResponseEncoded is WriteSuccessResponse with an additional
// Content-Encoding header (SPEC_FULL.md §4.B), emitted between Content-Type
// and Content-Length when contentEncoding is non-empty.
func WriteSuccessResponseEncoded(ob *OutputBuffer, cfg *Config, contentType, contentEncoding string, contentLength int64, lastModified time.Time, persistent bool) {
	writeStatusLine(ob, 200)
	writeServerAndDate(ob, cfg)
	writeHeaderLine(ob, "Content-Type", contentType)
	if contentEncoding != "" {
		writeHeaderLine(ob, "Content-Encoding", contentEncoding)
	}
	writeHeaderLine(ob, "Content-Length", strconv.FormatInt(contentLength, 10))
	writeHeaderLine(ob, "Last-Modified", rfc1123GMT(lastModified))
	writeHeaderLine(ob, "Connection", persistentToken(persistent))
	ob.Write(crlf)
}

// WriteNotModified queues a 304 response: no body, only Server (when
// configured), Date and Connection, per spec.md §4.5. The connection is NOT terminated; it restarts.
func WriteNotModified(ob *OutputBuffer, cfg *Config, persistent bool) {
	writeStatusLine(ob, 304)
	writeServerAndDate(ob, cfg)
	writeHeaderLine(ob, "Connection", persistentToken(persistent))
	ob.Write(crlf)
}

// WriteErrorResponse queues a 400/404/301 response per spec.md §4.5's shared
// skeleton. location is only used (and only emitted) for 301.
// hadConnectionHeader reports whether the request carried a Connection header at all — the
// "Connection: close" line is only emitted in that case, but
// use_persistent is unconditionally false for all three codes.
func WriteErrorResponse(ob *OutputBuffer, cfg *Config, code int, body string, location string, hadConnectionHeader bool) {
	writeStatusLine(ob, code)
	writeServerAndDate(ob, cfg)
	writeHeaderLine(ob, "Content-Type", "text/html")
	if code == 301 && location != "" {
		writeHeaderLine(ob, "Location", location)
	}
	if hadConnectionHeader {
		writeHeaderLine(ob, "Connection", tokenClose)
	}
	ob.Write(crlf)
	ob.Write([]byte(body))
}

// RedirectLocation builds the Location header value for a 301 directory
// redirect, per spec.md §4.5: "uses the request host, includes the port
// only if non-zero and not 80, and uses the supplied path."
func RedirectLocation(host string, port uint16, path string) string {
	var b strings.Builder
	b.WriteString("http://")
	b.WriteString(host)
	if port != 0 && port != 80 {
		b.WriteString(":")
		b.WriteString(strconv.FormatUint(uint64(port), 10))
	}
	b.WriteString(path)
	return b.String()
}

// ErrorBody renders the small HTML body shared by the 400/404/301 responses.
// detail is HTML-escaped before insertion, per spec.md §8 scenario 6 ("body
// contains the echoed method HTML-escaped").
func ErrorBody(title, detail string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(title)
	b.WriteString("</title></head><body><h1>")
	b.WriteString(title)
	b.WriteString("</h1>")
	if detail != "" {
		b.WriteString("<p>")
		b.WriteString(htmlEscape(detail))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func htmlEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// IsPersistent implements the persistent-connection decision of spec.md
// §4.3: true iff HTTP/1.1 and Connection does not contain "close", or
// HTTP/1.0 and Connection contains "keep-alive".
func IsPersistent(req *Request) bool {
	if req.MajorVersion == 1 && req.MinorVersion >= 1 {
		return !req.ConnectionHasToken(tokenClose)
	}
	return req.ConnectionHasToken(tokenKeepAlive)
}
