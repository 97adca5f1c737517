package engine

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/yourusername/mini-httpd/internal/statcache"
)

// state is one node of the C6 protocol engine state machine (spec.md §4.3).
type state int

const (
	stateReadRequestLine state = iota
	stateReadRequestHeader
	stateReadRequestBody
	stateSetupResponse
	stateWriteResponse
	stateTerminate
)

// Filesystem is the driver contract the engine consumes for file opening.
// It covers opening only: path canonicalisation and stat are not routed
// through it, Resolve performs them directly with path/filepath and os. The
// production implementation is backed by os; tests may substitute a fake.
type Filesystem interface {
	OpenRead(path string) (io.ReadCloser, error)
}

// osFilesystem is the production Filesystem, grounded on
// original_source/http-daemon.cpp opening the file with plain open(2)
// after the header has been queued.
type osFilesystem struct{}

func (osFilesystem) OpenRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// OSFilesystem is the default Filesystem used outside of tests.
var OSFilesystem Filesystem = osFilesystem{}

// MimeLookup resolves a filename to a Content-Type, per C7.
type MimeLookup func(filename string) string

// AccessLogger is called exactly once per completed response, after
// status_code and object_size are set, per spec.md §4.7 (C8).
type AccessLogger interface {
	Log(req *Request, peerAddr string)
}

// Connection is one per-connection instance of the protocol engine (C6). It
// is driver-pushed: the driver appends bytes via WritableRegion/BytesAppended
// and drains output via PendingOutput/BytesWritten, per spec.md §6.
//
// Grounded on shockwave/pkg/shockwave/http11/connection.go's per-connection
// object shape (one Connection per net.Conn, pooled parser/request/buffers),
// reworked from a blocking Serve() loop into the explicit, re-entrant,
// handler-table state machine original_source/http-daemon.cpp's operator()
// implements, per spec.md §4.3 and §9 ("Hand-rolled state machine").
type Connection struct {
	cfg       *Config
	mime      MimeLookup
	statCache *statcache.Cache
	fs        Filesystem
	logger    AccessLogger
	peerAddr  string

	input  *InputBuffer
	output *OutputBuffer
	req    Request

	state         state
	usePersistent bool

	payload          io.ReadCloser
	payloadRemaining int64
	usingFileSpan    bool
	headerBytes      int

	closed bool
}

// NewConnection constructs a Connection ready to accept bytes, starting in
// READ_REQUEST_LINE.
func NewConnection(cfg *Config, mime MimeLookup, statCache *statcache.Cache, fs Filesystem, logger AccessLogger, peerAddr string) *Connection {
	if fs == nil {
		fs = OSFilesystem
	}
	c := &Connection{
		cfg:       cfg,
		mime:      mime,
		statCache: statCache,
		fs:        fs,
		logger:    logger,
		peerAddr:  peerAddr,
		input:     NewInputBuffer(),
		output:    NewOutputBuffer(),
		state:     stateReadRequestLine,
	}
	c.req.StartTime = nowFunc()
	return c
}

// nowFunc is the driver's "now() -> wall time" contract (spec.md §6),
// overridable by tests.
var nowFunc = defaultNow

// WritableRegion returns the region the driver should deliver bytes into.
func (c *Connection) WritableRegion(n int) []byte {
	return c.input.Reserve(n)
}

// BytesAppended notifies the engine that n bytes were written into the most
// recent WritableRegion and runs the state machine until it can make no
// further progress without more input or output drainage. It returns false
// once the connection has reached TERMINATE.
func (c *Connection) BytesAppended(n int) bool {
	c.input.Append(n)
	return c.run()
}

// run steps through handlers while each step changes state or otherwise
// makes progress, yielding ("still running", true) when a handler reports
// "need more input" by leaving the state unchanged, per spec.md §4.3.
func (c *Connection) run() bool {
	for {
		before := c.state
		switch c.state {
		case stateReadRequestLine:
			c.stepReadRequestLine()
		case stateReadRequestHeader:
			c.stepReadRequestHeader()
		case stateReadRequestBody:
			c.state = stateSetupResponse
		case stateSetupResponse:
			c.stepSetupResponse()
		case stateWriteResponse:
			c.stepWriteResponse()
		case stateTerminate:
			return false
		}
		if c.state == before {
			return true
		}
	}
}

// PendingOutput returns the scatter list of spans the driver should write,
// per spec.md §4.1. A span with File set is eligible for the driver's
// sendfile(2) fast path (internal/payload) in place of an ordinary Write.
func (c *Connection) PendingOutput() []OutputSpan {
	return c.output.Commit()
}

// BytesWritten notifies the engine that n bytes of PendingOutput were
// drained, releasing any payload spans fully covered. Once a file-backed
// response span has fully drained, this also drives the WRITE_RESPONSE
// end-of-file transition and resumes the state machine, since
// stepWriteResponse never runs for a file span: restart may uncover a
// pipelined next request already sitting in the input buffer, which
// otherwise only run() (called from BytesAppended) would advance. When a
// streamed (block-read) payload's queued block has drained, this resumes
// the state machine so the next block is read.
func (c *Connection) BytesWritten(n int) {
	c.output.Flush(n)
	if c.usingFileSpan && c.output.Empty() {
		c.usingFileSpan = false
		c.payload = nil
		c.restart()
		c.run()
		return
	}
	if c.state == stateWriteResponse && c.output.Empty() {
		c.run()
	}
}

// Close releases all resources owned by this connection. Idempotent.
func (c *Connection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.payload != nil && !c.usingFileSpan {
		c.payload.Close()
		c.payload = nil
	}
	c.input.Release()
	c.output.Release()
}

// Terminated reports whether the state machine has reached TERMINATE.
func (c *Connection) Terminated() bool {
	return c.state == stateTerminate
}

func (c *Connection) stepReadRequestLine() {
	line, ok := c.nextLine()
	if !ok {
		return
	}
	if !ParseRequestLine(line, &c.req) {
		log.Printf("engine: %v: %q", ErrMalformedRequestLine, line)
		c.fail(400, "Bad Request", "malformed request line")
		return
	}
	c.state = stateReadRequestHeader
}

func (c *Connection) stepReadRequestHeader() {
	for {
		b := c.input.Bytes()
		if len(b) >= 2 && b[0] == '\r' && b[1] == '\n' {
			c.input.Consume(2)
			c.state = stateReadRequestBody
			return
		}
		line, ok := c.nextLine()
		if !ok {
			return
		}
		if len(line) == 0 {
			c.state = stateReadRequestBody
			return
		}
		c.headerBytes += len(line) + 2
		if c.headerBytes > MaxHeaderBytes {
			log.Printf("engine: %v: %d bytes", ErrHeadersTooLarge, c.headerBytes)
			c.fail(400, "Bad Request", "headers too large")
			return
		}
		name, value, ok := ParseHeaderLine(line)
		if !ok {
			log.Printf("engine: %v: %q", ErrMalformedHeader, line)
			c.fail(400, "Bad Request", "malformed header line")
			return
		}
		if !c.dispatchHeader(name, value) {
			return
		}
	}
}

// dispatchHeader handles one parsed header by case-insensitive name, per
// spec.md §4.3. Returns false if a fatal error response was queued.
func (c *Connection) dispatchHeader(name, value string) bool {
	switch {
	case equalFold(name, headerHost):
		host, port, ok := ParseHostHeader(value)
		if !ok {
			log.Printf("engine: %v: %q", ErrMalformedHost, value)
			c.fail(400, "Bad Request", "malformed Host header")
			return false
		}
		c.req.Host = host
		c.req.Port = port
	case equalFold(name, headerIfModifiedSince):
		if t, ok := ParseIfModifiedSince(value); ok {
			c.req.IfModifiedSince = &t
		}
	case equalFold(name, headerConnection):
		c.req.Connection = value
	case equalFold(name, headerKeepAlive):
		c.req.KeepAlive = value
	case equalFold(name, headerUserAgent):
		c.req.UserAgent = value
	case equalFold(name, headerReferer):
		c.req.Referer = value
	case equalFold(name, headerAcceptEncoding):
		c.req.AcceptEncoding = value
	default:
		// Unknown header names are logged and ignored, per spec.md §4.3.
		log.Printf("engine: ignoring unknown header %q", name)
	}
	return true
}

func (c *Connection) stepSetupResponse() {
	c.usePersistent = IsPersistent(&c.req)

	if c.req.Method != "GET" && c.req.Method != "HEAD" {
		log.Printf("engine: %v: %q", ErrUnsupportedMethod, c.req.Method)
		c.fail(400, "Bad Request", c.req.Method)
		return
	}

	host, _, ok := ResolveHost(&c.req, c.cfg)
	if !ok {
		log.Printf("engine: %v", ErrMissingHost)
		c.fail(400, "Bad Request", "missing Host")
		return
	}
	c.req.Host = host

	resolution, err := Resolve(host, c.req.URL.Path, c.cfg, c.statCache)
	if err == ErrIsDirectoryNoSlash {
		c.redirect(301, RedirectLocation(host, c.req.Port, c.req.URL.Path+"/"))
		return
	}
	if err != nil {
		log.Printf("engine: resolve failed for %s%s: %v", host, c.req.URL.Path, err)
		c.fail(404, "Not Found", "")
		return
	}

	if IsNotModified(&c.req, resolution.Info.ModTime()) {
		c.req.StatusCode = 304
		c.req.ObjectSize = 0
		WriteNotModified(c.output, c.cfg, c.usePersistent)
		c.logAndRestart()
		return
	}

	contentType := c.mime(resolution.CanonicalPath)
	size := resolution.Info.Size()

	c.req.StatusCode = 200
	if c.req.Method == "HEAD" {
		c.req.ObjectSize = 0
		WriteSuccessResponse(c.output, c.cfg, contentType, size, resolution.Info.ModTime(), c.usePersistent)
		c.logAndRestart()
		return
	}

	if c.cfg.EnableCompression && Compressible(contentType) {
		if encoding, ok := NegotiateEncoding(c.req.AcceptEncoding); ok {
			if c.setupCompressedResponse(resolution.CanonicalPath, contentType, encoding, resolution.Info.ModTime()) {
				return
			}
		}
	}

	c.req.ObjectSize = size
	WriteSuccessResponse(c.output, c.cfg, contentType, size, resolution.Info.ModTime(), c.usePersistent)

	f, err := c.fs.OpenRead(resolution.CanonicalPath)
	if err != nil {
		log.Printf("engine: %v: %q: %v", ErrOpenFailed, resolution.CanonicalPath, err)
		c.usePersistent = false
		c.state = stateTerminate
		return
	}

	// A Filesystem backed by a real *os.File is eligible for the driver's
	// sendfile(2) fast path: queue it as a file span and let BytesWritten
	// drive completion instead of stepWriteResponse's block-read loop.
	if osFile, ok := f.(*os.File); ok {
		c.payload = osFile
		c.usingFileSpan = true
		c.output.PushFile(osFile, size, func() { osFile.Close() })
		c.state = stateWriteResponse
		return
	}

	c.payload = f
	c.payloadRemaining = size
	c.state = stateWriteResponse
}

// setupCompressedResponse reads the whole file, compresses it, and queues
// a header with the recomputed Content-Length followed by the complete
// compressed body as a single span. Streaming compression isn't possible
// here without either buffering (what this does) or leaving
// Content-Length unknown until the stream ends, which spec.md §4.4 rules
// out ("Content-Length equals the number of body bytes the engine
// actually enqueues"). Returns false (caller falls back to the
// uncompressed path) if the read or compression fails.
func (c *Connection) setupCompressedResponse(path, contentType, encoding string, modTime time.Time) bool {
	f, err := c.fs.OpenRead(path)
	if err != nil {
		return false
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return false
	}
	compressed, err := Compress(encoding, raw)
	if err != nil {
		return false
	}

	c.req.ObjectSize = int64(len(compressed))
	WriteSuccessResponseEncoded(c.output, c.cfg, contentType, encoding, int64(len(compressed)), modTime, c.usePersistent)
	c.output.Write(compressed)
	c.logAndRestart()
	return true
}

func (c *Connection) stepWriteResponse() {
	if c.usingFileSpan {
		// The file span was already queued in stepSetupResponse; completion
		// is driven by BytesWritten once the driver has flushed it.
		return
	}
	if c.payloadRemaining <= 0 {
		c.finishPayload()
		c.restart()
		return
	}

	toRead := int64(sendfileBlockSize)
	if c.payloadRemaining < toRead {
		toRead = c.payloadRemaining
	}
	buf := make([]byte, toRead)
	n, err := io.ReadFull(c.payload, buf)
	if n > 0 {
		c.output.PushOwned(buf[:n], nil)
		c.payloadRemaining -= int64(n)
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		log.Printf("engine: %v: %v", ErrPayloadIO, err)
		c.finishPayload()
		c.usePersistent = false
		c.state = stateTerminate
		return
	}
	if c.payloadRemaining <= 0 {
		c.finishPayload()
		c.restart()
	}
}

func (c *Connection) finishPayload() {
	if c.payload != nil {
		c.payload.Close()
		c.payload = nil
	}
}

// restart implements spec.md §4.3's WRITE_RESPONSE end-of-file transition:
// reset the request for the next one on this connection, or terminate.
func (c *Connection) restart() {
	c.logComplete()
	if !c.usePersistent {
		c.state = stateTerminate
		return
	}
	c.req.Reset()
	c.req.StartTime = nowFunc()
	c.headerBytes = 0
	c.state = stateReadRequestLine
}

func (c *Connection) logAndRestart() {
	c.restart()
}

func (c *Connection) logComplete() {
	if c.logger != nil {
		c.logger.Log(&c.req, c.peerAddr)
	}
}

// fail queues a 400/404 error response and terminates the connection, per
// spec.md §4.5 and §7: all three standard error codes set
// use_persistent = false and terminate after emission.
func (c *Connection) fail(code int, title, detail string) {
	c.req.StatusCode = code
	c.usePersistent = false
	body := ErrorBody(title, detail)
	WriteErrorResponse(c.output, c.cfg, code, body, "", c.req.HasConnectionHeader())
	c.logComplete()
	c.state = stateTerminate
}

// redirect queues a 301 response and terminates the connection.
func (c *Connection) redirect(code int, location string) {
	c.req.StatusCode = code
	c.usePersistent = false
	body := ErrorBody("Moved Permanently", "")
	WriteErrorResponse(c.output, c.cfg, code, body, location, c.req.HasConnectionHeader())
	c.logComplete()
	c.state = stateTerminate
}

// nextLine returns the next CRLF-terminated line (without the CRLF) from
// the input buffer and consumes it, or ok=false if no full line is
// buffered yet. A line (including CRLF) exceeding MaxLineLength is fatal
// per spec.md §5's resource cap.
func (c *Connection) nextLine() (line []byte, ok bool) {
	b := c.input.Bytes()
	idx := findCRLF(b)
	if idx == -1 {
		if len(b) > MaxLineLength {
			log.Printf("engine: %v: %d bytes", ErrHeaderLineTooLong, len(b))
			c.fail(400, "Bad Request", "header line too long")
		}
		return nil, false
	}
	if idx+2 > MaxLineLength {
		log.Printf("engine: %v: %d bytes", ErrHeaderLineTooLong, idx+2)
		c.fail(400, "Bad Request", "header line too long")
		return nil, false
	}
	line = make([]byte, idx)
	copy(line, b[:idx])
	c.input.Consume(idx + 2)
	return line, true
}
