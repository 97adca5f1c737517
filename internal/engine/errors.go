// Package engine implements the per-connection HTTP/1.1 protocol state
// machine: request-line/header parsing, path resolution and sandboxing,
// response construction, and the driver-pushed connection loop.
package engine

import "errors"

// Parser errors.
var (
	// ErrMalformedRequestLine indicates the request line could not be parsed.
	ErrMalformedRequestLine = errors.New("engine: malformed request line")

	// ErrMalformedHeader indicates a header line could not be parsed.
	ErrMalformedHeader = errors.New("engine: malformed header line")

	// ErrMalformedHost indicates the Host header value could not be parsed.
	ErrMalformedHost = errors.New("engine: malformed Host header")

	// ErrHeaderLineTooLong indicates a single line exceeded MaxLineLength.
	ErrHeaderLineTooLong = errors.New("engine: header line too long")

	// ErrHeadersTooLarge indicates the accumulated header block exceeded MaxHeaderBytes.
	ErrHeadersTooLarge = errors.New("engine: request headers too large")
)

// Resolution errors (C4).
var (
	// ErrSandboxViolation indicates the canonicalised path escaped the document root.
	ErrSandboxViolation = errors.New("engine: path escapes document root")

	// ErrNotFound indicates the resolved file does not exist.
	ErrNotFound = errors.New("engine: file not found")

	// ErrIsDirectoryNoSlash indicates a directory was requested without a trailing slash.
	ErrIsDirectoryNoSlash = errors.New("engine: directory requested without trailing slash")

	// ErrMissingHost indicates no Host could be resolved for the request.
	ErrMissingHost = errors.New("engine: missing Host header")

	// ErrUnsupportedMethod indicates a method other than GET/HEAD was requested.
	ErrUnsupportedMethod = errors.New("engine: unsupported method")
)

// Connection-lifetime errors.
var (
	// ErrOpenFailed indicates a stat-ed file could not be opened for reading.
	ErrOpenFailed = errors.New("engine: open failed after stat succeeded")

	// ErrPayloadIO indicates an error reading the payload mid-transfer.
	ErrPayloadIO = errors.New("engine: payload read failed")
)
