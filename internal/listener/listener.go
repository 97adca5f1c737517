// Package listener wraps net.Listen with the socket tuning the accept loop
// (the out-of-scope TCP acceptor collaborator, spec.md §1) applies before
// handing connections to the protocol engine.
//
// Adapted from shockwave/pkg/shockwave/socket/tuning.go's Config/Apply
// shape, narrowed to the handful of options relevant to a short-lived
// static-file connection (no SO_RCVBUF/SO_SNDBUF tuning, no TCP_FASTOPEN —
// those target sustained high-throughput proxying, not small file serving).
package listener

import (
	"net"
	"time"
)

// Config controls the socket options applied to the listener and to each
// accepted connection.
type Config struct {
	// NoDelay disables Nagle's algorithm on accepted connections.
	NoDelay bool

	// KeepAlive enables TCP keepalive on accepted connections.
	KeepAlive bool

	// KeepAlivePeriod is the interval between keepalive probes.
	KeepAlivePeriod time.Duration

	// DeferAccept delays the listener's accept() until data has arrived
	// (Linux TCP_DEFER_ACCEPT; a no-op elsewhere).
	DeferAccept bool
}

// DefaultConfig returns the tuning this server applies unless overridden.
func DefaultConfig() Config {
	return Config{
		NoDelay:         true,
		KeepAlive:       true,
		KeepAlivePeriod: 60 * time.Second,
		DeferAccept:     true,
	}
}

// Listen opens a TCP listener on addr and applies listener-level tuning.
func Listen(addr string, cfg Config) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcpLn, ok := ln.(*net.TCPListener); ok {
		applyListenerTuning(tcpLn, cfg)
	}
	return ln, nil
}

// ApplyConnTuning applies per-connection tuning to an accepted connection.
func ApplyConnTuning(conn net.Conn, cfg Config) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if cfg.NoDelay {
		tcpConn.SetNoDelay(true)
	}
	if cfg.KeepAlive {
		tcpConn.SetKeepAlive(true)
		if cfg.KeepAlivePeriod > 0 {
			tcpConn.SetKeepAlivePeriod(cfg.KeepAlivePeriod)
		}
	}
	applyConnPlatformTuning(tcpConn, cfg)
}
