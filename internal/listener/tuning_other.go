//go:build !linux

package listener

import "net"

// applyListenerTuning is a no-op on platforms without TCP_DEFER_ACCEPT.
func applyListenerTuning(ln *net.TCPListener, cfg Config) {}

// applyConnPlatformTuning is a no-op on platforms with no further
// per-connection options beyond NoDelay/KeepAlive.
func applyConnPlatformTuning(conn *net.TCPConn, cfg Config) {}
