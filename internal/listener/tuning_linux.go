//go:build linux

package listener

import (
	"net"

	"golang.org/x/sys/unix"
)

// applyListenerTuning sets TCP_DEFER_ACCEPT on the listening socket so the
// kernel doesn't wake the accept loop until the client has actually sent
// request bytes, and SO_REUSEADDR so a restart doesn't have to wait out
// TIME_WAIT on the old listening socket, per SPEC_FULL.md §4.D.
//
// SO_REUSEADDR only has meaning on a socket that is about to bind(2); it is
// set here, before Accept is ever called, not on the sockets Accept returns.
//
// Grounded on shockwave/pkg/shockwave/socket/tuning_linux.go's
// applyListenerOptions, promoted from stdlib syscall to golang.org/x/sys/unix
// (a dependency the teacher's own go.mod already lists but never actually
// imports — see DESIGN.md).
func applyListenerTuning(ln *net.TCPListener, cfg Config) {
	raw, err := ln.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if cfg.DeferAccept {
			unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 1)
		}
	})
}

// applyConnPlatformTuning applies Linux-specific per-connection options
// beyond the cross-platform NoDelay/KeepAlive set in ApplyConnTuning. There
// are none at present; per-connection sockets never call bind(2), so
// SO_REUSEADDR (applied to the listener above) has no business here.
func applyConnPlatformTuning(conn *net.TCPConn, cfg Config) {}
