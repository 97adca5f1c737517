// Package payload implements the accelerated file-to-socket transfer path
// used by cmd/mini-httpd's connection driver as an alternative to the
// protocol engine's own block-read loop: when the response body needs no
// compression, the driver can hand the engine-queued header to the socket
// and then transfer the file directly via sendfile(2) on Linux, skipping a
// userspace copy entirely.
//
// Grounded on shockwave/pkg/shockwave/socket/sendfile.go/sendfile_linux.go's
// GOOS split and TCPConn/SyscallConn pattern.
package payload

import (
	"io"
	"net"
	"os"
)

// SendFile writes count bytes of file starting at offset to conn, using the
// fastest transfer strategy available on this platform. It always returns
// the number of bytes successfully written, even on error.
func SendFile(conn net.Conn, file *os.File, offset, count int64) (written int64, err error) {
	return sendFile(conn, file, offset, count)
}

// CanUseSendFile reports whether conn is eligible for the accelerated path
// (a plain TCP connection; TLS is out of scope per spec.md's non-goals).
func CanUseSendFile(conn net.Conn) bool {
	_, ok := conn.(*net.TCPConn)
	return ok
}

// copyFallback is shared by every platform's sendFile when the fast path
// isn't available or fails partway through.
func copyFallback(conn net.Conn, file *os.File, offset, count int64) (int64, error) {
	return io.Copy(conn, io.NewSectionReader(file, offset, count))
}
