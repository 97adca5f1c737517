//go:build !linux

package payload

import (
	"net"
	"os"
)

// sendFile falls back to io.Copy on platforms without sendfile(2).
func sendFile(conn net.Conn, file *os.File, offset, count int64) (written int64, err error) {
	return copyFallback(conn, file, offset, count)
}
