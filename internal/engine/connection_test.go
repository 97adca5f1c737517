package engine

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeLogger records the requests it was asked to log, for assertions
// about spec.md §4.7 ("exactly once per completed response").
type fakeLogger struct {
	entries []string
}

func (f *fakeLogger) Log(req *Request, peerAddr string) {
	f.entries = append(f.entries, req.Method+" "+req.URL.Path)
}

func identityMime(filename string) string {
	return "text/plain"
}

func newTestConnection(t *testing.T, root string, logger AccessLogger) *Connection {
	t.Helper()
	cfg := &Config{DocumentRoot: root, DefaultPage: "index.html", ServerString: "test-httpd"}
	return NewConnection(cfg, identityMime, nil, OSFilesystem, logger, "127.0.0.1:9999")
}

// feed drives a Connection through one read/write/flush cycle by pushing
// all of in at once, matching the driver contract in spec.md §6.
func feed(c *Connection, in string) bool {
	region := c.WritableRegion(len(in))
	copy(region, in)
	return c.BytesAppended(len(in))
}

// drainAll pulls every pending span to completion without a real net.Conn,
// reading file-backed spans directly via ReadAt in place of the driver's
// sendfile(2) fast path (internal/payload), which needs a genuine socket.
func drainAll(c *Connection) string {
	var out bytes.Buffer
	for {
		spans := c.PendingOutput()
		wrote := 0
		for _, s := range spans {
			if s.File != nil {
				if s.FileSize == 0 {
					continue
				}
				buf := make([]byte, s.FileSize)
				n, err := s.File.ReadAt(buf, s.FileOffset)
				out.Write(buf[:n])
				wrote += int(s.FileSize)
				if err != nil && err != io.EOF {
					break
				}
				continue
			}
			out.Write(s.Data)
			wrote += len(s.Data)
		}
		c.BytesWritten(wrote)
		if wrote == 0 {
			break
		}
	}
	return out.String()
}

func TestConnectionMinimalGET(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))
	mustWriteFile(t, filepath.Join(root, "example.com", "hello.txt"), "hello world")

	logger := &fakeLogger{}
	c := newTestConnection(t, root, logger)
	defer c.Close()

	feed(c, "GET /hello.txt HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
	if !strings.HasSuffix(out, "hello world") {
		t.Errorf("expected body to end the response, got %q", out)
	}
	if !c.Terminated() {
		t.Errorf("expected Connection: close to terminate the connection")
	}
	if len(logger.entries) != 1 || logger.entries[0] != "GET /hello.txt" {
		t.Errorf("unexpected log entries: %v", logger.entries)
	}
}

func TestConnectionPipelinedKeepAlive(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))
	mustWriteFile(t, filepath.Join(root, "example.com", "a.txt"), "AAA")
	mustWriteFile(t, filepath.Join(root, "example.com", "b.txt"), "BBBB")

	logger := &fakeLogger{}
	c := newTestConnection(t, root, logger)
	defer c.Close()

	reqs := "GET /a.txt HTTP/1.1\r\nHost: example.com\r\n\r\n" +
		"GET /b.txt HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"
	feed(c, reqs)
	out := drainAll(c)

	if strings.Count(out, "HTTP/1.1 200 OK") != 2 {
		t.Fatalf("expected two responses, got %q", out)
	}
	if !strings.HasSuffix(out, "BBBB") {
		t.Errorf("expected second body to end the response, got %q", out)
	}
	if !c.Terminated() {
		t.Errorf("expected the second request's Connection: close to terminate")
	}
	if len(logger.entries) != 2 {
		t.Errorf("expected 2 log entries, got %v", logger.entries)
	}
}

func TestConnectionDirectoryRedirect(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com", "sub"))
	mustWriteFile(t, filepath.Join(root, "example.com", "sub", "index.html"), "idx")

	c := newTestConnection(t, root, nil)
	defer c.Close()

	feed(c, "GET /sub HTTP/1.1\r\nHost: example.com\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 301 Moved Permanently\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
	if !strings.Contains(out, "Location: http://example.com/sub/") {
		t.Errorf("expected Location header, got %q", out)
	}
	if !c.Terminated() {
		t.Errorf("expected a redirect to terminate the connection")
	}
}

func TestConnectionConditionalGETNotModified(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))
	mustWriteFile(t, filepath.Join(root, "example.com", "a.txt"), "AAA")

	c := newTestConnection(t, root, nil)
	defer c.Close()

	future := "Mon, 01 Jan 2035 00:00:00 GMT"
	feed(c, "GET /a.txt HTTP/1.1\r\nHost: example.com\r\nIf-Modified-Since: "+future+"\r\nConnection: close\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 304 Not Modified\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
	if strings.Contains(out, "AAA") {
		t.Errorf("304 must not carry a body, got %q", out)
	}
}

func TestConnectionSandboxEscapeIs404(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))
	outside := t.TempDir()
	mustWriteFile(t, filepath.Join(outside, "secret.txt"), "nope")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "example.com", "escape.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	c := newTestConnection(t, root, nil)
	defer c.Close()

	feed(c, "GET /escape.txt HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
}

func TestConnectionBadMethodIs400(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))

	c := newTestConnection(t, root, nil)
	defer c.Close()

	feed(c, "POST /a.txt HTTP/1.1\r\nHost: example.com\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
	if !strings.Contains(out, "POST") {
		t.Errorf("expected the echoed method in the body, got %q", out)
	}
	if !c.Terminated() {
		t.Errorf("expected 400 to terminate the connection")
	}
}

func TestConnectionMalformedRequestLineIs400(t *testing.T) {
	c := newTestConnection(t, t.TempDir(), nil)
	defer c.Close()

	feed(c, "not a request line at all\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
}

func TestConnectionHeadHasNoBody(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))
	mustWriteFile(t, filepath.Join(root, "example.com", "a.txt"), "AAAAA")

	c := newTestConnection(t, root, nil)
	defer c.Close()

	feed(c, "HEAD /a.txt HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
	if strings.Contains(out, "AAAAA") {
		t.Errorf("HEAD must not carry a body, got %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5") {
		t.Errorf("expected Content-Length to reflect the file size, got %q", out)
	}
}

func TestConnectionMissingHostOnHTTP11Is400(t *testing.T) {
	c := newTestConnection(t, t.TempDir(), nil)
	defer c.Close()

	feed(c, "GET /a.txt HTTP/1.1\r\n\r\n")
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
}

func TestConnectionHeaderTooLargeIs400(t *testing.T) {
	c := newTestConnection(t, t.TempDir(), nil)
	defer c.Close()

	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	b.WriteString("Host: example.com\r\n")
	for b.Len() < MaxHeaderBytes+100 {
		b.WriteString("X-Padding: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\r\n")
	}
	b.WriteString("\r\n")

	feed(c, b.String())
	out := drainAll(c)

	if !strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n") {
		t.Fatalf("unexpected response: %q", out)
	}
}

// fakeFilesystem lets stepSetupResponse's OpenRead call be exercised without
// touching a real file twice (stat happened already via statcache/Resolve).
type fakeFilesystem struct {
	content string
	err     error
}

func (f fakeFilesystem) OpenRead(path string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func TestConnectionUsesInjectedFilesystemForPayload(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "example.com"))
	mustWriteFile(t, filepath.Join(root, "example.com", "a.txt"), "original-disk-bytes")

	cfg := &Config{DocumentRoot: root, DefaultPage: "index.html"}
	c := NewConnection(cfg, identityMime, nil, fakeFilesystem{content: "substituted-content"}, nil, "peer")
	defer c.Close()

	feed(c, "GET /a.txt HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")
	out := drainAll(c)

	if !strings.Contains(out, "substituted-content") {
		t.Errorf("expected the injected filesystem's content, got %q", out)
	}
}
