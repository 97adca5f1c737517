package accesslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/mini-httpd/internal/engine"
)

func TestLogWritesPerHostFile(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	req := &engine.Request{
		Method:       "GET",
		MajorVersion: 1,
		MinorVersion: 1,
		Host:         "example.com",
		StatusCode:   200,
		ObjectSize:   42,
		StartTime:    time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	req.URL.Path = "/index.html"

	l.Log(req, "127.0.0.1")

	data, err := os.ReadFile(filepath.Join(dir, "example.com-access"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	line := string(data)
	if !strings.HasPrefix(line, "127.0.0.1 - - [") {
		t.Fatalf("unexpected line prefix: %q", line)
	}
	if !strings.Contains(line, `"GET /index.html HTTP/1.1"`) {
		t.Errorf("expected request line in %q", line)
	}
	if !strings.Contains(line, " 200 42 ") {
		t.Errorf("expected status and size in %q", line)
	}
}

func TestLogUsesNoHostnameWhenHostEmpty(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	req := &engine.Request{Method: "GET", MajorVersion: 1, MinorVersion: 0}
	l.Log(req, "10.0.0.1")

	if _, err := os.Stat(filepath.Join(dir, "no-hostname")); err != nil {
		t.Errorf("expected no-hostname log file: %v", err)
	}
}

func TestLogIsNoopWithoutDirectory(t *testing.T) {
	l := New("")
	req := &engine.Request{Method: "GET"}
	l.Log(req, "10.0.0.1")
}

func TestLogAppendsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	req := &engine.Request{Method: "GET", Host: "example.com", MajorVersion: 1, MinorVersion: 1}
	l.Log(req, "1.1.1.1")
	l.Log(req, "2.2.2.2")

	data, err := os.ReadFile(filepath.Join(dir, "example.com-access"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
}

func TestLogMissingSizeIsDash(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	req := &engine.Request{Method: "GET", Host: "example.com", ObjectSize: 0}
	l.Log(req, "1.1.1.1")

	data, _ := os.ReadFile(filepath.Join(dir, "example.com-access"))
	if !strings.Contains(string(data), " 0 - ") {
		t.Errorf("expected a dash for zero object size, got %q", data)
	}
}

func TestEscapeQuotesInPathAndUserAgent(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	req := &engine.Request{Method: "GET", Host: "example.com", UserAgent: `evil"agent`}
	req.URL.Path = `/a"b`
	l.Log(req, "1.1.1.1")

	data, _ := os.ReadFile(filepath.Join(dir, "example.com-access"))
	if !strings.Contains(string(data), `/a\"b`) {
		t.Errorf("expected escaped quote in path, got %q", data)
	}
	if !strings.Contains(string(data), `evil\"agent`) {
		t.Errorf("expected escaped quote in user agent, got %q", data)
	}
}
