// Package config parses the command-line surface documented in spec.md §6
// and builds the engine.Config every connection shares.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/mini-httpd/internal/engine"
)

// Version is the server's reported version string (--version).
const Version = "mini-httpd/1.0"

// Config holds the fully parsed command-line configuration.
type Config struct {
	Port              int
	ChangeRoot        string
	LogfileDirectory  string
	ServerString      string
	UID               string
	GID               string
	NoDetach          bool
	DefaultHostname   string
	DocumentRoot      string
	DefaultPage       string
	Debug             bool
	EnableCompression bool
	StatCacheTTL      time.Duration
}

// Parse parses args (normally os.Args[1:]) per spec.md §6's CLI surface,
// plus the two SPEC_FULL.md additions --enable-compression and
// --stat-cache-ttl. It prints help/version and exits the process for
// --help/--version, matching the conventional flag package idiom the
// teacher's own CLI tools (benchstat/main.go) use.
func Parse(args []string) *Config {
	fs := flag.NewFlagSet("mini-httpd", flag.ExitOnError)

	cfg := &Config{}
	var showVersion bool

	fs.IntVar(&cfg.Port, "port", 8080, "TCP port to listen on")
	fs.StringVar(&cfg.ChangeRoot, "change-root", "", "chroot(2) to this directory after binding the listener")
	fs.StringVar(&cfg.LogfileDirectory, "logfile-directory", "", "directory for per-host access logs; empty disables access logging")
	fs.StringVar(&cfg.ServerString, "server-string", Version, "value of the Server response header; empty omits it")
	fs.StringVar(&cfg.UID, "uid", "", "setuid(2) to this user after binding the listener")
	fs.StringVar(&cfg.GID, "gid", "", "setgid(2) to this group after binding the listener")
	fs.BoolVar(&cfg.NoDetach, "no-detach", false, "stay in the foreground instead of daemonizing")
	fs.StringVar(&cfg.DefaultHostname, "default-hostname", "", "host to serve for HTTP/1.0 requests with no Host header")
	fs.StringVar(&cfg.DocumentRoot, "document-root", ".", "root directory containing per-host subdirectories")
	fs.StringVar(&cfg.DefaultPage, "default-page", "index.html", "filename appended to a directory URL")
	fs.BoolVar(&cfg.Debug, "debug", false, "accepted for command-line compatibility; has no effect")
	fs.BoolVar(&cfg.EnableCompression, "enable-compression", true, "compress text responses when the client accepts br or gzip")
	fs.DurationVar(&cfg.StatCacheTTL, "stat-cache-ttl", time.Second, "how long to cache path-resolution/stat results per (host, path); 0 disables caching")
	fs.BoolVar(&showVersion, "version", false, "print the version and exit")

	fs.Parse(args)

	if showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	return cfg
}

// EngineConfig builds the engine.Config this process's connections share.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		ServerString:      c.ServerString,
		DefaultHost:       c.DefaultHostname,
		DocumentRoot:      c.DocumentRoot,
		DefaultPage:       c.DefaultPage,
		EnableCompression: c.EnableCompression,
	}
}
