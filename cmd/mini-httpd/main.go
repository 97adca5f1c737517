// Command mini-httpd is the TCP acceptor and event-loop driver for the
// static-content HTTP/1.1 protocol engine in internal/engine: it owns the
// listener, daemonization, signal handling, and per-connection I/O, and
// pushes bytes through engine.Connection's driver contract.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/yourusername/mini-httpd/internal/accesslog"
	"github.com/yourusername/mini-httpd/internal/config"
	"github.com/yourusername/mini-httpd/internal/engine"
	"github.com/yourusername/mini-httpd/internal/listener"
	"github.com/yourusername/mini-httpd/internal/mime"
	"github.com/yourusername/mini-httpd/internal/payload"
	"github.com/yourusername/mini-httpd/internal/statcache"
)

func main() {
	cfg := config.Parse(os.Args[1:])

	if !cfg.NoDetach {
		if daemonized, err := daemonize(); err != nil {
			log.Fatalf("mini-httpd: daemonize failed: %v", err)
		} else if daemonized {
			return
		}
	}

	ln, err := listener.Listen(fmt.Sprintf(":%d", cfg.Port), listener.DefaultConfig())
	if err != nil {
		log.Fatalf("mini-httpd: listen failed: %v", err)
	}

	if err := applyPrivileges(cfg); err != nil {
		log.Fatalf("mini-httpd: %v", err)
	}

	engineCfg := cfg.EngineConfig()
	mimeLookup := engine.MimeLookup(mime.TypeByFilename)
	logger := accesslog.New(cfg.LogfileDirectory)
	cache := statcache.New(cfg.StatCacheTTL)

	srv := &server{
		ln:        ln,
		engineCfg: engineCfg,
		mime:      mimeLookup,
		logger:    logger,
		cache:     cache,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGQUIT)
	go func() {
		<-sigCh
		log.Printf("mini-httpd: signal received, draining connections")
		ln.Close()
	}()

	srv.run()
	log.Printf("mini-httpd: shutdown complete")
}

// server owns the accept loop and the set of resources shared read-only by
// every connection, per spec.md §5's "Shared resources" model.
type server struct {
	ln        net.Listener
	engineCfg *engine.Config
	mime      engine.MimeLookup
	logger    *accesslog.Logger
	cache     *statcache.Cache
	wg        sync.WaitGroup
}

// run accepts connections until the listener is closed (by the signal
// handler), then waits for in-flight connections to finish, per spec.md
// §5's "Cancellation" / "stop accepting new connections and drain".
func (s *server) run() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			break
		}
		listener.ApplyConnTuning(conn, listener.DefaultConfig())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
	s.wg.Wait()
}

// serve drives one engine.Connection to completion, implementing the
// driver half of spec.md §6's contract: read into WritableRegion, call
// BytesAppended, write PendingOutput, call BytesWritten, repeat.
func (s *server) serve(netConn net.Conn) {
	defer netConn.Close()

	peerAddr := netConn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(peerAddr); err == nil {
		peerAddr = host
	}
	c := engine.NewConnection(s.engineCfg, s.mime, s.cache, engine.OSFilesystem, s.logger, peerAddr)
	defer c.Close()

	const readChunk = 4096
	for {
		region := c.WritableRegion(readChunk)
		n, readErr := netConn.Read(region)
		if n > 0 {
			running := c.BytesAppended(n)
			if !s.drain(netConn, c) {
				return
			}
			if !running {
				return
			}
		}
		if readErr != nil {
			return
		}
	}
}

// drain writes everything currently pending on c to netConn, looping until
// a full pass produces nothing more: BytesWritten can itself advance the
// state machine (e.g. onto a pipelined next request already buffered) and
// queue further output, which this must also drain rather than leave for a
// Read that may never come. A file-backed span is transferred with
// internal/payload's sendfile(2) fast path rather than copied through an
// ordinary Write. Returns false if a write failed or the connection has
// terminated.
func (s *server) drain(netConn net.Conn, c *engine.Connection) bool {
	for {
		spans := c.PendingOutput()
		if len(spans) == 0 {
			break
		}
		total := 0
		for _, span := range spans {
			if span.File != nil {
				if span.FileSize == 0 {
					continue
				}
				n, err := payload.SendFile(netConn, span.File, span.FileOffset, span.FileSize)
				total += int(n)
				if err != nil {
					c.BytesWritten(total)
					return false
				}
				continue
			}
			if len(span.Data) == 0 {
				continue
			}
			n, err := netConn.Write(span.Data)
			total += n
			if err != nil {
				c.BytesWritten(total)
				return false
			}
		}
		c.BytesWritten(total)
		if total == 0 {
			break
		}
	}
	return !c.Terminated()
}
