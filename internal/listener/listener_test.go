package listener

import (
	"net"
	"testing"
)

func TestListenReturnsWorkingListener(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", DefaultConfig())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		accepted <- err
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Close()

	if err := <-accepted; err != nil {
		t.Errorf("Accept failed: %v", err)
	}
}

func TestApplyConnTuningIgnoresNonTCPConn(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	ApplyConnTuning(a, DefaultConfig())
}
