package main

import (
	"os"
	"syscall"
)

// daemonEnv marks the re-executed child so it doesn't try to daemonize
// again.
const daemonEnv = "MINI_HTTPD_DAEMONIZED=1"

// daemonize detaches the process from its controlling terminal, matching
// original_source/main.cpp's fork()-and-exit-the-parent shape. Go cannot
// fork in-process (the runtime's goroutine scheduler doesn't survive a raw
// fork), so the equivalent here is to re-exec the same binary with the
// same arguments in a new session, then exit the original process —
// functionally identical from the operator's perspective.
//
// Returns daemonized=true in the parent (which should exit immediately
// without serving) and false in the re-executed child (which should
// continue on to accept connections).
func daemonize() (daemonized bool, err error) {
	if os.Getenv("MINI_HTTPD_DAEMONIZED") == "1" {
		return false, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return false, err
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer devNull.Close()

	attr := &os.ProcAttr{
		Env:   append(os.Environ(), daemonEnv),
		Files: []*os.File{devNull, devNull, devNull},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	proc, err := os.StartProcess(exe, os.Args, attr)
	if err != nil {
		return false, err
	}
	proc.Release()
	return true, nil
}
