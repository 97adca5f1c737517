package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/yourusername/mini-httpd/internal/config"
)

// applyPrivileges implements the chroot/setgid/setuid sequence
// original_source/main.cpp performs after binding the listener but before
// serving: chroot first (while still privileged enough to do so), then
// drop the group, then the user — order matters, since setuid is
// irreversible.
func applyPrivileges(cfg *config.Config) error {
	if cfg.ChangeRoot != "" {
		if err := os.Chdir(cfg.ChangeRoot); err != nil {
			return fmt.Errorf("change root to %q: %w", cfg.ChangeRoot, err)
		}
		if err := syscall.Chroot("."); err != nil {
			return fmt.Errorf("change root to %q: %w", cfg.ChangeRoot, err)
		}
	}
	if cfg.GID != "" {
		gid, err := strconv.Atoi(cfg.GID)
		if err != nil {
			return fmt.Errorf("invalid --gid %q: %w", cfg.GID, err)
		}
		if err := syscall.Setgid(gid); err != nil {
			return fmt.Errorf("setgid(%d): %w", gid, err)
		}
	}
	if cfg.UID != "" {
		uid, err := strconv.Atoi(cfg.UID)
		if err != nil {
			return fmt.Errorf("invalid --uid %q: %w", cfg.UID, err)
		}
		if err := syscall.Setuid(uid); err != nil {
			return fmt.Errorf("setuid(%d): %w", uid, err)
		}
	}
	return nil
}
