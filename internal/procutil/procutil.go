// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package procutil shells out to the small set of external tools the
// design treats as narrow collaborators: ip, iptables/ip6tables,
// ping/ping6. It resolves each tool's path once by scanning
// /sbin:/usr/sbin:/bin:/usr/bin, exactly the way the original
// implementation's get_path does, and runs commands through a Runner
// interface so tests never touch the real binaries.
package procutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"grimm.is/sleepproxy/internal/ipaddr"
)

// searchPath is the ordered list of directories scanned for a tool,
// matching scope_guard.cpp's `paths` array.
var searchPath = []string{"/sbin", "/usr/sbin", "/bin", "/usr/bin"}

var resolveCache sync.Map // name -> resolved path

// ResolvePath finds the first existing executable named name across
// searchPath, in order, and memoizes the result. A tool missing from
// every directory is a Configuration error and should be
// surfaced before any guard is installed.
func ResolvePath(name string) (string, error) {
	if v, ok := resolveCache.Load(name); ok {
		return v.(string), nil
	}
	for _, dir := range searchPath {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			resolveCache.Store(name, candidate)
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unable to find path for command: %s", name)
}

// resetCache clears the memoized path lookups; tests that vary
// searchPath or the filesystem need this to observe a fresh scan.
func resetCache() {
	resolveCache.Range(func(k, _ any) bool {
		resolveCache.Delete(k)
		return true
	})
}

// SetSearchPathForTesting points ResolvePath at dirs instead of the
// real /sbin:/usr/sbin:/bin:/usr/bin, clearing any memoized lookups.
// The returned restore func puts the original search path back and
// clears the cache again; callers outside this package use it so
// their tests never depend on the host's actual tool locations.
func SetSearchPathForTesting(dirs []string) (restore func()) {
	orig := searchPath
	searchPath = dirs
	resetCache()
	return func() {
		searchPath = orig
		resetCache()
	}
}

// IptablesTool returns the iptables binary name for a's address
// family: "iptables" for v4, "ip6tables" for v6.
func IptablesTool(a ipaddr.Address) string {
	if a.Family == ipaddr.V6 {
		return "ip6tables"
	}
	return "iptables"
}

// PingTool returns the ping binary name for a's address family:
// "ping" for v4, "ping6" for v6.
func PingTool(a ipaddr.Address) string {
	if a.Family == ipaddr.V6 {
		return "ping6"
	}
	return "ping"
}

// Runner executes a resolved command. Production code uses ExecRunner;
// tests substitute a fake that records invocations and returns a
// canned exit status.
type Runner interface {
	Run(ctx context.Context, path string, args []string) error
}

// ExecRunner runs commands via os/exec, discarding stdio the same way
// the original spawns children against /dev/null.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

// Exec resolves name with ResolvePath and runs it with args through r, wrapping
// a resolution failure or a non-zero exit the same way for callers.
func Exec(ctx context.Context, r Runner, name string, args ...string) error {
	path, err := ResolvePath(name)
	if err != nil {
		return err
	}
	if err := r.Run(ctx, path, args); err != nil {
		return fmt.Errorf("command failed: %s %v: %w", name, args, err)
	}
	return nil
}
