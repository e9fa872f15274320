// Package pidfile guards a long-running exports server against a second
// instance bound to the same state.
package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/grovetools/exports/errors"
)

// Acquire writes the current PID to path. It fails if the PID already
// recorded there belongs to a live process; stale files are replaced.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to create pid directory")
	}

	if running, pid, err := IsRunning(path); err == nil && running && pid != os.Getpid() {
		return errors.New(errors.ErrCodeInvalidInput, "server already running").
			WithDetail("pid", pid).
			WithDetail("pidfile", path)
	}
	_ = os.Remove(path)

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to write pid file")
	}
	return nil
}

// Release removes the PID file if it still records this process.
func Release(path string) error {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read returns the PID recorded in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// IsRunning reports whether the process recorded in path is alive.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return alive(pid), pid, nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence; EPERM still means the process exists.
	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
