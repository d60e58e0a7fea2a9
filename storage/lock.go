package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked means another process is already driving sessions from the
// same data directory.
var ErrLocked = errors.New("data directory is locked by another instance")

const lockFile = "promptbuddies.lock"

// InstanceLock is a PID file guarding a data directory.
// Lock file: <data_dir>/promptbuddies.lock
// Content: PID of the running instance
type InstanceLock struct {
	path string
}

// AcquireInstanceLock takes the lock for dataDir. A lock left behind by a
// process that is no longer running is replaced.
func AcquireInstanceLock(dataDir string) (*InstanceLock, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, lockFile)

	pid, err := readLockPID(path)
	if err != nil {
		return nil, err
	}
	if pid > 0 && processAlive(pid) {
		return nil, fmt.Errorf("%w (PID %d)", ErrLocked, pid)
	}

	// Write PID to lock file (0600 - user-only access)
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	return &InstanceLock{path: path}, nil
}

// Release removes the lock file.
func (l *InstanceLock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// readLockPID returns 0 when there is no usable lock. Unparsable lock files
// are removed.
func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read lock file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(path)
		return 0, nil
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return false
	default:
		// EPERM: alive, owned by someone else
		return true
	}
}
