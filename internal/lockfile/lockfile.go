// Package lockfile provides cross-process file locking for server
// instances. Two docdex servers watching the same root would race each
// other's index rebuilds, so serve acquires an exclusive lock per root
// before starting.
package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock wraps gofrs/flock with explicit held-state tracking. Works on
// all platforms (Unix, Linux, macOS, Windows).
type Lock struct {
	path  string
	flock *flock.Flock
	held  bool
}

// ForRoot creates a lock scoped to a document root. The lock file lives
// under dir (typically ~/.docdex/locks) and is named by a hash of the
// absolute root path, so distinct roots never contend.
func ForRoot(dir, root string) *Lock {
	sum := sha256.Sum256([]byte(root))
	name := hex.EncodeToString(sum[:])[:16] + ".lock"
	return New(filepath.Join(dir, name))
}

// New creates a lock at the given path.
func New(path string) *Lock {
	return &Lock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryAcquire attempts to take the exclusive lock without blocking.
// Returns false when another process holds it.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	if acquired {
		l.held = true
	}
	return acquired, nil
}

// Release drops the lock. Safe to call multiple times or on a lock
// that was never acquired.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		l.held = false
		return fmt.Errorf("release lock: %w", err)
	}

	l.held = false
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Held reports whether this process currently holds the lock.
func (l *Lock) Held() bool {
	return l.held
}
