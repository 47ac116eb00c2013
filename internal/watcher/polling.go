package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by rescanning the tree on an interval
// and diffing mtime/size against the previous pass. Fallback for
// filesystems where fsnotify cannot register watches (network mounts,
// some containers).
type PollingWatcher struct {
	interval time.Duration
	root     string

	mu      sync.RWMutex
	known   map[string]fileSnapshot
	events  chan FileEvent
	errors  chan error
	stopCh  chan struct{}
	stopped bool
}

// fileSnapshot is the per-file fingerprint compared between passes.
type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		known:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start establishes the baseline and then polls until Stop or ctx
// cancellation. Blocks.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("stat watch root: %w", err)
	}
	p.root = absPath

	p.mu.Lock()
	p.known = p.snapshotTree(nil)
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.diff()
		}
	}
}

// Stop closes the channels. Safe to call more than once.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshotTree walks the root and fingerprints every entry. Unreadable
// entries are skipped; a vanished file shows up as a delete on the next
// pass. When onFile is non-nil it is invoked per entry with the prior
// state, which diff uses to emit create/modify events inline.
func (p *PollingWatcher) snapshotTree(onFile func(relPath string, snap fileSnapshot, isDir bool)) map[string]fileSnapshot {
	current := make(map[string]fileSnapshot)

	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(p.root, path)
		if err != nil || relPath == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		snap := fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   d.IsDir(),
		}
		current[relPath] = snap

		if onFile != nil {
			onFile(relPath, snap, d.IsDir())
		}
		return nil
	})

	return current
}

// diff rescans the tree, emits events for anything that changed since
// the last pass, and adopts the new state.
func (p *PollingWatcher) diff() {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.snapshotTree(func(relPath string, snap fileSnapshot, isDir bool) {
		prev, seen := p.known[relPath]
		switch {
		case !seen:
			p.emit(FileEvent{Path: relPath, Operation: OpCreate, IsDir: isDir, Timestamp: time.Now()})
		case prev.modTime != snap.modTime || prev.size != snap.size:
			p.emit(FileEvent{Path: relPath, Operation: OpModify, IsDir: isDir, Timestamp: time.Now()})
		}
	})

	for relPath, prev := range p.known {
		if _, still := current[relPath]; !still {
			p.emit(FileEvent{Path: relPath, Operation: OpDelete, IsDir: prev.isDir, Timestamp: time.Now()})
		}
	}

	p.known = current
}

// emit sends without blocking the poll loop. Called with the lock held.
func (p *PollingWatcher) emit(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		)
	}
}
