package async

import (
	"context"
	"sync"
)

// SyncFunc is the function signature for the actual synchronization work.
// It receives the progress tracker to report through.
type SyncFunc func(ctx context.Context, progress *SyncProgress) error

// BackgroundSyncer runs the filesystem sync in a background goroutine so
// the MCP handshake can be served while the initial scan is still
// populating the store.
type BackgroundSyncer struct {
	progress *SyncProgress

	// SyncFunc is the actual sync function to run.
	// Injected for testing.
	SyncFunc SyncFunc

	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	running bool
	err     error
}

// NewBackgroundSyncer creates a new background syncer.
func NewBackgroundSyncer() *BackgroundSyncer {
	return &BackgroundSyncer{
		progress: NewSyncProgress(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Progress returns the progress tracker for this syncer.
func (b *BackgroundSyncer) Progress() *SyncProgress {
	return b.progress
}

// IsRunning returns true if the syncer is currently running.
func (b *BackgroundSyncer) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start begins syncing in a background goroutine. Non-blocking; use
// Wait to block until completion.
func (b *BackgroundSyncer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go b.run(ctx)
}

// run executes the sync in the background.
func (b *BackgroundSyncer) run(ctx context.Context) {
	defer close(b.doneCh)
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	// Merged context that respects both the parent and Stop.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if b.SyncFunc != nil {
		if err := b.SyncFunc(ctx, b.progress); err != nil {
			b.progress.SetError(err.Error())
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
			return
		}
	}

	b.progress.SetReady()
}

// Stop signals the syncer to stop and waits for it to finish.
func (b *BackgroundSyncer) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	close(b.stopCh)
	<-b.doneCh
}

// Wait blocks until the syncer completes and returns any error.
func (b *BackgroundSyncer) Wait() error {
	<-b.doneCh
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
