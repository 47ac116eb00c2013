package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackgroundSyncer(t *testing.T) {
	b := NewBackgroundSyncer()

	require.NotNil(t, b)
	assert.NotNil(t, b.Progress())
	assert.False(t, b.IsRunning())
}

func TestBackgroundSyncer_Start_RunsInGoroutine(t *testing.T) {
	// Given: a syncer with a quick task
	b := NewBackgroundSyncer()
	var ran atomic.Bool
	b.SyncFunc = func(ctx context.Context, progress *SyncProgress) error {
		ran.Store(true)
		return nil
	}

	// When: starting
	b.Start(context.Background())

	// Then: it completes in the background and marks ready
	require.NoError(t, b.Wait())
	assert.True(t, ran.Load())
	assert.False(t, b.IsRunning())
	assert.Equal(t, string(StatusReady), b.Progress().Snapshot().Status)
}

func TestBackgroundSyncer_Start_Twice_IsNoop(t *testing.T) {
	b := NewBackgroundSyncer()
	var calls atomic.Int32
	block := make(chan struct{})
	b.SyncFunc = func(ctx context.Context, progress *SyncProgress) error {
		calls.Add(1)
		<-block
		return nil
	}

	b.Start(context.Background())
	b.Start(context.Background())
	close(block)
	require.NoError(t, b.Wait())

	assert.Equal(t, int32(1), calls.Load())
}

func TestBackgroundSyncer_Error_Surfaces(t *testing.T) {
	b := NewBackgroundSyncer()
	syncErr := errors.New("scan failed")
	b.SyncFunc = func(ctx context.Context, progress *SyncProgress) error {
		return syncErr
	}

	b.Start(context.Background())

	assert.ErrorIs(t, b.Wait(), syncErr)
	snap := b.Progress().Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "scan failed", snap.ErrorMessage)
}

func TestBackgroundSyncer_Stop_CancelsContext(t *testing.T) {
	// Given: a long-running sync that honors cancellation
	b := NewBackgroundSyncer()
	b.SyncFunc = func(ctx context.Context, progress *SyncProgress) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return nil
		}
	}
	b.Start(context.Background())

	// When: stopping
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	// Then: Stop returns promptly because the context was cancelled
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.ErrorIs(t, b.Wait(), context.Canceled)
}

func TestBackgroundSyncer_ParentCancellation_Propagates(t *testing.T) {
	b := NewBackgroundSyncer()
	b.SyncFunc = func(ctx context.Context, progress *SyncProgress) error {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	cancel()

	assert.ErrorIs(t, b.Wait(), context.Canceled)
}
