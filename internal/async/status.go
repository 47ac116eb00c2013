// Package async provides background processing infrastructure for DocDex.
package async

import (
	"sync"
	"time"
)

// SyncStatus represents the overall synchronization state.
type SyncStatus string

const (
	// StatusSyncing indicates the initial scan is in progress.
	StatusSyncing SyncStatus = "syncing"
	// StatusReady indicates the scan completed and queries are served
	// from a fully populated index.
	StatusReady SyncStatus = "ready"
	// StatusError indicates the initial scan failed.
	StatusError SyncStatus = "error"
)

// SyncStage represents the current stage of the initial sync.
type SyncStage string

const (
	// StageScanning indicates the file discovery and normalization phase.
	StageScanning SyncStage = "scanning"
	// StageIndexing indicates the search index build phase.
	StageIndexing SyncStage = "indexing"
)

// SyncProgressSnapshot is an immutable snapshot of sync progress.
type SyncProgressSnapshot struct {
	Status         string `json:"status"`
	Stage          string `json:"stage"`
	FilesProcessed int    `json:"files_processed"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// SyncProgress provides thread-safe tracking of initial-sync progress.
// The file total is unknown up front (the scanner streams discoveries),
// so progress counts processed files rather than a percentage.
type SyncProgress struct {
	mu sync.RWMutex

	status         SyncStatus
	stage          SyncStage
	filesProcessed int
	startTime      time.Time
	errorMessage   string
}

// NewSyncProgress creates a progress tracker initialized for scanning.
func NewSyncProgress() *SyncProgress {
	return &SyncProgress{
		status:    StatusSyncing,
		stage:     StageScanning,
		startTime: time.Now(),
	}
}

// SetStage updates the current sync stage.
func (p *SyncProgress) SetStage(stage SyncStage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
}

// FileProcessed increments the processed-file counter.
func (p *SyncProgress) FileProcessed() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesProcessed++
}

// SetError marks the sync as failed with an error message.
func (p *SyncProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks the sync as complete.
func (p *SyncProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// IsSyncing returns true if the initial sync is still in progress.
func (p *SyncProgress) IsSyncing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusSyncing
}

// Snapshot returns an immutable copy of the current progress state.
func (p *SyncProgress) Snapshot() SyncProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return SyncProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		FilesProcessed: p.filesProcessed,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
