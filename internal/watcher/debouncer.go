package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces bursts of file events per path so one editor save
// produces one batch. Merge rules for a path within the window:
//
//	CREATE then MODIFY -> CREATE
//	CREATE then DELETE -> dropped
//	MODIFY then DELETE -> DELETE
//	DELETE then CREATE -> MODIFY
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*pendingEvent
	timer   *time.Timer
	output  chan []FileEvent
	stopped bool
}

// pendingEvent remembers the first operation seen for a path; the merge
// rules depend on it, not on the most recent one.
type pendingEvent struct {
	event   FileEvent
	firstOp Operation
}

// NewDebouncer creates a debouncer that flushes a batch once no event
// has arrived for window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add feeds an event into the current window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		merged := merge(existing, event)
		if merged == nil {
			delete(d.pending, event.Path)
		} else {
			existing.event = *merged
		}
	} else {
		d.pending[event.Path] = &pendingEvent{
			event:   event,
			firstOp: event.Operation,
		}
	}

	d.resetTimer()
}

// merge applies the per-path rules. nil means the pair cancelled out.
func merge(existing *pendingEvent, next FileEvent) *FileEvent {
	switch {
	case existing.firstOp == OpCreate && next.Operation == OpModify:
		return &existing.event
	case existing.firstOp == OpCreate && next.Operation == OpDelete:
		return nil
	case existing.firstOp == OpDelete && next.Operation == OpCreate:
		replaced := next
		replaced.Operation = OpModify
		return &replaced
	default:
		// Latest wins for every other pair, including repeat modifies
		// and anything involving renames.
		return &next
	}
}

// resetTimer restarts the flush timer. Called with the lock held.
func (d *Debouncer) resetTimer() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush delivers the pending batch without blocking the timer goroutine.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		batch = append(batch, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- batch:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(batch)),
		)
	}
}

// Output returns the channel batches are delivered on.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes the output channel. Safe to
// call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
