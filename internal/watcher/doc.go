// Package watcher provides real-time file system watching with automatic
// debouncing and gitignore-aware filtering.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Events are debounced to coalesce rapid editor-save bursts, filtered
// against .gitignore patterns, and delivered in per-window batches.
//
// Usage:
//
//	opts := watcher.DefaultOptions()
//	w, err := watcher.NewHybridWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, "/path/to/documents")
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        switch event.Operation {
//	        case watcher.OpCreate, watcher.OpModify:
//	            // Re-read the file and upsert its record
//	        case watcher.OpDelete, watcher.OpRename:
//	            // Remove the record
//	        }
//	    }
//	}
package watcher
