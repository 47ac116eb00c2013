// Package scanner discovers eligible document files under a root
// directory. Discovery streams results over a channel so callers can
// start normalizing while the walk is still running.
package scanner

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes one discovered document file.
type FileInfo struct {
	Path    string    // Path relative to the root, slash-separated (the document id)
	AbsPath string    // Absolute path
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// ScanResult is one item streamed from Scan.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize caps file reads at 10MB unless configured otherwise.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Rules decides which paths become documents. The same rules filter the
// initial scan and the watcher's event stream, so both agree on what is
// indexable.
type Rules struct {
	// Extensions lists eligible file extensions, dot included, lower case.
	Extensions []string

	// ExcludeDirs lists directory names skipped wherever they appear.
	ExcludeDirs []string

	// MaxFileSize is the largest eligible file in bytes (0 = default).
	MaxFileSize int64
}

// MaxSize returns the effective file size cap.
func (r Rules) MaxSize() int64 {
	if r.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return r.MaxFileSize
}

// EligibleExtension reports whether the path carries one of the
// configured document extensions.
func (r Rules) EligibleExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range r.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ExcludedDir reports whether the directory name is skipped. Hidden
// directories are always excluded.
func (r Rules) ExcludedDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, d := range r.ExcludeDirs {
		if name == d {
			return true
		}
	}
	return false
}

// EligiblePath applies the extension and directory rules to a
// root-relative path. Hidden files and files under excluded directories
// are ineligible. Size and content checks still happen at read time.
func (r Rules) EligiblePath(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(relPath, "/")
	for _, part := range parts[:len(parts)-1] {
		if r.ExcludedDir(part) {
			return false
		}
	}
	name := parts[len(parts)-1]
	if strings.HasPrefix(name, ".") {
		return false
	}
	return r.EligibleExtension(name)
}
