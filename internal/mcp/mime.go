package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps document file extensions to MIME types.
var mimeTypes = map[string]string{
	// Documentation
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".txt":      "text/plain",
	".rst":      "text/x-rst",

	// Data / front-matter adjacent
	".json": "application/json",
	".yaml": "text/x-yaml",
	".yml":  "text/x-yaml",
	".toml": "text/x-toml",
}

// specialFilenames maps specific filenames to MIME types.
var specialFilenames = map[string]string{
	"README":    "text/markdown",
	"CHANGELOG": "text/markdown",
	"LICENSE":   "text/plain",
}

// MimeTypeForPath returns the MIME type for a document path.
// It checks file extension first, then special filenames.
// Returns "text/plain" for unknown types.
func MimeTypeForPath(path string) string {
	base := filepath.Base(path)

	if mime, ok := specialFilenames[base]; ok {
		return mime
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if mime, ok := mimeTypes[ext]; ok {
			return mime
		}
	}

	return "text/plain"
}
