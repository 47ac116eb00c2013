package cmd

import (
	"os"
	"path/filepath"
)

// writeFixture writes a test document, creating parent directories.
func writeFixture(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
