package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerFile records that checks passed, so the smart default does not
// re-run them on every launch. Holds the pass time as RFC 3339.
const MarkerFile = ".preflight-passed"

// NeedsCheck reports whether checks should run, i.e. no marker exists
// under dataDir yet.
func NeedsCheck(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, MarkerFile))
	return os.IsNotExist(err)
}

// MarkPassed writes the marker, creating dataDir if needed.
func MarkPassed(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}

	content := []byte(time.Now().Format(time.RFC3339))
	return os.WriteFile(filepath.Join(dataDir, MarkerFile), content, 0o644)
}

// ClearMarker forces a re-check on the next run. Missing marker is not
// an error.
func ClearMarker(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, MarkerFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove marker file: %w", err)
	}
	return nil
}

// MarkerAge returns the time since the checks last passed, or zero when
// the marker is absent or unreadable.
func MarkerAge(dataDir string) time.Duration {
	content, err := os.ReadFile(filepath.Join(dataDir, MarkerFile))
	if err != nil {
		return 0
	}

	t, err := time.Parse(time.RFC3339, string(content))
	if err != nil {
		return 0
	}
	return time.Since(t)
}
