package preflight

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MinMemoryBytes is the minimum available memory (1 GB). The store and
// bleve index both live in memory, sized by the document tree.
const MinMemoryBytes = 1 * 1024 * 1024 * 1024

// CheckMemory verifies the system has headroom for an in-memory index.
func (c *Checker) CheckMemory() CheckResult {
	result := CheckResult{
		Name:     "memory",
		Required: true,
	}

	available := availableMemory()
	result.Message = fmt.Sprintf("%s available (minimum: 1 GB)", formatBytes(available))
	if available < MinMemoryBytes {
		result.Status = StatusFail
	} else {
		result.Status = StatusPass
	}
	return result
}

// availableMemory reads MemAvailable from /proc/meminfo. On systems
// without it (non-Linux, old kernels) a 4 GB estimate keeps the check
// from failing spuriously; constrained containers do expose meminfo.
func availableMemory() uint64 {
	const fallback = 4 * 1024 * 1024 * 1024

	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return fallback
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			break
		}
		return kb * 1024
	}
	return fallback
}
