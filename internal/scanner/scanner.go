package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docdex/docdex/internal/gitignore"
)

// gitignoreCacheSize bounds the parsed-matcher cache so long-running
// watch sessions over large trees don't grow without limit.
const gitignoreCacheSize = 1000

// Scanner discovers eligible document files under a root directory.
type Scanner struct {
	rules Rules

	// gitignoreCache caches parsed matchers by directory.
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex
}

// New creates a Scanner enforcing the given eligibility rules.
func New(rules Rules) (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{
		rules:          rules,
		gitignoreCache: cache,
	}, nil
}

// Rules returns the eligibility rules the scanner enforces. The watcher
// applies the same rules to its event stream.
func (s *Scanner) Rules() Rules {
	return s.rules
}

// Scan walks the root and streams eligible files. The returned channel is
// closed when the walk completes or ctx is cancelled. Files the scanner
// cannot stat or read are skipped, never fatal.
func (s *Scanner) Scan(ctx context.Context, rootDir string) (<-chan ScanResult, error) {
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, results)
	}()

	return results, nil
}

// walk performs the directory traversal, yielding between files through
// the channel send.
func (s *Scanner) walk(ctx context.Context, absRoot string, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.rules.ExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are never followed; a link pointing outside the root
		// would break the relative-path document identity.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		relPath = filepath.ToSlash(relPath)
		if !s.rules.EligiblePath(relPath) {
			return nil
		}
		if s.isGitignored(relPath, absRoot) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > s.rules.MaxSize() {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		file := &FileInfo{
			Path:    relPath,
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- ScanResult{Error: err}:
		default:
		}
	}
}

// isBinaryFile sniffs the first 512 bytes for a null byte.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

// isGitignored checks the root .gitignore and every nested one on the
// path to the file.
func (s *Scanner) isGitignored(relPath, absRoot string) bool {
	if matcher := s.getGitignoreMatcher(absRoot, ""); matcher != nil && matcher.Match(relPath, false) {
		return true
	}

	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}

	currentDir := absRoot
	currentBase := ""
	for _, part := range strings.Split(dir, "/") {
		currentDir = filepath.Join(currentDir, part)
		currentBase = filepath.Join(currentBase, part)
		if matcher := s.getGitignoreMatcher(currentDir, currentBase); matcher != nil && matcher.Match(relPath, false) {
			return true
		}
	}
	return false
}

// getGitignoreMatcher gets or creates a matcher for a directory.
func (s *Scanner) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil
	}

	matcher = gitignore.New()
	if err := matcher.AddFromFile(gitignorePath, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()
	return matcher
}

// InvalidateGitignoreCache drops cached matchers so edited .gitignore
// files take effect on the next scan. Safe for concurrent use.
func (s *Scanner) InvalidateGitignoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gitignoreCache.Purge()
}
