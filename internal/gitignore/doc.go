// Package gitignore matches paths against gitignore-style patterns so
// the scanner and watcher skip what the repository itself ignores.
//
// The supported syntax follows https://git-scm.com/docs/gitignore:
// wildcards (*, ?, **), rooted patterns (/build), directory-only
// patterns (build/), and negations (!important.md). Patterns from
// nested .gitignore files apply relative to their own directory.
//
//	m := gitignore.New()
//	m.AddPattern("*.tmp")
//	m.AddPattern("!keep.tmp")
//	m.AddFromFile("/vault/.gitignore", "")
//
//	if m.Match("draft.tmp", false) {
//	    // skipped
//	}
//
// Matching is safe for concurrent use.
package gitignore
