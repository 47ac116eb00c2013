package store

import "time"

// Document represents one indexed source file.
type Document struct {
	ID           string              // Path relative to the document root, slash-separated
	Title        string              // Front matter title, first heading, or derived from file name
	PlainText    string              // Normalized body text, markup stripped
	Metadata     map[string]any      // Raw front matter mapping; nil when absent
	LastModified time.Time           // Filesystem mtime at the read that produced this record
	Tokens       map[string]struct{} // Lower-cased word set derived from PlainText
}

// Tags normalizes Metadata["tags"] into a string slice. Front matter
// authors write tags as a YAML sequence, a single string, or not at all;
// downstream filtering only ever sees []string.
func (d Document) Tags() []string {
	if d.Metadata == nil {
		return nil
	}

	switch v := d.Metadata["tags"].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// HasTag reports whether the document carries the exact tag.
func (d Document) HasTag(tag string) bool {
	for _, t := range d.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}
