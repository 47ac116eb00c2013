// Package normalize converts raw document bytes into the derived fields
// the store and index consume: front matter metadata, plain text, title,
// and the token set used for similarity.
package normalize

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Regex patterns for markdown parsing
var (
	// Matches front matter: ---\n...\n--- at the start of the document.
	// The closing fence must end a line so "----" rulers don't terminate
	// the block early.
	frontMatterPattern = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---(?:\r?\n+|\z)`)

	// Matches headers: # Title, ## Title, etc.
	headingPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

	// Matches word tokens: unicode letters, digits, underscore.
	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// markdown is the shared goldmark instance. Parsing is stateless and safe
// for concurrent use.
var markdown = goldmark.New()

// SplitFrontMatter separates a leading YAML front matter block from the
// document body. A leading "---" line opens the block; the next "---" line
// closes it. The block parses into a string-keyed map.
//
// This never fails: no opening fence, an unterminated block, or invalid
// YAML all degrade to nil metadata with the whole input as body.
func SplitFrontMatter(raw []byte) (map[string]any, []byte) {
	match := frontMatterPattern.FindSubmatch(raw)
	if match == nil {
		return nil, raw
	}

	var meta map[string]any
	if err := yaml.Unmarshal(match[1], &meta); err != nil {
		// Malformed front matter is ordinary content
		return nil, raw
	}

	return meta, raw[len(match[0]):]
}

// Normalize converts a document body to indexable plain text and the token
// set derived from it. Both always come from the same input, so callers can
// store them as one consistent record.
func Normalize(body []byte) (string, map[string]struct{}) {
	plain := PlainText(body)
	return plain, Tokenize(plain)
}

// PlainText renders markdown to plain text via a goldmark AST walk.
// Heading markers, emphasis, and link targets are dropped; link labels and
// code content survive. Whitespace collapses to single spaces so excerpts
// stay compact.
func PlainText(body []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(body))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Separate block-level nodes so adjacent paragraphs and
			// headings don't fuse into one word.
			if n.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(body))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.URL(body))
		case *ast.CodeBlock:
			writeRawLines(&buf, n, body)
		case *ast.FencedCodeBlock:
			writeRawLines(&buf, n, body)
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		// Walk only fails if a visitor fails; degrade to the raw body
		return collapseWhitespace(string(body))
	}

	return collapseWhitespace(buf.String())
}

// writeRawLines copies a block node's source lines verbatim.
func writeRawLines(buf *bytes.Buffer, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
}

// collapseWhitespace reduces all whitespace runs to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize lower-cases text and splits it into its set of word tokens.
func Tokenize(text string) map[string]struct{} {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ExtractTitle picks the document title with decreasing preference:
// front matter "title", first markdown heading, file name with
// separators replaced by spaces and the extension dropped.
func ExtractTitle(path string, meta map[string]any, body []byte) string {
	if t, ok := meta["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}

	if m := headingPattern.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[2]))
	}

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return collapseWhitespace(name)
}
