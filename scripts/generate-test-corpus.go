//go:build ignore

// Package main generates a synthetic markdown vault for manual testing
// and benchmarking.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/vault
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/vault", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var topics = []string{
	"deployment", "rollback", "monitoring", "alerting", "incident",
	"migration", "backup", "caching", "networking", "storage",
	"authentication", "logging", "testing", "release", "onboarding",
}

var tags = []string{
	"ops", "architecture", "runbook", "howto", "reference",
	"meeting", "decision", "draft", "archive",
}

var folders = []string{
	"guides", "runbooks", "notes", "decisions", "meetings",
	"reference", "projects/alpha", "projects/beta",
}

var sentences = []string{
	"The %s procedure starts with a health check across the fleet.",
	"Every %s change must be reviewed before it reaches production.",
	"When %s fails, page the on-call engineer and open a timeline.",
	"The %s dashboard tracks latency, error rate, and saturation.",
	"We batch %s updates to avoid thrashing downstream consumers.",
	"Historical %s data lives in the shared object store.",
	"The %s runbook was last verified during the quarterly drill.",
	"Restarting the %s service clears the stale connection pool.",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Generating %d documents under %s (seed %d)\n", *numFiles, *outputDir, *seed)

	for i := 0; i < *numFiles; i++ {
		folder := filepath.FromSlash(folders[rng.Intn(len(folders))])
		topic := topics[rng.Intn(len(topics))]
		name := fmt.Sprintf("%s-%04d.md", topic, i)
		path := filepath.Join(*outputDir, folder, name)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "mkdir %s: %v\n", filepath.Dir(path), err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, []byte(document(rng, topic, i)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("Done.")
}

// document renders one markdown file with front matter and a few
// paragraphs of topic-flavored prose.
func document(rng *rand.Rand, topic string, n int) string {
	var b strings.Builder

	tagA := tags[rng.Intn(len(tags))]
	tagB := tags[rng.Intn(len(tags))]
	created := time.Now().Add(-time.Duration(rng.Intn(365*24)) * time.Hour)
	title := strings.ToUpper(topic[:1]) + topic[1:]

	fmt.Fprintf(&b, "---\n")
	fmt.Fprintf(&b, "title: %s Notes %d\n", title, n)
	if tagA == tagB {
		fmt.Fprintf(&b, "tags: [%s]\n", tagA)
	} else {
		fmt.Fprintf(&b, "tags: [%s, %s]\n", tagA, tagB)
	}
	fmt.Fprintf(&b, "created: %s\n", created.Format("2006-01-02"))
	fmt.Fprintf(&b, "---\n\n")

	fmt.Fprintf(&b, "# %s Notes %d\n\n", title, n)

	paragraphs := 2 + rng.Intn(4)
	for p := 0; p < paragraphs; p++ {
		lines := 2 + rng.Intn(3)
		for l := 0; l < lines; l++ {
			fmt.Fprintf(&b, sentences[rng.Intn(len(sentences))], topic)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if rng.Intn(3) == 0 {
		fmt.Fprintf(&b, "## Checklist\n\n")
		for c := 0; c < 3; c++ {
			fmt.Fprintf(&b, "- [ ] verify %s step %d\n", topic, c+1)
		}
		b.WriteByte('\n')
	}

	return b.String()
}
