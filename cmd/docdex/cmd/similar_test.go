package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/query"
)

func similarFixtureRoot(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	// Two documents share deployment vocabulary, the third does not.
	require.NoError(t, writeFixture(filepath.Join(tmpDir, "deploy.md"),
		"# Deploy\n\ndeploy pipeline staging production rollback release\n"))
	require.NoError(t, writeFixture(filepath.Join(tmpDir, "release.md"),
		"# Release\n\nrelease pipeline staging production checklist\n"))
	require.NoError(t, writeFixture(filepath.Join(tmpDir, "cake.md"),
		"# Cake\n\nflour sugar butter chocolate oven\n"))

	return tmpDir
}

func TestSimilarCmd_RanksByTokenOverlap(t *testing.T) {
	// Given: documents with overlapping vocabulary
	root := similarFixtureRoot(t)

	// When: asking for documents similar to deploy.md
	cmd := newSimilarCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"deploy.md", "--root", root, "--format", "json"})

	err := cmd.Execute()

	// Then: release.md ranks above cake.md and the target is excluded
	require.NoError(t, err)
	var results []query.SimilarResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "release.md", results[0].ID)
	for _, r := range results {
		assert.NotEqual(t, "deploy.md", r.ID, "target must not appear in its own results")
	}
}

func TestSimilarCmd_TextOutput(t *testing.T) {
	root := similarFixtureRoot(t)

	cmd := newSimilarCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"deploy.md", "--root", root})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "similar to deploy.md")
	assert.Contains(t, output, "release.md")
	assert.Contains(t, output, "similarity:")
}

func TestSimilarCmd_UnknownIDFails(t *testing.T) {
	root := similarFixtureRoot(t)

	cmd := newSimilarCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"nope.md", "--root", root})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestSimilarCmd_RequiresID(t *testing.T) {
	cmd := newSimilarCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err, "similar without an id must fail argument validation")
}
