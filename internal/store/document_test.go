package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTags_YAMLSequence(t *testing.T) {
	// Given: tags as yaml.v3 delivers a sequence into map[string]any
	doc := Document{Metadata: map[string]any{"tags": []any{"planning", "roadmap"}}}

	assert.Equal(t, []string{"planning", "roadmap"}, doc.Tags())
}

func TestTags_StringSlice(t *testing.T) {
	doc := Document{Metadata: map[string]any{"tags": []string{"a", "b"}}}

	assert.Equal(t, []string{"a", "b"}, doc.Tags())
}

func TestTags_SingleString(t *testing.T) {
	// Given: a lone tag written without sequence syntax
	doc := Document{Metadata: map[string]any{"tags": "journal"}}

	assert.Equal(t, []string{"journal"}, doc.Tags())
}

func TestTags_MixedSequence_SkipsNonStrings(t *testing.T) {
	// Given: a sequence with a stray number in it
	doc := Document{Metadata: map[string]any{"tags": []any{"ok", 42, "also-ok"}}}

	assert.Equal(t, []string{"ok", "also-ok"}, doc.Tags())
}

func TestTags_AbsentOrNil(t *testing.T) {
	assert.Nil(t, Document{}.Tags())
	assert.Nil(t, Document{Metadata: map[string]any{}}.Tags())
	assert.Nil(t, Document{Metadata: map[string]any{"tags": ""}}.Tags())
	assert.Nil(t, Document{Metadata: map[string]any{"tags": 7}}.Tags())
}

func TestHasTag_ExactMatch(t *testing.T) {
	doc := Document{Metadata: map[string]any{"tags": []any{"Planning", "roadmap"}}}

	assert.True(t, doc.HasTag("roadmap"))
	assert.True(t, doc.HasTag("Planning"))
	assert.False(t, doc.HasTag("planning"), "tag matching is exact, including case")
	assert.False(t, doc.HasTag("road"))
}
