package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	// Given: a DexError
	err := New(ErrCodeFileNotFound, "file 'config.yaml' not found", nil)

	// When: formatting for user (no debug)
	result := FormatForUser(err, false)

	// Then: contains message
	assert.Contains(t, result, "file 'config.yaml' not found")
	// And: contains error code at end
	assert.Contains(t, result, "[ERR_201_FILE_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	// Given: an error with suggestion
	err := New(ErrCodeIndexNotReady, "index is still building", nil).
		WithSuggestion("Retry in a few seconds or check 'docdex status'")

	// When: formatting for user
	result := FormatForUser(err, false)

	// Then: contains suggestion
	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "docdex status")
}

func TestFormatForUser_DebugIncludesCause(t *testing.T) {
	// Given: an error with a cause
	cause := errors.New("yaml: line 3: mapping values are not allowed")
	err := New(ErrCodeConfigInvalid, "config is invalid", cause)

	// When: formatting with debug
	result := FormatForUser(err, true)

	// Then: cause appears
	assert.Contains(t, result, "Cause:")
	assert.Contains(t, result, "line 3")

	// And: without debug it does not
	assert.NotContains(t, FormatForUser(err, false), "Cause:")
}

func TestFormatForUser_StandardError(t *testing.T) {
	// Given: a standard Go error
	err := errors.New("something went wrong")

	// When: formatting for user
	result := FormatForUser(err, false)

	// Then: shows generic message
	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	// When: formatting nil
	result := FormatForUser(nil, false)

	// Then: returns empty string
	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	// Given: a DexError with details
	err := New(ErrCodeFileNotFound, "file not found", nil).
		WithDetail("path", "notes/todo.md").
		WithSuggestion("Check the file path")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	// And: contains expected fields
	assert.Equal(t, ErrCodeFileNotFound, result["code"])
	assert.Equal(t, "file not found", result["message"])
	assert.Equal(t, string(CategoryIO), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "Check the file path", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notes/todo.md", details["path"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	// Given: a standard error
	err := errors.New("generic error")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON with internal error code
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	// When: formatting nil
	data, err := FormatJSON(nil)

	// Then: returns empty result
	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	// Given: an error with cause
	cause := errors.New("underlying error")
	err := New(ErrCodeInternal, "operation failed", cause)

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: includes cause
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: an error with a suggestion
	err := New(ErrCodeRootUnavailable, "cannot access notes directory", nil).
		WithSuggestion("Check the path in .docdex.yaml")

	// When: formatting for CLI
	result := FormatForCLI(err)

	// Then: contains error info
	assert.Contains(t, result, "cannot access notes directory")
	assert.Contains(t, result, "Hint:")
	assert.Contains(t, result, "ERR_203_ROOT_UNAVAILABLE")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	// Given: a simple error
	err := New(ErrCodeFileNotFound, "file not found", nil)

	// When: formatting for CLI
	result := FormatForCLI(err)

	// Then: is concise
	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "Should be concise")
}

func TestFormatForLog_ProducesSlogAttributes(t *testing.T) {
	// Given: a rich error
	err := New(ErrCodeDocumentNotFound, "document not found: a.md", nil).
		WithDetail("id", "a.md").
		WithSuggestion("Run 'docdex list' to see known documents")

	// When: formatting for log
	result := FormatForLog(err)

	// Then: flat key-value pairs
	assert.Equal(t, ErrCodeDocumentNotFound, result["error_code"])
	assert.Equal(t, string(CategoryIO), result["category"])
	assert.Equal(t, "a.md", result["detail_id"])
	assert.NotEmpty(t, result["suggestion"])
}

func TestFormatForLog_NilAndStandardErrors(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))

	result := FormatForLog(errors.New("plain"))
	assert.Equal(t, "plain", result["error"])
}
