package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToolCallsFromText(t *testing.T) {
	text := `Let me run that. {"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "execute_command", "arguments": "{\"command\": \"ls -la\"}"}}]}`

	calls := extractToolCallsFromText(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "function", calls[0].Type)
	assert.Equal(t, "execute_command", calls[0].Name)
	assert.JSONEq(t, `{"command": "ls -la"}`, calls[0].Arguments)
}

func TestExtractToolCallsFromTextSynthesizesMissingFields(t *testing.T) {
	text := `{"tool_calls": [{"function": {"name": "exec_python", "arguments": "{\"code\": \"1+1\"}"}}]}`

	calls := extractToolCallsFromText(text)
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
	assert.True(t, len(calls[0].ID) > len("call_"))
	assert.Equal(t, "function", calls[0].Type)
}

func TestExtractToolCallsFromTextNoMatch(t *testing.T) {
	assert.Nil(t, extractToolCallsFromText("just a regular reply"))
	assert.Nil(t, extractToolCallsFromText(`{"tool_calls": [truncated`))
	assert.Nil(t, extractToolCallsFromText(`{"tool_calls": "not an array"}`))
}

func TestStripToolCallsFromText(t *testing.T) {
	text := `Running now. {"tool_calls": [{"id": "c", "type": "function", "function": {"name": "execute_command", "arguments": "{}"}}]} Done.`

	assert.Equal(t, "Running now.  Done.", stripToolCallsFromText(text))
	assert.Equal(t, "no calls here", stripToolCallsFromText("no calls here"))
}

func TestFindMatchingBrace(t *testing.T) {
	text := `{"a": {"b": "}"}, "c": 1} tail`
	end := findMatchingBrace(text, 0)
	assert.Equal(t, `{"a": {"b": "}"}, "c": 1}`, text[:end])

	// Unterminated object returns start unchanged.
	assert.Equal(t, 0, findMatchingBrace(`{"open": `, 0))
}
