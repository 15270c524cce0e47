package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2P3-io/ScriptOn/pkg/providers"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"telegram:123456", "telegram_123456"},
		{"telegram:-987654", "telegram_-987654"},
		{"no-colons-here", "no-colons-here"},
		{"multiple:colons:here", "multiple_colons_here"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetOrCreate(t *testing.T) {
	m := NewManager("")

	conv, created := m.GetOrCreate("telegram:1")
	if !created {
		t.Fatal("expected first GetOrCreate to report creation")
	}
	if conv.Key != "telegram:1" || len(conv.Turns) != 0 {
		t.Errorf("unexpected fresh conversation: %+v", conv)
	}

	_, created = m.GetOrCreate("telegram:1")
	if created {
		t.Error("expected second GetOrCreate to find existing conversation")
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 conversation, got %d", m.Count())
	}
}

func TestHistoryIsACopy(t *testing.T) {
	m := NewManager("")
	m.GetOrCreate("k")
	m.AddTurn("k", "user", "hello")

	history := m.History("k")
	history[0].Content = "mutated"

	if got := m.History("k")[0].Content; got != "hello" {
		t.Errorf("internal state mutated through returned history: %q", got)
	}
}

func TestSave_WithColonInKey(t *testing.T) {
	tmpDir := t.TempDir()
	m := NewManager(tmpDir)

	// Typical channel conversation key contains a colon.
	key := "telegram:123456"
	m.GetOrCreate(key)
	m.AddTurn(key, "user", "hello")

	if err := m.Save(key); err != nil {
		t.Fatalf("Save(%q) failed: %v", key, err)
	}

	expectedFile := filepath.Join(tmpDir, "telegram_123456.json")
	if _, err := os.Stat(expectedFile); os.IsNotExist(err) {
		t.Fatalf("expected conversation file %s to exist", expectedFile)
	}

	// Load into a fresh manager and verify the conversation round-trips.
	m2 := NewManager(tmpDir)
	history := m2.History(key)
	if len(history) != 1 {
		t.Fatalf("expected 1 turn after reload, got %d", len(history))
	}
	if history[0].Content != "hello" {
		t.Errorf("expected turn content %q, got %q", "hello", history[0].Content)
	}
}

func TestSave_RejectsPathTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	m := NewManager(tmpDir)

	badKeys := []string{"", ".", "..", "foo/bar", "foo\\bar"}
	for _, key := range badKeys {
		m.GetOrCreate(key)
		if err := m.Save(key); err == nil {
			t.Errorf("Save(%q) should have failed but didn't", key)
		}
	}
}

func TestSanitizeHistory_OrphanedToolCall(t *testing.T) {
	history := []providers.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "sure", ToolCalls: []providers.ToolCall{
			{ID: "call_1", Name: "execute_command"},
			{ID: "call_2", Name: "exec_python"},
		}},
		{Role: "tool", Content: "ok", ToolCallID: "call_1"},
		// Missing tool result for call_2 -> orphaned
	}

	sanitized, removed := SanitizeHistory(history)
	if removed == 0 {
		t.Fatal("expected orphaned turns to be removed")
	}
	if len(sanitized) != 1 || sanitized[0].Role != "user" {
		t.Errorf("expected [user], got %d turns: %v", len(sanitized), sanitized)
	}
}

func TestSanitizeHistory_CleanHistory(t *testing.T) {
	history := []providers.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "sure", ToolCalls: []providers.ToolCall{
			{ID: "call_1", Name: "execute_command"},
		}},
		{Role: "tool", Content: "ok", ToolCallID: "call_1"},
		{Role: "assistant", Content: "done"},
	}

	sanitized, removed := SanitizeHistory(history)
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
	if len(sanitized) != 4 {
		t.Errorf("expected 4 turns, got %d", len(sanitized))
	}
}

func TestSanitizeHistory_Empty(t *testing.T) {
	sanitized, removed := SanitizeHistory(nil)
	if removed != 0 || sanitized != nil {
		t.Errorf("expected nil/0, got %v/%d", sanitized, removed)
	}
}
