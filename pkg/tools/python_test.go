package tools

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func TestPythonTool_Expression(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	result := tool.Execute(context.Background(), map[string]any{
		"cell": "print(2 + 2)",
	})

	if result.IsError {
		t.Fatalf("Expected success, got error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "4") {
		t.Errorf("Expected '4' in output, got: %s", result.ForLLM)
	}
}

func TestPythonTool_BareExpressionResult(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	// A trailing bare expression is displayed as its repr, like the REPL.
	cases := []struct {
		cell string
		want string
	}{
		{"2+2", "4"},
		{"'ab' * 2", "'abab'"},
		{"n = 21\nn * 2", "42"},
	}
	for _, tc := range cases {
		result := tool.Execute(context.Background(), map[string]any{"cell": tc.cell})
		if result.IsError {
			t.Fatalf("cell %q failed: %s", tc.cell, result.ForLLM)
		}
		if result.ForLLM != tc.want {
			t.Errorf("cell %q: expected %q, got %q", tc.cell, tc.want, result.ForLLM)
		}
	}
}

func TestPythonTool_NoneResultIsSilent(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	result := tool.Execute(context.Background(), map[string]any{"cell": "None"})

	if result.ForLLM != "done" {
		t.Errorf("Expected 'done' for a None expression, got: %q", result.ForLLM)
	}
}

func TestPythonTool_OutputWithoutNewlineKept(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	result := tool.Execute(context.Background(), map[string]any{
		"cell": "import sys\n_ = sys.stdout.write('frag')",
	})

	if result.ForLLM != "frag" {
		t.Errorf("Expected unterminated output to survive, got: %q", result.ForLLM)
	}
}

func TestPythonTool_StatePersistsBetweenCells(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	first := tool.Execute(context.Background(), map[string]any{
		"cell": "x = 41",
	})
	if first.IsError {
		t.Fatalf("first cell failed: %s", first.ForLLM)
	}

	second := tool.Execute(context.Background(), map[string]any{
		"cell": "print(x + 1)",
	})
	if !strings.Contains(second.ForLLM, "42") {
		t.Errorf("Expected persisted binding, got: %s", second.ForLLM)
	}
}

func TestPythonTool_ErrorReturnsTracebackText(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	result := tool.Execute(context.Background(), map[string]any{
		"cell": "1/0",
	})

	// Interpreter errors come back as text, never as a failed result.
	if result.IsError {
		t.Fatalf("Expected textual traceback, got IsError=true: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "ZeroDivisionError") {
		t.Errorf("Expected traceback in output, got: %s", result.ForLLM)
	}

	// The session keeps working after an error.
	after := tool.Execute(context.Background(), map[string]any{
		"cell": "print('still alive')",
	})
	if !strings.Contains(after.ForLLM, "still alive") {
		t.Errorf("Expected session to survive error, got: %s", after.ForLLM)
	}
}

func TestPythonTool_EmptyOutputIsDone(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	result := tool.Execute(context.Background(), map[string]any{
		"cell": "y = 1",
	})

	if result.ForLLM != "done" {
		t.Errorf("Expected 'done' for silent cell, got: %q", result.ForLLM)
	}
}

func TestPythonTool_LongOutputTruncated(t *testing.T) {
	requirePython(t)

	tool := NewPythonTool()
	defer tool.Close()

	result := tool.Execute(context.Background(), map[string]any{
		"cell": "print('x' * 5000)",
	})

	if !strings.HasSuffix(result.ForLLM, "... truncated") {
		t.Errorf("Expected truncation marker, got tail: %s",
			result.ForLLM[len(result.ForLLM)-40:])
	}
	if len(result.ForLLM) > pythonOutputLimit+len("\n\n... truncated") {
		t.Errorf("Expected output capped, got length %d", len(result.ForLLM))
	}
}

func TestPythonTool_MissingCell(t *testing.T) {
	tool := NewPythonTool()

	result := tool.Execute(context.Background(), map[string]any{})

	if !result.IsError {
		t.Errorf("Expected error when cell is missing")
	}
}
