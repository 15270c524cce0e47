package tools

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/2P3-io/ScriptOn/pkg/logger"
)

const (
	pythonOutputLimit   = 1000
	pythonSentinel      = "\x01__scripton_cell_done__\x01"
	defaultPythonPrompt = 120 * time.Second
)

// PythonTool runs code cells inside one long-lived interpreter session so
// that bindings persist between cells for the life of the process. The
// session is created lazily on first use and shared by every conversation.
type PythonTool struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	timeout time.Duration
}

func NewPythonTool() *PythonTool {
	return &PythonTool{timeout: defaultPythonPrompt}
}

func (t *PythonTool) SetTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

func (t *PythonTool) Name() string {
	return "exec_python"
}

func (t *PythonTool) Description() string {
	return "Execute a Python code cell in a persistent interpreter session and return its output"
}

func (t *PythonTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"cell": map[string]interface{}{
				"type":        "string",
				"description": "Python code to execute",
			},
		},
		"required": []string{"cell"},
	}
}

// Execute always produces a textual result. Interpreter errors come back as
// the captured traceback text, never as a failed result, so the caller can
// relay them verbatim.
func (t *PythonTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	cell, ok := args["cell"].(string)
	if !ok || strings.TrimSpace(cell) == "" {
		return ErrorResult("cell is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureSession(); err != nil {
		return NewToolResult(fmt.Sprintf("Failed to start interpreter: %v", err))
	}

	output, err := t.runCell(ctx, cell)
	if err != nil {
		// The session is unusable after a protocol failure; drop it so the
		// next cell starts fresh.
		t.shutdownLocked()
		return NewToolResult(fmt.Sprintf("Interpreter session failed: %v", err))
	}

	output = strings.TrimSpace(output)
	if output == "" {
		output = "done"
	}
	if runes := []rune(output); len(runes) > pythonOutputLimit {
		output = string(runes[:pythonOutputLimit]) + "\n\n... truncated"
	}
	return NewToolResult(output)
}

// Close terminates the interpreter session if one is running.
func (t *PythonTool) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdownLocked()
}

func (t *PythonTool) ensureSession() error {
	if t.cmd != nil {
		return nil
	}

	cmd := exec.Command("python3", "-i", "-q", "-u")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	// Interactive prompts and tracebacks both land on stderr; merge the
	// streams so cell output and error text arrive in order.
	outR, outW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return err
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		stdin.Close()
		outR.Close()
		outW.Close()
		return err
	}
	outW.Close()

	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		defer outR.Close()
		scanner := bufio.NewScanner(outR)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	t.cmd = cmd
	t.stdin = stdin
	t.lines = lines

	logger.InfoCF("tools", "Interpreter session started", map[string]any{"pid": cmd.Process.Pid})

	// Suppress the ">>> " / "... " prompts that would otherwise interleave
	// with cell output on the merged stream.
	_, err = io.WriteString(stdin, "import sys; sys.ps1=''; sys.ps2=''\n")
	return err
}

func (t *PythonTool) runCell(ctx context.Context, cell string) (string, error) {
	// The cell is handed to a small driver that runs inside the session's
	// persistent globals. It executes every statement in exec mode except a
	// trailing bare expression, which is evaluated separately and displayed
	// as its repr (None stays silent), matching what the REPL would show for
	// "2+2". The whole driver goes through exec() as a single line so
	// multi-line code never trips over the REPL's blank-line continuation
	// rules.
	encoded := base64.StdEncoding.EncodeToString([]byte(cell))
	driver := fmt.Sprintf(`import ast as _ast, base64 as _b64
_src = _b64.b64decode('%s').decode()
_tree = _ast.parse(_src, '<cell>', 'exec')
if _tree.body and isinstance(_tree.body[-1], _ast.Expr):
    _last = _ast.Expression(_tree.body.pop().value)
    exec(compile(_tree, '<cell>', 'exec'), globals())
    _res = eval(compile(_last, '<cell>', 'eval'), globals())
    if _res is not None:
        print(repr(_res))
else:
    exec(compile(_tree, '<cell>', 'exec'), globals())
`, encoded)
	payload := fmt.Sprintf(
		"exec(compile(__import__('base64').b64decode('%s').decode(), '<cell>', 'exec'))\nprint(%q, flush=True)\n",
		base64.StdEncoding.EncodeToString([]byte(driver)), pythonSentinel,
	)
	if _, err := io.WriteString(t.stdin, payload); err != nil {
		return "", fmt.Errorf("write cell: %w", err)
	}

	deadline := time.NewTimer(t.timeout)
	defer deadline.Stop()

	var out strings.Builder
	for {
		select {
		case line, ok := <-t.lines:
			if !ok {
				return "", fmt.Errorf("interpreter exited")
			}
			// A cell whose final write has no trailing newline lands on the
			// sentinel's line; keep that prefix.
			if idx := strings.Index(line, pythonSentinel); idx >= 0 {
				out.WriteString(line[:idx])
				return out.String(), nil
			}
			out.WriteString(line)
			out.WriteString("\n")
		case <-deadline.C:
			return "", fmt.Errorf("cell timed out after %s", t.timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (t *PythonTool) shutdownLocked() {
	if t.cmd == nil {
		return
	}
	t.stdin.Close()
	t.cmd.Process.Kill()
	t.cmd.Wait()
	t.cmd = nil
	t.stdin = nil
	t.lines = nil
}
