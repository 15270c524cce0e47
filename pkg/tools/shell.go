package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/2P3-io/ScriptOn/pkg/logger"
)

const defaultCommandTimeout = 60 * time.Second

// ExecCommandTool runs a shell command on the host and reports its output.
type ExecCommandTool struct {
	workdir string
	timeout time.Duration
}

func NewExecCommandTool(workdir string) *ExecCommandTool {
	return &ExecCommandTool{
		workdir: workdir,
		timeout: defaultCommandTimeout,
	}
}

func (t *ExecCommandTool) SetTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

func (t *ExecCommandTool) Name() string {
	return "execute_command"
}

func (t *ExecCommandTool) Description() string {
	return "Execute a shell command on the host and return its output"
}

func (t *ExecCommandTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecCommandTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	command, ok := args["command"].(string)
	if !ok || strings.TrimSpace(command) == "" {
		return ErrorResult("command is required")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	logger.InfoCF("tools", "Executing command", map[string]any{"command": command})

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	if t.workdir != "" {
		cmd.Dir = t.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrorResult(fmt.Sprintf("Command timed out after %s", t.timeout))
	}

	out := strings.TrimSpace(stdout.String())
	errOut := strings.TrimSpace(stderr.String())

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := fmt.Sprintf("Exit code %d", exitErr.ExitCode())
			if errOut != "" {
				msg += "\n" + errOut
			}
			if out != "" {
				msg += "\n" + out
			}
			return ErrorResult(msg)
		}
		return ErrorResult(fmt.Sprintf("Failed to start command: %v", err))
	}

	combined := out
	if errOut != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += errOut
	}
	// A successful command with no output still needs an acknowledgement,
	// otherwise the model keeps retrying it.
	if combined == "" {
		combined = "done"
	}

	return NewToolResult(combined)
}
