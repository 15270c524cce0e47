// ScriptOn - Telegram front end for LLM-driven command execution
// License: MIT
//
// Copyright (c) 2026 ScriptOn contributors

package tools

import "context"

// Tool is one entry in the callable catalog exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *ToolResult
}

// ToolResult separates what goes back into the conversation (ForLLM) from
// what is shown to the user (ForUser).
type ToolResult struct {
	ForLLM  string
	ForUser string
	IsError bool
	Err     error
}

func NewToolResult(content string) *ToolResult {
	return &ToolResult{ForLLM: content, ForUser: content}
}

func ErrorResult(msg string) *ToolResult {
	return &ToolResult{ForLLM: msg, ForUser: msg, IsError: true}
}
