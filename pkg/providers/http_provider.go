// ScriptOn - Telegram front end for LLM-driven command execution
// License: MIT
//
// Copyright (c) 2026 ScriptOn contributors

package providers

import (
	"context"
	"time"

	"github.com/2P3-io/ScriptOn/pkg/providers/openai_compat"
)

type HTTPProvider struct {
	delegate *openai_compat.Provider
}

func NewHTTPProvider(apiKey, apiBase, proxy string, timeout time.Duration) (*HTTPProvider, error) {
	delegate, err := openai_compat.NewProvider(apiKey, apiBase, proxy, timeout)
	if err != nil {
		return nil, err
	}
	return &HTTPProvider{delegate: delegate}, nil
}

func (p *HTTPProvider) SetDebug(enabled bool) {
	p.delegate.SetDebug(enabled)
}

func (p *HTTPProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*LLMResponse, error) {
	resp, err := p.delegate.Chat(ctx, toWireMessages(messages), toWireTools(tools), model, options)
	if err != nil {
		return nil, err
	}

	out := &LLMResponse{Content: resp.Content}
	if resp.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	for _, tc := range resp.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Type:      tc.Type,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	// Some backends leak tool call JSON into Content alongside (or instead
	// of) the structured tool_calls array. Recover those, then strip them
	// from the text so users never see raw call payloads.
	if extracted := extractToolCallsFromText(out.Content); len(extracted) > 0 {
		out.ToolCalls = append(out.ToolCalls, extracted...)
		out.Content = stripToolCallsFromText(out.Content)
	}

	return out, nil
}

func (p *HTTPProvider) GetDefaultModel() string {
	return ""
}

func toWireMessages(messages []Message) []openai_compat.Message {
	out := make([]openai_compat.Message, 0, len(messages))
	for _, m := range messages {
		wm := openai_compat.Message{
			Role:       m.Role,
			Name:       m.Name,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, openai_compat.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: openai_compat.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

func toWireTools(tools []ToolDefinition) []openai_compat.ToolDefinition {
	out := make([]openai_compat.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai_compat.ToolDefinition{
			Type: t.Type,
			Function: openai_compat.FunctionDef{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}
