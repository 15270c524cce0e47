package openai_compat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2P3-io/ScriptOn/pkg/logger"
)

// Provider speaks the OpenAI-compatible chat completions protocol:
// POST {base}/chat/completions with {model, messages, tools, tool_choice}.
type Provider struct {
	apiKey  string
	apiBase string
	client  *http.Client
	debug   bool
}

func NewProvider(apiKey, apiBase, proxy string, timeout time.Duration) (*Provider, error) {
	transport := http.DefaultTransport
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &Provider{
		apiKey:  apiKey,
		apiBase: strings.TrimRight(apiBase, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

// SetDebug enables request/response tracing to the operational log.
func (p *Provider) SetDebug(enabled bool) {
	p.debug = enabled
}

// Message is the wire form of a conversation turn.
type Message struct {
	Role       string     `json:"role"`
	Name       string     `json:"name,omitempty"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes one callable tool in the catalog.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the parsed assistant reply from one completion round.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *Usage
}

type chatRequest struct {
	Model      string           `json:"model"`
	Messages   []Message        `json:"messages"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
	MaxTokens  int              `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *Provider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*Response, error) {
	req := chatRequest{
		Model:    model,
		Messages: messages,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	if mt, ok := options["max_tokens"].(int); ok && mt > 0 {
		req.MaxTokens = mt
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	if p.debug {
		logger.DebugCF("provider", "Chat request", map[string]any{
			"model":          model,
			"messages_count": len(messages),
			"tools_count":    len(tools),
			"body":           string(body),
		})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if p.debug {
		logger.DebugCF("provider", "Chat response", map[string]any{
			"status": httpResp.StatusCode,
			"body":   string(respBody),
		})
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("backend error (status %d): %s", httpResp.StatusCode, snippet(respBody))
		}
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("backend error (status %d): %s", httpResp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("backend error (status %d): %s", httpResp.StatusCode, snippet(respBody))
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("backend returned no choices")
	}

	choice := parsed.Choices[0].Message
	return &Response{
		Content:   choice.Content,
		ToolCalls: choice.ToolCalls,
		Usage:     parsed.Usage,
	}, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
