// ScriptOn - Telegram front end for LLM-driven command execution
// License: MIT
//
// Copyright (c) 2026 ScriptOn contributors

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/2P3-io/ScriptOn/pkg/bus"
	"github.com/2P3-io/ScriptOn/pkg/config"
	"github.com/2P3-io/ScriptOn/pkg/logger"
	"github.com/2P3-io/ScriptOn/pkg/providers"
	"github.com/2P3-io/ScriptOn/pkg/session"
	"github.com/2P3-io/ScriptOn/pkg/stats"
	"github.com/2P3-io/ScriptOn/pkg/tools"
	"github.com/2P3-io/ScriptOn/pkg/utils"
)

// sessionSemaphore is a per-conversation mutex using a buffered channel.
type sessionSemaphore struct {
	ch chan struct{}
}

func newSessionSemaphore() *sessionSemaphore {
	s := &sessionSemaphore{ch: make(chan struct{}, 1)}
	s.ch <- struct{}{} // initially unlocked
	return s
}

// Orchestrator owns per-chat history, calls the completion backend with the
// fixed two-tool catalog, dispatches any tool calls the model returns, and
// folds the results back into the conversation before replying.
type Orchestrator struct {
	bus           *bus.MessageBus
	cfg           *config.Config
	provider      providers.LLMProvider
	conversations *session.Manager
	registry      *tools.ToolRegistry
	python        *tools.PythonTool
	stats         *stats.Tracker
	running       atomic.Bool
	sessionLocks  sync.Map // sessionKey -> *sessionSemaphore
}

func NewOrchestrator(cfg *config.Config, msgBus *bus.MessageBus, provider providers.LLMProvider) *Orchestrator {
	workspace := cfg.Agent.Workspace

	var store *session.Manager
	var tracker *stats.Tracker
	if workspace != "" {
		store = session.NewManager(filepath.Join(workspace, "conversations"))
		tracker = stats.NewTracker(filepath.Join(workspace, "state"))
	} else {
		store = session.NewManager("")
	}

	python := tools.NewPythonTool()

	shell := tools.NewExecCommandTool(workspace)
	shell.SetTimeout(cfg.Agent.CommandTimeout)

	// The catalog is fixed process-wide: one path for opaque host commands,
	// one path for stateful interpreted code.
	registry := tools.NewToolRegistry()
	registry.Register(shell)
	registry.Register(python)

	return &Orchestrator{
		bus:           msgBus,
		cfg:           cfg,
		provider:      provider,
		conversations: store,
		registry:      registry,
		python:        python,
		stats:         tracker,
	}
}

func (o *Orchestrator) Run(ctx context.Context) error {
	o.running.Store(true)
	defer o.python.Close()

	// LLM work is dispatched to a background worker so the main loop stays
	// free to answer slash commands instantly, even while a long tool-call
	// round is running.
	llmQueue := make(chan bus.InboundMessage, 10)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		o.llmWorker(ctx, llmQueue)
	}()
	defer func() {
		close(llmQueue)
		<-workerDone
	}()

	for o.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, ok := o.bus.ConsumeInbound(ctx)
		if !ok {
			continue
		}

		if response, handled := o.handleCommand(ctx, msg); handled {
			if response != "" {
				o.bus.PublishOutbound(bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: response,
				})
			}
			continue
		}

		select {
		case llmQueue <- msg:
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

func (o *Orchestrator) Stop() {
	o.running.Store(false)
}

// llmWorker processes queued messages sequentially in a background goroutine.
func (o *Orchestrator) llmWorker(ctx context.Context, queue <-chan bus.InboundMessage) {
	for msg := range queue {
		if ctx.Err() != nil {
			return
		}

		replies := o.ProcessMessage(ctx, msg)
		for _, reply := range replies {
			o.bus.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: reply,
			})
		}
	}
}

// handleCommand answers slash commands that never reach the LLM.
func (o *Orchestrator) handleCommand(ctx context.Context, msg bus.InboundMessage) (string, bool) {
	content := strings.TrimSpace(msg.Content)

	switch {
	case content == "/stats":
		if o.stats == nil {
			return "Statistics are not enabled.", true
		}
		return o.stats.Summary(), true

	case strings.HasPrefix(content, "/exec"):
		// Direct interpreter access, bypassing the LLM entirely. Disabled by
		// default; tool-call-mediated execution is the normal path.
		if !o.cfg.Agent.DirectExec {
			return "Direct execution is disabled.", true
		}
		cell := strings.TrimSpace(strings.TrimPrefix(content, "/exec"))
		result := o.python.Execute(ctx, map[string]interface{}{"cell": cell})
		return result.ForLLM, true
	}

	return "", false
}

// ProcessMessage runs one full orchestration round for an inbound message
// and returns the outbound replies in delivery order.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg bus.InboundMessage) []string {
	sessionKey := msg.SessionKey
	if sessionKey == "" {
		sessionKey = fmt.Sprintf("%s:%s", msg.Channel, msg.ChatID)
	}

	if !o.acquireSessionLock(ctx, sessionKey) {
		return nil
	}
	defer o.releaseSessionLock(sessionKey)

	logger.InfoCF("agent", fmt.Sprintf("Processing message from %s:%s: %s",
		msg.Channel, msg.SenderID, utils.Truncate(msg.Content, 80)),
		map[string]any{
			"channel":     msg.Channel,
			"chat_id":     msg.ChatID,
			"session_key": sessionKey,
		})

	// Exit phrase: fixed farewell, no backend call, nothing recorded.
	if strings.EqualFold(strings.TrimSpace(msg.Content), o.cfg.Agent.ExitCommand) {
		logger.InfoC("agent", "Exit phrase received")
		return []string{"Exiting."}
	}

	// First message from a chat seeds the system turn; it is never removed
	// or duplicated afterwards.
	_, created := o.conversations.GetOrCreate(sessionKey)
	if created {
		o.conversations.AddTurn(sessionKey, "system", BuildSystemTurn(o.cfg.Agent.SystemMessage))
	}

	// Drop any tool-call groups a crash left without results, otherwise the
	// backend rejects the history.
	history := o.conversations.History(sessionKey)
	if sanitized, removed := session.SanitizeHistory(history); removed > 0 {
		logger.WarnCF("agent", "Sanitized conversation history",
			map[string]any{"session_key": sessionKey, "removed_count": removed})
		o.conversations.SetHistory(sessionKey, sanitized)
	}

	o.conversations.AddTurn(sessionKey, "user", msg.Content)
	if o.stats != nil {
		o.stats.RecordPrompt()
	}

	replies := o.completeAndDispatch(ctx, sessionKey)

	if err := o.conversations.Save(sessionKey); err != nil {
		logger.WarnCF("agent", "Failed to persist conversation",
			map[string]any{"session_key": sessionKey, "error": err.Error()})
	}

	return replies
}

// completeAndDispatch performs exactly one completion round: one backend
// call, then ordered dispatch of whatever tool calls it returned. No nested
// rounds are attempted; the model reacts to tool results on the next user
// message, which sees the full history.
func (o *Orchestrator) completeAndDispatch(ctx context.Context, sessionKey string) []string {
	history := o.conversations.History(sessionKey)

	response, err := o.provider.Chat(ctx, history, o.registry.Definitions(), o.cfg.LLM.Model, nil)
	if err != nil {
		logger.ErrorCF("agent", "LLM call failed",
			map[string]any{"session_key": sessionKey, "error": err.Error()})
		// Record the failure so subsequent context carries it.
		o.conversations.AddFullTurn(sessionKey, providers.Message{
			Role:    "user",
			Name:    "Exception",
			Content: err.Error(),
		})
		return []string{fmt.Sprintf("Error: %v", err)}
	}

	if o.stats != nil && response.Usage != nil {
		o.stats.RecordUsage(
			response.Usage.PromptTokens,
			response.Usage.CompletionTokens,
			response.Usage.TotalTokens,
		)
	}

	var replies []string

	// The assistant turn may carry free text, tool calls, both, or neither.
	if response.Content != "" || len(response.ToolCalls) > 0 {
		o.conversations.AddFullTurn(sessionKey, providers.Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
	}
	if response.Content != "" {
		replies = append(replies, response.Content)
	}

	// Strictly in the order received: later calls may depend on state left
	// by earlier ones in the shared interpreter session.
	for _, tc := range response.ToolCalls {
		reply := o.dispatchToolCall(ctx, sessionKey, tc)
		if reply != "" {
			replies = append(replies, reply)
		}
	}

	return replies
}

// dispatchToolCall runs one tool call, appends its result turn, and returns
// the outbound text for it. A failed call never aborts the batch.
func (o *Orchestrator) dispatchToolCall(ctx context.Context, sessionKey string, tc providers.ToolCall) string {
	record := func(content string) {
		o.conversations.AddFullTurn(sessionKey, providers.Message{
			Role:       "tool",
			Name:       tc.Name,
			Content:    content,
			ToolCallID: tc.ID,
		})
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		logger.WarnCF("agent", "Malformed tool arguments",
			map[string]any{"tool": tc.Name, "error": err.Error()})
		msg := fmt.Sprintf("Invalid command format: %v", err)
		record(msg)
		return msg
	}

	tool, ok := o.registry.Get(tc.Name)
	if !ok {
		logger.WarnCF("agent", "Unknown tool requested", map[string]any{"tool": tc.Name})
		msg := fmt.Sprintf("Unknown tool: %s", tc.Name)
		record(msg)
		return msg
	}

	logger.InfoCF("agent", fmt.Sprintf("Tool call: %s(%s)", tc.Name, utils.Truncate(tc.Arguments, 200)),
		map[string]any{"session_key": sessionKey})
	if o.stats != nil {
		o.stats.RecordToolCall(tool.Name())
	}

	result := tool.Execute(ctx, args)

	var msg string
	switch tool.Name() {
	case "exec_python":
		// The interpreter formats its own output, errors included.
		msg = result.ForLLM
	default:
		if result.IsError {
			msg = fmt.Sprintf("Error: %s", result.ForLLM)
		} else {
			msg = fmt.Sprintf("Command execution result: %s", result.ForLLM)
		}
	}

	record(msg)
	return msg
}

func (o *Orchestrator) acquireSessionLock(ctx context.Context, sessionKey string) bool {
	val, _ := o.sessionLocks.LoadOrStore(sessionKey, newSessionSemaphore())
	sem := val.(*sessionSemaphore)
	select {
	case <-sem.ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) releaseSessionLock(sessionKey string) {
	if val, ok := o.sessionLocks.Load(sessionKey); ok {
		sem := val.(*sessionSemaphore)
		sem.ch <- struct{}{}
	}
}
