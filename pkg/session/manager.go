package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/2P3-io/ScriptOn/pkg/providers"
)

// Conversation is the append-only turn history for one chat. It is created
// on first message from a chat and lives for the process lifetime; the
// storage directory carries it across restarts.
type Conversation struct {
	Key     string              `json:"key"`
	Turns   []providers.Message `json:"turns"`
	Created time.Time           `json:"created"`
	Updated time.Time           `json:"updated"`
}

type Manager struct {
	conversations map[string]*Conversation
	mu            sync.RWMutex
	storage       string
}

func NewManager(storage string) *Manager {
	m := &Manager{
		conversations: make(map[string]*Conversation),
		storage:       storage,
	}

	if storage != "" {
		os.MkdirAll(storage, 0o755)
		m.loadConversations()
	}

	return m
}

// GetOrCreate returns the conversation for key, creating an empty one if
// this is the first message from that chat. The caller seeds the system
// turn on creation.
func (m *Manager) GetOrCreate(key string) (*Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[key]
	if ok {
		return conv, false
	}

	conv = &Conversation{
		Key:     key,
		Turns:   []providers.Message{},
		Created: time.Now(),
		Updated: time.Now(),
	}
	m.conversations[key] = conv

	return conv, true
}

func (m *Manager) AddTurn(key, role, content string) {
	m.AddFullTurn(key, providers.Message{
		Role:    role,
		Content: content,
	})
}

// AddFullTurn appends a complete turn including tool calls and tool call
// IDs, preserving the full conversation flow for later completion rounds.
func (m *Manager) AddFullTurn(key string, msg providers.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[key]
	if !ok {
		conv = &Conversation{
			Key:     key,
			Turns:   []providers.Message{},
			Created: time.Now(),
		}
		m.conversations[key] = conv
	}

	conv.Turns = append(conv.Turns, msg)
	conv.Updated = time.Now()
}

// History returns a copy of the conversation's turns in order.
func (m *Manager) History(key string) []providers.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[key]
	if !ok {
		return []providers.Message{}
	}

	history := make([]providers.Message, len(conv.Turns))
	copy(history, conv.Turns)
	return history
}

// SetHistory replaces the conversation's turns, isolating internal state
// from the caller's slice.
func (m *Manager) SetHistory(key string, history []providers.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[key]
	if !ok {
		return
	}
	turns := make([]providers.Message, len(history))
	copy(turns, history)
	conv.Turns = turns
	conv.Updated = time.Now()
}

// Count returns the number of known conversations.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

// sanitizeFilename converts a conversation key into a cross-platform safe
// filename. Keys use "channel:chatID" (e.g. "telegram:123456") but ':' is
// the volume separator on Windows, so filepath.Base would misinterpret the
// key. We replace it with '_'. The original key is preserved inside the
// JSON file, so loadConversations still maps back to the right in-memory key.
func sanitizeFilename(key string) string {
	return strings.ReplaceAll(key, ":", "_")
}

func (m *Manager) Save(key string) error {
	if m.storage == "" {
		return nil
	}

	filename := sanitizeFilename(key)

	// filepath.IsLocal rejects empty names, "..", absolute paths, and
	// OS-reserved device names (NUL, COM1 … on Windows). The extra checks
	// reject "." and any directory separators so that the file is always
	// written directly inside m.storage.
	if filename == "." || !filepath.IsLocal(filename) || strings.ContainsAny(filename, `/\`) {
		return os.ErrInvalid
	}

	// Snapshot under read lock, then perform slow file I/O after unlock.
	m.mu.RLock()
	stored, ok := m.conversations[key]
	if !ok {
		m.mu.RUnlock()
		return nil
	}

	snapshot := Conversation{
		Key:     stored.Key,
		Created: stored.Created,
		Updated: stored.Updated,
	}
	if len(stored.Turns) > 0 {
		snapshot.Turns = make([]providers.Message, len(stored.Turns))
		copy(snapshot.Turns, stored.Turns)
	} else {
		snapshot.Turns = []providers.Message{}
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	convPath := filepath.Join(m.storage, filename+".json")
	tmpFile, err := os.CreateTemp(m.storage, "conversation-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmpFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, convPath); err != nil {
		return err
	}
	cleanup = false
	return nil
}

func (m *Manager) loadConversations() error {
	files, err := os.ReadDir(m.storage)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		convPath := filepath.Join(m.storage, file.Name())
		data, err := os.ReadFile(convPath)
		if err != nil {
			continue
		}

		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue
		}

		m.conversations[conv.Key] = &conv
	}

	return nil
}

// SanitizeHistory removes orphaned tool calls from a conversation tail.
// An orphaned tool call is an assistant turn containing ToolCalls where one
// or more call IDs have no matching tool-result turn (role="tool") following
// it. This can happen if the process crashed mid-execution. Returns the
// sanitized history and the number of turns removed.
func SanitizeHistory(history []providers.Message) ([]providers.Message, int) {
	if len(history) == 0 {
		return history, 0
	}

	original := len(history)

	for len(history) > 0 {
		last := history[len(history)-1]

		if last.Role == "tool" {
			// Find the nearest preceding assistant turn with tool calls
			assistantIdx := -1
			for i := len(history) - 2; i >= 0; i-- {
				if history[i].Role == "assistant" && len(history[i].ToolCalls) > 0 {
					assistantIdx = i
					break
				}
			}

			if assistantIdx < 0 {
				// Orphaned tool result with no assistant turn
				history = history[:len(history)-1]
				continue
			}

			expected := make(map[string]bool)
			for _, tc := range history[assistantIdx].ToolCalls {
				expected[tc.ID] = true
			}

			for i := assistantIdx + 1; i < len(history); i++ {
				if history[i].Role == "tool" && expected[history[i].ToolCallID] {
					delete(expected, history[i].ToolCallID)
				}
			}

			if len(expected) > 0 {
				// Incomplete group, drop everything from the assistant turn on
				history = history[:assistantIdx]
				continue
			}

			break
		}

		if last.Role == "assistant" && len(last.ToolCalls) > 0 {
			// No tool results follow at all
			history = history[:len(history)-1]
			continue
		}

		break
	}

	return history, original - len(history)
}
