package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/2P3-io/ScriptOn/pkg/bus"
)

// Channel is one chat transport. It feeds inbound text onto the bus and
// delivers outbound text handed to Send.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom []string
	running   atomic.Bool
}

func NewBaseChannel(name string, msgBus *bus.MessageBus, allowFrom []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       msgBus,
		allowFrom: allowFrom,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) setRunning(v bool) {
	c.running.Store(v)
}

// IsAllowed reports whether a sender passes the allowlist. An empty
// allowlist admits everyone. Entries match either the numeric ID or the
// username part of "id|username" sender identifiers.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}

	id, username, _ := strings.Cut(senderID, "|")
	for _, allowed := range c.allowFrom {
		if allowed == id || (username != "" && allowed == username) {
			return true
		}
	}
	return false
}

// HandleMessage publishes an inbound message onto the bus with the
// channel-scoped session key.
func (c *BaseChannel) HandleMessage(senderID, chatID, content string, metadata map[string]string) {
	c.bus.PublishInbound(bus.InboundMessage{
		Channel:    c.name,
		SenderID:   senderID,
		ChatID:     chatID,
		Content:    content,
		SessionKey: c.name + ":" + chatID,
		Metadata:   metadata,
	})
}
