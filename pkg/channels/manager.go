package channels

import (
	"context"
	"fmt"

	"github.com/2P3-io/ScriptOn/pkg/bus"
	"github.com/2P3-io/ScriptOn/pkg/config"
	"github.com/2P3-io/ScriptOn/pkg/logger"
)

// Manager owns the enabled channels and routes outbound bus messages to
// whichever channel they name.
type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
}

func NewManager(cfg *config.Config, msgBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      msgBus,
	}

	if cfg.Telegram.Token != "" {
		tg, err := NewTelegramChannel(cfg, msgBus)
		if err != nil {
			return nil, fmt.Errorf("create telegram channel: %w", err)
		}
		m.channels[tg.Name()] = tg
	}

	if len(m.channels) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}

	return m, nil
}

func (m *Manager) StartAll(ctx context.Context) error {
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start channel %s: %w", name, err)
		}
		logger.InfoCF("channels", "Channel started", map[string]any{"channel": name})
	}

	go m.dispatchOutbound(ctx)
	return nil
}

func (m *Manager) StopAll(ctx context.Context) {
	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			logger.WarnCF("channels", "Channel stop failed",
				map[string]any{"channel": name, "error": err.Error()})
		}
	}
}

// dispatchOutbound drains the outbound side of the bus until ctx ends.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		ch, found := m.channels[msg.Channel]
		if !found {
			logger.WarnCF("channels", "Outbound message for unknown channel",
				map[string]any{"channel": msg.Channel})
			continue
		}

		if err := ch.Send(ctx, msg); err != nil {
			logger.ErrorCF("channels", "Failed to send message",
				map[string]any{"channel": msg.Channel, "chat_id": msg.ChatID, "error": err.Error()})
		}
	}
}
