package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageBus_InboundRoundTrip(t *testing.T) {
	b := NewMessageBus()
	b.PublishInbound(InboundMessage{Channel: "telegram", ChatID: "42", Content: "hi"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, ok := b.ConsumeInbound(ctx)
	require.True(t, ok)
	require.Equal(t, "telegram", msg.Channel)
	require.Equal(t, "42", msg.ChatID)
	require.Equal(t, "hi", msg.Content)
}

func TestMessageBus_OutboundRoundTrip(t *testing.T) {
	b := NewMessageBus()
	b.PublishOutbound(OutboundMessage{Channel: "telegram", ChatID: "42", Content: "done"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, ok := b.SubscribeOutbound(ctx)
	require.True(t, ok)
	require.Equal(t, "done", msg.Content)
}

func TestMessageBus_ConsumeCancelled(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.ConsumeInbound(ctx)
	require.False(t, ok)

	_, ok = b.SubscribeOutbound(ctx)
	require.False(t, ok)
}

func TestMessageBus_OrderPreserved(t *testing.T) {
	b := NewMessageBus()
	for i := 0; i < 5; i++ {
		b.PublishOutbound(OutboundMessage{Content: string(rune('a' + i))})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		msg, ok := b.SubscribeOutbound(ctx)
		require.True(t, ok)
		require.Equal(t, string(rune('a'+i)), msg.Content)
	}
}
