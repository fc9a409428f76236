package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterDeliverUnregister(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	phone := NewClient("phone", user)
	laptop := NewClient("laptop", user)

	hub.Register(phone)
	hub.Register(laptop)
	require.Equal(t, 2, hub.Sessions(user))

	n := hub.Deliver(Event{Type: EventNewMessage, To: user})
	assert.Equal(t, 2, n)
	assert.Len(t, phone.Send, 1)
	assert.Len(t, laptop.Send, 1)

	hub.Unregister(phone)
	hub.Unregister(phone)
	assert.Equal(t, 1, hub.Sessions(user))
	_, open := <-phone.Send
	assert.True(t, open)
	_, open = <-phone.Send
	assert.False(t, open)

	hub.Unregister(laptop)
	assert.Equal(t, 0, hub.Sessions(user))
}

func TestHubDeliverIgnoresOtherUsers(t *testing.T) {
	hub := NewHub()
	c := NewClient("c", uuid.New())
	hub.Register(c)

	assert.Equal(t, 0, hub.Deliver(Event{Type: EventTyping, To: uuid.New()}))
	assert.Len(t, c.Send, 0)
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	c := NewClient("c", user)
	hub.Register(c)

	for i := 0; i < clientSendBuffer; i++ {
		require.Equal(t, 1, hub.Deliver(Event{Type: EventNewMessage, To: user}))
	}
	assert.Equal(t, 0, hub.Deliver(Event{Type: EventNewMessage, To: user}))
}

type captureBroadcaster struct {
	events []Event
	err    error
}

func (b *captureBroadcaster) Publish(ctx context.Context, ev Event) error {
	b.events = append(b.events, ev)
	return b.err
}

func TestBroadcastNewMessageAddressesBothParties(t *testing.T) {
	b := &captureBroadcaster{}
	n := NewNotifier(b)
	conv, msg, sender, recipient := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	n.BroadcastNewMessage(context.Background(), conv, msg, sender, uuid.NullUUID{UUID: recipient, Valid: true})

	require.Len(t, b.events, 3)
	assert.Equal(t, EventNewMessage, b.events[0].Type)
	assert.Equal(t, recipient, b.events[0].To)
	assert.Equal(t, EventUnread, b.events[1].Type)
	assert.Equal(t, recipient, b.events[1].To)
	assert.Equal(t, EventNewMessage, b.events[2].Type)
	assert.Equal(t, sender, b.events[2].To)
	for _, ev := range b.events {
		assert.Equal(t, "conversation:"+conv.String(), ev.Topic)
		assert.Equal(t, msg, *ev.MessageID)
	}
}

func TestBroadcastNewMessageWithoutRecipientAccount(t *testing.T) {
	b := &captureBroadcaster{}
	sender := uuid.New()

	NewNotifier(b).BroadcastNewMessage(context.Background(), uuid.New(), uuid.New(), sender, uuid.NullUUID{})

	require.Len(t, b.events, 1)
	assert.Equal(t, sender, b.events[0].To)
}

func TestTypingCarriesExpiry(t *testing.T) {
	b := &captureBroadcaster{}
	from, to := uuid.New(), uuid.New()

	NewNotifier(b).Typing(context.Background(), uuid.New(), from, to, true)

	require.Len(t, b.events, 1)
	ev := b.events[0]
	assert.Equal(t, EventTyping, ev.Type)
	assert.Equal(t, to, ev.To)
	assert.Equal(t, 3000, ev.ExpiresInMS)
	assert.True(t, *ev.IsTyping)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"expires_in_ms":3000`)
}

func TestPublishErrorsAreSwallowed(t *testing.T) {
	b := &captureBroadcaster{err: errors.New("redis down")}
	assert.NotPanics(t, func() {
		NewNotifier(b).Presence(context.Background(), uuid.New(), uuid.New(), uuid.New(), true)
	})

	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.Typing(context.Background(), uuid.New(), uuid.New(), uuid.New(), false)
	})
}

func TestLocalBroadcasterDeliversToHub(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	c := NewClient("c", user)
	hub.Register(c)

	require.NoError(t, NewLocalBroadcaster(hub).Publish(context.Background(), Event{Type: EventPresence, To: user}))
	assert.Len(t, c.Send, 1)
}
