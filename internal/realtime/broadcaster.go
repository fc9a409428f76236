package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Broadcaster fans events out to the hubs holding the addressees' sessions.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event) error
}

// LocalBroadcaster delivers straight into a single-instance hub.
type LocalBroadcaster struct {
	hub *Hub
}

// NewLocalBroadcaster constructs a LocalBroadcaster.
func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

func (b *LocalBroadcaster) Publish(ctx context.Context, ev Event) error {
	b.hub.Deliver(ev)
	return nil
}

const redisChannelPrefix = "swap:realtime:"

// RedisBroadcaster publishes events on a per-conversation Redis channel and
// relays every instance's channel traffic into the local hub.
type RedisBroadcaster struct {
	client *redis.Client
	hub    *Hub
}

// NewRedisClient parses redisURL and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	log.Printf("redis client created (addr: %s)", opt.Addr)
	return client, nil
}

// NewRedisBroadcaster constructs a RedisBroadcaster.
func NewRedisBroadcaster(client *redis.Client, hub *Hub) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, hub: hub}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	channel := redisChannelPrefix + strings.TrimPrefix(ev.Topic, "conversation:")
	return b.client.Publish(ctx, channel, payload).Err()
}

// Run relays subscribed events into the hub until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, redisChannelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe: %w", err)
	}
	log.Printf("realtime relay subscribed pattern=%s*", redisChannelPrefix)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("realtime relay decode error channel=%s: %v", msg.Channel, err)
				continue
			}
			b.hub.Deliver(ev)
		}
	}
}
