package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	topicPrefix    = "taskhub:events:"
	broadcastTopic = topicPrefix + "broadcast"
)

// RedisBroker carries events over Redis pub/sub so every server process
// relays them to its own Hub.
type RedisBroker struct {
	client *redis.Client
}

var _ Sink = (*RedisBroker)(nil)

// NewRedisBroker creates a broker on an existing client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func topicFor(ev Event) string {
	if ev.IsBroadcast() {
		return broadcastTopic
	}
	return topicPrefix + ev.Channel
}

// Deliver publishes ev to its topic.
func (b *RedisBroker) Deliver(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, topicFor(ev), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	return nil
}

// Relay forwards broker messages into a local sink.
type Relay struct {
	pubsub *redis.PubSub
	logger Logger
}

// Listen subscribes to every event topic. The subscription is confirmed before
// Listen returns, so nothing published afterwards is missed.
func (b *RedisBroker) Listen(ctx context.Context, logger Logger) (*Relay, error) {
	ps := b.client.PSubscribe(ctx, topicPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}
	return &Relay{pubsub: ps, logger: logger}, nil
}

// Run delivers messages to sink until ctx is done or the relay is closed.
func (r *Relay) Run(ctx context.Context, sink Sink) {
	ch := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.warnf("realtime: bad message on %s: %v", msg.Channel, err)
				continue
			}
			if err := sink.Deliver(ctx, ev); err != nil {
				r.warnf("realtime: relay %s: %v", ev.Kind, err)
			}
		}
	}
}

// Close ends the subscription.
func (r *Relay) Close() error {
	return r.pubsub.Close()
}

func (r *Relay) warnf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warnf(format, args...)
	}
}
