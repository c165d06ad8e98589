package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/haldane/peritext/internal/changes"
)

// RedisBroker fans a document's changes out through a Redis pub/sub
// channel instead of (or alongside) the in-process Hub, grounded on
// CollabText's server/main.go rdb.Publish/pubsub.Channel wiring. This
// lets independently-running relay processes stay in sync without
// sharing an in-process Hub.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker wraps an already-connected client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func channelName(docID string) string {
	return fmt.Sprintf("peritext:doc:%s", docID)
}

// Publish broadcasts c to every other relay process subscribed to docID.
func (b *RedisBroker) Publish(ctx context.Context, docID string, c changes.Change) error {
	payload, err := changes.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change for publish: %w", err)
	}
	return b.client.Publish(ctx, channelName(docID), payload).Err()
}

// Subscription delivers changes published for one document.
type Subscription struct {
	pubsub *redis.PubSub
	ch     <-chan *redis.Message
}

// Subscribe opens a subscription to docID's channel. Callers must call
// Close when done.
func (b *RedisBroker) Subscribe(ctx context.Context, docID string) *Subscription {
	pubsub := b.client.Subscribe(ctx, channelName(docID))
	return &Subscription{pubsub: pubsub, ch: pubsub.Channel()}
}

// Next blocks until the next change arrives, ctx is canceled, or the
// subscription is closed.
func (s *Subscription) Next(ctx context.Context) (changes.Change, error) {
	select {
	case <-ctx.Done():
		return changes.Change{}, ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return changes.Change{}, fmt.Errorf("relay: subscription closed")
		}
		c, err := changes.Unmarshal([]byte(msg.Payload))
		if err != nil {
			return changes.Change{}, fmt.Errorf("unmarshal published change: %w", err)
		}
		return c, nil
	}
}

// Close releases the underlying Redis subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
