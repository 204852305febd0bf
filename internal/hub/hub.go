// Package hub fans broadcast messages out to live observers. The hub keeps
// exactly one upstream Pub/Sub subscription to the tenant's broadcast
// channel, created lazily on the first subscribe and reused for every
// observer thereafter. A Redis connection that is actively subscribed cannot
// issue ordinary commands, so the hub holds a second, dedicated connection
// solely for the upstream subscription.
package hub

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/burrowhq/presence/pkg/directory"
)

// observerBuffer is each observer's delivery buffer. Delivery is at-most-once:
// a full buffer drops the message for that observer rather than blocking the
// fan-out to everyone else.
const observerBuffer = 16

// Hub maintains the set of live observers and re-publishes every accepted
// write to all of them. Safe for concurrent use.
type Hub struct {
	pub     *redis.Client // ordinary commands (PUBLISH)
	sub     *redis.Client // dedicated to the upstream SUBSCRIBE
	channel string

	mu        sync.Mutex
	observers map[string]*Observer
	upstream  *redis.PubSub
	closed    bool
}

// Observer is one live connection awaiting broadcast messages. Created by
// Subscribe, destroyed by Close; an observer never re-registers. Membership
// in the hub has no ordering guarantee and no persistence.
type Observer struct {
	id       string
	messages chan string
	hub      *Hub
	once     sync.Once
}

// ID returns the observer's opaque identifier, useful in logs.
func (o *Observer) ID() string {
	return o.id
}

// Messages returns the channel of broadcast messages. The channel is closed
// when the observer or its hub closes.
func (o *Observer) Messages() <-chan string {
	return o.messages
}

// Close deregisters the observer. A publish after Close never attempts
// delivery to it. Safe to call multiple times. Implements io.Closer.
func (o *Observer) Close() error {
	o.once.Do(func() {
		o.hub.remove(o.id)
	})
	return nil
}

// New creates a hub for one tenant's broadcast channel. Two connections are
// opened from the same options: one for publishes, one reserved for the
// upstream subscription.
func New(redisOpts *redis.Options, schema directory.Schema) *Hub {
	return &Hub{
		pub:       redis.NewClient(redisOpts),
		sub:       redis.NewClient(redisOpts),
		channel:   schema.BroadcastChannel(),
		observers: make(map[string]*Observer),
	}
}

// Publish sends a broadcast message to the tenant's channel. Delivery to
// observers is at-most-once and only to those currently registered.
func (h *Hub) Publish(ctx context.Context, message string) error {
	if err := h.pub.Publish(ctx, h.channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish broadcast: %w", err)
	}
	return nil
}

// Subscribe registers a new observer, starting the upstream subscription if
// this is the first one. The upstream outlives any single observer and is
// torn down by Close.
func (h *Hub) Subscribe(ctx context.Context) (*Observer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("hub is closed")
	}

	if h.upstream == nil {
		// Lazy single upstream subscription; the mutex guards against
		// duplicate-subscribe races between concurrent first callers.
		pubsub := h.sub.Subscribe(context.Background(), h.channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe upstream: %w", err)
		}
		h.upstream = pubsub
		go h.run(pubsub.Channel())
	}

	obs := &Observer{
		id:       uuid.New().String(),
		messages: make(chan string, observerBuffer),
		hub:      h,
	}
	h.observers[obs.id] = obs
	return obs, nil
}

// run delivers upstream messages to observers until the upstream closes.
func (h *Hub) run(ch <-chan *redis.Message) {
	log.Printf("[Hub] Upstream subscription active on %s", h.channel)
	for msg := range ch {
		h.deliver(msg.Payload)
	}
	log.Printf("[Hub] Upstream subscription closed")
}

// deliver fans one message out to every currently-registered observer.
// Sends are non-blocking against each observer's buffer, so one slow or
// stuck observer cannot block delivery to the others. Holding the mutex for
// the duration keeps delivery and deregistration from interleaving: a
// deregistered observer is never sent to.
func (h *Hub) deliver(payload string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, obs := range h.observers {
		select {
		case obs.messages <- payload:
		default:
			log.Printf("[Hub] Observer %s buffer full, dropping message", obs.id)
		}
	}
}

// remove deregisters an observer and closes its message channel.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	obs, ok := h.observers[id]
	if !ok {
		return
	}
	delete(h.observers, id)
	close(obs.messages)
}

// ObserverCount returns the number of currently-registered observers.
func (h *Hub) ObserverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Close tears down the upstream subscription, deregisters every observer
// and closes both Redis connections. Implements io.Closer.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	upstream := h.upstream
	h.upstream = nil
	for id, obs := range h.observers {
		delete(h.observers, id)
		close(obs.messages)
	}
	h.mu.Unlock()

	if upstream != nil {
		upstream.Close()
	}
	subErr := h.sub.Close()
	pubErr := h.pub.Close()
	if subErr != nil {
		return subErr
	}
	return pubErr
}
