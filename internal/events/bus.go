package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// Handler receives a catalog change. Each handler gets its own copy.
type Handler func(c *model.Catalog)

type subscription struct {
	id uint64
	h  Handler
}

// Bus is the ChangeBus: synchronous in-process fan-out plus an optional
// cross-process broadcast over a Publisher. There is no replay buffer; a
// subscriber only sees changes published after it subscribed.
type Bus struct {
	origin string
	pub    Publisher
	logger *slog.Logger

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64

	// deliverMu keeps deliveries from one source in publish order.
	deliverMu sync.Mutex
}

// NewBus creates a bus. A nil publisher keeps changes process-local.
func NewBus(pub Publisher, logger *slog.Logger) *Bus {
	if pub == nil {
		pub = localOnly{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{origin: uuid.NewString(), pub: pub, logger: logger}
}

// Origin is the id stamped on every message this bus publishes.
func (b *Bus) Origin() string { return b.origin }

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers c to every local subscriber, then broadcasts it on the
// shared bus. Broadcast failures are logged; local delivery has happened.
func (b *Bus) Publish(ctx context.Context, c *model.Catalog) {
	if c == nil {
		return
	}
	b.deliver(c)

	msg := Message{Type: KindCatalogChanged, Catalog: c, Origin: b.origin}
	if err := b.pub.Publish(ctx, TopicCatalogChanged, msg); err != nil {
		b.logger.Warn("broadcast catalog change failed", "err", err)
	}
}

func (b *Bus) deliver(c *model.Catalog) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(c.Clone())
	}
}

// Bridge feeds catalog changes published by other processes into the local
// subscribers until ctx is done. Messages this bus published itself are
// skipped. Bridge returns once the subscription is registered.
func (b *Bus) Bridge(ctx context.Context, sub Subscriber) error {
	cancel, err := sub.Subscribe(TopicCatalogChanged, b.handleRemote)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return nil
}

func (b *Bus) handleRemote(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		b.logger.Warn("dropping undecodable bus message", "err", err)
		return
	}
	if err := msg.Validate(); err != nil || msg.Type != KindCatalogChanged {
		b.logger.Warn("dropping unexpected bus message", "type", msg.Type, "err", err)
		return
	}
	if msg.Origin == b.origin {
		return
	}
	b.deliver(msg.Catalog)
}
