package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher broadcasts bus messages to other processes.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives bus messages published by other processes. fn is
// called sequentially, in publish order, for each payload on topic.
type Subscriber interface {
	Subscribe(topic string, fn func(data []byte)) (cancel func(), err error)
	Close() error
}

// localOnly is the Publisher of a bus without a shared transport.
type localOnly struct{}

func (localOnly) Publish(context.Context, string, any) error { return nil }
func (localOnly) Close() error                               { return nil }

// NATS is a single connection used both to publish and to subscribe. The
// connection never receives its own publications.
type NATS struct {
	conn *nats.Conn
}

var (
	_ Publisher  = (*NATS)(nil)
	_ Subscriber = (*NATS)(nil)
)

// DialNATS connects to url and keeps reconnecting for the life of the
// process. Extra options (disconnect or reconnect handlers) are appended.
func DialNATS(url string, opts ...nats.Option) (*NATS, error) {
	defaults := []nats.Option{
		nats.Name("qrm-coordinator"),
		nats.NoEcho(),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATS{conn: nc}, nil
}

// Publish JSON-encodes event onto topic.
func (n *NATS) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := n.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers fn for topic (NATS wildcards like "qrm.>" work) and
// returns once the server knows about the subscription.
func (n *NATS) Subscribe(topic string, fn func(data []byte)) (func(), error) {
	sub, err := n.conn.Subscribe(topic, func(msg *nats.Msg) { fn(msg.Data) })
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := n.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains in-flight messages and closes the connection.
func (n *NATS) Close() error {
	if n.conn.IsClosed() {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
