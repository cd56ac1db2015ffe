// Package transport defines the event transport the crawler publishes to and
// the ingestion loop consumes from. Drivers live in subpackages.
package transport

import "context"

// Conventional topic names.
const (
	TopicBlock = "block"
	TopicTx    = "tx"
)

// Message is one record read from a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Producer sends payloads to named topics. Implementations are safe for
// concurrent use.
type Producer interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Consumer reads batches on behalf of a consumer group. Commit acknowledges
// every message returned by the most recent Poll; messages that are polled
// but never committed are redelivered after a restart.
type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context) error
	Close() error
}

// Topics names the two topics used by the system.
type Topics struct {
	Block string
	Tx    string
}

// DefaultTopics returns the conventional topic names.
func DefaultTopics() Topics {
	return Topics{Block: TopicBlock, Tx: TopicTx}
}

// List returns the topic names in a stable order.
func (t Topics) List() []string {
	return []string{t.Block, t.Tx}
}
