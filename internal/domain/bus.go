package domain

import "context"

// Investigation lifecycle topics.
const (
	TopicInvestigationRequested = "investigation.requested"
	TopicInvestigationCompleted = "investigation.completed"
	TopicInvestigationFailed    = "investigation.failed"
)

// Message is an event bus message envelope.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription is an active topic subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// EventBus carries investigation lifecycle events to downstream report
// consumers. Channel implementation for single-process deployments, NATS
// for distributed ones.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventBusConfig holds event bus settings.
type EventBusConfig struct {
	// Type is "channel" or "nats".
	Type string `yaml:"type"`

	ChannelBufferSize int `yaml:"channelBufferSize"`

	NATSUrl           string `yaml:"natsUrl"`
	NATSToken         string `yaml:"natsToken"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait"` // seconds
}
