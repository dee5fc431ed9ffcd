package plugin

import (
	"context"
	"time"
)

// Event is a message published on the in-process bus.
type Event struct {
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// EventHandler receives published events. Handlers must not block for long;
// Publish runs them inline.
type EventHandler func(ctx context.Context, event Event)

// EventBus delivers events to subscribers.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event)
	Subscribe(topic string, handler EventHandler) (unsubscribe func())
	SubscribeAll(handler EventHandler) (unsubscribe func())
}

// Subscription binds a handler to a topic at Init time.
type Subscription struct {
	Topic   string
	Handler EventHandler
}
