package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/oxbowmantella/frameforge/internal/event"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Bus is the server's event bus with a recorder on every topic. Module
// subscriptions attached to it run exactly as they do under serve.
type Bus struct {
	*event.Bus

	mu     sync.Mutex
	events []plugin.Event
}

// NewBus returns a recording bus that logs delivery failures through t.
func NewBus(t testing.TB) *Bus {
	b := &Bus{Bus: event.NewBus(Logger(t))}
	b.SubscribeAll(b.record)
	return b
}

func (b *Bus) record(_ context.Context, e plugin.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

// Attach subscribes a module's handlers, as the registry does at Init.
func (b *Bus) Attach(subs []plugin.Subscription) {
	for _, s := range subs {
		b.Subscribe(s.Topic, s.Handler)
	}
}

// Events waits for async deliveries and returns what was published so far.
func (b *Bus) Events() []plugin.Event {
	b.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]plugin.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Topics lists the topics of recorded events in publish order.
func (b *Bus) Topics() []string {
	events := b.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Topic
	}
	return out
}

// Reset forgets recorded events. Subscriptions stay.
func (b *Bus) Reset() {
	b.Wait()
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}
