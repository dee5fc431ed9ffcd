package build

import (
	"context"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Observer logs build events. It is the side channel for anything that
// reacts to build changes without being part of the reducer.
type Observer struct {
	logger *zap.Logger
}

// NewObserver creates an observer.
func NewObserver(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger}
}

// Subscriptions binds the observer to every build topic.
func (o *Observer) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: TopicCreated, Handler: o.handle},
		{Topic: TopicUpdated, Handler: o.handle},
		{Topic: TopicReset, Handler: o.handle},
		{Topic: TopicDeleted, Handler: o.handle},
	}
}

func (o *Observer) handle(_ context.Context, e plugin.Event) {
	p, ok := e.Payload.(EventPayload)
	if !ok {
		o.logger.Warn("unexpected build event payload", zap.String("topic", e.Topic))
		return
	}
	o.logger.Debug("build changed",
		zap.String("topic", e.Topic),
		zap.String("build_id", p.BuildID),
		zap.Stringer("change", p.Change),
		zap.Float64("budget", p.Budget),
		zap.Float64("total_spent", p.TotalSpent),
	)
}
