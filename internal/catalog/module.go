package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/build"
	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/internal/search"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Name is the module name and its API mount point.
const Name = "parts"

var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
)

// Module is the parts plugin: recommendation endpoints over a searcher.
type Module struct {
	searcher search.Searcher
	cfg      EngineConfig
	builds   Builds
	metrics  *metrics.Metrics
	logger   *zap.Logger
	engine   *Engine
	tracker  *Tracker
	handler  *Handler
}

// New creates the parts module. builds may be nil.
func New(s search.Searcher, cfg EngineConfig, builds Builds, m *metrics.Metrics) *Module {
	return &Module{searcher: s, cfg: cfg, builds: builds, metrics: m, logger: zap.NewNop()}
}

func (m *Module) Info() plugin.Info {
	deps := []string(nil)
	if m.builds != nil {
		deps = []string{"builds"}
	}
	return plugin.Info{
		Name:        Name,
		Version:     "0.1.0",
		Description: "Per-category part recommendations",
		Required:    true,
		DependsOn:   deps,
	}
}

// Init builds the engine. Keys under plugins.parts override the engine
// config given to New.
func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	if m.searcher == nil {
		return errors.New("parts: searcher is required")
	}
	if deps.Logger != nil {
		m.logger = deps.Logger
	}

	cfg := m.cfg
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&cfg); err != nil {
			return err
		}
	}
	m.engine = NewEngine(m.searcher, cfg, m.logger, m.metrics)
	m.tracker = NewTracker(deps.Now)
	m.handler = NewHandler(m.engine, m.builds, m.tracker, m.metrics, m.logger)
	m.logger.Info("parts module initialized",
		zap.Int("candidates", m.engine.cfg.Candidates),
		zap.Duration("timeout", m.engine.cfg.Timeout),
	)
	return nil
}

func (m *Module) Start(context.Context) error { return nil }

func (m *Module) Stop(context.Context) error { return nil }

func (m *Module) Routes() []plugin.Route {
	if m.handler == nil {
		return nil
	}
	return m.handler.Routes()
}

// Health pings the searcher when it supports it.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	p, ok := m.searcher.(search.Pinger)
	if !ok {
		return plugin.HealthStatus{Status: plugin.StatusHealthy}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return plugin.HealthStatus{
			Status:  plugin.StatusDegraded,
			Message: err.Error(),
		}
	}
	return plugin.HealthStatus{Status: plugin.StatusHealthy}
}

// Subscriptions drops tracker state for builds that were reset or deleted.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: build.TopicReset, Handler: m.forgetBuild},
		{Topic: build.TopicDeleted, Handler: m.forgetBuild},
	}
}

func (m *Module) forgetBuild(_ context.Context, e plugin.Event) {
	if m.tracker == nil {
		return
	}
	p, ok := e.Payload.(build.EventPayload)
	if !ok || p.BuildID == "" {
		return
	}
	m.tracker.Forget(p.BuildID)
	m.logger.Debug("tracker state dropped", zap.String("build_id", p.BuildID))
}

// Engine exposes the engine to the CLI.
func (m *Module) Engine() *Engine { return m.engine }

// Tracker exposes the request tracker.
func (m *Module) Tracker() *Tracker { return m.tracker }
