package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Name is the module name and its API mount point.
const Name = "builds"

var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
)

// Module is the builds plugin.
type Module struct {
	metrics  *metrics.Metrics
	logger   *zap.Logger
	repo     *SQLiteRepository
	svc      *Service
	handler  *Handler
	observer *Observer
}

// New creates the builds module. m may be nil.
func New(m *metrics.Metrics) *Module {
	return &Module{metrics: m, logger: zap.NewNop()}
}

func (m *Module) Info() plugin.Info {
	return plugin.Info{
		Name:        Name,
		Version:     "0.1.0",
		Description: "Build sessions: budget, selected parts and preferences",
		Required:    true,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	if deps.Store == nil {
		return errors.New("builds: store is required")
	}
	if deps.Logger != nil {
		m.logger = deps.Logger
	}
	repo, err := NewSQLiteRepository(ctx, deps.Store)
	if err != nil {
		return fmt.Errorf("builds: %w", err)
	}

	listLimit := 0
	if deps.Config != nil {
		listLimit = deps.Config.GetInt("list_limit")
	}

	m.repo = repo
	m.svc = NewService(repo, deps.Bus, m.metrics, m.logger, deps.Now)
	m.handler = NewHandler(m.svc, m.logger, listLimit)
	m.observer = NewObserver(m.logger)
	m.logger.Info("builds module initialized")
	return nil
}

func (m *Module) Start(context.Context) error {
	m.logger.Info("builds module started")
	return nil
}

func (m *Module) Stop(context.Context) error {
	m.logger.Info("builds module stopped")
	return nil
}

func (m *Module) Routes() []plugin.Route {
	if m.handler == nil {
		return nil
	}
	return m.handler.Routes()
}

func (m *Module) Subscriptions() []plugin.Subscription {
	if m.observer == nil {
		return nil
	}
	return m.observer.Subscriptions()
}

// Health pings the database behind the repository.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.repo == nil {
		return plugin.HealthStatus{Status: plugin.StatusUnhealthy, Message: "not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.repo.db.PingContext(ctx); err != nil {
		return plugin.HealthStatus{Status: plugin.StatusUnhealthy, Message: err.Error()}
	}
	return plugin.HealthStatus{Status: plugin.StatusHealthy}
}

// Service exposes the build service to other modules and the CLI.
func (m *Module) Service() *Service { return m.svc }

// Get loads a build. It lets the parts module read build state without
// depending on the service type.
func (m *Module) Get(ctx context.Context, id string) (models.Build, error) {
	if m.svc == nil {
		return models.Build{}, errors.New("builds module not initialized")
	}
	return m.svc.Get(ctx, id)
}
