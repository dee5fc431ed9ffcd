package build

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/budget"
	"github.com/oxbowmantella/frameforge/internal/compat"
	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Event topics published after each persisted mutation.
const (
	TopicCreated = "build.created"
	TopicUpdated = "build.updated"
	TopicReset   = "build.reset"
	TopicDeleted = "build.deleted"
)

// EventPayload is carried by every build event.
type EventPayload struct {
	BuildID    string  `json:"buildId"`
	Change     Change  `json:"change"`
	Budget     float64 `json:"budget"`
	TotalSpent float64 `json:"totalSpent"`
}

// Service applies actions to stored builds. Mutations of one build are
// serialized; different builds proceed in parallel.
type Service struct {
	repo    Repository
	bus     plugin.EventBus
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
	locks   keyedMutex
}

// NewService wires a service. bus, m and now may be nil.
func NewService(repo Repository, bus plugin.EventBus, m *metrics.Metrics, logger *zap.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, bus: bus, metrics: m, logger: logger, now: now}
}

// Create stores a new build with the given budget and preferences.
func (s *Service) Create(ctx context.Context, amount float64, prefs models.Preferences) (models.Build, error) {
	now := s.now().UTC()
	b := models.NewBuild(uuid.NewString())
	b.CreatedAt = now

	b, _, err := Reduce(b, SetBudget{Amount: amount}, now)
	if err != nil {
		return models.Build{}, err
	}
	b, _, err = Reduce(b, SetPreferences{Preferences: prefs}, now)
	if err != nil {
		return models.Build{}, err
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return models.Build{}, err
	}

	s.logger.Info("build created", zap.String("build_id", b.ID), zap.Float64("budget", b.Budget))
	s.publish(ctx, TopicCreated, b, Change{Action: "create"})
	return b, nil
}

// Get loads a build.
func (s *Service) Get(ctx context.Context, id string) (models.Build, error) {
	return s.repo.Get(ctx, id)
}

// List pages through stored builds.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult[models.Build], error) {
	return s.repo.List(ctx, opts)
}

// Apply loads id, reduces a over it and persists the result.
func (s *Service) Apply(ctx context.Context, id string, a Action) (models.Build, Change, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Build{}, Change{}, err
	}
	next, change, err := Reduce(cur, a, s.now().UTC())
	if err != nil {
		return models.Build{}, Change{}, err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return models.Build{}, Change{}, err
	}

	s.metrics.BuildMutation(change.Action)
	topic := TopicUpdated
	if _, ok := a.(Reset); ok {
		topic = TopicReset
	}
	s.publish(ctx, topic, next, change)
	return next, change, nil
}

// Purge removes id from storage. Unlike a Reset the id stops resolving.
func (s *Service) Purge(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.BuildMutation("purge")
	s.publish(ctx, TopicDeleted, models.Build{ID: id}, Change{Action: "purge"})
	return nil
}

// Summary reports the totals and power figures of a build.
type Summary struct {
	ID                 string           `json:"id"`
	Budget             float64          `json:"budget"`
	Tier               budget.Tier      `json:"tier"`
	TotalSpent         float64          `json:"totalSpent"`
	Remaining          float64          `json:"remaining"`
	OverBudget         bool             `json:"overBudget"`
	Selected           int              `json:"selected"`
	Missing            []parts.Category `json:"missing"`
	EstimatedWattage   float64          `json:"estimatedWattage"`
	RecommendedWattage float64          `json:"recommendedWattage"`
	PSUWattage         float64          `json:"psuWattage,omitempty"`
	PSUSufficient      *bool            `json:"psuSufficient,omitempty"`
	Complete           bool             `json:"complete"`
}

// Summarize derives a Summary from b.
func Summarize(b models.Build) Summary {
	snap := compat.Derive(b)
	missing := b.Missing()
	if missing == nil {
		missing = []parts.Category{}
	}
	sum := Summary{
		ID:                 b.ID,
		Budget:             b.Budget,
		Tier:               snap.Tier,
		TotalSpent:         b.TotalSpent(),
		Remaining:          b.Remaining(),
		OverBudget:         b.Remaining() < 0,
		Selected:           len(parts.Categories()) - len(missing),
		Missing:            missing,
		EstimatedWattage:   snap.EstimatedWattage,
		RecommendedWattage: snap.RecommendedWattage,
		PSUWattage:         snap.PSUWattage,
		Complete:           len(missing) == 0,
	}
	if snap.PSUWattage > 0 {
		ok := snap.PSUWattage >= snap.EstimatedWattage
		sum.PSUSufficient = &ok
	}
	return sum
}

// Summary loads id and summarizes it.
func (s *Service) Summary(ctx context.Context, id string) (Summary, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(b), nil
}

func (s *Service) publish(ctx context.Context, topic string, b models.Build, change Change) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(ctx, plugin.Event{
		Topic:     topic,
		Source:    "builds",
		Timestamp: s.now().UTC(),
		Payload: EventPayload{
			BuildID:    b.ID,
			Change:     change,
			Budget:     b.Budget,
			TotalSpent: b.TotalSpent(),
		},
	})
	if err != nil {
		s.logger.Warn("publish build event", zap.String("topic", topic), zap.Error(err))
	}
}

// keyedMutex hands out one mutex per key and frees it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m := k.locks[key]
	if m == nil {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// String is used in log fields.
func (c Change) String() string {
	if c.Category == "" {
		return c.Action
	}
	if c.Removed {
		return fmt.Sprintf("%s %s (removed)", c.Action, c.Category)
	}
	return fmt.Sprintf("%s %s", c.Action, c.Category)
}
