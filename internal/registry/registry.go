// Package registry owns module lifecycle: dependency ordering, config
// gating, init/start/stop, event wiring and route collection.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Status is the lifecycle state of one module as reported on /plugins.
type Status struct {
	plugin.Info
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// Registry holds every module in dependency order.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	order    []string
	disabled map[string]string
	unsubs   []func()
	logger   *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		plugins:  make(map[string]plugin.Plugin),
		disabled: make(map[string]string),
		logger:   logger,
	}
}

// Register adds a module. Names must be unique and non-empty.
func (r *Registry) Register(p plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := p.Info()
	if info.Name == "" {
		return errors.New("plugin name must not be empty")
	}
	if _, exists := r.plugins[info.Name]; exists {
		return fmt.Errorf("plugin %q already registered", info.Name)
	}
	r.plugins[info.Name] = p
	r.order = append(r.order, info.Name)
	r.logger.Info("plugin registered", zap.String("name", info.Name), zap.String("version", info.Version))
	return nil
}

// Validate checks dependencies and sorts modules so every module comes after
// what it depends on. Optional modules with a missing dependency are
// disabled, and the disable cascades to their dependents. A missing
// dependency of a required module, or a cycle, is an error.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		info := r.plugins[name].Info()
		for _, dep := range info.DependsOn {
			if _, ok := r.plugins[dep]; ok {
				continue
			}
			if info.Required {
				return fmt.Errorf("plugin %q requires missing plugin %q", name, dep)
			}
			r.disable(name, fmt.Sprintf("missing dependency %q", dep))
		}
	}

	sorted, err := r.topoSort()
	if err != nil {
		return err
	}
	r.order = sorted

	// Cascade in dependency order so one pass suffices.
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		info := r.plugins[name].Info()
		for _, dep := range info.DependsOn {
			if _, off := r.disabled[dep]; !off {
				continue
			}
			if info.Required {
				return fmt.Errorf("plugin %q requires disabled plugin %q", name, dep)
			}
			r.disable(name, fmt.Sprintf("dependency %q is disabled", dep))
			break
		}
	}
	return nil
}

// topoSort orders modules with Kahn's algorithm, breaking ties by
// registration order.
func (r *Registry) topoSort() ([]string, error) {
	pos := make(map[string]int, len(r.order))
	for i, name := range r.order {
		pos[name] = i
	}
	indegree := make(map[string]int, len(r.order))
	dependents := make(map[string][]string)
	for _, name := range r.order {
		for _, dep := range r.plugins[name].Info().DependsOn {
			if _, ok := r.plugins[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready, out []string
	for _, name := range r.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return pos[ready[i]] < pos[ready[j]] })
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)
		for _, d := range dependents[name] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	if len(out) != len(r.order) {
		return nil, errors.New("plugin dependency cycle detected")
	}
	return out, nil
}

func (r *Registry) disable(name, reason string) {
	if _, already := r.disabled[name]; already {
		return
	}
	r.disabled[name] = reason
	r.logger.Warn("plugin disabled", zap.String("name", name), zap.String("reason", reason))
}

// IsDisabled reports whether a module was disabled by config, validation
// or a failed init.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, off := r.disabled[name]
	return off
}

// InitAll initializes enabled modules in order. depsFor builds each
// module's dependencies; a module whose config sets enabled=false is
// skipped. A failing optional module is disabled; a failing required one
// aborts. Event subscriptions are wired after a successful init.
func (r *Registry) InitAll(ctx context.Context, depsFor func(name string) plugin.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		p := r.plugins[name]
		info := p.Info()
		deps := depsFor(name)

		if deps.Config != nil && deps.Config.IsSet("enabled") && !deps.Config.GetBool("enabled") {
			if info.Required {
				return fmt.Errorf("plugin %q is required and cannot be disabled", name)
			}
			r.disable(name, "disabled by config")
			continue
		}
		if blocked := r.blockedBy(info); blocked != "" {
			if info.Required {
				return fmt.Errorf("plugin %q requires disabled plugin %q", name, blocked)
			}
			r.disable(name, fmt.Sprintf("dependency %q is disabled", blocked))
			continue
		}

		r.logger.Info("initializing plugin", zap.String("name", name))
		err := p.Init(ctx, deps)
		if err == nil {
			if v, ok := p.(plugin.Validator); ok {
				err = v.ValidateConfig()
			}
		}
		if err != nil {
			if info.Required {
				return fmt.Errorf("failed to initialize plugin %q: %w", name, err)
			}
			r.disable(name, "init failed: "+err.Error())
			continue
		}

		if es, ok := p.(plugin.EventSubscriber); ok && deps.Bus != nil {
			for _, sub := range es.Subscriptions() {
				r.unsubs = append(r.unsubs, deps.Bus.Subscribe(sub.Topic, sub.Handler))
			}
		}
	}
	return nil
}

func (r *Registry) blockedBy(info plugin.Info) string {
	for _, dep := range info.DependsOn {
		if _, off := r.disabled[dep]; off {
			return dep
		}
	}
	return ""
}

// StartAll starts enabled modules in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		r.logger.Info("starting plugin", zap.String("name", name))
		if err := r.plugins[name].Start(ctx); err != nil {
			return fmt.Errorf("failed to start plugin %q: %w", name, err)
		}
	}
	return nil
}

// StopAll stops enabled modules in reverse order and drops event
// subscriptions. Errors are logged.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil

	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if _, off := r.disabled[name]; off {
			continue
		}
		r.logger.Info("stopping plugin", zap.String("name", name))
		if err := r.plugins[name].Stop(ctx); err != nil {
			r.logger.Error("failed to stop plugin", zap.String("name", name), zap.Error(err))
		}
	}
}

// Get returns a module by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// All returns every module in dependency order, enabled or not.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// Statuses describes every module for the plugins endpoint.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		reason, off := r.disabled[name]
		out = append(out, Status{Info: r.plugins[name].Info(), Enabled: !off, Reason: reason})
	}
	return out
}

// AllRoutes returns the routes of enabled HTTP modules keyed by name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		hp, ok := r.plugins[name].(plugin.HTTPProvider)
		if !ok {
			continue
		}
		if rs := hp.Routes(); len(rs) > 0 {
			routes[name] = rs
		}
	}
	return routes
}

// Health collects the status of every enabled module that reports one.
func (r *Registry) Health(ctx context.Context) map[string]plugin.HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]plugin.HealthStatus)
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		if hc, ok := r.plugins[name].(plugin.HealthChecker); ok {
			out[name] = hc.Health(ctx)
		}
	}
	return out
}
