package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/event"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// testPlugin is a minimal plugin for testing.
type testPlugin struct {
	info    plugin.Info
	initErr error
	started bool
	stopped bool
}

func newTestPlugin(name string, deps ...string) *testPlugin {
	return &testPlugin{
		info: plugin.Info{
			Name:        name,
			Version:     "1.0.0",
			Description: "test plugin " + name,
			DependsOn:   deps,
		},
	}
}

func (p *testPlugin) Info() plugin.Info                                   { return p.info }
func (p *testPlugin) Init(_ context.Context, _ plugin.Dependencies) error { return p.initErr }
func (p *testPlugin) Start(_ context.Context) error                       { p.started = true; return nil }
func (p *testPlugin) Stop(_ context.Context) error                        { p.stopped = true; return nil }

// testHTTPPlugin implements both Plugin and HTTPProvider.
type testHTTPPlugin struct {
	testPlugin
	routes []plugin.Route
}

func (p *testHTTPPlugin) Routes() []plugin.Route { return p.routes }

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func testDeps() func(string) plugin.Dependencies {
	return func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Logger: testLogger().Named(name),
		}
	}
}

func TestRegister(t *testing.T) {
	reg := New(testLogger())

	p := newTestPlugin("alpha")
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Duplicate registration should fail.
	if err := reg.Register(p); err == nil {
		t.Fatal("Register() expected error for duplicate, got nil")
	}
}

func TestRegisterEmptyName(t *testing.T) {
	reg := New(testLogger())
	p := &testPlugin{info: plugin.Info{Name: ""}}
	if err := reg.Register(p); err == nil {
		t.Fatal("Register() expected error for empty name, got nil")
	}
}

func TestValidateNoDeps(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a"))
	reg.Register(newTestPlugin("b"))

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d plugins, want 2", len(all))
	}
}

func TestValidateWithDeps(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("b", "a")) // b depends on a
	reg.Register(newTestPlugin("a"))

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// a should come before b in order.
	all := reg.All()
	aIdx, bIdx := -1, -1
	for i, p := range all {
		switch p.Info().Name {
		case "a":
			aIdx = i
		case "b":
			bIdx = i
		}
	}
	if aIdx >= bIdx {
		t.Errorf("expected a (idx %d) before b (idx %d)", aIdx, bIdx)
	}
}

func TestValidateCycleDetection(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a", "b"))
	reg.Register(newTestPlugin("b", "a"))

	if err := reg.Validate(); err == nil {
		t.Fatal("Validate() expected cycle error, got nil")
	}
}

func TestValidateMissingRequiredDep(t *testing.T) {
	reg := New(testLogger())
	p := newTestPlugin("a", "missing")
	p.info.Required = true
	reg.Register(p)

	if err := reg.Validate(); err == nil {
		t.Fatal("Validate() expected error for missing required dep, got nil")
	}
}

func TestValidateDisablesOptionalWithMissingDep(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a", "missing")) // optional, dep doesn't exist

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !reg.IsDisabled("a") {
		t.Error("expected plugin 'a' to be disabled")
	}
}

func TestInitAll(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a"))
	reg.Register(newTestPlugin("b"))
	reg.Validate()

	ctx := context.Background()
	if err := reg.InitAll(ctx, testDeps()); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
}

func TestInitAllRequiredFails(t *testing.T) {
	reg := New(testLogger())
	p := newTestPlugin("a")
	p.info.Required = true
	p.initErr = errors.New("init failed")
	reg.Register(p)
	reg.Validate()

	ctx := context.Background()
	if err := reg.InitAll(ctx, testDeps()); err == nil {
		t.Fatal("InitAll() expected error for required plugin failure, got nil")
	}
}

func TestInitAllOptionalDisabledOnFailure(t *testing.T) {
	reg := New(testLogger())
	p := newTestPlugin("a")
	p.initErr = errors.New("init failed")
	reg.Register(p)
	reg.Validate()

	ctx := context.Background()
	if err := reg.InitAll(ctx, testDeps()); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if !reg.IsDisabled("a") {
		t.Error("expected optional plugin 'a' to be disabled after init failure")
	}
}

func TestStartAllStopAll(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a"))
	reg.Validate()

	ctx := context.Background()
	reg.InitAll(ctx, testDeps())

	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}

	reg.StopAll(ctx) // should not panic
}

func TestGet(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a"))
	reg.Validate()

	if _, ok := reg.Get("a"); !ok {
		t.Error("Get('a') returned false, want true")
	}
	if _, ok := reg.Get("nonexistent"); ok {
		t.Error("Get('nonexistent') returned true, want false")
	}
}

func TestAllRoutesHTTPProvider(t *testing.T) {
	reg := New(testLogger())

	hp := &testHTTPPlugin{
		testPlugin: *newTestPlugin("web"),
		routes: []plugin.Route{
			{Method: "GET", Path: "/test"},
		},
	}
	reg.Register(hp)
	reg.Register(newTestPlugin("noroutes")) // no HTTPProvider

	reg.Validate()
	ctx := context.Background()
	reg.InitAll(ctx, testDeps())

	routes := reg.AllRoutes()
	if len(routes) != 1 {
		t.Fatalf("AllRoutes() returned %d plugin route sets, want 1", len(routes))
	}
	if _, ok := routes["web"]; !ok {
		t.Error("AllRoutes() missing 'web' routes")
	}
}

func TestCascadeDisable(t *testing.T) {
	reg := New(testLogger())

	a := newTestPlugin("a", "missing") // optional, will be disabled
	b := newTestPlugin("b", "a")       // depends on a
	c := newTestPlugin("c", "b")       // depends on b

	reg.Register(c)
	reg.Register(b)
	reg.Register(a)

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	for _, name := range []string{"a", "b", "c"} {
		if !reg.IsDisabled(name) {
			t.Errorf("expected %q to be disabled", name)
		}
	}
}

func TestCascadeDisableRequiredFails(t *testing.T) {
	reg := New(testLogger())
	reg.Register(newTestPlugin("a", "missing"))
	b := newTestPlugin("b", "a")
	b.info.Required = true
	reg.Register(b)

	if err := reg.Validate(); err == nil {
		t.Fatal("Validate() expected error for required plugin with disabled dep, got nil")
	}
}

// mapConfig is a minimal plugin.Config for gating tests.
type mapConfig map[string]any

func (m mapConfig) GetString(k string) string          { s, _ := m[k].(string); return s }
func (m mapConfig) GetInt(k string) int                { n, _ := m[k].(int); return n }
func (m mapConfig) GetBool(k string) bool              { b, _ := m[k].(bool); return b }
func (m mapConfig) GetFloat64(k string) float64        { f, _ := m[k].(float64); return f }
func (m mapConfig) GetDuration(k string) time.Duration { d, _ := m[k].(time.Duration); return d }
func (m mapConfig) IsSet(k string) bool                { _, ok := m[k]; return ok }
func (m mapConfig) Sub(string) plugin.Config           { return mapConfig{} }
func (m mapConfig) Unmarshal(any) error                { return nil }

func TestInitAllDisabledByConfig(t *testing.T) {
	reg := New(testLogger())
	a := newTestPlugin("a")
	reg.Register(a)
	reg.Validate()

	deps := func(name string) plugin.Dependencies {
		return plugin.Dependencies{Logger: testLogger(), Config: mapConfig{"enabled": false}}
	}
	if err := reg.InitAll(context.Background(), deps); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if !reg.IsDisabled("a") {
		t.Fatal("expected 'a' to be disabled by config")
	}
	if err := reg.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if a.started {
		t.Error("disabled plugin should not be started")
	}

	statuses := reg.Statuses()
	if len(statuses) != 1 || statuses[0].Enabled || statuses[0].Reason == "" {
		t.Errorf("Statuses() = %+v", statuses)
	}
}

func TestInitAllRequiredCannotBeDisabled(t *testing.T) {
	reg := New(testLogger())
	a := newTestPlugin("a")
	a.info.Required = true
	reg.Register(a)
	reg.Validate()

	deps := func(string) plugin.Dependencies {
		return plugin.Dependencies{Config: mapConfig{"enabled": false}}
	}
	if err := reg.InitAll(context.Background(), deps); err == nil {
		t.Fatal("InitAll() expected error when disabling a required plugin")
	}
}

// testSubscriberPlugin declares one subscription and reports health.
type testSubscriberPlugin struct {
	testPlugin
	got []string
}

func (p *testSubscriberPlugin) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{{
		Topic:   "build.reset",
		Handler: func(_ context.Context, e plugin.Event) { p.got = append(p.got, e.Topic) },
	}}
}

func (p *testSubscriberPlugin) Health(context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{Status: plugin.StatusDegraded, Message: "slow"}
}

func TestInitAllWiresSubscriptionsAndHealth(t *testing.T) {
	reg := New(testLogger())
	p := &testSubscriberPlugin{testPlugin: *newTestPlugin("sub")}
	reg.Register(p)
	reg.Validate()

	bus := event.NewBus(testLogger())
	deps := func(string) plugin.Dependencies { return plugin.Dependencies{Bus: bus} }
	if err := reg.InitAll(context.Background(), deps); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}

	_ = bus.Publish(context.Background(), plugin.Event{Topic: "build.reset"})
	if len(p.got) != 1 {
		t.Fatalf("handler calls = %d, want 1", len(p.got))
	}

	health := reg.Health(context.Background())
	if health["sub"].Status != plugin.StatusDegraded {
		t.Errorf("Health()[sub] = %+v", health["sub"])
	}

	reg.StopAll(context.Background())
	_ = bus.Publish(context.Background(), plugin.Event{Topic: "build.reset"})
	if len(p.got) != 1 {
		t.Error("subscription should be removed by StopAll")
	}
	if !p.stopped {
		t.Error("StopAll should stop the plugin")
	}
}
