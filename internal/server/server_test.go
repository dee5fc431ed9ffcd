package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/internal/registry"
	"github.com/oxbowmantella/frameforge/internal/version"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

type stubModule struct {
	info   plugin.Info
	routes []plugin.Route
	health plugin.HealthStatus
}

func (m *stubModule) Info() plugin.Info                                   { return m.info }
func (m *stubModule) Init(_ context.Context, _ plugin.Dependencies) error { return nil }
func (m *stubModule) Start(_ context.Context) error                       { return nil }
func (m *stubModule) Stop(_ context.Context) error                        { return nil }
func (m *stubModule) Routes() []plugin.Route                              { return m.routes }
func (m *stubModule) Health(_ context.Context) plugin.HealthStatus        { return m.health }

func newTestServer(t *testing.T, opts Options, mods ...*stubModule) *Server {
	t.Helper()
	logger := zap.NewNop()
	reg := registry.New(logger)
	for _, m := range mods {
		if err := reg.Register(m); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := reg.InitAll(context.Background(), func(string) plugin.Dependencies {
		return plugin.Dependencies{Logger: logger}
	}); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	return New(opts, reg, metrics.New(), logger)
}

func do(t *testing.T, h http.Handler, method, path, remote string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantCode   int
		wantStatus string
	}{
		{"healthy", plugin.StatusHealthy, http.StatusOK, "ok"},
		{"degraded", plugin.StatusDegraded, http.StatusOK, plugin.StatusDegraded},
		{"unhealthy", plugin.StatusUnhealthy, http.StatusServiceUnavailable, plugin.StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := &stubModule{
				info:   plugin.Info{Name: "parts", Version: "1.0.0"},
				health: plugin.HealthStatus{Status: tt.status},
			}
			s := newTestServer(t, Options{}, mod)

			w := do(t, s.Handler(), http.MethodGet, "/api/v1/health", "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Header().Get(version.Header); got == "" {
				t.Errorf("%s header missing", version.Header)
			}
			var body HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.Service != "frameforge" {
				t.Errorf("service = %q, want frameforge", body.Service)
			}
			if body.Plugins["parts"].Status != tt.status {
				t.Errorf("plugins[parts] = %+v, want %s", body.Plugins["parts"], tt.status)
			}
		})
	}
}

func TestPluginsListsStatuses(t *testing.T) {
	builds := &stubModule{info: plugin.Info{Name: "builds", Version: "1.0.0", Required: true}}
	parts := &stubModule{info: plugin.Info{Name: "parts", Version: "1.0.0", DependsOn: []string{"builds"}}}
	s := newTestServer(t, Options{}, builds, parts)

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/plugins", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []registry.Status
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "builds" || got[1].Name != "parts" {
		t.Errorf("order = [%s %s], want [builds parts]", got[0].Name, got[1].Name)
	}
	for _, st := range got {
		if !st.Enabled {
			t.Errorf("%s disabled: %s", st.Name, st.Reason)
		}
	}
}

func TestPluginRoutesMounted(t *testing.T) {
	mod := &stubModule{
		info: plugin.Info{Name: "builds", Version: "1.0.0"},
		routes: []plugin.Route{{
			Method: http.MethodGet,
			Path:   "/{id}",
			Handler: func(w http.ResponseWriter, r *http.Request) {
				WriteJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
			},
		}},
	}
	s := newTestServer(t, Options{}, mod)

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/builds/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"abc"`) {
		t.Errorf("body = %s, want id abc", w.Body.String())
	}

	w = do(t, s.Handler(), http.MethodGet, "/api/v1/parts/abc", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unmounted status = %d, want 404", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})
	h := s.Handler()
	do(t, h, http.MethodGet, "/api/v1/health", "")

	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "frameforge_http_requests_total") {
		t.Error("metrics output missing frameforge_http_requests_total")
	}
}

func TestRecoverWritesProblem(t *testing.T) {
	mod := &stubModule{
		info: plugin.Info{Name: "builds", Version: "1.0.0"},
		routes: []plugin.Route{{
			Method:  http.MethodGet,
			Path:    "/boom",
			Handler: func(http.ResponseWriter, *http.Request) { panic("boom") },
		}},
	}
	s := newTestServer(t, Options{}, mod)

	w := do(t, s.Handler(), http.MethodGet, "/api/v1/builds/boom", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q, want application/problem+json", ct)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	s := newTestServer(t, Options{RateLimit: RateLimitConfig{RPS: 1, Burst: 2}})
	h := s.Handler()

	for i := 0; i < 2; i++ {
		if w := do(t, h, http.MethodGet, "/api/v1/health", "10.0.0.1:5000"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
	w := do(t, h, http.MethodGet, "/api/v1/health", "10.0.0.1:5001")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	if w := do(t, h, http.MethodGet, "/api/v1/health", "10.0.0.2:5000"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{}, nil)
	for i := 0; i < 100; i++ {
		if !l.Allow("c") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitConfig{RPS: 5, TTL: time.Minute}, nil)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(30 * time.Second)
	l.Allow("b")
	now = now.Add(45 * time.Second)

	if got := l.Cleanup(); got != 1 {
		t.Errorf("Cleanup() = %d, want 1", got)
	}
	if _, ok := l.visitors["b"]; !ok {
		t.Error("recent client b was dropped")
	}
}

func TestClientID(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.5:4242", "192.168.1.5"},
		{"[::1]:80", "::1"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientID(r); got != tt.want {
			t.Errorf("clientID(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestShutdownIdempotentStop(t *testing.T) {
	s := newTestServer(t, Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
