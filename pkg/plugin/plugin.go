// Package plugin defines the contract every FrameForge module implements
// and the shared services the registry hands to it.
package plugin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Route is an HTTP route exposed by a module. Path is relative to the
// module's mount point, /api/v1/<name>.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Info describes a module.
type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	DependsOn   []string `json:"dependsOn,omitempty"`
}

// Plugin is the lifecycle every module implements.
type Plugin interface {
	Info() Info

	// Init wires the module to its dependencies. No background work starts.
	Init(ctx context.Context, deps Dependencies) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Dependencies are the shared services available to a module at Init.
type Dependencies struct {
	Config Config
	Logger *zap.Logger
	Store  Store
	Bus    EventBus
	Now    func() time.Time
}

// Config is the read-only configuration view a module receives, scoped to
// plugins.<name>.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}

// HealthStatus is reported by modules implementing HealthChecker.
type HealthStatus struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)
