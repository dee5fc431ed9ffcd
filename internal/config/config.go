// Package config wraps viper behind the plugin.Config interface and loads
// FrameForge settings from defaults, an optional YAML file and FRAMEFORGE_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// EnvPrefix prefixes every environment override, e.g. FRAMEFORGE_SERVER_PORT.
const EnvPrefix = "FRAMEFORGE"

var _ plugin.Config = (*Config)(nil)

// Config is a nil-safe view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v behaves as an empty configuration.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Defaults registers every known key with its default value.
func Defaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit.rps", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)
	v.SetDefault("server.rate_limit.ttl", "5m")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.path", "frameforge.db")

	v.SetDefault("search.backend", "local")
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.candidates", 100)
	v.SetDefault("search.local.path", "")
	v.SetDefault("search.weaviate.url", "http://localhost:8080")
	v.SetDefault("search.weaviate.class", "PcPart")
	v.SetDefault("search.weaviate.text_property", "text")
	v.SetDefault("search.weaviate.mode", "neartext")
	v.SetDefault("search.weaviate.api_key", "")
	v.SetDefault("search.weaviate.category_property", "")

	v.SetDefault("plugins.parts.enabled", true)
	v.SetDefault("plugins.builds.enabled", true)
	v.SetDefault("plugins.builds.list_limit", 50)
}

// Load reads path (when non-empty) over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %q: %w", path, err)
			}
		}
	}

	cfg := New(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if p := c.GetInt("server.port"); p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", p))
	}
	switch b := c.GetString("search.backend"); b {
	case "local", "weaviate":
	default:
		errs = append(errs, fmt.Errorf("search.backend %q must be local or weaviate", b))
	}
	if c.GetInt("search.candidates") <= 0 {
		errs = append(errs, errors.New("search.candidates must be positive"))
	}
	if c.GetDuration("search.timeout") <= 0 {
		errs = append(errs, errors.New("search.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetString("server.host"), c.GetInt("server.port"))
}

// Viper exposes the underlying instance, or nil.
func (c *Config) Viper() *viper.Viper { return c.v }

func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetFloat64(key string) float64 {
	if c.v == nil {
		return 0
	}
	return c.v.GetFloat64(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) plugin.Config {
	if c.v == nil {
		return New(viper.New())
	}
	sub := c.v.Sub(key)
	if sub == nil {
		sub = viper.New()
	}
	return New(sub)
}

// Unmarshal decodes the whole tree into target using mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}

// UnmarshalKey decodes the subtree at key into target.
func (c *Config) UnmarshalKey(key string, target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.UnmarshalKey(key, target)
}
