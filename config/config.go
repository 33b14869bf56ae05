// Package config loads server settings from defaults, an optional YAML
// file and MINIREDIS_ environment variables, in increasing priority. CLI
// flags are applied on top by the caller through Set.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/resp"
)

// EnvPrefix prefixes every environment variable. Sections are separated by a
// double underscore: MINIREDIS_SERVER__ADDRESS sets server.address.
const EnvPrefix = "MINIREDIS_"

type Config struct {
	Server  Server  `koanf:"server"`
	Proto   Proto   `koanf:"proto"`
	Store   Store   `koanf:"store"`
	Log     Log     `koanf:"log"`
	Metrics Metrics `koanf:"metrics"`
}

type Server struct {
	Address string `koanf:"address"`
	// RateLimit caps commands per second per connection, 0 disables it.
	RateLimit int `koanf:"rate_limit"`
	// NilOnMiss makes GET answer a null bulk string for missing keys
	// instead of an error.
	NilOnMiss bool `koanf:"nil_on_miss"`
}

type Proto struct {
	MaxBulkLen   int `koanf:"max_bulk_len"`
	MaxArrayLen  int `koanf:"max_array_len"`
	MaxInlineLen int `koanf:"max_inline_len"`
}

type Store struct {
	Shards int `koanf:"shards"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Metrics struct {
	// Address serves /metrics when not empty.
	Address string `koanf:"address"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.address":       "127.0.0.1:6379",
		"server.rate_limit":    0,
		"server.nil_on_miss":   false,
		"proto.max_bulk_len":   resp.DefaultLimits.MaxBulkLen,
		"proto.max_array_len":  resp.DefaultLimits.MaxArrayLen,
		"proto.max_inline_len": resp.DefaultLimits.MaxInlineLen,
		"store.shards":         1,
		"log.level":            "info",
		"log.format":           "console",
		"metrics.address":      "",
	}
}

// Loader accumulates configuration sources.
type Loader struct {
	k *koanf.Koanf
}

func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// Load reads defaults, then path (skipped when empty), then the
// environment.
func (l *Loader) Load(path string) error {
	if err := l.k.Load(mapProvider(defaults()), nil); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("load file %s: %w", path, err)
		}
	}
	if err := l.k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// MINIREDIS_PROTO__MAX_BULK_LEN -> proto.max_bulk_len
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Set overrides a single key, used for CLI flags.
func (l *Loader) Set(key string, value any) error {
	return l.k.Load(mapProvider{key: value}, nil)
}

// Config unmarshals and validates the loaded configuration.
func (l *Loader) Config() (*Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is a shortcut for NewLoader().Load(path) followed by Config().
func Load(path string) (*Config, error) {
	l := NewLoader()
	if err := l.Load(path); err != nil {
		return nil, err
	}
	return l.Config()
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("config: server.address is empty")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit %d is negative", c.Server.RateLimit)
	}
	if n := c.Store.Shards; n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("config: store.shards %d is not a power of two", n)
	}
	if c.Proto.MaxBulkLen <= 0 || c.Proto.MaxArrayLen <= 0 || c.Proto.MaxInlineLen <= 0 {
		return fmt.Errorf("config: proto limits must be positive")
	}
	if err := c.LogConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Limits returns the parser limits.
func (c *Config) Limits() resp.Limits {
	return resp.Limits{
		MaxBulkLen:   c.Proto.MaxBulkLen,
		MaxArrayLen:  c.Proto.MaxArrayLen,
		MaxInlineLen: c.Proto.MaxInlineLen,
	}
}

func (c *Config) LogConfig() log.Config {
	return log.Config{Level: c.Log.Level, Format: c.Log.Format}
}
