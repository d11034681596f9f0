package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	domainconfig "flowcanvas/domain/config"
)

// envPrefix namespaces every environment variable the loader reads.
// Nested keys use a double underscore: FLOWCANVAS_BACKEND__BASE_URL
// becomes backend.base_url.
const envPrefix = "FLOWCANVAS_"

// Config holds all application configuration
type Config struct {
	Environment string          `koanf:"environment"`
	Server      ServerConfig    `koanf:"server"`
	Backend     BackendConfig   `koanf:"backend"`
	Editor      EditorConfig    `koanf:"editor"`
	Session     SessionConfig   `koanf:"session"`
	Draft       DraftConfig     `koanf:"draft"`
	RateLimit   RateLimitConfig `koanf:"ratelimit"`
	CORS        CORSConfig      `koanf:"cors"`
	Log         LogConfig       `koanf:"log"`
}

// ServerConfig controls the local bridge listener
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// BackendConfig points at the upstream workflow backend
type BackendConfig struct {
	BaseURL     string        `koanf:"base_url"`
	GraphPath   string        `koanf:"graph_path"`
	ExecutePath string        `koanf:"execute_path"`
	Timeout     time.Duration `koanf:"timeout"`
	Breaker     BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker guarding upstream calls
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold float64       `koanf:"failure_threshold"`
	MinRequests      uint32        `koanf:"min_requests"`
}

// EditorConfig tunes document editing behavior
type EditorConfig struct {
	AutosaveDelay time.Duration `koanf:"autosave_delay"`
	UndoTTL       time.Duration `koanf:"undo_ttl"`
	MaxNodes      int           `koanf:"max_nodes"`
	MaxEdges      int           `koanf:"max_edges"`
}

// SessionConfig tunes chat session behavior
type SessionConfig struct {
	ContextWindow    int    `koanf:"context_window"`
	DefaultGraphName string `koanf:"default_graph_name"`
	HistoryPageSize  int    `koanf:"history_page_size"`
}

// DraftConfig controls local crash-recovery drafts
type DraftConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// RateLimitConfig controls per-client request throttling
type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	RequestsPerMinute int  `koanf:"requests_per_minute"`
}

// CORSConfig lists the browser origins allowed to call the bridge
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level string `koanf:"level"`
}

// flagBindings maps CLI flag names to config keys. Flags not listed
// here (such as --config) are handled by the command itself and
// skipped by the loader.
var flagBindings = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"backend-url": "backend.base_url",
	"log-level":   "log.level",
	"environment": "environment",
	"draft-dir":   "draft.dir",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"environment":             "development",
		"server.host":             "127.0.0.1",
		"server.port":             8087,
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    15 * time.Second,
		"server.idle_timeout":     60 * time.Second,
		"server.shutdown_timeout": 30 * time.Second,

		"backend.base_url":                  "http://localhost:8000",
		"backend.graph_path":                "/api/v1/builder/graph",
		"backend.execute_path":              "/api/v1/dynamic-graph/execute",
		"backend.timeout":                   30 * time.Second,
		"backend.breaker.max_requests":      5,
		"backend.breaker.interval":          30 * time.Second,
		"backend.breaker.timeout":           60 * time.Second,
		"backend.breaker.failure_threshold": 0.8,
		"backend.breaker.min_requests":      5,

		"editor.autosave_delay": 2 * time.Second,
		"editor.undo_ttl":       10 * time.Second,
		"editor.max_nodes":      500,
		"editor.max_edges":      2000,

		"session.context_window":     10,
		"session.default_graph_name": "default",
		"session.history_page_size":  20,

		"draft.enabled": true,
		"draft.dir":     "",

		"ratelimit.enabled":             true,
		"ratelimit.requests_per_minute": 300,

		"cors.allowed_origins": []string{"http://localhost:5173"},

		"log.level": "info",
	}
}

// FindConfigFile returns the config file to use.
// Priority: explicit path > flowcanvas.yaml > flowcanvas.yml
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"flowcanvas.yaml", "flowcanvas.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration in layers.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, when one is present
	if path := FindConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables (FLOWCANVAS_ prefix)
	// Transform: FLOWCANVAS_SERVER__PORT -> server.port
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagBindings[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the loaded configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	if !strings.HasPrefix(c.Backend.GraphPath, "/") {
		return fmt.Errorf("backend.graph_path must start with /, got %q", c.Backend.GraphPath)
	}
	if !strings.HasPrefix(c.Backend.ExecutePath, "/") {
		return fmt.Errorf("backend.execute_path must start with /, got %q", c.Backend.ExecutePath)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.Backend.Breaker.FailureThreshold <= 0 || c.Backend.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("backend.breaker.failure_threshold must be in (0, 1], got %g", c.Backend.Breaker.FailureThreshold)
	}

	if c.Editor.AutosaveDelay <= 0 {
		return fmt.Errorf("editor.autosave_delay must be positive, got %s", c.Editor.AutosaveDelay)
	}
	if c.Editor.UndoTTL <= 0 {
		return fmt.Errorf("editor.undo_ttl must be positive, got %s", c.Editor.UndoTTL)
	}
	if c.Editor.MaxNodes <= 0 || c.Editor.MaxEdges <= 0 {
		return fmt.Errorf("editor limits must be positive, got max_nodes=%d max_edges=%d", c.Editor.MaxNodes, c.Editor.MaxEdges)
	}

	if c.Session.ContextWindow <= 0 {
		return fmt.Errorf("session.context_window must be positive, got %d", c.Session.ContextWindow)
	}
	if c.Session.DefaultGraphName == "" {
		return fmt.Errorf("session.default_graph_name cannot be empty")
	}
	if c.Session.HistoryPageSize <= 0 {
		return fmt.Errorf("session.history_page_size must be positive, got %d", c.Session.HistoryPageSize)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must be positive when enabled, got %d", c.RateLimit.RequestsPerMinute)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

// Addr returns the listen address for the bridge server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ResolveDraftDir returns the directory drafts are written to.
// An empty draft.dir falls back to the user cache directory.
func (c *Config) ResolveDraftDir() (string, error) {
	if c.Draft.Dir != "" {
		return c.Draft.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve draft directory: %w", err)
	}
	return filepath.Join(base, "flowcanvas"), nil
}

// DomainConfig projects the operator-facing configuration onto the
// domain rule set. Payload length limits stay environment-profiled;
// structural and session limits follow the loaded config.
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	dc := domainconfig.LoadDomainConfig(c.Environment)
	dc.MaxNodesPerCanvas = c.Editor.MaxNodes
	dc.MaxEdgesPerCanvas = c.Editor.MaxEdges
	dc.DefaultGraphName = c.Session.DefaultGraphName
	dc.ContextWindow = c.Session.ContextWindow
	dc.HistoryPageSize = c.Session.HistoryPageSize
	return dc
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
