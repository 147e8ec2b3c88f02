// Package config handles todod configuration loading.
//
// Configuration comes from a single YAML file discovered via
// [DefaultSearchPaths], with secrets and deploy-specific values
// overridable from the environment (TODOD_* variables, applied after
// the file is parsed so the environment always wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "todod"

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./todod.yaml, ~/.config/todod/config.yaml, /etc/todod/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"todod.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "todod", "config.yaml"))
	}

	paths = append(paths, "/etc/todod/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all todod configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	LLM        LLMConfig        `yaml:"llm"`
	ToolServer ToolServerConfig `yaml:"tool_server"`
	LogLevel   string           `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address" envconfig:"LISTEN_ADDRESS"` // bind address ("" = all interfaces)
	Port    int    `yaml:"port" envconfig:"LISTEN_PORT"`
}

// DatabaseConfig defines the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"DB_PATH"`
}

// AuthConfig defines JWT settings. The secret is shared with whatever
// issued the token (the built-in /api/auth endpoints or an external
// identity provider using the same HS256 secret).
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTLHours int    `yaml:"token_ttl_hours" envconfig:"TOKEN_TTL_HOURS"`
}

// TokenTTL returns the configured token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LLMConfig defines the model provider connection. BaseURL points at
// any OpenAI-compatible chat completions endpoint (Gemini's
// compatibility layer by default).
type LLMConfig struct {
	BaseURL    string `yaml:"base_url" envconfig:"LLM_BASE_URL"`
	APIKey     string `yaml:"api_key" envconfig:"LLM_API_KEY"`
	Model      string `yaml:"model" envconfig:"LLM_MODEL"`
	TimeoutSec int    `yaml:"timeout_sec" envconfig:"LLM_TIMEOUT_SEC"`
}

// Timeout returns the model call timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

// ToolServerConfig defines how the tool-server subprocess is spawned
// and how patient the channel is with it.
type ToolServerConfig struct {
	// Command is the tool-server executable (default: "todo-mcp",
	// resolved via PATH). Args are passed through verbatim; leaving
	// both empty spawns "todo-mcp serve".
	Command string   `yaml:"command" envconfig:"TOOL_COMMAND"`
	Args    []string `yaml:"args"`

	ConnectTimeoutSec  int `yaml:"connect_timeout_sec" envconfig:"TOOL_CONNECT_TIMEOUT_SEC"`
	CallTimeoutSec     int `yaml:"call_timeout_sec" envconfig:"TOOL_CALL_TIMEOUT_SEC"`
	DegradedBackoffSec int `yaml:"degraded_backoff_sec" envconfig:"TOOL_DEGRADED_BACKOFF_SEC"`
	MaxToolRounds      int `yaml:"max_tool_rounds" envconfig:"TOOL_MAX_ROUNDS"`
}

// ConnectTimeout returns the spawn+handshake deadline.
func (t ToolServerConfig) ConnectTimeout() time.Duration {
	return time.Duration(t.ConnectTimeoutSec) * time.Second
}

// CallTimeout returns the per-tool-call deadline.
func (t ToolServerConfig) CallTimeout() time.Duration {
	return time.Duration(t.CallTimeoutSec) * time.Second
}

// DegradedBackoff returns the wait before a reconnect attempt after a
// failed connection.
func (t ToolServerConfig) DegradedBackoff() time.Duration {
	return time.Duration(t.DegradedBackoffSec) * time.Second
}

// Load reads and parses the config file at path, applies environment
// overrides, and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (or set TODOD_JWT_SECRET)")
	}

	return &cfg, nil
}

// applyDefaults fills zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8000
	}
	if c.Database.Path == "" {
		c.Database.Path = "todod.db"
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.0-flash"
	}
	if c.LLM.TimeoutSec == 0 {
		c.LLM.TimeoutSec = 90
	}
	if c.ToolServer.Command == "" {
		c.ToolServer.Command = "todo-mcp"
		// The bundled binary needs the serve subcommand; without it
		// the spawn prints usage and exits instead of speaking MCP.
		if len(c.ToolServer.Args) == 0 {
			c.ToolServer.Args = []string{"serve"}
		}
	}
	if c.ToolServer.ConnectTimeoutSec == 0 {
		c.ToolServer.ConnectTimeoutSec = 60
	}
	if c.ToolServer.CallTimeoutSec == 0 {
		c.ToolServer.CallTimeoutSec = 30
	}
	if c.ToolServer.DegradedBackoffSec == 0 {
		c.ToolServer.DegradedBackoffSec = 5
	}
	if c.ToolServer.MaxToolRounds == 0 {
		c.ToolServer.MaxToolRounds = 5
	}
}
