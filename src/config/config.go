// Package config loads the generator service configuration from defaults, an
// optional YAML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "AGENTFORGE_"

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts"`
	Generation GenerationConfig `yaml:"generation"`
	MCP        MCPConfig        `yaml:"mcp"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`

	// ReplayTTL keeps create responses for requests carrying an
	// Idempotency-Key header. Zero disables replay.
	ReplayTTL time.Duration `yaml:"replay_ttl"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// GenerationConfig selects the model provider that drives a generation session.
type GenerationConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	MaxTurns  int           `yaml:"max_turns"`
	Timeout   time.Duration `yaml:"timeout"`

	// MaxSessions bounds concurrent generation sessions.
	MaxSessions int `yaml:"max_sessions"`
}

// MCPConfig describes the documentation server spawned for each session. An
// empty Command disables it and sessions run without capabilities.
type MCPConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	Dir     string   `yaml:"dir"`

	// Allow and Deny are glob patterns over the server's tool names.
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	Table      string `yaml:"table"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":5000", ReplayTTL: 10 * time.Minute},
		Artifacts: ArtifactsConfig{Dir: "agents"},
		Generation: GenerationConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
			MaxTurns:  12,
			Timeout:   4 * time.Minute,

			MaxSessions: 4,
		},
		MCP: MCPConfig{},
		Store: StoreConfig{
			Driver:     "memory",
			Database:   "agentforge",
			Collection: "agents",
			Table:      "agents",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds a Config. path may be empty, in which case only defaults and
// the environment are consulted. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Generation.Provider {
	case "anthropic", "claude", "openai", "gemini", "google", "ollama", "dummy":
	default:
		return fmt.Errorf("config: unknown generation provider %q", c.Generation.Provider)
	}
	switch c.Store.Driver {
	case "memory":
	case "mongo", "mongodb", "postgres":
		if strings.TrimSpace(c.Store.URI) == "" {
			return fmt.Errorf("config: store driver %s requires store.uri", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Generation.Timeout <= 0 {
		return errors.New("config: generation.timeout must be positive")
	}
	if c.Generation.MaxTurns <= 0 {
		return errors.New("config: generation.max_turns must be positive")
	}
	if c.Generation.MaxSessions <= 0 {
		return errors.New("config: generation.max_sessions must be positive")
	}
	if c.Server.ReplayTTL < 0 {
		return errors.New("config: server.replay_ttl must not be negative")
	}
	if strings.TrimSpace(c.Artifacts.Dir) == "" {
		return errors.New("config: artifacts.dir is required")
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("ADDR", &c.Server.Addr)
	str("STATIC_DIR", &c.Server.StaticDir)
	str("ARTIFACTS_DIR", &c.Artifacts.Dir)
	str("PROVIDER", &c.Generation.Provider)
	str("MODEL", &c.Generation.Model)
	str("MCP_COMMAND", &c.MCP.Command)
	str("MCP_DIR", &c.MCP.Dir)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_URI", &c.Store.URI)
	str("STORE_DATABASE", &c.Store.Database)
	str("STORE_COLLECTION", &c.Store.Collection)
	str("STORE_TABLE", &c.Store.Table)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup(envPrefix + "MCP_ARGS"); ok && strings.TrimSpace(v) != "" {
		c.MCP.Args = strings.Fields(v)
	}
	if v, ok := lookup(envPrefix + "MCP_ALLOW"); ok && strings.TrimSpace(v) != "" {
		c.MCP.Allow = strings.Fields(v)
	}
	if v, ok := lookup(envPrefix + "MCP_DENY"); ok && strings.TrimSpace(v) != "" {
		c.MCP.Deny = strings.Fields(v)
	}
	if v, ok := lookup(envPrefix + "MAX_TOKENS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sMAX_TOKENS: %w", envPrefix, err)
		}
		c.Generation.MaxTokens = n
	}
	if v, ok := lookup(envPrefix + "MAX_TURNS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sMAX_TURNS: %w", envPrefix, err)
		}
		c.Generation.MaxTurns = n
	}
	if v, ok := lookup(envPrefix + "TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sTIMEOUT: %w", envPrefix, err)
		}
		c.Generation.Timeout = d
	}
	if v, ok := lookup(envPrefix + "MAX_SESSIONS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sMAX_SESSIONS: %w", envPrefix, err)
		}
		c.Generation.MaxSessions = n
	}
	if v, ok := lookup(envPrefix + "REPLAY_TTL"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sREPLAY_TTL: %w", envPrefix, err)
		}
		c.Server.ReplayTTL = d
	}
	return nil
}
