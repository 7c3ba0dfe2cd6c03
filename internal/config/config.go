// Package config loads runtime settings: defaults, then an optional YAML
// file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportBoth  = "both"
)

type Config struct {
	Transport string       `yaml:"transport"`
	LogLevel  string       `yaml:"log_level"`
	Rules     RulesConfig  `yaml:"rules"`
	Trail     TrailConfig  `yaml:"trail"`
	Server    ServerConfig `yaml:"server"`
}

type RulesConfig struct {
	// Path of the JSON rules document.
	Path string `yaml:"path"`
	// Watch reloads the document when it changes on disk.
	Watch bool `yaml:"watch"`
}

type TrailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig timeouts are in seconds.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ReadTimeout     int `yaml:"read_timeout"`
	WriteTimeout    int `yaml:"write_timeout"`
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Transport: TransportStdio,
		LogLevel:  "info",
		Rules: RulesConfig{
			Path:  "rules.json",
			Watch: true,
		},
		Trail: TrailConfig{
			Enabled: true,
			Path:    "./db/audit.db",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) ApplyEnv() {
	c.Transport = getEnv("TRANSPORT", c.Transport)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Rules.Path = getEnv("RULES_PATH", c.Rules.Path)
	c.Rules.Watch = getEnvBool("WATCH_RULES", c.Rules.Watch)
	c.Trail.Enabled = getEnvBool("TRAIL_ENABLED", c.Trail.Enabled)
	c.Trail.Path = getEnv("DB_PATH", c.Trail.Path)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvInt("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvInt("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvInt("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP, TransportBoth:
	default:
		return fmt.Errorf("transport must be one of stdio, http, both; got %q", c.Transport)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Rules.Path == "" {
		return fmt.Errorf("rules.path is required")
	}
	if c.Trail.Enabled && c.Trail.Path == "" {
		return fmt.Errorf("trail.path is required when the trail is enabled")
	}
	if c.ServesHTTP() && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}

func (c *Config) ServesHTTP() bool {
	return c.Transport == TransportHTTP || c.Transport == TransportBoth
}

func (c *Config) ServesStdio() bool {
	return c.Transport == TransportStdio || c.Transport == TransportBoth
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
