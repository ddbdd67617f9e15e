// Package config loads engine configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Limits  LimitsConfig  `yaml:"limits"`
	Paths   PathsConfig   `yaml:"paths"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig describes the remote generation engine.
type EngineConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	EventTimeout time.Duration `yaml:"event_timeout"`
	RunTimeout   time.Duration `yaml:"run_timeout"`
}

// LimitsConfig holds the admission limits.
type LimitsConfig struct {
	MaxWorkers          int `yaml:"max_workers"`
	PerTopic            int `yaml:"per_topic"`
	PerRequesterPending int `yaml:"per_requester_pending"`
	QueueSize           int `yaml:"queue_size"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	TopicsDir string `yaml:"topics_dir"`
	OutputDir string `yaml:"output_dir"`
}

// ServerConfig holds the control-surface listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			BaseURL:      "http://localhost:8188",
			EventTimeout: 120 * time.Second,
			RunTimeout:   300 * time.Second,
		},
		Limits: LimitsConfig{
			MaxWorkers:          2,
			PerTopic:            1,
			PerRequesterPending: 3,
			QueueSize:           1024,
		},
		Paths: PathsConfig{
			TopicsDir: "data/topics",
			OutputDir: "output",
		},
		Server: ServerConfig{
			Address: ":8080",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that precedence order.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides individual settings from GE_* environment variables.
func (c *Config) applyEnv() {
	envString("GE_ENGINE_BASE_URL", &c.Engine.BaseURL)
	envString("GE_ENGINE_API_KEY", &c.Engine.APIKey)
	envDuration("GE_ENGINE_EVENT_TIMEOUT", &c.Engine.EventTimeout)
	envDuration("GE_ENGINE_RUN_TIMEOUT", &c.Engine.RunTimeout)

	envInt("GE_LIMITS_MAX_WORKERS", &c.Limits.MaxWorkers)
	envInt("GE_LIMITS_PER_TOPIC", &c.Limits.PerTopic)
	envInt("GE_LIMITS_PER_REQUESTER_PENDING", &c.Limits.PerRequesterPending)
	envInt("GE_LIMITS_QUEUE_SIZE", &c.Limits.QueueSize)

	envString("GE_PATHS_TOPICS_DIR", &c.Paths.TopicsDir)
	envString("GE_PATHS_OUTPUT_DIR", &c.Paths.OutputDir)

	envString("GE_SERVER_ADDRESS", &c.Server.Address)
	envBool("GE_SERVER_ENABLED", &c.Server.Enabled)

	envString("GE_LOG_LEVEL", &c.Logging.Level)
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Engine.BaseURL == "" {
		return fmt.Errorf("engine.base_url is required")
	}
	if c.Limits.MaxWorkers < 1 {
		return fmt.Errorf("limits.max_workers must be >= 1, got %d", c.Limits.MaxWorkers)
	}
	if c.Limits.PerTopic < 1 {
		return fmt.Errorf("limits.per_topic must be >= 1, got %d", c.Limits.PerTopic)
	}
	if c.Limits.QueueSize < 1 {
		return fmt.Errorf("limits.queue_size must be >= 1, got %d", c.Limits.QueueSize)
	}
	if c.Engine.EventTimeout <= 0 {
		return fmt.Errorf("engine.event_timeout must be positive")
	}
	if c.Engine.RunTimeout <= 0 {
		return fmt.Errorf("engine.run_timeout must be positive")
	}
	if c.Paths.TopicsDir == "" {
		return fmt.Errorf("paths.topics_dir is required")
	}
	return nil
}

// Serialize renders the configuration to YAML.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// Parse deserializes a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else if n, err := strconv.Atoi(v); err == nil {
			// Bare numbers are seconds.
			*dst = time.Duration(n) * time.Second
		}
	}
}
