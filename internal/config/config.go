// Package config handles configuration loading for taskmesh.
// It supports YAML, JSON and JSONC (JSON with comments) files plus
// environment variable overrides prefixed with TASKMESH_.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/gautammanak1/taskmesh/logging"
	"github.com/gautammanak1/taskmesh/specialist"
)

// EnvPrefix prefixes every environment override, e.g.
// TASKMESH_COORDINATOR_TASK_TIMEOUT=30s.
const EnvPrefix = "TASKMESH"

// Provider names accepted in specialist records.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for taskmesh.
type Config struct {
	Coordinator CoordinatorConfig  `mapstructure:"coordinator"`
	Logging     LoggingConfig      `mapstructure:"logging"`
	Server      ServerConfig       `mapstructure:"server"`
	Providers   ProvidersConfig    `mapstructure:"providers"`
	Specialists []SpecialistConfig `mapstructure:"specialists"`
}

// CoordinatorConfig mirrors taskmesh.Options.
type CoordinatorConfig struct {
	EventBufferSize    int           `mapstructure:"event_buffer_size"`
	MaxConcurrentTasks int           `mapstructure:"max_concurrent_tasks"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout"`
	ConsolidateOutput  bool          `mapstructure:"consolidate_output"`
	MaxOutputBytes     int           `mapstructure:"max_output_bytes"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// ServerConfig holds the A2A server settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	URL         string `mapstructure:"url"`
}

// ProvidersConfig holds model provider credentials and defaults.
type ProvidersConfig struct {
	// Default is used by specialists that name no provider and no endpoint.
	Default   string          `mapstructure:"default"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI settings. BaseURL targets compatible endpoints.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// SpecialistConfig is one specialist record. A nil Priority is derived from
// the specialties (see specialist.DefaultPriority).
type SpecialistConfig struct {
	Name         string   `mapstructure:"name"`
	Description  string   `mapstructure:"description"`
	Specialties  []string `mapstructure:"specialties"`
	Priority     *int     `mapstructure:"priority"`
	Endpoint     string   `mapstructure:"endpoint"`
	Default      bool     `mapstructure:"default"`
	Provider     string   `mapstructure:"provider"`
	Model        string   `mapstructure:"model"`
	SystemPrompt string   `mapstructure:"system_prompt"`
}

// EffectivePriority returns the configured priority or the derived default.
func (s SpecialistConfig) EffectivePriority() int {
	if s.Priority != nil {
		return *s.Priority
	}
	return specialist.DefaultPriority(s.Specialties)
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("config: unmarshaling defaults: %v", err))
	}

	return cfg
}

// Load reads configuration from path (optional) and the environment.
// Precedence (highest to lowest):
// 1. Environment variables (TASKMESH_*, OPENAI_API_KEY, ANTHROPIC_API_KEY)
// 2. Config file
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("providers.openai.api_key", "TASKMESH_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("providers.anthropic.api_key", "TASKMESH_PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Providers.OpenAI.APIKey = os.ExpandEnv(cfg.Providers.OpenAI.APIKey)
	cfg.Providers.Anthropic.APIKey = os.ExpandEnv(cfg.Providers.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readFile loads path into v. JSONC files have their comments and trailing
// commas stripped before parsing.
func readFile(v *viper.Viper, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".jsonc") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config from %s: %w", path, err)
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data))); err != nil {
			return fmt.Errorf("reading config from %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}

	return nil
}

// Validate checks the configuration for errors that would only surface at
// runtime otherwise.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Coordinator.TaskTimeout < 0 {
		errs = append(errs, errors.New("coordinator.task_timeout must not be negative"))
	}
	if c.Coordinator.MaxConcurrentTasks < 0 {
		errs = append(errs, errors.New("coordinator.max_concurrent_tasks must not be negative"))
	}
	if c.Coordinator.MaxOutputBytes < 0 {
		errs = append(errs, errors.New("coordinator.max_output_bytes must not be negative"))
	}

	seen := make(map[string]struct{}, len(c.Specialists))
	for i, s := range c.Specialists {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Errorf("specialists[%d]: name is required", i))
			continue
		}
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("specialists[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = struct{}{}

		switch s.Provider {
		case "", ProviderMock, ProviderOpenAI, ProviderAnthropic:
		default:
			errs = append(errs, fmt.Errorf("specialists[%d]: unknown provider %q", i, s.Provider))
		}
	}

	return errors.Join(errs...)
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Coordinator defaults
	v.SetDefault("coordinator.event_buffer_size", 100)
	v.SetDefault("coordinator.max_concurrent_tasks", 10)
	v.SetDefault("coordinator.task_timeout", "0s")
	v.SetDefault("coordinator.consolidate_output", false)
	v.SetDefault("coordinator.max_output_bytes", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)

	// Server defaults
	v.SetDefault("server.addr", ":10000")
	v.SetDefault("server.name", "Taskmesh Coordinator")
	v.SetDefault("server.description", "Routes tasks to specialist agents and streams their results")
	v.SetDefault("server.url", "http://localhost:10000/")

	// Provider defaults
	v.SetDefault("providers.default", ProviderMock)
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.anthropic.api_key", "")
	v.SetDefault("providers.anthropic.model", "claude-3-5-sonnet-20241022")
}
