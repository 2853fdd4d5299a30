// Package config loads the service configuration from a YAML or JSON file
// with TC_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/teamcast/core/factory"
	"github.com/kilianp07/teamcast/core/history"
	"github.com/kilianp07/teamcast/core/metrics"
)

// EnvPrefix marks environment overrides. TC_SERVER__ADDR sets server.addr.
const EnvPrefix = "TC_"

type Config struct {
	Server    ServerConfig         `json:"server"`
	Roster    RosterConfig         `json:"roster"`
	Dispatch  DispatchConfig       `json:"dispatch"`
	Transport factory.ModuleConfig `json:"transport"`
	History   history.Config       `json:"history"`
	Metrics   metrics.Config       `json:"metrics"`
	Logging   LoggingConfig        `json:"logging"`
	Sentry    SentryConfig         `json:"sentry"`
}

// Load reads path, applies environment overrides, defaults and validation.
// An empty path loads only the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Roster.SetDefaults()
	c.Dispatch.SetDefaults()
	if c.Transport.Type == "" {
		c.Transport.Type = "mock"
	}
	c.History.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Roster.Path == "" {
		return fmt.Errorf("roster: path is required")
	}
	return nil
}
