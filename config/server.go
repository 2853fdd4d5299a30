package config

import (
	"fmt"
	"time"
)

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as bearer token on /api routes.
	Token string `json:"token"`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `json:"shutdown_seconds"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownSeconds <= 0 {
		c.ShutdownSeconds = 10
	}
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSeconds) * time.Second
}

// RosterConfig locates the roster file used by the CLI.
type RosterConfig struct {
	Path string `json:"path"`
}

func (c *RosterConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "roster.json"
	}
}

// DispatchConfig tunes delivery pacing.
type DispatchConfig struct {
	// ThrottleMS is the pause between two deliveries of one broadcast.
	ThrottleMS int `json:"throttle_ms"`
	// CallTimeoutSeconds bounds one transport call.
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
	// GlobalRatePerSec caps deliveries across all broadcasts; 0 disables it.
	GlobalRatePerSec float64 `json:"global_rate_per_sec"`
}

func (c *DispatchConfig) SetDefaults() {
	if c.ThrottleMS == 0 {
		c.ThrottleMS = 150
	}
	if c.CallTimeoutSeconds == 0 {
		c.CallTimeoutSeconds = 10
	}
}

func (c DispatchConfig) Validate() error {
	if c.ThrottleMS < 0 {
		return fmt.Errorf("throttle_ms must not be negative")
	}
	if c.CallTimeoutSeconds < 0 {
		return fmt.Errorf("call_timeout_seconds must not be negative")
	}
	if c.GlobalRatePerSec < 0 {
		return fmt.Errorf("global_rate_per_sec must not be negative")
	}
	return nil
}

func (c DispatchConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleMS) * time.Millisecond
}

func (c DispatchConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}
