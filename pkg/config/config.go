// Package config provides unified configuration for the strom gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (STROM_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"strconv"
	"time"
)

// Agent types.
const (
	AgentEcho      = "echo"
	AgentOpenAI    = "openai"
	AgentAnthropic = "anthropic"
	AgentRemote    = "remote"
)

// Auth types.
const (
	AuthNone   = "none"
	AuthAPIKey = "apikey"
	AuthJWT    = "jwt"
)

// Config holds all configuration for the strom gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Agent         AgentConfig         `yaml:"agent"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 0, streams are unbounded
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
}

// Addr returns the listen address for Port.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// AgentConfig selects and configures the upstream agent.
type AgentConfig struct {
	Type         string        `yaml:"type"`     // echo, openai, anthropic, remote; default: echo
	BaseURL      string        `yaml:"base_url"` // API base, or run endpoint for remote
	APIKey       string        `yaml:"api_key"`
	APIKeyFile   string        `yaml:"api_key_file"` // _file variant for api_key
	DefaultModel string        `yaml:"default_model"`
	Temperature  float64       `yaml:"temperature"` // default: 1.0
	MaxTokens    int64         `yaml:"max_tokens"`  // 0 leaves it to the backend
	MaxRetries   int           `yaml:"max_retries"` // default: 2
	Timeout      time.Duration `yaml:"timeout"`     // whole run, default: 5m
	LogBodies    bool          `yaml:"log_bodies"`  // log upstream bodies under debug category agent
	Echo         EchoConfig    `yaml:"echo"`
}

// EchoConfig tunes the offline echo agent.
type EchoConfig struct {
	Prefix string        `yaml:"prefix"`
	Delay  time.Duration `yaml:"delay"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // none, apikey, jwt; default: none
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // for type apikey
	JWT       JWTConfig       `yaml:"jwt"`      // for type jwt
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key" json:"key"`
	KeyFile string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string `yaml:"subject" json:"subject"`
	Tier    string `yaml:"tier" json:"tier"`
}

// JWTConfig configures JWT bearer token validation.
type JWTConfig struct {
	Issuer       string        `yaml:"issuer"`
	Audience     string        `yaml:"audience"`
	JWKSURL      string        `yaml:"jwks_url"`
	SubjectClaim string        `yaml:"subject_claim"` // default: sub
	TierClaim    string        `yaml:"tier_claim"`    // default: tier
	ScopesClaim  string        `yaml:"scopes_claim"`  // default: scope
	CacheTTL     time.Duration `yaml:"cache_ttl"`     // default: 1h
}

// RateLimitConfig holds per-tier request limits in requests per minute.
// Zero disables limiting.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"`
	Tiers      map[string]int `yaml:"tiers"`
}

// Enabled reports whether any limit is configured.
func (r RateLimitConfig) Enabled() bool {
	if r.DefaultRPM > 0 {
		return true
	}
	for _, rpm := range r.Tiers {
		if rpm > 0 {
			return true
		}
	}
	return false
}

// LoggingConfig controls the process logger. STROM_LOG_LEVEL, STROM_LOG_FORMAT
// and STROM_DEBUG take precedence when set.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Format string `yaml:"format"` // text or json; default: text
	Debug  string `yaml:"debug"`  // comma separated debug categories
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		Agent: AgentConfig{
			Type:        AgentEcho,
			Temperature: 1.0,
			MaxRetries:  2,
			Timeout:     5 * time.Minute,
		},
		Auth: AuthConfig{
			Type: AuthNone,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Redacted returns a copy with secrets masked, for printing.
func (c Config) Redacted() Config {
	out := c
	out.Agent.APIKey = mask(c.Agent.APIKey)
	out.Auth.APIKeys = make([]APIKeyConfig, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		k.Key = mask(k.Key)
		out.Auth.APIKeys[i] = k
	}
	if c.Auth.APIKeys == nil {
		out.Auth.APIKeys = nil
	}
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
