package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodySize <= 0 {
		add("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		add("server timeouts must not be negative")
	}

	switch c.Agent.Type {
	case AgentEcho:
	case AgentOpenAI:
		if c.Agent.APIKey == "" && c.Agent.BaseURL == "" {
			add("agent.api_key or agent.base_url is required for agent type %q", c.Agent.Type)
		}
	case AgentAnthropic:
		if c.Agent.APIKey == "" {
			add("agent.api_key or agent.api_key_file is required for agent type %q", c.Agent.Type)
		}
	case AgentRemote:
		if c.Agent.BaseURL == "" {
			add("agent.base_url is required for agent type %q", c.Agent.Type)
		}
	default:
		add("agent.type must be %q, %q, %q or %q, got %q",
			AgentEcho, AgentOpenAI, AgentAnthropic, AgentRemote, c.Agent.Type)
	}
	if c.Agent.BaseURL != "" {
		if u, err := url.Parse(c.Agent.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("agent.base_url must be an absolute URL, got %q", c.Agent.BaseURL)
		}
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		add("agent.temperature must be between 0 and 2, got %g", c.Agent.Temperature)
	}
	if c.Agent.MaxTokens < 0 || c.Agent.MaxRetries < 0 || c.Agent.Timeout < 0 {
		add("agent.max_tokens, agent.max_retries and agent.timeout must not be negative")
	}

	switch c.Auth.Type {
	case AuthNone:
	case AuthAPIKey:
		if len(c.Auth.APIKeys) == 0 {
			add("auth.api_keys must not be empty when auth.type is %q", AuthAPIKey)
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				add("auth.api_keys[%d]: key or key_file is required", i)
			}
			if k.Subject == "" {
				add("auth.api_keys[%d]: subject is required", i)
			}
		}
	case AuthJWT:
		if c.Auth.JWT.JWKSURL == "" {
			add("auth.jwt.jwks_url is required when auth.type is %q", AuthJWT)
		}
	default:
		add("auth.type must be %q, %q or %q, got %q", AuthNone, AuthAPIKey, AuthJWT, c.Auth.Type)
	}
	if c.Auth.RateLimit.DefaultRPM < 0 {
		add("auth.rate_limit.default_rpm must not be negative")
	}
	for tier, rpm := range c.Auth.RateLimit.Tiers {
		if rpm < 0 {
			add("auth.rate_limit.tiers.%s must not be negative", tier)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		add("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	if m := c.Observability.Metrics; m.Enabled && !strings.HasPrefix(m.Path, "/") {
		add("observability.metrics.path must start with \"/\", got %q", m.Path)
	}

	return errors.Join(errs...)
}
