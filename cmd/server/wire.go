package main

import (
	"fmt"
	"net/http"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/agent/anthropic"
	"github.com/rhuss/strom/pkg/agent/echo"
	"github.com/rhuss/strom/pkg/agent/openai"
	"github.com/rhuss/strom/pkg/agent/remote"
	"github.com/rhuss/strom/pkg/auth"
	"github.com/rhuss/strom/pkg/auth/apikey"
	"github.com/rhuss/strom/pkg/auth/jwt"
	"github.com/rhuss/strom/pkg/auth/noop"
	"github.com/rhuss/strom/pkg/config"
	"github.com/rhuss/strom/pkg/engine"
)

// newAgent builds the agent selected by cfg.Agent.Type.
func newAgent(cfg config.AgentConfig) (agent.Agent, error) {
	client := agent.NewHTTPClient(cfg.Timeout, cfg.LogBodies, cfg.LogBodies)

	switch cfg.Type {
	case config.AgentEcho:
		return echo.New(echo.Config{Prefix: cfg.Echo.Prefix, Delay: cfg.Echo.Delay}), nil
	case config.AgentOpenAI:
		return openai.New(openai.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			MaxRetries: cfg.MaxRetries,
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: client,
		}), nil
	case config.AgentAnthropic:
		return anthropic.New(anthropic.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			MaxRetries: cfg.MaxRetries,
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: client,
		}), nil
	case config.AgentRemote:
		return remote.New(remote.Config{
			URL:        cfg.BaseURL,
			APIKey:     cfg.APIKey,
			HTTPClient: client,
		})
	}
	return nil, fmt.Errorf("unknown agent type %q", cfg.Type)
}

// newEngine builds the engine around a.
func newEngine(a agent.Agent, cfg config.AgentConfig) (*engine.Engine, error) {
	return engine.New(a, engine.Config{
		DefaultModel:       cfg.DefaultModel,
		DefaultTemperature: cfg.Temperature,
	})
}

// newAuthMiddleware builds the authentication guard for the API routes.
func newAuthMiddleware(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	var chain *auth.Chain
	switch cfg.Type {
	case config.AuthNone:
		chain = auth.NewChain(false, noop.Authenticator{})
	case config.AuthAPIKey:
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, apikey.Key{Key: k.Key, Subject: k.Subject, Tier: k.Tier})
		}
		a, err := apikey.New(keys)
		if err != nil {
			return nil, err
		}
		chain = auth.NewChain(false, a)
	case config.AuthJWT:
		a, err := jwt.New(jwt.Config{
			Issuer:       cfg.JWT.Issuer,
			Audience:     cfg.JWT.Audience,
			JWKSURL:      cfg.JWT.JWKSURL,
			SubjectClaim: cfg.JWT.SubjectClaim,
			TierClaim:    cfg.JWT.TierClaim,
			ScopesClaim:  cfg.JWT.ScopesClaim,
			CacheTTL:     cfg.JWT.CacheTTL,
		})
		if err != nil {
			return nil, err
		}
		chain = auth.NewChain(false, a)
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}

	var limiter auth.RateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = auth.NewWindowLimiter(cfg.RateLimit.Tiers, cfg.RateLimit.DefaultRPM)
	}
	return auth.Middleware(chain, limiter), nil
}
