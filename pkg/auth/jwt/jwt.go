// Package jwt authenticates RSA-signed JWT bearer tokens whose signing keys
// are published at a JWKS endpoint, as issued by OIDC providers.
package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/strom/pkg/auth"
	"github.com/rhuss/strom/pkg/debug"
)

// maxJWKSSize bounds the JWKS document.
const maxJWKSSize = 1 << 20

// Config holds the JWT authenticator settings.
type Config struct {
	// Issuer is the required iss claim. Empty skips the check.
	Issuer string
	// Audience is the required aud claim. Empty skips the check.
	Audience string
	// JWKSURL is where signing keys are fetched from.
	JWKSURL string

	// SubjectClaim names the claim used as identity subject. Default "sub".
	SubjectClaim string
	// TierClaim names the claim selecting the rate limit tier. Default "tier".
	TierClaim string
	// ScopesClaim holds a space separated string or an array. Default "scope".
	ScopesClaim string

	// CacheTTL is how long fetched keys are trusted. Default one hour.
	CacheTTL time.Duration
	// HTTPClient fetches the JWKS. Default http.DefaultClient.
	HTTPClient *http.Client
}

func (c *Config) setDefaults() {
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.TierClaim == "" {
		c.TierClaim = "tier"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Authenticator validates JWT bearer tokens.
type Authenticator struct {
	cfg    Config
	keys   *keySet
	parser *jwtlib.Parser
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New creates a JWT authenticator. JWKSURL is required.
func New(cfg Config) (*Authenticator, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwt: jwks url is required")
	}
	cfg.setDefaults()

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwtlib.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		cfg:    cfg,
		keys:   &keySet{url: cfg.JWKSURL, ttl: cfg.CacheTTL, client: cfg.HTTPClient, now: time.Now},
		parser: jwtlib.NewParser(opts...),
	}, nil
}

// Authenticate abstains without a bearer token, grants a valid token and
// denies anything else.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Vote: auth.Abstain}
	}
	if raw == "" {
		return auth.Denied(errors.New("empty bearer token"))
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return a.keys.get(ctx, kid)
	})
	if err != nil {
		debug.Log("auth", "jwt rejected", "error", err)
		return auth.Denied(fmt.Errorf("invalid jwt: %w", err))
	}

	subject := stringClaim(claims, a.cfg.SubjectClaim)
	if subject == "" {
		return auth.Denied(fmt.Errorf("jwt has no %q claim", a.cfg.SubjectClaim))
	}
	return auth.Granted(&auth.Identity{
		Subject: subject,
		Tier:    stringClaim(claims, a.cfg.TierClaim),
		Scopes:  scopesClaim(claims, a.cfg.ScopesClaim),
	})
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

func scopesClaim(claims jwtlib.MapClaims, name string) []string {
	switch v := claims[name].(type) {
	case string:
		if f := strings.Fields(v); len(f) > 0 {
			return f
		}
	case []any:
		var scopes []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}
	return nil
}

// keySet caches the RSA keys of a JWKS endpoint. An unknown kid forces a
// refetch so rotated keys are picked up before the TTL expires.
type keySet struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func (s *keySet) get(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.now().Sub(s.fetchedAt) < s.ttl
	if key, ok := s.keys[kid]; ok && fresh {
		return key, nil
	}

	keys, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.keys = keys
	s.fetchedAt = s.now()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %q not in jwks", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (s *keySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("jwks request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSSize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			debug.Log("auth", "skipping jwks key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	debug.Log("auth", "jwks refreshed", "url", s.url, "keys", len(keys))
	return keys, nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() > 1<<31-1 {
		return nil, errors.New("exponent too large")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}
