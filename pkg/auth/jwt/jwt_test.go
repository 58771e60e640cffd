package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/strom/pkg/auth"
)

var signingKey *rsa.PrivateKey

func init() {
	var err error
	signingKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("generating test RSA key: %v", err))
	}
}

const testKID = "test-key-1"

// jwksServer publishes signingKey under the given kid and counts fetches.
func jwksServer(t *testing.T, kid *atomic.Value, fetches *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		pub := signingKey.PublicKey
		doc := map[string]any{
			"keys": []map[string]string{
				{"kty": "EC", "kid": "ignored-ec", "crv": "P-256"},
				{
					"kty": "RSA",
					"kid": kid.Load().(string),
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	authn   *Authenticator
	kid     *atomic.Value
	fetches *atomic.Int32
}

func newFixture(t *testing.T, override func(*Config)) *fixture {
	t.Helper()
	f := &fixture{kid: &atomic.Value{}, fetches: &atomic.Int32{}}
	f.kid.Store(testKID)
	srv := jwksServer(t, f.kid, f.fetches)

	cfg := Config{
		Issuer:   "https://auth.example.com",
		Audience: "strom",
		JWKSURL:  srv.URL + "/.well-known/jwks.json",
	}
	if override != nil {
		override(&cfg)
	}
	authn, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	f.authn = authn
	return f
}

func validClaims() jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub": "user-123",
		"iss": "https://auth.example.com",
		"aud": "strom",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func sign(t *testing.T, claims jwtlib.MapClaims, kid string) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	s, err := token.SignedString(signingKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func authenticate(f *fixture, header string) auth.Result {
	r := httptest.NewRequest(http.MethodPost, "/v1/responses", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return f.authn.Authenticate(context.Background(), r)
}

func TestValidToken(t *testing.T) {
	f := newFixture(t, nil)
	claims := validClaims()
	claims["tier"] = "premium"
	claims["scope"] = "responses:write responses:read"

	res := authenticate(f, "Bearer "+sign(t, claims, testKID))
	if res.Vote != auth.Grant {
		t.Fatalf("vote = %s, err = %v", res.Vote, res.Err)
	}
	id := res.Identity
	if id.Subject != "user-123" || id.Tier != "premium" {
		t.Errorf("identity = %+v", id)
	}
	if len(id.Scopes) != 2 || id.Scopes[0] != "responses:write" {
		t.Errorf("scopes = %v", id.Scopes)
	}
}

func TestScopesAsArray(t *testing.T) {
	f := newFixture(t, nil)
	claims := validClaims()
	claims["scope"] = []any{"a", 7, "b"}

	res := authenticate(f, "Bearer "+sign(t, claims, testKID))
	if len(res.Identity.Scopes) != 2 || res.Identity.Scopes[1] != "b" {
		t.Errorf("scopes = %v", res.Identity.Scopes)
	}
}

func TestCustomClaims(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.SubjectClaim = "email"
		c.TierClaim = "plan"
	})
	claims := validClaims()
	claims["email"] = "dev@example.com"
	claims["plan"] = "team"

	res := authenticate(f, "Bearer "+sign(t, claims, testKID))
	if res.Vote != auth.Grant {
		t.Fatalf("vote = %s, err = %v", res.Vote, res.Err)
	}
	if res.Identity.Subject != "dev@example.com" || res.Identity.Tier != "team" {
		t.Errorf("identity = %+v", res.Identity)
	}
}

func TestAbstains(t *testing.T) {
	f := newFixture(t, nil)
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Token abc"} {
		if res := authenticate(f, header); res.Vote != auth.Abstain {
			t.Errorf("header %q: vote = %s, want abstain", header, res.Vote)
		}
	}
	if f.fetches.Load() != 0 {
		t.Errorf("jwks fetched %d times for abstentions", f.fetches.Load())
	}
}

func TestRejectedTokens(t *testing.T) {
	f := newFixture(t, nil)

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "https://evil.example.com"
	wrongAudience := validClaims()
	wrongAudience["aud"] = "other"
	noExp := validClaims()
	delete(noExp, "exp")
	noSubject := validClaims()
	delete(noSubject, "sub")

	otherKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	forged := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, validClaims())
	forged.Header["kid"] = testKID
	forgedStr, _ := forged.SignedString(otherKey)

	hmac := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, validClaims())
	hmac.Header["kid"] = testKID
	hmacStr, _ := hmac.SignedString([]byte("secret"))

	tests := []struct {
		name   string
		header string
	}{
		{"empty token", "Bearer "},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + sign(t, expired, testKID)},
		{"wrong issuer", "Bearer " + sign(t, wrongIssuer, testKID)},
		{"wrong audience", "Bearer " + sign(t, wrongAudience, testKID)},
		{"missing exp", "Bearer " + sign(t, noExp, testKID)},
		{"missing subject", "Bearer " + sign(t, noSubject, testKID)},
		{"missing kid", "Bearer " + sign(t, validClaims(), "")},
		{"unknown kid", "Bearer " + sign(t, validClaims(), "other-key")},
		{"wrong signature", "Bearer " + forgedStr},
		{"hmac algorithm", "Bearer " + hmacStr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := authenticate(f, tt.header)
			if res.Vote != auth.Deny {
				t.Errorf("vote = %s, want deny", res.Vote)
			}
			if res.Err == nil {
				t.Error("deny without error")
			}
		})
	}
}

func TestKeysAreCached(t *testing.T) {
	f := newFixture(t, nil)
	token := "Bearer " + sign(t, validClaims(), testKID)

	for i := 0; i < 3; i++ {
		if res := authenticate(f, token); res.Vote != auth.Grant {
			t.Fatalf("request %d: vote = %s, err = %v", i, res.Vote, res.Err)
		}
	}
	if got := f.fetches.Load(); got != 1 {
		t.Errorf("jwks fetched %d times, want 1", got)
	}
}

func TestKeyRotationRefetches(t *testing.T) {
	f := newFixture(t, nil)
	if res := authenticate(f, "Bearer "+sign(t, validClaims(), testKID)); res.Vote != auth.Grant {
		t.Fatalf("vote = %s", res.Vote)
	}

	f.kid.Store("rotated")
	if res := authenticate(f, "Bearer "+sign(t, validClaims(), "rotated")); res.Vote != auth.Grant {
		t.Fatalf("after rotation: vote = %s, err = %v", res.Vote, res.Err)
	}
	if got := f.fetches.Load(); got != 2 {
		t.Errorf("jwks fetched %d times, want 2", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.CacheTTL = time.Minute })
	now := time.Now()
	f.authn.keys.now = func() time.Time { return now }
	token := "Bearer " + sign(t, validClaims(), testKID)

	authenticate(f, token)
	now = now.Add(2 * time.Minute)
	authenticate(f, token)

	if got := f.fetches.Load(); got != 2 {
		t.Errorf("jwks fetched %d times, want 2", got)
	}
}

func TestJWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	authn, err := New(Config{JWKSURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+sign(t, validClaims(), testKID))

	if res := authn.Authenticate(context.Background(), r); res.Vote != auth.Deny {
		t.Errorf("vote = %s, want deny", res.Vote)
	}
}

func TestNewRequiresJWKSURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without jwks url")
	}
}
