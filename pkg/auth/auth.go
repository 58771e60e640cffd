package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Vote is an authenticator's verdict on one request.
type Vote int

const (
	// Abstain means the authenticator does not recognize the credentials.
	// The chain asks the next authenticator.
	Abstain Vote = iota

	// Grant means the credentials are valid. The chain stops and the
	// identity is attached to the request.
	Grant

	// Deny means credentials were presented but are invalid. The chain
	// stops and the request is rejected.
	Deny
)

func (v Vote) String() string {
	switch v {
	case Abstain:
		return "abstain"
	case Grant:
		return "grant"
	case Deny:
		return "deny"
	}
	return "unknown"
}

// Result carries the outcome of one authentication attempt.
type Result struct {
	Vote     Vote
	Identity *Identity // set when Vote == Grant
	Err      error     // set when Vote == Deny
}

// Granted returns a granting result for id.
func Granted(id *Identity) Result {
	return Result{Vote: Grant, Identity: id}
}

// Denied returns a denying result. A nil err becomes ErrUnauthenticated.
func Denied(err error) Result {
	if err == nil {
		err = ErrUnauthenticated
	}
	return Result{Vote: Deny, Err: err}
}

// Identity is an authenticated caller.
type Identity struct {
	// Subject identifies the caller and keys rate limiting. Never empty.
	Subject string

	// Tier selects the rate limit. Empty means DefaultTier.
	Tier string

	// Scopes are passed through from the credential; strom does not
	// make authorization decisions on them.
	Scopes []string
}

// DefaultTier is the rate limit tier of identities without one.
const DefaultTier = "default"

// TierOrDefault returns the identity's tier, or DefaultTier.
func (id *Identity) TierOrDefault() string {
	if id == nil || id.Tier == "" {
		return DefaultTier
	}
	return id.Tier
}

// Anonymous is the identity granted when every authenticator abstains and
// the chain allows anonymous access.
func Anonymous() *Identity {
	return &Identity{Subject: "anonymous", Tier: DefaultTier}
}

// Authenticator examines request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

// Authenticate calls f(ctx, r).
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain asks its authenticators in order until one grants or denies.
type Chain struct {
	authenticators []Authenticator
	allowAnonymous bool
}

// NewChain builds a chain. When allowAnonymous is set, a request that no
// authenticator recognizes is granted the Anonymous identity; otherwise
// it is denied.
func NewChain(allowAnonymous bool, authenticators ...Authenticator) *Chain {
	return &Chain{authenticators: authenticators, allowAnonymous: allowAnonymous}
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.authenticators {
		if res := a.Authenticate(ctx, r); res.Vote != Abstain {
			return res
		}
	}
	if c.allowAnonymous {
		return Granted(Anonymous())
	}
	return Denied(ErrUnauthenticated)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
// ok is false when the header is missing or uses another scheme, which
// authenticators treat as an abstention. An empty token with ok set is a
// malformed credential.
func BearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
