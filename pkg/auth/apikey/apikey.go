// Package apikey authenticates bearer tokens against a static set of API
// keys. Only SHA-256 digests of the keys are kept in memory and lookups
// compare digests in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/rhuss/strom/pkg/auth"
)

// Key is one configured API key and the identity it grants.
type Key struct {
	Key     string
	Subject string
	Tier    string
}

type entry struct {
	digest [sha256.Size]byte
	id     auth.Identity
}

// Authenticator checks bearer tokens against its keys.
type Authenticator struct {
	entries []entry
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New hashes keys and returns an authenticator. Keys without a value or
// subject are rejected.
func New(keys []Key) (*Authenticator, error) {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for i, k := range keys {
		if k.Key == "" {
			return nil, fmt.Errorf("apikey: key %d is empty", i)
		}
		if k.Subject == "" {
			return nil, fmt.Errorf("apikey: key %d has no subject", i)
		}
		a.entries = append(a.entries, entry{
			digest: sha256.Sum256([]byte(k.Key)),
			id:     auth.Identity{Subject: k.Subject, Tier: k.Tier},
		})
	}
	return a, nil
}

// Authenticate abstains without a bearer token, grants a known key and
// denies anything else.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Vote: auth.Abstain}
	}
	if token == "" {
		return auth.Denied(errors.New("empty bearer token"))
	}

	digest := sha256.Sum256([]byte(token))
	var match *entry
	for i := range a.entries {
		// Scan every entry so timing does not reveal the key position.
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 {
			match = &a.entries[i]
		}
	}
	if match == nil {
		return auth.Denied(errors.New("unknown api key"))
	}
	id := match.id
	return auth.Granted(&id)
}
