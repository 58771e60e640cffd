// Package noop provides an authenticator that grants every request the
// anonymous identity. It backs auth type "none".
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/strom/pkg/auth"
)

// Authenticator grants every request.
type Authenticator struct{}

var _ auth.Authenticator = Authenticator{}

// Authenticate returns auth.Anonymous.
func (Authenticator) Authenticate(context.Context, *http.Request) auth.Result {
	return auth.Granted(auth.Anonymous())
}
