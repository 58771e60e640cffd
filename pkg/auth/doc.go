// Package auth authenticates API callers and rate limits them per tier.
//
// Authenticators vote on each request: Grant (credentials valid), Deny
// (credentials present but invalid) or Abstain (credentials not
// recognized). A Chain asks them in order and falls back to anonymous
// access or rejection when all abstain.
//
// The package only establishes who is calling. It makes no authorization
// decisions; scopes are carried on the Identity for logging.
//
// Middleware wires a Chain and an optional RateLimiter in front of the
// API routes. Rejections are written as standard API error bodies.
package auth
