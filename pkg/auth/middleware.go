package auth

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/observability"
	"github.com/rhuss/strom/pkg/transport"
)

// Middleware returns HTTP middleware that authenticates every request with
// chain and, when limiter is non-nil, enforces its rate limits. The
// identity is stored in the request context for later handlers.
func Middleware(chain *Chain, limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := chain.Authenticate(r.Context(), r)

			switch {
			case res.Vote == Deny:
				slog.WarnContext(r.Context(), "authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", res.Err,
				)
				transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
				return
			case res.Vote != Grant || res.Identity == nil:
				transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
				return
			case res.Identity.Subject == "":
				slog.ErrorContext(r.Context(), "authenticator granted an identity without subject")
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
				return
			}

			id := res.Identity
			debug.Log("auth", "authenticated", "subject", id.Subject, "tier", id.TierOrDefault(), "path", r.URL.Path)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					tier := id.TierOrDefault()
					slog.WarnContext(r.Context(), "rate limit exceeded", "subject", id.Subject, "tier", tier)
					observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()

					var le *LimitError
					if errors.As(err, &le) && le.RetryAfter > 0 {
						w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(le.RetryAfter.Seconds()))))
					}
					transport.WriteAPIError(w, api.NewTooManyRequestsError("rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
