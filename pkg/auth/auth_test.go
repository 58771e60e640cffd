package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// fixedVote is a test authenticator returning a preset result.
func fixedVote(res Result) Authenticator {
	return AuthenticatorFunc(func(context.Context, *http.Request) Result { return res })
}

func TestChain(t *testing.T) {
	alice := Granted(&Identity{Subject: "alice"})
	deny := Denied(nil)
	abstain := Result{Vote: Abstain}

	tests := []struct {
		name           string
		allowAnonymous bool
		votes          []Result
		wantVote       Vote
		wantSubject    string
	}{
		{"first grant wins", false, []Result{alice, deny}, Grant, "alice"},
		{"first deny wins", true, []Result{deny, alice}, Deny, ""},
		{"abstain moves on", false, []Result{abstain, alice}, Grant, "alice"},
		{"all abstain rejects", false, []Result{abstain, abstain}, Deny, ""},
		{"all abstain anonymous", true, []Result{abstain}, Grant, "anonymous"},
		{"empty chain rejects", false, nil, Deny, ""},
		{"empty chain anonymous", true, nil, Grant, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var authns []Authenticator
			for _, v := range tt.votes {
				authns = append(authns, fixedVote(v))
			}
			chain := NewChain(tt.allowAnonymous, authns...)

			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			res := chain.Authenticate(context.Background(), r)

			if res.Vote != tt.wantVote {
				t.Fatalf("vote = %s, want %s", res.Vote, tt.wantVote)
			}
			if tt.wantSubject != "" && res.Identity.Subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", res.Identity.Subject, tt.wantSubject)
			}
			if res.Vote == Deny && !errors.Is(res.Err, ErrUnauthenticated) {
				t.Errorf("err = %v", res.Err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header    string
		wantToken string
		wantOK    bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer ", "", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, ok := BearerToken(r)
		if token != tt.wantToken || ok != tt.wantOK {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.wantToken, tt.wantOK)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Error("identity in empty context")
	}
	id := &Identity{Subject: "alice"}
	if got := IdentityFromContext(WithIdentity(ctx, id)); got != id {
		t.Errorf("got %+v", got)
	}
}

func TestTierOrDefault(t *testing.T) {
	var nilID *Identity
	if nilID.TierOrDefault() != DefaultTier {
		t.Error("nil identity tier")
	}
	if (&Identity{Tier: "gold"}).TierOrDefault() != "gold" {
		t.Error("explicit tier lost")
	}
}

func newTestLimiter(tiers map[string]int, defaultRPM int) (*WindowLimiter, *time.Time) {
	l := NewWindowLimiter(tiers, defaultRPM)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestWindowLimiter(t *testing.T) {
	l, now := newTestLimiter(map[string]int{"limited": 2, "unlimited": 0}, 5)
	ctx := context.Background()
	alice := &Identity{Subject: "alice", Tier: "limited"}

	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, alice); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	*now = now.Add(20 * time.Second)
	err := l.Allow(ctx, alice)
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("third request: err = %v", err)
	}
	var le *LimitError
	if !errors.As(err, &le) || le.Tier != "limited" || le.RetryAfter != 40*time.Second {
		t.Errorf("limit error = %+v", le)
	}

	// Other subjects have their own window.
	if err := l.Allow(ctx, &Identity{Subject: "bob", Tier: "limited"}); err != nil {
		t.Errorf("bob: %v", err)
	}

	*now = now.Add(40 * time.Second)
	if err := l.Allow(ctx, alice); err != nil {
		t.Errorf("after window: %v", err)
	}

	for i := 0; i < 50; i++ {
		if err := l.Allow(ctx, &Identity{Subject: "carol", Tier: "unlimited"}); err != nil {
			t.Fatalf("unlimited tier rejected: %v", err)
		}
	}
}

func TestWindowLimiterDefaultTier(t *testing.T) {
	l, _ := newTestLimiter(nil, 1)
	ctx := context.Background()
	anon := Anonymous()

	if err := l.Allow(ctx, anon); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow(ctx, anon); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("err = %v, want rate limit", err)
	}
}

func TestWindowLimiterSweepsIdleSubjects(t *testing.T) {
	l, now := newTestLimiter(nil, 10)
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		l.Allow(ctx, &Identity{Subject: s})
	}

	*now = now.Add(2 * time.Minute)
	l.Allow(ctx, &Identity{Subject: "d"})

	if len(l.windows) != 1 {
		t.Errorf("windows = %d, want 1", len(l.windows))
	}
}
