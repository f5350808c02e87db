package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"academy-service/internal/domain/auth"
)

type fakeGoTrue struct {
	mu      sync.Mutex
	revoked map[string]bool
	logouts int
}

func (f *fakeGoTrue) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch {
		case body.Email == "root@x.com" && body.Password == "secret":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "tok-" + body.Email,
				"refresh_token": "ref",
				"token_type":    "bearer",
				"expires_in":    3600,
				"user":          map[string]any{"id": "prov-1", "email": body.Email, "role": "authenticated"},
			})
		case body.Email == "down@x.com":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		}
	})

	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		tok := r.Header.Get("Authorization")
		if f.revoked[tok] {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.revoked[tok] = true
		f.logouts++
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		revoked := f.revoked[r.Header.Get("Authorization")]
		f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer tok-root@x.com" || revoked {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "prov-1", "email": "root@x.com"})
	})

	return mux
}

func newFakeFactory(t *testing.T) (*GoTrueFactory, *fakeGoTrue) {
	t.Helper()
	fake := &fakeGoTrue{revoked: make(map[string]bool)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewGoTrueFactory(GoTrueConfig{URL: srv.URL + "/", AnonKey: "anon", Timeout: 2 * time.Second}), fake
}

func TestSignInWithPassword(t *testing.T) {
	ctx := context.Background()
	f, _ := newFakeFactory(t)
	c := f.NewClient()

	ps, err := c.SignInWithPassword(ctx, "root@x.com", "secret")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if ps.AccessToken != "tok-root@x.com" || ps.User.ID != "prov-1" {
		t.Fatalf("session = %+v", ps)
	}
	if ps.ExpiresAt == 0 {
		t.Fatal("expires_at not derived from expires_in")
	}
	if c.Session() == nil || c.Session().AccessToken != ps.AccessToken {
		t.Fatal("client did not keep its session")
	}
}

func TestSignInErrors(t *testing.T) {
	ctx := context.Background()
	f, _ := newFakeFactory(t)

	_, err := f.NewClient().SignInWithPassword(ctx, "root@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}

	_, err = f.NewClient().SignInWithPassword(ctx, "down@x.com", "x")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("outage err = %v, want infrastructure error", err)
	}
}

func TestClientsDoNotShareSessions(t *testing.T) {
	ctx := context.Background()
	f, _ := newFakeFactory(t)

	a := f.NewClient()
	b := f.NewClient()
	if _, err := a.SignInWithPassword(ctx, "root@x.com", "secret"); err != nil {
		t.Fatal(err)
	}
	if b.Session() != nil {
		t.Fatal("second client picked up first client's session")
	}
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	f, fake := newFakeFactory(t)

	c := f.NewClient()
	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut without session: %v", err)
	}

	_, _ = c.SignInWithPassword(ctx, "root@x.com", "secret")
	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if c.Session() != nil {
		t.Fatal("session kept after sign out")
	}
	fake.mu.Lock()
	logouts := fake.logouts
	fake.mu.Unlock()
	if logouts != 1 {
		t.Fatalf("logouts = %d", logouts)
	}

	// restoring a revoked session and signing out again is fine
	restored := f.NewClient()
	restored.SetSession(&auth.ProviderSession{AccessToken: "tok-root@x.com"})
	if err := restored.SignOut(ctx); err != nil {
		t.Fatalf("SignOut on revoked token: %v", err)
	}
}

func TestGlobalSession(t *testing.T) {
	ctx := context.Background()
	f, _ := newFakeFactory(t)

	u, err := GlobalSession(ctx, f, "tok-root@x.com")
	if err != nil {
		t.Fatalf("GlobalSession: %v", err)
	}
	if u == nil || u.ID != "prov-1" {
		t.Fatalf("user = %+v", u)
	}

	if u, err := GlobalSession(ctx, f, ""); u != nil || err != nil {
		t.Fatalf("empty token = %+v, %v", u, err)
	}
	if u, err := GlobalSession(ctx, f, "stale"); u != nil || err != nil {
		t.Fatalf("stale token = %+v, %v", u, err)
	}
}
