package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	credVault "github.com/MrEthical07/credVault"
)

func newGuardedEngine(t *testing.T) *credVault.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := credVault.Config{
		Token: credVault.TokenConfig{
			AccessSecret:  []byte("guard-access-secret-0123456789abcd"),
			RefreshSecret: []byte("guard-refresh-secret-0123456789abc"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		Password: credVault.PasswordConfig{
			Memory:      8 * 1024,
			Time:        1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   16,
		},
		Registration: credVault.RegistrationConfig{
			Enabled:              true,
			DefaultRole:          credVault.RoleUser,
			RequireVerifiedEmail: true,
			OpaqueTokenLength:    32,
		},
		Mail:  credVault.MailConfig{Enabled: false},
		Store: credVault.StoreConfig{KeyPrefix: "cvmw"},
	}

	engine, err := credVault.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

func loginTokens(t *testing.T, engine *credVault.Engine) credVault.TokenPair {
	t.Helper()
	ctx := context.Background()

	reg, err := engine.Register(ctx, credVault.RegisterRequest{
		Email:     "guard@example.com",
		Username:  "guard_user",
		FirstName: "Guard",
		LastName:  "Tester",
		Password:  "guardpassword1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := engine.VerifyEmail(ctx, reg.Account.VerifyTokens.Email); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	res, err := engine.Login(ctx, "guard@example.com", "guardpassword1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res.Tokens
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); !ok {
			t.Error("account missing from request context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine := newGuardedEngine(t)
	tokens := loginTokens(t, engine)

	handler := Guard(engine)(okHandler(t))

	for _, auth := range []string{"Bearer " + tokens.AccessToken, tokens.AccessToken} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(HeaderAuthorization, auth)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d for header %q, want 200", rec.Code, auth)
		}
	}
}

func TestGuardRejectsBadTokens(t *testing.T) {
	engine := newGuardedEngine(t)
	loginTokens(t, engine)

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with bad token")
	}))

	for _, auth := range []string{"", "Bearer ", "Bearer garbage.token.here"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if auth != "" {
			req.Header.Set(HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d for header %q, want 401", rec.Code, auth)
		}
	}
}

func TestRefreshHandlerRotatesAndSetsHeaders(t *testing.T) {
	engine := newGuardedEngine(t)
	tokens := loginTokens(t, engine)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set(HeaderRefreshToken, tokens.RefreshToken)
	rec := httptest.NewRecorder()

	RefreshHandler(engine).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get(HeaderAuthorization); got == "" || got == "Bearer "+tokens.AccessToken {
		t.Fatalf("Authorization header = %q, want fresh bearer token", got)
	}
	if got := rec.Header().Get(HeaderRefreshToken); got == "" || got == tokens.RefreshToken {
		t.Fatalf("refresh header = %q, want fresh token", got)
	}
	if rec.Header().Get(HeaderAccessExpiresAt) == "" || rec.Header().Get(HeaderRefreshExpiresAt) == "" {
		t.Fatal("expiry headers missing")
	}

	// The superseded refresh token no longer rotates.
	req2 := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req2.Header.Set(HeaderRefreshToken, tokens.RefreshToken)
	rec2 := httptest.NewRecorder()
	RefreshHandler(engine).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("second refresh status = %d, want 401", rec2.Code)
	}
}
