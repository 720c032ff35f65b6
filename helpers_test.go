package credVault

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-0123456789abcd")
	cfg.Token.AccessTTL = 15 * time.Minute
	cfg.Token.RefreshTTL = 24 * time.Hour
	// Cheap hashing keeps the suite fast. Production minimums are enforced
	// separately in config validation tests.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Mail.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWithConfig(t, testConfig())
}

func newTestEngineWithConfig(t *testing.T, cfg Config) *Engine {
	t.Helper()

	_, rdb := newTestRedis(t)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

// registerVerified registers an account and walks it through email
// verification so login can succeed.
func registerVerified(t *testing.T, e *Engine, email, username, pass string) *Account {
	t.Helper()
	ctx := context.Background()

	res, err := e.Register(ctx, RegisterRequest{
		Email:     email,
		Username:  username,
		FirstName: "Test",
		LastName:  "Account",
		Password:  pass,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	verified, err := e.VerifyEmail(ctx, res.Account.VerifyTokens.Email)
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	return verified
}

// advanceClock shifts the engine clock forward by d.
func advanceClock(e *Engine, d time.Duration) {
	base := e.now()
	e.now = func() time.Time { return base.Add(d) }
}
