package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret-for-tests-0123456789"),
		RefreshSecret: []byte("refresh-secret-for-tests-012345678"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "codec-test",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return c
}

func TestNewCodecValidation(t *testing.T) {
	base := Config{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("b"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing access secret", func(c *Config) { c.AccessSecret = nil }},
		{"missing refresh secret", func(c *Config) { c.RefreshSecret = nil }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"refresh shorter than access", func(c *Config) { c.RefreshTTL = time.Second }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewCodec(cfg); err == nil {
				t.Fatal("NewCodec accepted invalid config")
			}
		})
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	c := testCodec(t)
	now := time.Now()

	access, claims, err := c.IssueAccess("acct-42", now)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if claims.Subject != "acct-42" {
		t.Fatalf("issued subject = %q", claims.Subject)
	}
	if claims.ExpiresAt != now.Add(15*time.Minute).Unix() {
		t.Fatalf("issued expiry = %d, want %d", claims.ExpiresAt, now.Add(15*time.Minute).Unix())
	}

	parsed, err := c.ParseAccess(access)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if parsed != claims {
		t.Fatalf("parsed claims = %+v, want %+v", parsed, claims)
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	c := testCodec(t)
	now := time.Now()

	access, _, err := c.IssueAccess("acct-1", now)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	refresh, _, err := c.IssueRefresh("acct-1", now)
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	// Each class only verifies under its own secret.
	if _, err := c.ParseRefresh(access); !errors.Is(err, ErrMalformed) {
		t.Fatalf("access token parsed as refresh: %v", err)
	}
	if _, err := c.ParseAccess(refresh); !errors.Is(err, ErrMalformed) {
		t.Fatalf("refresh token parsed as access: %v", err)
	}
}

func TestParseRejectsTampering(t *testing.T) {
	c := testCodec(t)

	access, _, err := c.IssueAccess("acct-7", time.Now())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	// Flip a character in the signature segment.
	i := strings.LastIndex(access, ".") + 1
	flipped := access[:i]
	if access[i] == 'A' {
		flipped += "B"
	} else {
		flipped += "A"
	}
	flipped += access[i+1:]

	if _, err := c.ParseAccess(flipped); !errors.Is(err, ErrMalformed) {
		t.Fatalf("tampered token error = %v, want ErrMalformed", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	c := testCodec(t)

	for _, bad := range []string{"", "x", "a.b", "a.b.c.d", "not a jwt at all"} {
		if _, err := c.ParseAccess(bad); !errors.Is(err, ErrMalformed) {
			t.Fatalf("ParseAccess(%q) = %v, want ErrMalformed", bad, err)
		}
	}
}

func TestParseDoesNotRejectExpiry(t *testing.T) {
	c := testCodec(t)

	issued := time.Now().Add(-48 * time.Hour)
	access, _, err := c.IssueAccess("acct-9", issued)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	// Long past its window, the token still decodes. Expiry is the
	// caller's policy.
	claims, err := c.ParseAccess(access)
	if err != nil {
		t.Fatalf("ParseAccess of expired token = %v, want success", err)
	}
	if !claims.Expired(time.Now()) {
		t.Fatal("claims should report expired")
	}
}

func TestClaimsExpiredBoundary(t *testing.T) {
	claims := Claims{Subject: "acct-1", ExpiresAt: 1_000_000}

	if claims.Expired(time.Unix(999_999, 0)) {
		t.Fatal("expired before the window closed")
	}
	if claims.Expired(time.Unix(1_000_000, 0)) {
		t.Fatal("expired exactly at the expiry instant; that instant is still valid")
	}
	if !claims.Expired(time.Unix(1_000_001, 0)) {
		t.Fatal("not expired one second past the window")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	c := testCodec(t)

	other, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret-for-tests-0123456789"),
		RefreshSecret: []byte("refresh-secret-for-tests-012345678"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	access, _, err := other.IssueAccess("acct-1", time.Now())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if _, err := c.ParseAccess(access); !errors.Is(err, ErrMalformed) {
		t.Fatalf("wrong issuer error = %v, want ErrMalformed", err)
	}
}
