package password

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(TestProfile())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := testHasher(t)

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$") {
		t.Fatalf("digest = %q, want PHC argon2id format", digest)
	}

	ok, err := h.Verify("correct horse battery staple", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = h.Verify("wrong horse battery staple", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	h := testHasher(t)

	first, err := h.Hash("same-password-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same-password-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password are identical; salt is not random")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := testHasher(t)

	if _, err := h.Hash("shortpw"); err == nil {
		t.Fatal("Hash accepted a password under the hard floor")
	}
}

func TestVerifyWithEmbeddedParams(t *testing.T) {
	// Verification reads the work factor from the digest, so a hasher
	// configured differently still verifies digests from another profile.
	strong, err := NewHasher(Profile{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	digest, err := strong.Hash("portable-password-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	weak := testHasher(t)
	ok, err := weak.Verify("portable-password-1", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("cross-profile verification failed")
	}
}

func TestVerifyRejectsMalformedDigest(t *testing.T) {
	h := testHasher(t)

	bad := []string{
		"",
		"plaintext",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=8192,t=1,p=1$notbase64!!$alsobad!!",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
	}
	for _, digest := range bad {
		if _, err := h.Verify("any-password-1", digest); err == nil {
			t.Fatalf("Verify accepted malformed digest %q", digest)
		}
	}
}

func TestNewHasherEnforcesFloors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"low memory", func(p *Profile) { p.Memory = 1024 }},
		{"zero time", func(p *Profile) { p.Time = 0 }},
		{"zero parallelism", func(p *Profile) { p.Parallelism = 0 }},
		{"short salt", func(p *Profile) { p.SaltLength = 8 }},
		{"short key", func(p *Profile) { p.KeyLength = 8 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultProfile()
			tc.mutate(&p)
			if _, err := NewHasher(p); err == nil {
				t.Fatal("NewHasher accepted profile below hard floor")
			}
		})
	}
}
