package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrMalformed is returned when a token fails signature verification or is
// structurally incomplete. Expiry is deliberately NOT part of this check.
var ErrMalformed = errors.New("token malformed")

// Config carries the signing material for both token classes. Access and
// refresh tokens are signed with independent secrets so a leaked secret
// only compromises one class.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Claims is the decoded payload of a signed token: subject (account id),
// issued-at, and expires-at as epoch seconds.
type Claims struct {
	Subject   string
	IssuedAt  int64
	ExpiresAt int64
}

// Expired reports whether the claims are past their window at the given
// instant. A token checked exactly at its expiry instant is still valid.
func (c Claims) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// Codec encodes and decodes signed, tamper-evident HS256 tokens.
//
// Decode verifies signature and structure only; rejecting on expiry is a
// policy decision left to the caller, because "expired" and "malformed"
// carry different side effects upstream.
type Codec struct {
	config Config
}

// NewCodec validates the configuration and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token codec requires access and refresh secrets")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	return &Codec{config: cfg}, nil
}

// IssueAccess signs a short-lived access token for the given subject.
func (c *Codec) IssueAccess(subject string, now time.Time) (string, Claims, error) {
	return c.issue(subject, now, c.config.AccessTTL, c.config.AccessSecret)
}

// IssueRefresh signs a refresh token for the given subject with its own,
// longer expiry window.
func (c *Codec) IssueRefresh(subject string, now time.Time) (string, Claims, error) {
	return c.issue(subject, now, c.config.RefreshTTL, c.config.RefreshSecret)
}

// ParseAccess verifies an access token's signature and structure and
// returns its claims. Fails with [ErrMalformed] on any defect other than
// expiry.
func (c *Codec) ParseAccess(tokenStr string) (Claims, error) {
	return c.parse(tokenStr, c.config.AccessSecret)
}

// ParseRefresh verifies a refresh token's signature and structure.
func (c *Codec) ParseRefresh(tokenStr string) (Claims, error) {
	return c.parse(tokenStr, c.config.RefreshSecret)
}

func (c *Codec) issue(subject string, now time.Time, ttl time.Duration, secret []byte) (string, Claims, error) {
	if subject == "" {
		return "", Claims{}, errors.New("empty token subject")
	}

	expiresAt := now.Add(ttl)
	registered := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		// Timestamps have second precision; the jti keeps two tokens
		// issued for the same subject in the same second distinct.
		ID: uuid.NewString(),
	}
	if c.config.Issuer != "" {
		registered.Issuer = c.config.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, registered).SignedString(secret)
	if err != nil {
		return "", Claims{}, err
	}

	return signed, Claims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}, nil
}

func (c *Codec) parse(tokenStr string, secret []byte) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrMalformed
	}

	registered, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return Claims{}, ErrMalformed
	}
	if registered.Subject == "" || registered.ExpiresAt == nil {
		return Claims{}, ErrMalformed
	}
	if c.config.Issuer != "" && registered.Issuer != c.config.Issuer {
		return Claims{}, ErrMalformed
	}

	claims := Claims{
		Subject:   registered.Subject,
		ExpiresAt: registered.ExpiresAt.Unix(),
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Unix()
	}

	return claims, nil
}
