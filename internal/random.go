package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewOpaqueToken returns a cryptographically random alphanumeric string of
// the given length. Used for single-use email verification and password
// reset tokens.
func NewOpaqueToken(length int) (string, error) {
	if length < 16 || length > 128 {
		return "", errors.New("invalid opaque token length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// TokenDigest returns the hex-encoded SHA-256 of a token string. Store index
// keys are derived from digests so raw credentials never appear in key space.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
