package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	credVault "github.com/MrEthical07/credVault"
)

// Header names the engine's HTTP edge reads and writes.
const (
	HeaderAuthorization    = "Authorization"
	HeaderRefreshToken     = "X-Refresh-Token"
	HeaderAccessExpiresAt  = "X-Access-Expiry-Time"
	HeaderRefreshExpiresAt = "X-Refresh-Expiry-Time"
)

type accountContextKey struct{}

// AccountFromContext returns the account placed in the request context by
// [Guard].
func AccountFromContext(ctx context.Context) (*credVault.Account, bool) {
	acct, ok := ctx.Value(accountContextKey{}).(*credVault.Account)
	return acct, ok
}

// Guard returns middleware that authenticates the access token carried in
// the Authorization header and injects the owning account into the request
// context. Expiry, malformedness, and missing sessions all collapse to 401
// at this edge; the distinct errors remain available to callers that invoke
// [credVault.Engine.Authenticate] directly.
func Guard(engine *credVault.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := accessToken(r.Header.Get(HeaderAuthorization))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			acct, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				if credVault.KindOf(err) == credVault.KindForbidden {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, acct)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RefreshHandler returns a handler that rotates the session identified by
// the X-Refresh-Token header and echoes the new pair via [SetTokenHeaders].
func RefreshHandler(engine *credVault.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		res, err := engine.Refresh(r.Context(), r.Header.Get(HeaderRefreshToken))
		if err != nil {
			switch {
			case errors.Is(err, credVault.ErrRefreshExpired):
				http.Error(w, "refresh token expired", http.StatusUnauthorized)
			case errors.Is(err, credVault.ErrRateLimited):
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			default:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			}
			return
		}

		SetTokenHeaders(w, res.Tokens)
		w.WriteHeader(http.StatusOK)
	})
}

// SetTokenHeaders writes a freshly issued token pair and its expiry
// instants (Unix seconds) onto the response.
func SetTokenHeaders(w http.ResponseWriter, pair credVault.TokenPair) {
	w.Header().Set(HeaderAuthorization, "Bearer "+pair.AccessToken)
	w.Header().Set(HeaderRefreshToken, pair.RefreshToken)
	w.Header().Set(HeaderAccessExpiresAt, strconv.FormatInt(pair.AccessExpiresAt, 10))
	w.Header().Set(HeaderRefreshExpiresAt, strconv.FormatInt(pair.RefreshExpiresAt, 10))
}

// accessToken extracts the token from an Authorization header value. A
// "Bearer " prefix is accepted but not required.
func accessToken(value string) (string, bool) {
	const bearer = "Bearer "
	if strings.HasPrefix(value, bearer) {
		value = value[len(bearer):]
	}
	if value == "" {
		return "", false
	}
	return value, true
}
