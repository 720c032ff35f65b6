package credVault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated is an exported constant or variable used by the credential engine.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned for both unknown identifiers and wrong
	// passwords so login failures do not reveal which part was wrong.
	ErrInvalidCredentials = errors.New("credentials did not match")
	// ErrTokenMalformed is an exported constant or variable used by the credential engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrAccessExpired is an exported constant or variable used by the credential engine.
	ErrAccessExpired = errors.New("access token expired")
	// ErrRefreshExpired is an exported constant or variable used by the credential engine.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrEmailExists is an exported constant or variable used by the credential engine.
	ErrEmailExists = errors.New("email already registered")
	// ErrUsernameExists is an exported constant or variable used by the credential engine.
	ErrUsernameExists = errors.New("username already registered")
	// ErrPasswordReuse is an exported constant or variable used by the credential engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrAccountUnverified is an exported constant or variable used by the credential engine.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAccountBlocked is an exported constant or variable used by the credential engine.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrAccountDeleted is an exported constant or variable used by the credential engine.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrAccountNotFound is an exported constant or variable used by the credential engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrVerificationInvalid is returned when the email verification challenge
	// does not match any outstanding token.
	ErrVerificationInvalid = errors.New("email verification challenge invalid")
	// ErrResetInvalid is returned when the password reset challenge does not
	// match any outstanding token.
	ErrResetInvalid = errors.New("password reset challenge invalid")
	// ErrRegistrationDisabled is an exported constant or variable used by the credential engine.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrRateLimited is an exported constant or variable used by the credential engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is an exported constant or variable used by the credential engine.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the credential engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Kind defines a public type used by credVault APIs.
//
// Kind buckets the engine's sentinel errors into the coarse classes an HTTP
// or RPC edge typically maps to status codes.
type Kind int

const (
	// KindUnknown is an exported constant or variable used by the credential engine.
	KindUnknown Kind = iota
	// KindUnauthenticated is an exported constant or variable used by the credential engine.
	KindUnauthenticated
	// KindForbidden is an exported constant or variable used by the credential engine.
	KindForbidden
	// KindConflict is an exported constant or variable used by the credential engine.
	KindConflict
	// KindInvalid is an exported constant or variable used by the credential engine.
	KindInvalid
	// KindNotFound is an exported constant or variable used by the credential engine.
	KindNotFound
	// KindRateLimited is an exported constant or variable used by the credential engine.
	KindRateLimited
	// KindUnavailable is an exported constant or variable used by the credential engine.
	KindUnavailable
)

// KindOf classifies an engine error into a [Kind]. Errors the engine never
// produced classify as [KindUnknown].
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrAccessExpired),
		errors.Is(err, ErrRefreshExpired),
		errors.Is(err, ErrVerificationInvalid),
		errors.Is(err, ErrResetInvalid):
		return KindUnauthenticated
	case errors.Is(err, ErrAccountUnverified),
		errors.Is(err, ErrAccountBlocked),
		errors.Is(err, ErrAccountDeleted),
		errors.Is(err, ErrRegistrationDisabled):
		return KindForbidden
	case errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrUsernameExists),
		errors.Is(err, ErrPasswordReuse):
		return KindConflict
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrEngineNotReady):
		return KindUnavailable
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			return KindInvalid
		}
		return KindUnknown
	}
}

// ValidationError reports field-level failures from registration and
// password operations. Fields maps field name to a human-readable reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
