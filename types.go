package credVault

import (
	"context"

	"github.com/MrEthical07/credVault/store"
)

// Account is the persisted credential record managed by the engine.
type Account = store.Account

// Session is one logged-in device/client, embedded in the account document.
type Session = store.Session

// AccountStatus is the lifecycle state of an account.
type AccountStatus = store.AccountStatus

const (
	// StatusActive is an exported constant or variable used by the credential engine.
	StatusActive = store.StatusActive
	// StatusPending is an exported constant or variable used by the credential engine.
	StatusPending = store.StatusPending
	// StatusBlocked is an exported constant or variable used by the credential engine.
	StatusBlocked = store.StatusBlocked
	// StatusDeleted is an exported constant or variable used by the credential engine.
	StatusDeleted = store.StatusDeleted
)

const (
	// RoleUser is an exported constant or variable used by the credential engine.
	RoleUser = "user"
	// RoleAdmin is an exported constant or variable used by the credential engine.
	RoleAdmin = "admin"
)

// TokenPair defines a public type used by credVault APIs.
//
// TokenPair carries one session's freshly issued credentials plus their
// expiry instants (Unix seconds) for edge layers that echo them in headers.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  int64
	RefreshExpiresAt int64
}

// AccountStore defines a public type used by credVault APIs.
//
// AccountStore is the persistence contract the Engine operates against.
// [store.Store] is the Redis implementation; tests may substitute their own.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *Account) error
	AccountByID(ctx context.Context, id string) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByUsername(ctx context.Context, username string) (*Account, error)
	AccountByVerifyToken(ctx context.Context, token string) (*Account, error)
	AccountByResetToken(ctx context.Context, token string) (*Account, error)

	MarkVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, token string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	AppendSession(ctx context.Context, id string, sess Session) error
	SessionByAccessToken(ctx context.Context, token string) (*Account, *Session, error)
	SessionByRefreshToken(ctx context.Context, token string) (*Account, *Session, error)
	RotateSession(ctx context.Context, oldRefresh, newAccess, newRefresh string) (*Session, error)
	DeleteSessionByRefreshToken(ctx context.Context, token string) error
	DeleteSessionByAccessToken(ctx context.Context, token string) (bool, error)
	DeleteAllSessions(ctx context.Context, id string) error
}

// RateLimiter defines a public type used by credVault APIs.
//
// RateLimiter is an optional hook consulted before login, refresh, and
// registration attempts. The algorithm is the caller's concern; the Engine
// only translates a false Allow into [ErrRateLimited]. A nil limiter allows
// everything.
type RateLimiter interface {
	Allow(ctx context.Context, op, key string) bool
}

// RegisterRequest defines a public type used by credVault APIs.
//
// RegisterRequest carries the fields of a registration attempt. Email and
// Username are lowercased by the Engine before validation and storage.
type RegisterRequest struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// BootstrapAccount defines a public type used by credVault APIs.
//
// BootstrapAccount describes the seed account [Engine.EnsureBootstrapAccount]
// creates on first start when no account with the given email exists.
type BootstrapAccount struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// LoginResult defines a public type used by credVault APIs.
//
// LoginResult pairs the authenticated account with its new session tokens.
type LoginResult struct {
	Account *Account
	Tokens  TokenPair
}

// RegisterResult defines a public type used by credVault APIs.
//
// RegisterResult pairs the created account with the session tokens issued
// when auto-login is enabled; Tokens is nil otherwise.
type RegisterResult struct {
	Account *Account
	Tokens  *TokenPair
}
