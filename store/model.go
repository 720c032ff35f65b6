package store

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	// StatusActive marks a verified account in good standing.
	StatusActive AccountStatus = "active"
	// StatusPending marks an account awaiting email verification.
	StatusPending AccountStatus = "pending"
	// StatusBlocked marks an administratively blocked account.
	StatusBlocked AccountStatus = "blocked"
	// StatusDeleted marks a soft-deleted account.
	StatusDeleted AccountStatus = "deleted"
)

// VerifyTokens holds the opaque single-use challenge tokens attached to an
// account. Empty means unused.
type VerifyTokens struct {
	Email         string `json:"email"`
	ResetPassword string `json:"reset_password"`
}

// Session is one logged-in device/client for an account, embedded in the
// account document. The refresh token is the row's identity: rotation
// replaces the token pair in place, revocation removes the row.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
	IsActive     bool   `json:"is_active"`
}

// Account is the persisted credential record. Email and username are
// lowercased before storage and lookup and are globally unique. Sessions
// keep insertion order (creation order).
type Account struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Username     string        `json:"user_name"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	PasswordHash string        `json:"password"`
	Role         string        `json:"role"`
	Status       AccountStatus `json:"status"`
	Verified     bool          `json:"is_verified"`
	VerifyTokens VerifyTokens  `json:"verify_tokens"`
	Sessions     []Session     `json:"sessions"`
	CreatedAt    int64         `json:"created_at"`
	UpdatedAt    int64         `json:"updated_at"`
}
