package credVault

import (
	"errors"
	"time"
)

// Config defines a public type used by credVault APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token        TokenConfig
	Password     PasswordConfig
	Registration RegistrationConfig
	Mail         MailConfig
	Store        StoreConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by credVault APIs.
//
// Access and refresh tokens are signed with independent secrets. Both are
// required and must differ.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by credVault APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig defines a public type used by credVault APIs.
//
// AutoLogin makes Register issue a session for the new account and return
// its token pair; it requires RequireVerifiedEmail to be disabled, since a
// pending account could not use the tokens otherwise.
type RegistrationConfig struct {
	Enabled              bool
	DefaultRole          string
	RequireVerifiedEmail bool
	OpaqueTokenLength    int
	AutoLogin            bool
}

// MailConfig defines a public type used by credVault APIs.
//
// MailConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MailConfig struct {
	Enabled     bool
	SendTimeout time.Duration
}

// StoreConfig defines a public type used by credVault APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	KeyPrefix string
}

// AuditConfig defines a public type used by credVault APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by credVault APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Registration: RegistrationConfig{
			Enabled:              true,
			DefaultRole:          RoleUser,
			RequireVerifiedEmail: true,
			OpaqueTokenLength:    32,
			AutoLogin:            false,
		},
		Mail: MailConfig{
			Enabled:     true,
			SendTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			KeyPrefix: "cv",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when a field combination cannot produce a
// working engine. It does not mutate the receiver.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.AccessSecret) < 32 {
		return errors.New("Token AccessSecret must be >= 32 bytes")
	}
	if len(c.Token.RefreshSecret) < 32 {
		return errors.New("Token RefreshSecret must be >= 32 bytes")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("Token AccessSecret and RefreshSecret must differ")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Registration
	if c.Registration.Enabled {
		if c.Registration.DefaultRole == "" {
			return errors.New("Registration DefaultRole is required when registration is enabled")
		}
		if c.Registration.OpaqueTokenLength < 16 || c.Registration.OpaqueTokenLength > 128 {
			return errors.New("Registration OpaqueTokenLength must be between 16 and 128")
		}
		if c.Registration.AutoLogin && c.Registration.RequireVerifiedEmail {
			return errors.New("Registration AutoLogin requires RequireVerifiedEmail to be disabled")
		}
	}

	// Mail
	if c.Mail.Enabled && c.Mail.SendTimeout <= 0 {
		return errors.New("Mail SendTimeout must be > 0 when mail is enabled")
	}

	// Store
	if c.Store.KeyPrefix == "" {
		return errors.New("Store KeyPrefix must not be empty")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
