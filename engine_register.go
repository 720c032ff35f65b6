package credVault

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/credVault/internal"
	"github.com/MrEthical07/credVault/mail"
	"github.com/MrEthical07/credVault/store"
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

const (
	minUsernameLen = 6
	maxUsernameLen = 16
	minNameLen     = 3
	maxNameLen     = 25
)

/*
====================================
REGISTER
====================================
*/

// Register describes the register operation and its observable behavior.
//
// Register validates the request, creates a pending unverified account, and
// mails its verification token. Duplicate email and username fail with
// [ErrEmailExists] and [ErrUsernameExists]; uniqueness holds under
// concurrent registration of the same identifier. With auto-login enabled
// the new account also receives a session and its token pair.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Registration.Enabled {
		return nil, ErrRegistrationDisabled
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	if !e.allow(ctx, "register", req.Email) {
		e.metrics.Inc(MetricRegisterRateLimited)
		return nil, ErrRateLimited
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}

	verifyToken, err := internal.NewOpaqueToken(e.config.Registration.OpaqueTokenLength)
	if err != nil {
		return nil, err
	}

	now := e.now().Unix()
	acct := &Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         e.config.Registration.DefaultRole,
		Status:       StatusPending,
		Verified:     false,
		VerifyTokens: store.VerifyTokens{Email: verifyToken},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.accounts.CreateAccount(ctx, acct); err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			e.metrics.Inc(MetricRegisterConflict)
			e.emitAudit(ctx, "register", "", false, ErrEmailExists)
			return nil, ErrEmailExists
		case errors.Is(err, store.ErrUsernameTaken):
			e.metrics.Inc(MetricRegisterConflict)
			e.emitAudit(ctx, "register", "", false, ErrUsernameExists)
			return nil, ErrUsernameExists
		default:
			return nil, e.storeErr(err)
		}
	}

	if msg, mailErr := mail.VerifyMessage(acct.Email, acct.FirstName, verifyToken); mailErr == nil {
		e.sendMail(msg)
	} else {
		log.Printf("credVault: verify mail render failed: %v", mailErr)
	}

	result := &RegisterResult{Account: acct}
	if e.config.Registration.AutoLogin {
		pair, err := e.issueSession(ctx, acct.ID)
		if err != nil {
			return nil, err
		}
		e.metrics.Inc(MetricSessionCreated)
		result.Tokens = &pair
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, "register", acct.ID, true, nil)

	return result, nil
}

/*
====================================
BOOTSTRAP
====================================
*/

// EnsureBootstrapAccount describes the ensurebootstrapaccount operation and its observable behavior.
//
// EnsureBootstrapAccount creates the seed account (verified, active) unless
// an account with its email already exists, in which case the existing
// account is returned unchanged. Intended to run once at startup.
func (e *Engine) EnsureBootstrapAccount(ctx context.Context, seed BootstrapAccount) (*Account, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	seed.Email = strings.ToLower(strings.TrimSpace(seed.Email))
	seed.Username = strings.ToLower(strings.TrimSpace(seed.Username))

	existing, err := e.accounts.AccountByEmail(ctx, seed.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, e.storeErr(err)
	}

	if err := validateRegistration(RegisterRequest{
		Email:     seed.Email,
		Username:  seed.Username,
		FirstName: seed.FirstName,
		LastName:  seed.LastName,
		Password:  seed.Password,
	}); err != nil {
		return nil, err
	}

	role := seed.Role
	if role == "" {
		role = RoleAdmin
	}

	hash, err := e.hasher.Hash(seed.Password)
	if err != nil {
		return nil, err
	}

	now := e.now().Unix()
	acct := &Account{
		ID:           uuid.NewString(),
		Email:        seed.Email,
		Username:     seed.Username,
		FirstName:    seed.FirstName,
		LastName:     seed.LastName,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.accounts.CreateAccount(ctx, acct); err != nil {
		// Lost a startup race: another instance seeded first.
		if errors.Is(err, store.ErrEmailTaken) || errors.Is(err, store.ErrUsernameTaken) {
			return e.accounts.AccountByEmail(ctx, seed.Email)
		}
		return nil, e.storeErr(err)
	}

	e.emitAudit(ctx, "bootstrap", acct.ID, true, nil)
	return acct, nil
}

/*
====================================
VALIDATION
====================================
*/

func validateRegistration(req RegisterRequest) error {
	fields := map[string]string{}

	if !emailPattern.MatchString(req.Email) {
		fields["email"] = "must be a valid email address"
	}
	if reason := usernameDefect(req.Username); reason != "" {
		fields["user_name"] = reason
	}
	if n := len(req.FirstName); n < minNameLen || n > maxNameLen {
		fields["first_name"] = "must be between 3 and 25 characters"
	}
	if n := len(req.LastName); n < minNameLen || n > maxNameLen {
		fields["last_name"] = "must be between 3 and 25 characters"
	}
	if len(req.Password) < 10 {
		fields["password"] = "must be at least 10 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// usernameDefect reports why a username is unacceptable, or "" when it is
// fine. Rules: 6-16 characters from [a-z0-9._], no leading or trailing
// separator, no adjacent separators.
func usernameDefect(username string) string {
	if n := len(username); n < minUsernameLen || n > maxUsernameLen {
		return "must be between 6 and 16 characters"
	}

	prevSep := false
	for i := 0; i < len(username); i++ {
		c := username[i]
		isSep := c == '.' || c == '_'
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSep = false
		case isSep:
			if i == 0 || i == len(username)-1 {
				return "must not start or end with '.' or '_'"
			}
			if prevSep {
				return "must not contain consecutive '.' or '_'"
			}
			prevSep = true
		default:
			return "may only contain lowercase letters, digits, '.', and '_'"
		}
	}
	return ""
}
