package credVault

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/MrEthical07/credVault/internal"
	"github.com/MrEthical07/credVault/mail"
	"github.com/MrEthical07/credVault/store"
)

/*
====================================
FORGOT PASSWORD
====================================
*/

// ForgotPassword describes the forgotpassword operation and its observable behavior.
//
// ForgotPassword attaches a fresh single-use reset token to the account and
// mails it. An unknown email succeeds silently so the endpoint cannot be
// used to probe which addresses are registered.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	if !e.allow(ctx, "forgot_password", email) {
		return ErrRateLimited
	}

	acct, err := e.accounts.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return e.storeErr(err)
	}

	resetToken, err := internal.NewOpaqueToken(e.config.Registration.OpaqueTokenLength)
	if err != nil {
		return err
	}

	if err := e.accounts.SetResetToken(ctx, acct.ID, resetToken); err != nil {
		return e.storeErr(err)
	}

	if msg, mailErr := mail.ResetMessage(acct.Email, acct.FirstName, resetToken); mailErr == nil {
		e.sendMail(msg)
	} else {
		log.Printf("credVault: reset mail render failed: %v", mailErr)
	}

	e.metrics.Inc(MetricResetRequest)
	e.emitAudit(ctx, "forgot_password", acct.ID, true, nil)

	return nil
}

/*
====================================
RESET PASSWORD
====================================
*/

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword consumes a reset token and installs a new password. The new
// password must differ from the current one. All sessions of the account
// are revoked afterward; the consumed token cannot be replayed.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if resetToken == "" {
		e.metrics.Inc(MetricResetFailure)
		return ErrResetInvalid
	}

	acct, err := e.accounts.AccountByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.Inc(MetricResetFailure)
			e.emitAudit(ctx, "reset_password", "", false, ErrResetInvalid)
			return ErrResetInvalid
		}
		return e.storeErr(err)
	}

	if err := e.installPassword(ctx, acct, newPassword); err != nil {
		e.metrics.Inc(MetricResetFailure)
		return err
	}

	e.metrics.Inc(MetricResetSuccess)
	e.emitAudit(ctx, "reset_password", acct.ID, true, nil)

	return nil
}

/*
====================================
CHANGE PASSWORD
====================================
*/

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword verifies the current password before installing the new
// one. A wrong current password fails with [ErrInvalidCredentials]; a new
// password equal to the current one fails with [ErrPasswordReuse]. All
// sessions are revoked on success, the caller must log in again.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	acct, err := e.accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return e.storeErr(err)
	}

	ok, err := e.hasher.Verify(currentPassword, acct.PasswordHash)
	if err != nil || !ok {
		e.metrics.Inc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, "change_password", acct.ID, false, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	if err := e.installPassword(ctx, acct, newPassword); err != nil {
		e.metrics.Inc(MetricPasswordChangeFailure)
		return err
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, "change_password", acct.ID, true, nil)

	return nil
}

// installPassword enforces the reuse rule, persists the new digest, and
// revokes every session of the account.
func (e *Engine) installPassword(ctx context.Context, acct *Account, newPassword string) error {
	if same, err := e.hasher.Verify(newPassword, acct.PasswordHash); err == nil && same {
		e.emitAudit(ctx, "password_update", acct.ID, false, ErrPasswordReuse)
		return ErrPasswordReuse
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}

	if err := e.accounts.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		return e.storeErr(err)
	}

	// Every outstanding session dies with the old password.
	if err := e.accounts.DeleteAllSessions(ctx, acct.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return e.storeErr(err)
	}
	e.metrics.Inc(MetricSessionInvalidated)

	return nil
}
