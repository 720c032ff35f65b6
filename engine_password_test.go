package credVault

import (
	"context"
	"errors"
	"testing"
)

func TestForgotResetPasswordFlow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := registerVerified(t, e, "olga@example.com", "olga_kurts", "originalpass12")

	if err := e.ForgotPassword(ctx, "olga@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	stored, err := e.accounts.AccountByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("AccountByID failed: %v", err)
	}
	resetToken := stored.VerifyTokens.ResetPassword
	if resetToken == "" {
		t.Fatal("reset token not attached")
	}

	if err := e.ResetPassword(ctx, resetToken, "replacementpw1"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := e.Login(ctx, "olga@example.com", "originalpass12"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := e.Login(ctx, "olga@example.com", "replacementpw1"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	// The token was consumed by the reset.
	if err := e.ResetPassword(ctx, resetToken, "anotherpass123"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("replayed reset token error = %v, want ErrResetInvalid", err)
	}
}

func TestForgotPasswordUnknownEmailSucceeds(t *testing.T) {
	e := newTestEngine(t)

	// No account enumeration through this endpoint.
	if err := e.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword for unknown email = %v, want nil", err)
	}
}

func TestResetPasswordRejectsReuse(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	registerVerified(t, e, "pete@example.com", "pete_sampr", "samepassword12")
	if err := e.ForgotPassword(ctx, "pete@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	acct, err := e.accounts.AccountByEmail(ctx, "pete@example.com")
	if err != nil {
		t.Fatalf("AccountByEmail failed: %v", err)
	}

	if err := e.ResetPassword(ctx, acct.VerifyTokens.ResetPassword, "samepassword12"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("ResetPassword error = %v, want ErrPasswordReuse", err)
	}
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	registerVerified(t, e, "quin@example.com", "quin_tess1", "quinpassword12")
	res, err := e.Login(ctx, "quin@example.com", "quinpassword12")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := e.ForgotPassword(ctx, "quin@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	acct, err := e.accounts.AccountByEmail(ctx, "quin@example.com")
	if err != nil {
		t.Fatalf("AccountByEmail failed: %v", err)
	}
	if err := e.ResetPassword(ctx, acct.VerifyTokens.ResetPassword, "freshpassword1"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := e.Authenticate(ctx, res.Tokens.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("session survived password reset: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := registerVerified(t, e, "rita@example.com", "rita_ora99", "ritapassword12")
	res, err := e.Login(ctx, "rita@example.com", "ritapassword12")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := e.ChangePassword(ctx, acct.ID, "wrong-current", "ritapassword99"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password error = %v, want ErrInvalidCredentials", err)
	}
	if err := e.ChangePassword(ctx, acct.ID, "ritapassword12", "ritapassword12"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("reuse error = %v, want ErrPasswordReuse", err)
	}

	if err := e.ChangePassword(ctx, acct.ID, "ritapassword12", "ritapassword99"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// All sessions die with the old password.
	if _, err := e.Authenticate(ctx, res.Tokens.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("session survived password change: %v", err)
	}
	if _, err := e.Login(ctx, "rita@example.com", "ritapassword99"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestChangePasswordClearsOutstandingResetToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := registerVerified(t, e, "saul@example.com", "saul_good1", "saulpassword12")
	if err := e.ForgotPassword(ctx, "saul@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	stored, err := e.accounts.AccountByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("AccountByID failed: %v", err)
	}
	resetToken := stored.VerifyTokens.ResetPassword

	if err := e.ChangePassword(ctx, acct.ID, "saulpassword12", "saulpassword99"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// The pending reset challenge died with the change.
	if err := e.ResetPassword(ctx, resetToken, "thirdpassword1"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("stale reset token error = %v, want ErrResetInvalid", err)
	}
}
