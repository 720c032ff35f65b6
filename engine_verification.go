package credVault

import (
	"context"
	"errors"

	"github.com/MrEthical07/credVault/store"
)

// VerifyEmail describes the verifyemail operation and its observable behavior.
//
// VerifyEmail consumes an email verification token: the matching account is
// marked verified, moves from pending to active, and the token is cleared so
// a second attempt with the same token fails. Unknown or already-consumed
// tokens fail with [ErrVerificationInvalid].
func (e *Engine) VerifyEmail(ctx context.Context, verifyToken string) (*Account, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if verifyToken == "" {
		e.metrics.Inc(MetricVerifyFailure)
		return nil, ErrVerificationInvalid
	}

	acct, err := e.accounts.AccountByVerifyToken(ctx, verifyToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.Inc(MetricVerifyFailure)
			e.emitAudit(ctx, "verify_email", "", false, ErrVerificationInvalid)
			return nil, ErrVerificationInvalid
		}
		return nil, e.storeErr(err)
	}

	if err := e.accounts.MarkVerified(ctx, acct.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.Inc(MetricVerifyFailure)
			return nil, ErrVerificationInvalid
		}
		return nil, e.storeErr(err)
	}

	acct.Verified = true
	acct.VerifyTokens.Email = ""
	if acct.Status == StatusPending {
		acct.Status = StatusActive
	}

	e.metrics.Inc(MetricVerifySuccess)
	e.emitAudit(ctx, "verify_email", acct.ID, true, nil)

	return acct, nil
}
