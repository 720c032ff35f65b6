package credVault

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/MrEthical07/credVault/mail"
	"github.com/MrEthical07/credVault/password"
	"github.com/MrEthical07/credVault/store"
	"github.com/MrEthical07/credVault/token"
)

// Engine defines a public type used by credVault APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	accounts AccountStore
	codec    *token.Codec
	hasher   *password.Hasher
	mailer   mail.Mailer
	limiter  RateLimiter
	audit    *auditDispatcher
	metrics  *Metrics

	// now is the engine clock. Overridden in tests.
	now func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close drains the audit dispatcher. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports how many audit events were dropped because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns a point-in-time copy of all counters and, when
// enabled, the Authenticate latency histogram.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

/*
====================================
LOGIN
====================================
*/

// Login describes the login operation and its observable behavior.
//
// Login authenticates by email or username plus password and, on success,
// appends a fresh session to the account and returns its token pair.
// Unknown identifiers and wrong passwords both fail with
// [ErrInvalidCredentials] so the caller cannot distinguish them.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || pass == "" {
		e.metrics.Inc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if !e.allow(ctx, "login", identifier) {
		e.metrics.Inc(MetricLoginRateLimited)
		return nil, ErrRateLimited
	}

	var (
		acct *Account
		err  error
	)
	if strings.Contains(identifier, "@") {
		acct, err = e.accounts.AccountByEmail(ctx, identifier)
	} else {
		acct, err = e.accounts.AccountByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			e.emitAudit(ctx, "login", "", false, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeErr(err)
	}

	ok, err := e.hasher.Verify(pass, acct.PasswordHash)
	if err != nil || !ok {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, "login", acct.ID, false, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := e.accountUsable(acct); err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, "login", acct.ID, false, err)
		return nil, err
	}

	pair, err := e.issueSession(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionCreated)
	e.emitAudit(ctx, "login", acct.ID, true, nil)

	return &LoginResult{Account: acct, Tokens: pair}, nil
}

/*
====================================
AUTHENTICATE
====================================
*/

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate validates an access token and returns the owning account.
// A token that fails signature or structural checks is treated as hostile:
// any session row carrying that literal string is scrubbed before
// [ErrTokenMalformed] is returned. An expired-but-authentic token returns
// [ErrAccessExpired] and leaves its session row intact so the refresh flow
// can still rotate it.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Account, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, e.now().Sub(start))
	}()

	if accessToken == "" {
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrUnauthenticated
	}

	claims, err := e.codec.ParseAccess(accessToken)
	if err != nil {
		e.scrubAccessToken(ctx, accessToken)
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrTokenMalformed
	}

	if claims.Expired(e.now()) {
		e.metrics.Inc(MetricAccessExpired)
		return nil, ErrAccessExpired
	}

	acct, _, err := e.accounts.SessionByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			e.metrics.Inc(MetricAuthenticateFailure)
			return nil, ErrUnauthenticated
		}
		return nil, e.storeErr(err)
	}

	if acct.ID != claims.Subject {
		// Token signed for one account but indexed under another. Hostile.
		e.scrubAccessToken(ctx, accessToken)
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrTokenMalformed
	}

	if err := e.accountUsable(acct); err != nil {
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, err
	}

	e.metrics.Inc(MetricAuthenticateSuccess)
	return acct, nil
}

/*
====================================
REFRESH
====================================
*/

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh rotates the session identified by the refresh token: a new token
// pair replaces the old one in place, keeping the session's creation
// timestamp. When two refreshes race on the same token, at most one wins;
// the loser observes [ErrUnauthenticated]. An expired refresh token returns
// [ErrRefreshExpired] and the session row stays until explicitly revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	if refreshToken == "" {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrUnauthenticated
	}

	if !e.allow(ctx, "refresh", refreshToken) {
		e.metrics.Inc(MetricRefreshRateLimited)
		return nil, ErrRateLimited
	}

	claims, err := e.codec.ParseRefresh(refreshToken)
	if err != nil {
		e.scrubRefreshToken(ctx, refreshToken)
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrTokenMalformed
	}

	acct, _, err := e.accounts.SessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			// A revoked token stays revoked even once it has also expired.
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrUnauthenticated
		}
		return nil, e.storeErr(err)
	}

	if acct.ID != claims.Subject {
		e.scrubRefreshToken(ctx, refreshToken)
		e.metrics.Inc(MetricRefreshFailure)
		return nil, ErrTokenMalformed
	}

	if claims.Expired(e.now()) {
		e.metrics.Inc(MetricRefreshExpired)
		return nil, ErrRefreshExpired
	}

	if err := e.accountUsable(acct); err != nil {
		// A blocked or deleted account keeps no live sessions.
		if dropErr := e.accounts.DeleteSessionByRefreshToken(ctx, refreshToken); dropErr != nil && !errors.Is(dropErr, store.ErrSessionNotFound) {
			log.Printf("credVault: session drop on unusable account failed: %v", dropErr)
		}
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, "refresh", acct.ID, false, err)
		return nil, err
	}

	now := e.now()
	newAccess, accessClaims, err := e.codec.IssueAccess(acct.ID, now)
	if err != nil {
		return nil, err
	}
	newRefresh, refreshClaims, err := e.codec.IssueRefresh(acct.ID, now)
	if err != nil {
		return nil, err
	}

	if _, err := e.accounts.RotateSession(ctx, refreshToken, newAccess, newRefresh); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			// Lost the rotation race or the row was revoked mid-flight.
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrUnauthenticated
		}
		return nil, e.storeErr(err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, "refresh", acct.ID, true, nil)

	return &LoginResult{
		Account: acct,
		Tokens: TokenPair{
			AccessToken:      newAccess,
			RefreshToken:     newRefresh,
			AccessExpiresAt:  accessClaims.ExpiresAt,
			RefreshExpiresAt: refreshClaims.ExpiresAt,
		},
	}, nil
}

/*
====================================
LOGOUT
====================================
*/

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes the single session identified by the refresh token.
// Revoking a token with no session row fails with [ErrUnauthenticated]:
// revocation is not idempotent, a second attempt observes the absence.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return ErrUnauthenticated
	}

	err := e.accounts.DeleteSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrUnauthenticated
		}
		return e.storeErr(err)
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionInvalidated)
	e.emitAudit(ctx, "logout", "", true, nil)
	return nil
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll revokes every session of the account at once.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrAccountNotFound
	}

	if err := e.accounts.DeleteAllSessions(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return e.storeErr(err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emitAudit(ctx, "logout_all", accountID, true, nil)
	return nil
}

/*
====================================
INTERNAL
====================================
*/

func (e *Engine) issueSession(ctx context.Context, accountID string) (TokenPair, error) {
	now := e.now()

	access, accessClaims, err := e.codec.IssueAccess(accountID, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshClaims, err := e.codec.IssueRefresh(accountID, now)
	if err != nil {
		return TokenPair{}, err
	}

	sess := Session{
		AccessToken:  access,
		RefreshToken: refresh,
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
		IsActive:     true,
	}

	if err := e.accounts.AppendSession(ctx, accountID, sess); err != nil {
		return TokenPair{}, e.storeErr(err)
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, nil
}

// scrubAccessToken removes any session row carrying the literal token
// string. Best effort: failures are logged, never surfaced, because the
// caller is already on an error path.
func (e *Engine) scrubAccessToken(ctx context.Context, accessToken string) {
	removed, err := e.accounts.DeleteSessionByAccessToken(ctx, accessToken)
	if err != nil {
		log.Printf("credVault: malformed token scrub failed: %v", err)
		return
	}
	if removed {
		e.metrics.Inc(MetricTokenScrub)
		e.emitAudit(ctx, "token_scrub", "", true, nil)
	}
}

func (e *Engine) scrubRefreshToken(ctx context.Context, refreshToken string) {
	err := e.accounts.DeleteSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			log.Printf("credVault: malformed token scrub failed: %v", err)
		}
		return
	}
	e.metrics.Inc(MetricTokenScrub)
	e.emitAudit(ctx, "token_scrub", "", true, nil)
}

// accountUsable maps account status to the gate error for that state.
func (e *Engine) accountUsable(acct *Account) error {
	switch acct.Status {
	case StatusBlocked:
		return ErrAccountBlocked
	case StatusDeleted:
		return ErrAccountDeleted
	case StatusPending:
		if e.config.Registration.RequireVerifiedEmail {
			return ErrAccountUnverified
		}
		return nil
	default:
		if e.config.Registration.RequireVerifiedEmail && !acct.Verified {
			return ErrAccountUnverified
		}
		return nil
	}
}

func (e *Engine) allow(ctx context.Context, op, key string) bool {
	if e.limiter == nil {
		return true
	}
	return e.limiter.Allow(ctx, op, key)
}

func (e *Engine) storeErr(err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return ErrStoreUnavailable
	}
	return err
}

// sendMail delivers asynchronously with a single attempt. Delivery failures
// never affect the operation that triggered them.
func (e *Engine) sendMail(msg mail.Message) {
	if !e.config.Mail.Enabled {
		return
	}

	timeout := e.config.Mail.SendTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := e.mailer.Send(ctx, msg); err != nil {
			log.Printf("credVault: mail send failed: %v", err)
		}
	}()
}
