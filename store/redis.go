package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/credVault/internal"
)

// ErrNotFound is returned when no account matches the lookup key.
var ErrNotFound = errors.New("account not found")

// ErrEmailTaken is returned when the email unique index rejects an insert.
var ErrEmailTaken = errors.New("email already indexed")

// ErrUsernameTaken is returned when the username unique index rejects an insert.
var ErrUsernameTaken = errors.New("username already indexed")

// ErrSessionNotFound is returned when no session row matches the token.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnavailable wraps transport-level Redis failures.
var ErrUnavailable = errors.New("store unavailable")

const maxTxRetries = 4

// Store is a Redis-backed credential store. Accounts are JSON documents
// keyed by id; email, username, and the per-session and per-challenge
// tokens are secondary index keys pointing back at the id.
//
// Uniqueness of email and username is enforced with SETNX on the index key
// itself, not with a check-then-insert sequence, so concurrent
// registrations cannot both succeed.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a Store on the given Redis client. prefix namespaces every
// key this store writes.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "cv"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) accountKey(id string) string  { return s.prefix + ":acct:" + id }
func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + email }
func (s *Store) usernameKey(name string) string {
	return s.prefix + ":uname:" + name
}
func (s *Store) verifyKey(token string) string {
	return s.prefix + ":vt:" + internal.TokenDigest(token)
}
func (s *Store) resetKey(token string) string {
	return s.prefix + ":pr:" + internal.TokenDigest(token)
}
func (s *Store) accessKey(token string) string {
	return s.prefix + ":at:" + internal.TokenDigest(token)
}
func (s *Store) refreshKey(token string) string {
	return s.prefix + ":rt:" + internal.TokenDigest(token)
}

// CreateAccount inserts a new account document and claims its unique email
// and username index keys atomically. Returns [ErrEmailTaken] or
// [ErrUsernameTaken] when the corresponding index key already exists.
func (s *Store) CreateAccount(ctx context.Context, a *Account) error {
	if a == nil || a.ID == "" || a.Email == "" || a.Username == "" {
		return errors.New("account id, email, and username are required")
	}

	emailOK, err := s.client.SetNX(ctx, s.emailKey(a.Email), a.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !emailOK {
		return ErrEmailTaken
	}

	usernameOK, err := s.client.SetNX(ctx, s.usernameKey(a.Username), a.ID, 0).Result()
	if err != nil {
		_ = s.client.Del(ctx, s.emailKey(a.Email)).Err()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !usernameOK {
		_ = s.client.Del(ctx, s.emailKey(a.Email)).Err()
		return ErrUsernameTaken
	}

	blob, err := json.Marshal(a)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accountKey(a.ID), blob, 0)
		if a.VerifyTokens.Email != "" {
			pipe.Set(ctx, s.verifyKey(a.VerifyTokens.Email), a.ID, 0)
		}
		for _, sess := range a.Sessions {
			pipe.Set(ctx, s.accessKey(sess.AccessToken), a.ID, 0)
			pipe.Set(ctx, s.refreshKey(sess.RefreshToken), a.ID, 0)
		}
		return nil
	})
	if err != nil {
		_ = s.client.Del(ctx, s.emailKey(a.Email), s.usernameKey(a.Username)).Err()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// AccountByID fetches an account document by id.
func (s *Store) AccountByID(ctx context.Context, id string) (*Account, error) {
	data, err := s.client.Get(ctx, s.accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountByEmail resolves the email unique index and fetches the account.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return s.accountByIndex(ctx, s.emailKey(email))
}

// AccountByUsername resolves the username unique index and fetches the account.
func (s *Store) AccountByUsername(ctx context.Context, username string) (*Account, error) {
	return s.accountByIndex(ctx, s.usernameKey(username))
}

// AccountByVerifyToken finds the account holding the given email
// verification token. A stale index entry does not resolve.
func (s *Store) AccountByVerifyToken(ctx context.Context, token string) (*Account, error) {
	a, err := s.accountByIndex(ctx, s.verifyKey(token))
	if err != nil {
		return nil, err
	}
	if a.VerifyTokens.Email != token {
		return nil, ErrNotFound
	}
	return a, nil
}

// AccountByResetToken finds the account holding the given password reset
// token. A stale index entry does not resolve.
func (s *Store) AccountByResetToken(ctx context.Context, token string) (*Account, error) {
	a, err := s.accountByIndex(ctx, s.resetKey(token))
	if err != nil {
		return nil, err
	}
	if a.VerifyTokens.ResetPassword != token {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Store) accountByIndex(ctx context.Context, indexKey string) (*Account, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.AccountByID(ctx, id)
}

// MarkVerified flips the account to verified, clears the email verification
// token, and activates a pending account.
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.updateAccount(ctx, id, nil, func(a *Account, idx *indexOps) error {
		if a.VerifyTokens.Email != "" {
			idx.del = append(idx.del, s.verifyKey(a.VerifyTokens.Email))
		}
		a.Verified = true
		a.VerifyTokens.Email = ""
		if a.Status == StatusPending {
			a.Status = StatusActive
		}
		return nil
	})
}

// SetResetToken attaches a fresh password reset token, replacing (and
// unindexing) any outstanding one.
func (s *Store) SetResetToken(ctx context.Context, id, token string) error {
	return s.updateAccount(ctx, id, nil, func(a *Account, idx *indexOps) error {
		if old := a.VerifyTokens.ResetPassword; old != "" {
			idx.del = append(idx.del, s.resetKey(old))
		}
		a.VerifyTokens.ResetPassword = token
		idx.set[s.resetKey(token)] = a.ID
		return nil
	})
}

// UpdatePasswordHash stores a new password digest and clears any
// outstanding reset token. The digest is written as given: hashing happens
// exactly once, upstream, and only when the plaintext actually changed.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateAccount(ctx, id, nil, func(a *Account, idx *indexOps) error {
		a.PasswordHash = hash
		if old := a.VerifyTokens.ResetPassword; old != "" {
			idx.del = append(idx.del, s.resetKey(old))
			a.VerifyTokens.ResetPassword = ""
		}
		return nil
	})
}

// AppendSession appends a session row to the account and indexes both of
// its tokens. The session sequence grows monotonically until rows are
// removed by revocation or a malformed-token scrub.
func (s *Store) AppendSession(ctx context.Context, id string, sess Session) error {
	return s.updateAccount(ctx, id, nil, func(a *Account, idx *indexOps) error {
		a.Sessions = append(a.Sessions, sess)
		idx.set[s.accessKey(sess.AccessToken)] = a.ID
		idx.set[s.refreshKey(sess.RefreshToken)] = a.ID
		return nil
	})
}

// SessionByAccessToken finds the account and session row holding the exact
// access token string.
func (s *Store) SessionByAccessToken(ctx context.Context, token string) (*Account, *Session, error) {
	return s.sessionByIndex(ctx, s.accessKey(token), func(sess Session) bool {
		return sess.AccessToken == token
	})
}

// SessionByRefreshToken finds the account and session row holding the exact
// refresh token string.
func (s *Store) SessionByRefreshToken(ctx context.Context, token string) (*Account, *Session, error) {
	return s.sessionByIndex(ctx, s.refreshKey(token), func(sess Session) bool {
		return sess.RefreshToken == token
	})
}

func (s *Store) sessionByIndex(ctx context.Context, indexKey string, match func(Session) bool) (*Account, *Session, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	a, err := s.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	for i := range a.Sessions {
		if match(a.Sessions[i]) {
			sess := a.Sessions[i]
			return a, &sess, nil
		}
	}
	return nil, nil, ErrSessionNotFound
}

// RotateSession replaces the token pair of the session row identified by
// the old refresh token, in place. The row keeps its creation timestamp;
// only the tokens and updated_at change. When two rotations race on the
// same refresh token, at most one replaces the row; the loser observes
// [ErrSessionNotFound].
func (s *Store) RotateSession(ctx context.Context, oldRefresh, newAccess, newRefresh string) (*Session, error) {
	id, err := s.client.Get(ctx, s.refreshKey(oldRefresh)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rotated Session
	err = s.updateAccount(ctx, id, []string{s.refreshKey(oldRefresh)}, func(a *Account, idx *indexOps) error {
		i := findSessionByRefresh(a, oldRefresh)
		if i < 0 {
			return ErrSessionNotFound
		}

		old := a.Sessions[i]
		idx.del = append(idx.del, s.accessKey(old.AccessToken), s.refreshKey(old.RefreshToken))

		a.Sessions[i].AccessToken = newAccess
		a.Sessions[i].RefreshToken = newRefresh
		a.Sessions[i].UpdatedAt = time.Now().Unix()

		idx.set[s.accessKey(newAccess)] = a.ID
		idx.set[s.refreshKey(newRefresh)] = a.ID

		rotated = a.Sessions[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rotated, nil
}

// DeleteSessionByRefreshToken removes the session row identified by the
// refresh token. Returns [ErrSessionNotFound] when no row matches, so a
// second revocation of the same token fails rather than silently
// succeeding.
func (s *Store) DeleteSessionByRefreshToken(ctx context.Context, token string) error {
	id, err := s.client.Get(ctx, s.refreshKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return s.updateAccount(ctx, id, []string{s.refreshKey(token)}, func(a *Account, idx *indexOps) error {
		i := findSessionByRefresh(a, token)
		if i < 0 {
			return ErrSessionNotFound
		}
		idx.del = append(idx.del, s.accessKey(a.Sessions[i].AccessToken), s.refreshKey(a.Sessions[i].RefreshToken))
		a.Sessions = append(a.Sessions[:i], a.Sessions[i+1:]...)
		return nil
	})
}

// DeleteSessionByAccessToken removes any session row whose access token
// equals the given literal string. Best-effort: reports whether a row was
// removed, and a miss is not an error. This is the scrub path for forged
// or corrupted tokens.
func (s *Store) DeleteSessionByAccessToken(ctx context.Context, token string) (bool, error) {
	id, err := s.client.Get(ctx, s.accessKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	removed := false
	err = s.updateAccount(ctx, id, []string{s.accessKey(token)}, func(a *Account, idx *indexOps) error {
		idx.del = append(idx.del, s.accessKey(token))
		for i := range a.Sessions {
			if a.Sessions[i].AccessToken == token {
				idx.del = append(idx.del, s.refreshKey(a.Sessions[i].RefreshToken))
				a.Sessions = append(a.Sessions[:i], a.Sessions[i+1:]...)
				removed = true
				break
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return removed, nil
}

// DeleteAllSessions removes every session row of the account.
func (s *Store) DeleteAllSessions(ctx context.Context, id string) error {
	return s.updateAccount(ctx, id, nil, func(a *Account, idx *indexOps) error {
		for _, sess := range a.Sessions {
			idx.del = append(idx.del, s.accessKey(sess.AccessToken), s.refreshKey(sess.RefreshToken))
		}
		a.Sessions = nil
		return nil
	})
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

type indexOps struct {
	del []string
	set map[string]string
}

// updateAccount runs a read-modify-write on one account document under
// WATCH, retrying on contention. fn mutates the account and records index
// keys to delete or set in the same transaction.
func (s *Store) updateAccount(ctx context.Context, id string, extraWatch []string, fn func(a *Account, idx *indexOps) error) error {
	key := s.accountKey(id)
	watchKeys := append([]string{key}, extraWatch...)

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var a Account
			if err := json.Unmarshal(data, &a); err != nil {
				return err
			}

			idx := &indexOps{set: map[string]string{}}
			if err := fn(&a, idx); err != nil {
				return err
			}
			a.UpdatedAt = time.Now().Unix()

			blob, err := json.Marshal(&a)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, blob, 0)
				for _, k := range idx.del {
					pipe.Del(ctx, k)
				}
				for k, v := range idx.set {
					pipe.Set(ctx, k, v, 0)
				}
				return nil
			})
			return err
		}, watchKeys...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrNotFound
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return nil
	}

	return fmt.Errorf("%w: transaction retries exhausted", ErrUnavailable)
}

func findSessionByRefresh(a *Account, refreshToken string) int {
	for i := range a.Sessions {
		if a.Sessions[i].RefreshToken == refreshToken {
			return i
		}
	}
	return -1
}
