// Package store persists accounts and their embedded sessions in Redis.
//
// # Key layout
//
// Each account is one JSON document at <prefix>:acct:<id>. Every other key
// is a secondary index holding the account id:
//
//	<prefix>:email:<email>     unique email index (SETNX-claimed)
//	<prefix>:uname:<username>  unique username index (SETNX-claimed)
//	<prefix>:vt:<digest>       email verification token index
//	<prefix>:pr:<digest>       password reset token index
//	<prefix>:at:<digest>       session access token index
//	<prefix>:rt:<digest>       session refresh token index
//
// Token-derived keys use a SHA-256 digest of the token so raw credentials
// never appear in key names. On lookup the resolved account is re-checked
// against the literal token, so a stale index entry cannot resolve.
//
// # Concurrency
//
// Uniqueness is claimed with SETNX before the document write, so concurrent
// registrations of the same email or username cannot both succeed. All
// read-modify-write updates run under WATCH on the account key (plus the
// token index key when the operation is keyed by a token) and retry a
// bounded number of times on contention. Rotation of a session watches the
// old refresh token's index key, so two concurrent rotations of the same
// row admit at most one winner.
//
// # Architecture boundaries
//
// This package stores and indexes; it never interprets token contents,
// hashes passwords, or decides policy. Lifecycle rules live in the Engine.
//
// # What this package must NOT do
//
//   - Decode or validate signed tokens.
//   - Hash or verify passwords.
//   - Normalize email or username case — callers lowercase before storage.
package store
