// Package credVault provides an embeddable credential and session lifecycle
// engine with dual-secret JWT token pairs, Argon2id password hashing, and a
// Redis-backed account store holding per-account session lists.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// credVault is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, MetricsSnapshot, etc.). Token encoding lives in
// token/, hashing in password/, persistence in store/; none of them import
// this package.
//
// # What this package must NOT do
//
//   - Expose Redis clients, key layouts, or digest formats in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports credVault (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path: signature verification plus a bounded number
// of Redis round-trips (index lookup, account fetch). Login, Refresh, and
// account operations are allowed the extra round-trips their transactions
// need.
package credVault
