// Package token encodes and decodes the signed, time-bounded capabilities
// used as access and refresh credentials.
//
// # Dual-secret scheme
//
// Access and refresh tokens are independently signed HS256 tokens with
// independent expiry windows, so verification logic is uniform across both
// classes and a leaked secret compromises only one of them.
//
// # Architecture boundaries
//
// Decoding verifies signature and structure only. Expiry enforcement belongs
// to the Engine: an expired token and a forged token trigger different side
// effects upstream, so this package must not collapse them into one error.
//
// # What this package must NOT do
//
//   - Import any other credVault package.
//   - Reject tokens on expiry during decode.
//   - Persist anything.
package token
