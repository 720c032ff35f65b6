// Package password implements one-way password hashing and verification
// with Argon2id defaults.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification recomputes with the parameters embedded in the stored digest,
// so the work factor can be raised without invalidating existing digests.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length beyond the hard floor, reuse rejection) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive digests.
//   - Import any other credVault package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
