// Package mail defines the outbound email contract used for verification
// and password reset notices, plus no-op implementations for tests and
// local development.
//
// Delivery is fire-and-forget from the Engine's point of view: one attempt,
// failures logged, never surfaced to the caller. Wire a real provider by
// implementing [Mailer].
package mail
