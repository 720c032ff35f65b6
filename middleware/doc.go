// Package middleware adapts the credVault Engine to net/http: an
// authentication guard, a refresh handler, and the token header convention
// (Authorization, X-Refresh-Token, X-Access-Expiry-Time,
// X-Refresh-Expiry-Time).
//
// # Architecture boundaries
//
// This package owns HTTP concerns only. It never inspects token contents
// and never maps errors beyond status codes; hosts needing finer handling
// call the Engine directly.
package middleware
