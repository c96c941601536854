// Package identity implements vidtube's identity & credential foundation.
//
// It contains the User model, normalization rules, security primitives
// (ULID ids, password hashing facade), and the credential store boundary
// used by the auth layers: Postgres-backed in production, in-memory for
// development and tests.
//
// The store keeps exactly one refresh-token hash per user; rotation is an
// atomic compare-and-set at this boundary so racing refreshes cannot both
// succeed.
package identity
