// Package session implements the account and session core: registration
// with media upload, credential login, the access/refresh token pair, and
// password changes.
//
// Access and refresh tokens are HS256 JWTs signed with distinct secrets and
// short/long TTLs. A single refresh token is valid per user at a time; its
// hash is stored on the user row (HMAC-SHA256 when VIDTUBE_TOKEN_HMAC_KEY is
// set, otherwise SHA-256 for dev) and rotated on every refresh via an atomic
// compare-and-set, so a presented refresh token is single-use.
//
// Transport (HTTP) integration is intentionally out of scope here.
package session
