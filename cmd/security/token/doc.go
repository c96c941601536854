// Package token provides server-side token hashing primitives for vidtube.
//
// Refresh tokens are never persisted in plaintext: the store keeps a
// 64-hex digest produced by a Hasher whose key is resolved once at
// startup (HMAC-SHA256 under VIDTUBE_TOKEN_HMAC_KEY, SHA-256 for dev),
// and the presented token is hashed in-memory before any comparison.
package token
