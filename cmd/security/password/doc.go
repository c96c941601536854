// Package password provides password hashing and verification for vidtube.
//
// It implements Argon2id hashing using a PHC-like encoded string format and
// includes configurable parameters (via environment variables), a password
// policy, and strict hash decoding with anti-DoS bounds during Verify.
//
// Hash strings are treated as untrusted input during Verify and are validated
// accordingly; verification refuses hashes whose parameters exceed reasonable
// bounds.
package password
