// Package api wires the account and session operations to HTTP.
//
// All endpoints live under /api/v1/users and answer with the envelope
// {"success": bool, "message": string, "data": ...}. Tokens travel both in
// the response body and as HttpOnly cookies (accessToken, refreshToken).
// Guarded endpoints accept the access token from cookie or Authorization:
// Bearer header; the refresh endpoint also reads the token from the request
// body, cookie first, then body, then header.
package api
