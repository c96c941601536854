package api

import (
	"context"
	"net/http"

	"vidtube/cmd/identity"
)

type contextKey struct{ name string }

var userKey = contextKey{"user"}

// userFrom returns the authenticated user placed by RequireUser.
func userFrom(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userKey).(identity.User)
	return u, ok && u.ID != ""
}

// RequireUser verifies the access token before the wrapped handler runs.
// The token is looked up in the accessToken cookie, then the Authorization
// bearer header. A token whose subject no longer exists is rejected the same
// way as a bad signature. On success the user record is placed on the
// request context.
func (h *Handler) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := cookieValue(r, h.cfg.AccessCookieName)
		if !ok {
			tok, ok = bearerToken(r)
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized request")
			return
		}

		claims, err := h.sessions.VerifyAccess(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		user, err := h.sessions.CurrentUser(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next(w, r.WithContext(ctx))
	}
}
