package api

import (
	"net/http"
	"strings"
	"time"

	"vidtube/cmd/internal/auth/session"
)

// setSessionCookies sets both token cookies. Both are HttpOnly; browser JS
// never needs to read them because tokens also travel in the response body.
func (h *Handler) setSessionCookies(w http.ResponseWriter, pair session.TokenPair) {
	h.setCookie(w, h.cfg.AccessCookieName, pair.AccessToken, pair.AccessExpiresAt)
	h.setCookie(w, h.cfg.RefreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.AccessCookieName)
	h.expireCookie(w, h.cfg.RefreshCookieName)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	if w == nil || name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if w == nil || name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func cookieValue(r *http.Request, name string) (string, bool) {
	if r == nil || name == "" {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

func bearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(auth[len(prefix):])
	if tok == "" {
		return "", false
	}
	return tok, true
}

// tokenFromRequest resolves a token by the fixed lookup order:
// cookie, then body field, then Authorization bearer.
func (h *Handler) tokenFromRequest(r *http.Request, cookieName, bodyValue string) (string, bool) {
	if v, ok := cookieValue(r, cookieName); ok {
		return v, true
	}
	if v := strings.TrimSpace(bodyValue); v != "" {
		return v, true
	}
	return bearerToken(r)
}
