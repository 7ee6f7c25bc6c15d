package middleware

import (
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
)

// CookieTransport implements goGate.TokenTransport over an
// http.ResponseWriter.
type CookieTransport struct {
	w   http.ResponseWriter
	cfg goGate.CookieConfig
}

// NewCookieTransport returns a transport that writes cookies shaped by cfg.
func NewCookieTransport(w http.ResponseWriter, cfg goGate.CookieConfig) *CookieTransport {
	return &CookieTransport{w: w, cfg: cfg}
}

// SetToken writes the token cookie with a max-age equal to the token
// lifetime, rounded down to whole seconds.
func (t *CookieTransport) SetToken(kind goGate.TokenKind, value string, maxAge time.Duration) {
	seconds := int(maxAge / time.Second)
	if seconds <= 0 {
		seconds = -1
	}
	http.SetCookie(t.w, t.cookie(kind, value, seconds))
}

// ClearToken expires the token cookie immediately.
func (t *CookieTransport) ClearToken(kind goGate.TokenKind) {
	http.SetCookie(t.w, t.cookie(kind, "", -1))
}

func (t *CookieTransport) cookie(kind goGate.TokenKind, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName(t.cfg, kind),
		Value:    value,
		Path:     t.cfg.Path,
		Domain:   t.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   t.cfg.Secure,
		HttpOnly: true,
		SameSite: t.cfg.SameSite,
	}
}

// CookieName returns the configured cookie name for kind.
func CookieName(cfg goGate.CookieConfig, kind goGate.TokenKind) string {
	if kind == goGate.TokenRefresh {
		return cfg.RefreshName
	}
	return cfg.AccessName
}

// RefreshToken returns the refresh cookie value, or "" when absent.
func RefreshToken(r *http.Request, cfg goGate.CookieConfig) string {
	c, err := r.Cookie(cfg.RefreshName)
	if err != nil {
		return ""
	}
	return c.Value
}
