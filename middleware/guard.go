package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
)

// Guard verifies the request's access token and stores the verified
// principal on the request context. Requests without a valid token are
// rejected through [WriteError] and never reach next.
func Guard(engine *goGate.Engine) func(http.Handler) http.Handler {
	cookies := engine.Config().Cookie

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := RequestContext(r)

			token, ok := AccessToken(r, cookies)
			if !ok {
				WriteError(w, goGate.ErrUnauthenticated)
				return
			}

			principal, err := engine.VerifyAccess(ctx, token)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx = goGate.WithPrincipal(ctx, *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestContext returns r's context annotated with the client IP and user
// agent for audit attribution.
func RequestContext(r *http.Request) context.Context {
	ctx := r.Context()
	ctx = goGate.WithClientIP(ctx, clientIP(r))
	ctx = goGate.WithUserAgent(ctx, r.UserAgent())
	return ctx
}

// AccessToken extracts the access token: cookie first, then the bearer
// header.
func AccessToken(r *http.Request, cfg goGate.CookieConfig) (string, bool) {
	if c, err := r.Cookie(cfg.AccessName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
