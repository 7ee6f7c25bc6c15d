package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/middleware"
)

type healthFunc func(ctx context.Context) error

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type lockoutResponse struct {
	AccountID      string `json:"accountId"`
	FailedAttempts int    `json:"failedAttempts"`
}

func newRouter(engine *goGate.Engine, logger *slog.Logger, health healthFunc) http.Handler {
	guard := middleware.Guard(engine)
	require := func(op string, h http.HandlerFunc) http.Handler {
		return guard(middleware.Require(engine, op)(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", loginHandler(engine))
	mux.HandleFunc("POST /auth/refresh", refreshHandler(engine))
	mux.HandleFunc("POST /auth/logout", logoutHandler(engine))
	mux.Handle("GET /auth/me", require(opUserMe, meHandler))
	mux.Handle("GET /auth/check", guard(checkHandler(engine)))
	mux.Handle("GET /admin/accounts/{id}/lockout", require(opLockoutView, lockoutHandler(engine)))
	mux.Handle("DELETE /admin/accounts/{id}/lockout", require(opLockoutReset, unlockHandler(engine, logger)))
	mux.HandleFunc("GET /healthz", healthHandler(health, logger))
	return mux
}

func loginHandler(engine *goGate.Engine) http.HandlerFunc {
	cookies := engine.Config().Cookie

	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		res, err := engine.Login(middleware.RequestContext(r), middleware.NewCookieTransport(w, cookies), body.Email, body.Password)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, res)
	}
}

func refreshHandler(engine *goGate.Engine) http.HandlerFunc {
	cookies := engine.Config().Cookie

	return func(w http.ResponseWriter, r *http.Request) {
		token := middleware.RefreshToken(r, cookies)
		p, err := engine.Refresh(middleware.RequestContext(r), middleware.NewCookieTransport(w, cookies), token)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, p)
	}
}

// logoutHandler needs no valid token; a verifiable one only attributes the
// audit record.
func logoutHandler(engine *goGate.Engine) http.HandlerFunc {
	cookies := engine.Config().Cookie

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.RequestContext(r)
		if token, ok := middleware.AccessToken(r, cookies); ok {
			if p, err := engine.VerifyAccess(ctx, token); err == nil {
				ctx = goGate.WithPrincipal(ctx, *p)
			}
		}

		if err := engine.Logout(ctx, middleware.NewCookieTransport(w, cookies)); err != nil {
			middleware.WriteError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := goGate.PrincipalFromContext(r.Context())
	middleware.WriteJSON(w, http.StatusOK, p)
}

// checkHandler answers forward-auth probes: 204 when the guarded principal
// may invoke ?operation=, the mapped error status otherwise.
func checkHandler(engine *goGate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := r.URL.Query().Get("operation")
		if !engine.IsRegistered(op) {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown operation"})
			return
		}
		p, _ := goGate.PrincipalFromContext(r.Context())

		if err := engine.Authorize(r.Context(), &p, op); err != nil {
			middleware.WriteError(w, err)
			return
		}
		w.Header().Set("X-Account-Id", p.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func lockoutHandler(engine *goGate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		n, err := engine.FailedAttempts(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, lockoutResponse{AccountID: id, FailedAttempts: n})
	}
}

func unlockHandler(engine *goGate.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := engine.UnlockAccount(r.Context(), id); err != nil {
			middleware.WriteError(w, err)
			return
		}

		admin, _ := goGate.PrincipalFromContext(r.Context())
		logger.InfoContext(r.Context(), "account unlocked",
			slog.String("account_id", id),
			slog.String("by", admin.ID),
		)
		w.WriteHeader(http.StatusNoContent)
	}
}

func healthHandler(health healthFunc, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
