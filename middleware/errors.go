package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	goGate "github.com/MrEthical07/goGate"
)

type errorBody struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goGate.ErrAccountLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, goGate.ErrInvalidCredentials),
		errors.Is(err, goGate.ErrUnauthenticated),
		errors.Is(err, goGate.ErrTokenInvalid),
		errors.Is(err, goGate.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, goGate.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a JSON error body for err. Locked accounts also get a
// Retry-After header. Infrastructure detail is never echoed to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := errorBody{Error: publicMessage(status, err)}

	var locked *goGate.AccountLockedError
	if errors.As(err, &locked) {
		body.RetryAfter = locked.RetryAfterSeconds
		w.Header().Set("Retry-After", strconv.FormatInt(locked.RetryAfterSeconds, 10))
	}

	WriteJSON(w, status, body)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		if errors.Is(err, goGate.ErrInvalidCredentials) {
			return goGate.ErrInvalidCredentials.Error()
		}
		if errors.Is(err, goGate.ErrTokenExpired) {
			return goGate.ErrTokenExpired.Error()
		}
		return goGate.ErrUnauthenticated.Error()
	case http.StatusTooManyRequests:
		return goGate.ErrAccountLocked.Error()
	case http.StatusForbidden:
		return goGate.ErrUnauthorized.Error()
	case http.StatusServiceUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}
