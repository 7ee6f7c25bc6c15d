package middleware

import (
	"fmt"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
)

// Require authorizes operation for the principal placed on the context by
// [Guard]. It panics when operation is not registered on engine, so a typo
// in route wiring fails at startup rather than denying every request.
func Require(engine *goGate.Engine, operation string) func(http.Handler) http.Handler {
	if !engine.IsRegistered(operation) {
		panic(fmt.Sprintf("middleware: operation %q is not registered", operation))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := goGate.PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, goGate.ErrUnauthenticated)
				return
			}

			if err := engine.Authorize(r.Context(), &p, operation); err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
