package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/etc-portal/pkg/composables"
	"github.com/iota-uz/etc-portal/pkg/httpapi"
)

const actorHeader = "X-Actor-ID"

// RequireActor resolves the authenticated staff user for the admin namespace.
// Session/OTP mechanics live upstream; this trusts the identity the gateway
// injects and rejects requests that carry none.
func RequireActor() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorHeader))
			if raw == "" {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			actorID, err := uuid.Parse(raw)
			if err != nil || actorID == uuid.Nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid actor identity", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithActorID(r.Context(), actorID)))
		})
	}
}
