package middleware

import (
	"net/http"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/pkg/logger"
)

// ActorContext tags the request logger with the authenticated employee.
// It must run after the auth middleware has attached the actor.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := internal.ActorIDFromContext(r.Context())
		if actorID == 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx := logger.With(r.Context(), "actor_id", actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
