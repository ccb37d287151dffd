package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-pin-client/appstate"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyState stores the session state the guard admitted
const ContextKeyState ContextKey = "session_state"

// RequireSession guards a protected screen. Without a live session the
// stored session is cleared and the caller is redirected to the entry
// screen with the requested location attached.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := s.guard.Check(r.URL.RequestURI())
			if !decision.Allowed {
				redirectTo(w, r, decision.Redirect)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyState, decision.State)
			next(w, r.WithContext(ctx))
		}
	}
}

// stateFromContext returns the state RequireSession admitted, falling back to the container.
func (s *Server) stateFromContext(ctx context.Context) appstate.State {
	if state, ok := ctx.Value(ContextKeyState).(appstate.State); ok {
		return state
	}
	return s.container.Snapshot()
}
