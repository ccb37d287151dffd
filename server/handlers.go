package server

import (
	"net/http"

	"github.com/jrsteele09/go-pin-client/guard"
	"github.com/jrsteele09/go-pin-client/signup"
	"github.com/rs/zerolog/log"
)

// EntryResponse is the unauthenticated entry screen.
type EntryResponse struct {
	AppName       string        `json:"appName"`
	Authenticated bool          `json:"authenticated"`
	Screen        signup.Screen `json:"screen"`
	// Navigate is a pending navigation, such as the delayed move home after registering.
	Navigate string `json:"navigate,omitempty"`
}

// SubmitResponse pairs a submit result with the screen it left behind.
type SubmitResponse struct {
	Result signup.Result `json:"result"`
	Screen signup.Screen `json:"screen"`
}

func (s *Server) entryResponse() EntryResponse {
	resp := EntryResponse{
		AppName:       s.config.GetAppName(),
		Authenticated: s.store.IsAuthenticated(),
		Screen:        s.flow.Screen(),
	}
	if path, ok := s.flow.TakeNavigation(); ok {
		resp.Navigate = path
	}
	return resp
}

// EntryHandler shows the login/signup screen. A redirect query parameter
// is remembered as the post-login destination.
func (s *Server) EntryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.URL.Query().Get(guard.RedirectParam); origin != "" {
			s.flow.SetOrigin(origin)
		}
		writeJSON(w, r, http.StatusOK, s.entryResponse())
	}
}

func (s *Server) SwitchModeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Mode string `json:"mode"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		mode, err := signup.ParseMode(body.Mode)
		if err != nil {
			writeJSONError(w, r, "invalid_mode", err.Error(), http.StatusBadRequest)
			return
		}
		s.flow.SwitchMode(mode)
		writeJSON(w, r, http.StatusOK, s.entryResponse())
	}
}

func (s *Server) SignupFieldsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		if !decodeJSON(w, r, &fields) {
			return
		}
		if err := s.flow.SetFields(fields); err != nil {
			writeJSONError(w, r, "invalid_field", err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, r, http.StatusOK, s.entryResponse())
	}
}

func (s *Server) SignupSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.flow.Submit(r.Context())
		writeJSON(w, r, statusForResult(result), SubmitResponse{Result: result, Screen: s.flow.Screen()})
	}
}

func (s *Server) SignupBackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.flow.Back()
		writeJSON(w, r, http.StatusOK, s.entryResponse())
	}
}

func (s *Server) LoginFieldsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		if !decodeJSON(w, r, &fields) {
			return
		}
		for field, value := range fields {
			if err := s.flow.SetLoginField(field, value); err != nil {
				writeJSONError(w, r, "invalid_field", err.Error(), http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, r, http.StatusOK, s.entryResponse())
	}
}

func (s *Server) LoginSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.flow.SubmitLogin(r.Context())
		writeJSON(w, r, statusForResult(result), SubmitResponse{Result: result, Screen: s.flow.Screen()})
	}
}

// LogoutHandler ends the session and returns to the entry screen.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.stopRefresh()
		if err := s.store.ClearAuth(); err != nil {
			log.Err(err).Msg("failed to clear session on logout")
			writeJSONError(w, r, "logout_failed", "Failed to log out.", http.StatusInternalServerError)
			return
		}
		s.container.ClearUser()
		s.flow.Close()
		redirectTo(w, r, RouteEntry)
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func statusForResult(result signup.Result) int {
	switch result.Kind {
	case signup.Invalid:
		return http.StatusUnprocessableEntity
	case signup.Rejected:
		return http.StatusConflict
	case signup.Failed:
		return http.StatusBadGateway
	case signup.Blocked:
		return http.StatusTooManyRequests
	}
	return http.StatusOK
}
