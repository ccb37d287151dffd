package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/profile"
	"github.com/jrsteele09/go-pin-client/signup"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/jrsteele09/go-pin-client/validation"
	"github.com/rs/zerolog/log"
)

// ProfileView is a profile as the screens show it.
type ProfileView struct {
	users.Fields
	AvatarURL  string `json:"avatarUrl"`
	IsBusiness bool   `json:"isBusiness"`
}

func (s *Server) profileView(p users.Profile) ProfileView {
	return ProfileView{
		Fields:     p.Fields(),
		AvatarURL:  s.api.MediaURL(p.ProfilePath),
		IsBusiness: p.IsBusiness(),
	}
}

// backgroundRefresh is a profile fetch started by the home screen.
type backgroundRefresh struct {
	cancel context.CancelFunc
	done   <-chan struct{}
}

// stop aborts the fetch and waits for it to finish, so nothing is applied afterwards.
func (b *backgroundRefresh) stop() {
	if b == nil {
		return
	}
	b.cancel()
	<-b.done
}

// startRefresh fetches the canonical profile in the background, replacing
// any refresh already running.
func (s *Server) startRefresh() {
	cancel, done := s.profiles.RefreshInBackground(context.Background())
	s.refreshMu.Lock()
	prev := s.refresh
	s.refresh = &backgroundRefresh{cancel: cancel, done: done}
	s.refreshMu.Unlock()
	prev.stop()
}

func (s *Server) stopRefresh() {
	s.refreshMu.Lock()
	current := s.refresh
	s.refresh = nil
	s.refreshMu.Unlock()
	current.stop()
}

// HomeHandler is the authenticated landing screen. It answers with the
// cached profile and refreshes it in the background.
func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.startRefresh()
		state := s.stateFromContext(r.Context())
		writeJSON(w, r, http.StatusOK, map[string]any{
			"appName": s.config.GetAppName(),
			"user":    s.profileView(state.Profile),
		})
	}
}

// ProfileGetHandler hydrates the profile from the backend. The refresh is
// tied to the request and abandoned if the caller goes away; on failure the
// cached profile is shown.
func (s *Server) ProfileGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.stopRefresh()
		current, err := s.profiles.Refresh(r.Context())
		if err != nil {
			current = s.stateFromContext(r.Context()).Profile
		}
		writeJSON(w, r, http.StatusOK, s.profileView(current))
	}
}

func (s *Server) ProfilePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var edit profile.Edit
		if !decodeJSON(w, r, &edit) {
			return
		}
		s.stopRefresh()
		updated, err := s.profiles.Update(r.Context(), edit)
		if err != nil {
			s.writeProfileError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, s.profileView(updated))
	}
}

func (s *Server) ProfileBusinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var business users.Business
		if !decodeJSON(w, r, &business) {
			return
		}
		s.stopRefresh()
		converted, err := s.profiles.ConvertToBusiness(r.Context(), business)
		if err != nil {
			s.writeProfileError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, s.profileView(converted))
	}
}

func (s *Server) writeProfileError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *profile.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, r, http.StatusUnprocessableEntity, map[string]any{
			"error":       "invalid_fields",
			"fieldErrors": vErr.Fields,
		})
		return
	}
	var rejection *api.RejectionError
	if errors.As(err, &rejection) {
		fieldErrors := map[string]string{}
		if rejection.Code == api.CodeUsernameExists {
			fieldErrors[validation.FieldUserName] = signup.MessageUsernameExists
		}
		writeJSON(w, r, http.StatusConflict, map[string]any{
			"error":       rejection.Code,
			"message":     rejection.Message,
			"fieldErrors": fieldErrors,
		})
		return
	}
	log.Warn().Err(err).Str("path", r.URL.Path).Msg("profile update failed")
	writeJSONError(w, r, "update_failed", "Failed to update profile.", http.StatusBadGateway)
}
