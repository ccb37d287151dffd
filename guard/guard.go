// Package guard decides whether a protected screen may be shown.
package guard

import (
	"net/url"

	"github.com/jrsteele09/go-pin-client/appstate"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/rs/zerolog/log"
)

const (
	// EntryPath is where unauthenticated navigation is sent.
	EntryPath = "/"
	// RedirectParam carries the originally requested location.
	RedirectParam = "redirect"
)

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed bool
	// Redirect is set when Allowed is false.
	Redirect string
	State    appstate.State
}

type Guard struct {
	store     *session.Store
	container *appstate.Container
}

func New(store *session.Store, container *appstate.Container) *Guard {
	return &Guard{store: store, container: container}
}

// Check consults the session store synchronously. An authenticated session
// hydrates the container from the stored profile. Anything else, including
// an expired or malformed token, clears the session and redirects to the
// entry screen with origin attached.
func (g *Guard) Check(origin string) Decision {
	if g.store.IsAuthenticated() {
		if profile, ok := g.store.StoredUser(); ok {
			g.container.SetUser(profile)
		} else if !g.container.Snapshot().Authenticated {
			g.container.SetUser(g.container.Snapshot().Profile)
		}
		return Decision{Allowed: true, State: g.container.Snapshot()}
	}

	if _, hadToken := g.store.Token(); hadToken {
		log.Info().Str("origin", origin).Msg("session expired, signing out")
	}
	if err := g.store.ClearAuth(); err != nil {
		log.Err(err).Msg("failed to clear session")
	}
	if g.container.Snapshot().Authenticated {
		g.container.ClearUser()
	}
	return Decision{Redirect: RedirectURL(origin)}
}

// RedirectURL is the entry screen location carrying origin.
func RedirectURL(origin string) string {
	if origin == "" || origin == EntryPath {
		return EntryPath
	}
	return EntryPath + "?" + url.Values{RedirectParam: {origin}}.Encode()
}
