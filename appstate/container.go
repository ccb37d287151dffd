// Package appstate holds the shared, observable description of who is
// signed in. A single Container is created at startup and handed to every
// component that needs identity.
package appstate

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-pin-client/users"
)

// State is the user slice of the application state.
type State struct {
	Authenticated bool
	Profile       users.Profile
}

func (s State) IsBusiness() bool {
	return s.Profile.IsBusiness()
}

// Listener receives every new snapshot after a mutation.
type Listener func(State)

type Container struct {
	mu        sync.RWMutex
	state     State
	listeners map[uuid.UUID]Listener
	order     []uuid.UUID
}

func New() *Container {
	return &Container{listeners: make(map[uuid.UUID]Listener)}
}

type setUserOptions struct {
	authenticated bool
}

// SetUserOption adjusts a SetUser call.
type SetUserOption func(*setUserOptions)

// WithAuthenticated overrides the authenticated flag SetUser would otherwise force to true.
func WithAuthenticated(authenticated bool) SetUserOption {
	return func(o *setUserOptions) {
		o.authenticated = authenticated
	}
}

// SetUser replaces the whole user slice with profile. It does not merge
// with the previous profile: callers wanting a partial update must start
// from Snapshot().Profile.
func (c *Container) SetUser(profile users.Profile, options ...SetUserOption) {
	opts := setUserOptions{authenticated: true}
	for _, opt := range options {
		opt(&opts)
	}
	c.publish(State{Authenticated: opts.authenticated, Profile: profile})
}

// ClearUser resets to the empty, unauthenticated state.
func (c *Container) ClearUser() {
	c.publish(State{})
}

func (c *Container) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe registers fn for future snapshots and returns a function that removes it.
func (c *Container) Subscribe(fn Listener) (unsubscribe func()) {
	id := uuid.New()

	c.mu.Lock()
	c.listeners[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.listeners[id]; !ok {
			return
		}
		delete(c.listeners, id)
		for i, existing := range c.order {
			if existing == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}

func (c *Container) publish(next State) {
	c.mu.Lock()
	c.state = next
	listeners := make([]Listener, 0, len(c.order))
	for _, id := range c.order {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	// Listeners run outside the lock so they may read the container.
	for _, fn := range listeners {
		fn(next)
	}
}
