package config

import "time"

type SessionConfig interface {
	GetRedirectDelay() time.Duration
	GetLockoutTick() time.Duration
	GetMinLoginPasswordLength() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRedirectDelay is the pause between a successful registration and the move to home.
func (Session) GetRedirectDelay() time.Duration {
	return 1500 * time.Millisecond
}

func (Session) GetLockoutTick() time.Duration {
	return time.Second
}

func (Session) GetMinLoginPasswordLength() int {
	return 6
}
