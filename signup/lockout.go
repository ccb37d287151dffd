package signup

import (
	"fmt"
	"time"
)

// Login button labels.
const (
	LabelLogin     = "Log in"
	LabelLoggingIn = "Logging in..."
)

// startLockoutLocked begins a countdown of seconds, replacing any running one.
func (f *Flow) startLockoutLocked(seconds int) {
	f.stopLockoutLocked()
	f.lockoutRemaining = max(seconds, 0)
	if f.lockoutRemaining == 0 || f.lockoutTick <= 0 {
		return
	}

	f.lockoutGen++
	gen := f.lockoutGen
	ticker := time.NewTicker(f.lockoutTick)
	done := make(chan struct{})
	f.stopLockout = func() {
		ticker.Stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-ticker.C:
				if f.tick(gen) == 0 {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

func (f *Flow) stopLockoutLocked() {
	if f.stopLockout != nil {
		f.stopLockout()
		f.stopLockout = nil
	}
}

// Tick advances the lockout countdown by one second and returns what is left.
// At zero the ticker stops and login is enabled again.
func (f *Flow) Tick() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickLocked()
}

// tick is the ticker goroutine's Tick; it ignores ticks from a replaced countdown.
func (f *Flow) tick(gen int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.lockoutGen {
		return 0
	}
	return f.tickLocked()
}

func (f *Flow) tickLocked() int {
	if f.lockoutRemaining == 0 {
		return 0
	}
	f.lockoutRemaining--
	if f.lockoutRemaining == 0 {
		f.stopLockoutLocked()
		f.loginMessage = ""
		return 0
	}
	f.loginMessage = lockedMessage(f.lockoutRemaining)
	return f.lockoutRemaining
}

func (f *Flow) LockoutRemaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lockoutRemaining
}

// LoginDisabled reports whether the login button is disabled.
func (f *Flow) LoginDisabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginInFlight || f.lockoutRemaining > 0
}

func (f *Flow) LoginLabel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return loginLabel(f.lockoutRemaining, f.loginInFlight)
}

func loginLabel(remaining int, inFlight bool) string {
	switch {
	case remaining > 0:
		return fmt.Sprintf("Try again in %ds", remaining)
	case inFlight:
		return LabelLoggingIn
	}
	return LabelLogin
}
