package signup

import "maps"

// Screen is a read-only snapshot of the entry screen.
type Screen struct {
	Mode          Mode              `json:"mode"`
	Step          Step              `json:"step"`
	Steps         []Step            `json:"steps"`
	Draft         Draft             `json:"draft"`
	SignupErrors  map[string]string `json:"signupErrors"`
	SignupMessage string            `json:"signupMessage,omitempty"`
	Registering   bool              `json:"registering"`

	LoginEmail       string            `json:"loginEmail"`
	LoginErrors      map[string]string `json:"loginErrors"`
	LoginMessage     string            `json:"loginMessage,omitempty"`
	LoginLabel       string            `json:"loginLabel"`
	LoginDisabled    bool              `json:"loginDisabled"`
	LockoutRemaining int               `json:"lockoutRemaining"`
	Origin           string            `json:"origin,omitempty"`
}

func (f *Flow) Screen() Screen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Screen{
		Mode:             f.mode,
		Step:             f.step,
		Steps:            f.draft.steps(),
		Draft:            f.draft.redacted(),
		SignupErrors:     maps.Clone(f.signupErrors),
		SignupMessage:    f.signupMessage,
		Registering:      f.signupInFlight,
		LoginEmail:       f.login.Email,
		LoginErrors:      maps.Clone(f.loginErrors),
		LoginMessage:     f.loginMessage,
		LoginLabel:       loginLabel(f.lockoutRemaining, f.loginInFlight),
		LoginDisabled:    f.loginInFlight || f.lockoutRemaining > 0,
		LockoutRemaining: f.lockoutRemaining,
		Origin:           f.origin,
	}
}
