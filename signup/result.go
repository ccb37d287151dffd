package signup

import (
	"encoding/json"

	"github.com/jrsteele09/go-pin-client/users"
)

// Kind classifies the outcome of a submit.
type Kind int

const (
	// Advanced moved the wizard to its next step without a backend call.
	Advanced Kind = iota
	// Invalid means client-side validation failed and nothing was sent.
	Invalid
	// Rejected means the backend answered with a structured error code.
	Rejected
	// Failed covers network failures and unexpected backend answers.
	Failed
	Registered
	LoggedIn
	// Blocked means a request was already in flight or the login is locked out.
	Blocked
)

var kindNames = map[Kind]string{
	Advanced:   "advanced",
	Invalid:    "invalid",
	Rejected:   "rejected",
	Failed:     "failed",
	Registered: "registered",
	LoggedIn:   "logged_in",
	Blocked:    "blocked",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Result is returned by every submit. Submits never return an error: every
// failure is described here.
type Result struct {
	Kind        Kind              `json:"kind"`
	Step        Step              `json:"step,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Message     string            `json:"message,omitempty"`
	Code        string            `json:"code,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
	Profile     *users.Profile    `json:"profile,omitempty"`
}

// OK reports whether the submit moved the flow forward.
func (r Result) OK() bool {
	return r.Kind == Advanced || r.Kind == Registered || r.Kind == LoggedIn
}
