// Package signup drives the entry screen: the multi-step registration
// wizard, the login form and the login lockout countdown.
package signup

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/appstate"
	"github.com/jrsteele09/go-pin-client/internal/config"
	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/internal/utils"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/jrsteele09/go-pin-client/validation"
	"github.com/rs/zerolog/log"
)

// Screen paths the flow navigates between.
const (
	EntryPath = "/"
	HomePath  = "/home"
)

// User-facing messages.
const (
	MessageRegisterFailed = "Failed to register."
	MessageLoginFailed    = "Login failed. Please try again."
	MessageEmailExists    = "An account with this email already exists."
	MessageUsernameExists = "This username is already taken."
	MessageEmailNotFound  = "No account found with this email."
	MessageWrongPassword  = "Incorrect password."
	MessageInFlight       = "Please wait for the current request to finish."
	MessageFixFields      = "Please fix the highlighted fields."
)

// Backend is the part of the API client the flow needs.
type Backend interface {
	RegisterUser(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	LoginUser(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
}

var _ Backend = (*api.Client)(nil)

// Scheduler runs fn after d and returns a function that cancels it.
type Scheduler func(d time.Duration, fn func()) (cancel func() bool)

func afterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Flow is the state of the entry screen. It is safe for concurrent use.
type Flow struct {
	backend   Backend
	store     *session.Store
	container *appstate.Container
	required  *validation.Required

	redirectDelay     time.Duration
	lockoutTick       time.Duration
	minPasswordLength int
	schedule          Scheduler
	navigate          func(path string)

	mu             sync.Mutex
	mode           Mode
	draft          Draft
	step           Step
	signupErrors   map[string]string
	signupMessage  string
	signupInFlight bool

	login         LoginForm
	loginErrors   map[string]string
	loginMessage  string
	loginInFlight bool
	origin        string

	lockoutRemaining int
	lockoutGen       int
	stopLockout      func()
	cancelRedirect   func() bool
	nextPath         string
}

// Option defines a function type to modify the Flow instance.
type Option func(*Flow)

// WithSessionConfig applies the redirect delay, lockout tick and login
// password length from cfg.
func WithSessionConfig(cfg config.SessionConfig) Option {
	return func(f *Flow) {
		f.redirectDelay = cfg.GetRedirectDelay()
		f.lockoutTick = cfg.GetLockoutTick()
		f.minPasswordLength = cfg.GetMinLoginPasswordLength()
	}
}

func WithRedirectDelay(d time.Duration) Option {
	return func(f *Flow) { f.redirectDelay = d }
}

// WithLockoutTick sets the countdown interval. Zero or less disables the
// background ticker; the countdown then only moves through Tick.
func WithLockoutTick(d time.Duration) Option {
	return func(f *Flow) { f.lockoutTick = d }
}

func WithMinPasswordLength(n int) Option {
	return func(f *Flow) { f.minPasswordLength = n }
}

// WithScheduler replaces time.AfterFunc for the post-registration redirect (primarily for testing)
func WithScheduler(s Scheduler) Option {
	return func(f *Flow) { f.schedule = s }
}

// WithNavigator is called with the destination path whenever the flow navigates.
func WithNavigator(navigate func(path string)) Option {
	return func(f *Flow) { f.navigate = navigate }
}

func New(backend Backend, store *session.Store, container *appstate.Container, options ...Option) *Flow {
	cfg := config.Session{}
	f := &Flow{
		backend:           backend,
		store:             store,
		container:         container,
		required:          validation.NewRequired(),
		redirectDelay:     cfg.GetRedirectDelay(),
		lockoutTick:       cfg.GetLockoutTick(),
		minPasswordLength: cfg.GetMinLoginPasswordLength(),
		schedule:          afterFunc,
		mode:              ModeLogin,
		draft:             newDraft(),
		step:              StepBasicInfo,
		signupErrors:      map[string]string{},
		loginErrors:       map[string]string{},
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// SwitchMode shows m and clears the other mode's errors. Field values are kept.
func (f *Flow) SwitchMode(m Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
	if m == ModeLogin {
		f.signupErrors = map[string]string{}
		f.signupMessage = ""
		return
	}
	f.loginErrors = map[string]string{}
	f.loginMessage = ""
}

// Steps is the active step sequence; BUSINESS is present only for business accounts.
func (f *Flow) Steps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.steps()
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Draft returns the registration draft with passwords removed.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.redacted()
}

// SetField updates one draft field by its json name. Moving the account
// type away from BUSINESS while on the BUSINESS step returns to
// PROFILE_SECURITY.
func (f *Flow) SetField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setFieldLocked(field, value)
}

// SetFields applies every entry or none of them: an unknown field leaves
// the draft untouched.
func (f *Flow) SetFields(fields map[string]string) error {
	// Account type first so the step fix-up sees the final value.
	order := slices.Sorted(maps.Keys(fields))
	if i := slices.Index(order, validation.FieldAccountType); i > 0 {
		order = append([]string{validation.FieldAccountType}, slices.Delete(order, i, i+1)...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	trial := f.draft
	for _, field := range order {
		if err := trial.set(field, fields[field]); err != nil {
			return err
		}
	}
	for _, field := range order {
		if err := f.setFieldLocked(field, fields[field]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) setFieldLocked(field, value string) error {
	if err := f.draft.set(field, value); err != nil {
		return err
	}
	delete(f.signupErrors, field)
	if f.step == StepBusiness && !f.draft.isBusiness() {
		f.step = StepProfileSecurity
	}
	return nil
}

// StepValid reports whether step currently passes validation.
func (f *Flow) StepValid(step Step) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(stepErrors(f.required, f.draft, step)) == 0
}

// Back moves to the previous step. It never moves before the first step.
func (f *Flow) Back() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps := f.draft.steps()
	if idx := indexOf(steps, f.step); idx > 0 {
		f.step = steps[idx-1]
	}
	return f.step
}

// Submit advances the wizard, or registers when on the last step.
func (f *Flow) Submit(ctx context.Context) Result {
	f.mu.Lock()
	if f.signupInFlight {
		step := f.step
		f.mu.Unlock()
		return Result{Kind: Blocked, Step: step, Message: MessageInFlight}
	}

	steps := f.draft.steps()
	idx := indexOf(steps, f.step)
	last := idx == len(steps)-1
	through := steps[:idx+1]
	if last {
		through = steps
	}
	for _, step := range through {
		if errs := stepErrors(f.required, f.draft, step); len(errs) > 0 {
			f.step = step
			f.signupErrors = errs
			f.signupMessage = MessageFixFields
			res := Result{Kind: Invalid, Step: step, FieldErrors: maps.Clone(errs), Message: MessageFixFields}
			f.mu.Unlock()
			return res
		}
	}
	f.signupErrors = map[string]string{}
	f.signupMessage = ""

	if !last {
		f.step = steps[idx+1]
		res := Result{Kind: Advanced, Step: f.step}
		f.mu.Unlock()
		return res
	}

	req := f.draft.registerRequest()
	fallback := f.draft.profile()
	f.signupInFlight = true
	f.mu.Unlock()

	resp, err := f.backend.RegisterUser(ctx, req)

	f.mu.Lock()
	f.signupInFlight = false
	if err != nil {
		res := f.registerFailedLocked(err)
		f.mu.Unlock()
		return res
	}

	if resp.Token == "" {
		log.Warn().Msg("registration response carried no token")
		f.signupMessage = MessageRegisterFailed
		res := Result{Kind: Failed, Step: f.step, Message: MessageRegisterFailed}
		f.mu.Unlock()
		return res
	}

	profile := resp.Profile(fallback)
	if err := f.store.Save(resp.Token, profile); err != nil {
		log.Err(err).Msg("failed to persist registration")
		_ = f.store.ClearAuth()
		f.signupMessage = MessageRegisterFailed
		res := Result{Kind: Failed, Step: f.step, Message: MessageRegisterFailed}
		f.mu.Unlock()
		return res
	}

	f.draft = newDraft()
	f.step = StepBasicInfo
	f.mu.Unlock()

	f.container.SetUser(profile)
	f.scheduleRedirect(HomePath)
	log.Info().Int64("user_id", profile.UserID).Str("username", profile.Username).Msg("registered")
	return Result{Kind: Registered, Step: StepBasicInfo, Redirect: HomePath, Profile: &profile}
}

func (f *Flow) registerFailedLocked(err error) Result {
	var rejection *api.RejectionError
	if !pinerrors.As(err, &rejection) {
		log.Warn().Err(err).Msg("registration request failed")
		f.signupMessage = MessageRegisterFailed
		return Result{Kind: Failed, Step: f.step, Message: MessageRegisterFailed}
	}

	var field, msg string
	switch rejection.Code {
	case api.CodeEmailExists:
		field, msg = validation.FieldEmail, MessageEmailExists
	case api.CodeUsernameExists:
		field, msg = validation.FieldUserName, MessageUsernameExists
	default:
		log.Warn().Str("code", rejection.Code).Msg("unexpected registration rejection")
		f.signupMessage = MessageRegisterFailed
		return Result{Kind: Failed, Step: f.step, Code: rejection.Code, Message: MessageRegisterFailed}
	}

	f.step = StepBasicInfo
	f.signupErrors = map[string]string{field: msg}
	f.signupMessage = utils.FirstNonEmpty(rejection.Message, msg)
	return Result{
		Kind:        Rejected,
		Step:        f.step,
		Code:        rejection.Code,
		FieldErrors: map[string]string{field: msg},
		Message:     f.signupMessage,
	}
}

// scheduleRedirect navigates to path once the redirect delay has passed.
// It must be called without f.mu held.
func (f *Flow) scheduleRedirect(path string) {
	cancel := f.schedule(f.redirectDelay, func() {
		f.navigateTo(path)
	})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelRedirect != nil {
		f.cancelRedirect()
	}
	f.cancelRedirect = cancel
}

func (f *Flow) navigateTo(path string) {
	f.mu.Lock()
	f.nextPath = path
	navigate := f.navigate
	f.mu.Unlock()
	if navigate != nil {
		navigate(path)
	}
}

// TakeNavigation returns and clears the pending navigation, if any.
func (f *Flow) TakeNavigation() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := f.nextPath
	f.nextPath = ""
	return path, path != ""
}

// Close resets the draft and stops the lockout ticker and any pending redirect.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = newDraft()
	f.step = StepBasicInfo
	f.signupErrors = map[string]string{}
	f.signupMessage = ""
	f.login.Password = ""
	f.stopLockoutLocked()
	f.lockoutRemaining = 0
	if f.cancelRedirect != nil {
		f.cancelRedirect()
		f.cancelRedirect = nil
	}
}

func (d Draft) registerRequest() api.RegisterRequest {
	req := api.RegisterRequest{
		Email:       d.Email,
		Username:    d.Username,
		AccountType: string(users.ParseAccountType(d.AccountType)),
		Bio:         d.Bio,
		Mobile:      d.Mobile,
		Password:    d.Password,
	}
	if d.isBusiness() {
		req.BusinessName = d.BusinessName
		req.WebsiteURL = d.WebsiteURL
		req.Description = d.Description
	}
	return req
}

// profile is the fallback used when the registration response omits fields.
func (d Draft) profile() users.Profile {
	return users.Profile{
		Username: d.Username,
		Email:    d.Email,
		Mobile:   d.Mobile,
		Bio:      d.Bio,
		Account: users.NewAccount(users.ParseAccountType(d.AccountType), users.Business{
			Name:        d.BusinessName,
			WebsiteURL:  d.WebsiteURL,
			Description: d.Description,
		}),
	}
}

func indexOf(steps []Step, step Step) int {
	for i, s := range steps {
		if s == step {
			return i
		}
	}
	return 0
}
