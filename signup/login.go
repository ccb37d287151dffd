package signup

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/jrsteele09/go-pin-client/api"
	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/jrsteele09/go-pin-client/validation"
	"github.com/rs/zerolog/log"
)

// LoginForm is the two-field login form.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func lockedMessage(seconds int) string {
	return fmt.Sprintf("Account locked. Try again in %d seconds.", seconds)
}

func (f *Flow) SetLoginField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case validation.FieldEmail:
		f.login.Email = strings.TrimSpace(value)
	case validation.FieldPassword:
		f.login.Password = value
	default:
		return pinerrors.Wrapf(pinerrors.ErrUnsupported, "login field %q", field)
	}
	delete(f.loginErrors, field)
	return nil
}

// SetOrigin records where to go after a successful login. Only local
// paths are kept.
func (f *Flow) SetOrigin(origin string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.origin = sanitizeOrigin(origin)
}

func sanitizeOrigin(origin string) string {
	if !strings.HasPrefix(origin, "/") || strings.HasPrefix(origin, "//") || origin == EntryPath {
		return ""
	}
	return origin
}

// LoginValid reports whether the login form may be submitted.
func (f *Flow) LoginValid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loginFieldErrorsLocked()) == 0
}

func (f *Flow) loginFieldErrorsLocked() map[string]string {
	errs := map[string]string{}
	if f.login.Email == "" {
		errs[validation.FieldEmail] = validation.MessageRequired
	} else if !validation.ValidateEmail(f.login.Email) {
		errs[validation.FieldEmail] = validation.Message(validation.FieldEmail)
	}
	if len(f.login.Password) < f.minPasswordLength {
		errs[validation.FieldPassword] = fmt.Sprintf("Password must be at least %d characters.", f.minPasswordLength)
	}
	return errs
}

// SubmitLogin sends the login form. It is blocked while a login is in
// flight and while a lockout countdown is running.
func (f *Flow) SubmitLogin(ctx context.Context) Result {
	f.mu.Lock()
	if f.loginInFlight {
		f.mu.Unlock()
		return Result{Kind: Blocked, Message: MessageInFlight}
	}
	if f.lockoutRemaining > 0 {
		res := Result{Kind: Blocked, Code: api.CodeAccountLocked, Message: lockedMessage(f.lockoutRemaining)}
		f.mu.Unlock()
		return res
	}
	if errs := f.loginFieldErrorsLocked(); len(errs) > 0 {
		f.loginErrors = errs
		f.loginMessage = ""
		res := Result{Kind: Invalid, FieldErrors: maps.Clone(errs)}
		f.mu.Unlock()
		return res
	}
	req := api.LoginRequest{Email: f.login.Email, Password: f.login.Password}
	fallback := users.Profile{Email: f.login.Email}
	f.loginInFlight = true
	f.loginErrors = map[string]string{}
	f.loginMessage = ""
	f.mu.Unlock()

	resp, err := f.backend.LoginUser(ctx, req)

	f.mu.Lock()
	f.loginInFlight = false
	if err != nil {
		res := f.loginFailedLocked(err)
		f.mu.Unlock()
		return res
	}

	if resp.Token == "" {
		log.Warn().Msg("login response carried no token")
		f.loginMessage = MessageLoginFailed
		f.mu.Unlock()
		return Result{Kind: Failed, Message: MessageLoginFailed}
	}

	profile := resp.Profile(fallback)
	if err := f.store.Save(resp.Token, profile); err != nil {
		log.Err(err).Msg("failed to persist login")
		_ = f.store.ClearAuth()
		f.loginMessage = MessageLoginFailed
		f.mu.Unlock()
		return Result{Kind: Failed, Message: MessageLoginFailed}
	}

	destination := HomePath
	if f.origin != "" {
		destination = f.origin
	}
	f.origin = ""
	f.login = LoginForm{}
	f.mu.Unlock()

	f.container.SetUser(profile)
	log.Info().Int64("user_id", profile.UserID).Msg("logged in")
	f.navigateTo(destination)
	return Result{Kind: LoggedIn, Redirect: destination, Profile: &profile}
}

func (f *Flow) loginFailedLocked(err error) Result {
	var rejection *api.RejectionError
	if !pinerrors.As(err, &rejection) {
		log.Warn().Err(err).Msg("login request failed")
		f.loginMessage = MessageLoginFailed
		return Result{Kind: Failed, Message: MessageLoginFailed}
	}

	switch rejection.Code {
	case api.CodeEmailNotFound:
		f.loginErrors = map[string]string{validation.FieldEmail: MessageEmailNotFound}
		f.loginMessage = MessageEmailNotFound
	case api.CodeWrongPassword:
		f.loginErrors = map[string]string{validation.FieldPassword: MessageWrongPassword}
		f.loginMessage = MessageWrongPassword
	case api.CodeAccountLocked:
		f.startLockoutLocked(rejection.LockoutRemainingSeconds)
		f.loginMessage = lockedMessage(rejection.LockoutRemainingSeconds)
	default:
		log.Warn().Str("code", rejection.Code).Msg("unexpected login rejection")
		f.loginMessage = MessageLoginFailed
		return Result{Kind: Failed, Code: rejection.Code, Message: MessageLoginFailed}
	}
	return Result{
		Kind:        Rejected,
		Code:        rejection.Code,
		FieldErrors: maps.Clone(f.loginErrors),
		Message:     f.loginMessage,
	}
}
