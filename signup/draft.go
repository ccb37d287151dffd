package signup

import (
	"strings"

	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/jrsteele09/go-pin-client/validation"
)

// Step is one page of the registration wizard.
type Step string

const (
	StepBasicInfo       Step = "BASIC_INFO"
	StepProfileSecurity Step = "PROFILE_SECURITY"
	StepBusiness        Step = "BUSINESS"
)

// Mode selects which form the entry screen shows.
type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

// ParseMode accepts "login" or "signup", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLogin:
		return ModeLogin, nil
	case ModeSignup:
		return ModeSignup, nil
	}
	return "", pinerrors.Wrapf(pinerrors.ErrUnsupported, "mode %q", s)
}

type BasicInfo struct {
	Email       string `json:"email" validate:"required"`
	Username    string `json:"username" validate:"required"`
	AccountType string `json:"accountType" validate:"required"`
}

type ProfileSecurity struct {
	Bio             string `json:"bio"`
	Mobile          string `json:"mobile"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type BusinessInfo struct {
	BusinessName string `json:"businessName" validate:"required"`
	WebsiteURL   string `json:"websiteUrl"`
	Description  string `json:"description"`
}

// Draft is the in-progress registration form, one embedded struct per step.
type Draft struct {
	BasicInfo
	ProfileSecurity
	BusinessInfo
}

func newDraft() Draft {
	return Draft{BasicInfo: BasicInfo{AccountType: string(users.AccountUser)}}
}

func (d Draft) isBusiness() bool {
	return users.ParseAccountType(d.AccountType) == users.AccountBusiness
}

// steps is the active step sequence for the draft.
func (d Draft) steps() []Step {
	steps := []Step{StepBasicInfo, StepProfileSecurity}
	if d.isBusiness() {
		steps = append(steps, StepBusiness)
	}
	return steps
}

// set assigns a single field by its json name.
func (d *Draft) set(field, value string) error {
	switch field {
	case validation.FieldEmail:
		d.Email = strings.TrimSpace(value)
	case validation.FieldUserName:
		d.Username = strings.TrimSpace(value)
	case validation.FieldAccountType:
		d.AccountType = strings.ToUpper(strings.TrimSpace(value))
	case "bio":
		d.Bio = value
	case validation.FieldMobile:
		d.Mobile = strings.TrimSpace(value)
	case validation.FieldPassword:
		d.Password = value
	case validation.FieldConfirmPassword:
		d.ConfirmPassword = value
	case validation.FieldBusinessName:
		d.BusinessName = value
	case "websiteUrl":
		d.WebsiteURL = strings.TrimSpace(value)
	case "description":
		d.Description = value
	default:
		return pinerrors.Wrapf(pinerrors.ErrUnsupported, "signup field %q", field)
	}
	return nil
}

// redacted is the draft without its secrets, for display.
func (d Draft) redacted() Draft {
	d.Password = ""
	d.ConfirmPassword = ""
	return d
}

// stepErrors returns the field errors that keep step from being valid.
// Empty required fields report MessageRequired; present but malformed
// fields report their field message.
func stepErrors(required *validation.Required, d Draft, step Step) map[string]string {
	errs := map[string]string{}
	var section any
	switch step {
	case StepBasicInfo:
		section = d.BasicInfo
	case StepProfileSecurity:
		section = d.ProfileSecurity
	case StepBusiness:
		section = d.BusinessInfo
	default:
		return errs
	}
	for _, field := range required.Missing(section) {
		errs[field] = validation.MessageRequired
	}

	invalid := func(field string, ok bool) {
		if _, missing := errs[field]; !missing && !ok {
			errs[field] = validation.Message(field)
		}
	}
	switch step {
	case StepBasicInfo:
		invalid(validation.FieldEmail, validation.ValidateEmail(d.Email))
		invalid(validation.FieldUserName, validation.ValidateUserName(d.Username))
	case StepProfileSecurity:
		if d.Mobile != "" {
			invalid(validation.FieldMobile, validation.ValidateMobile(d.Mobile))
		}
		invalid(validation.FieldPassword, validation.ValidatePassword(d.Password))
		invalid(validation.FieldConfirmPassword, d.Password == d.ConfirmPassword)
	}
	return errs
}
