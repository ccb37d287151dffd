// Package profile keeps the signed-in user's profile in step with the
// backend: background hydration, account edits and business conversion.
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/appstate"
	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/internal/utils"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/jrsteele09/go-pin-client/validation"
	"github.com/rs/zerolog/log"
)

// Backend is the part of the API client the profile flows need.
type Backend interface {
	GetUser(ctx context.Context, token string, id int64) (users.Fields, error)
	UpdateUser(ctx context.Context, token string, id int64, req api.UpdateRequest) (users.Fields, error)
}

var _ Backend = (*api.Client)(nil)

// Edit is a partial profile change. Nil fields are left as they are.
type Edit struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// ValidationError lists the fields that failed client-side validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

type Service struct {
	backend   Backend
	store     *session.Store
	container *appstate.Container
}

func New(backend Backend, store *session.Store, container *appstate.Container) *Service {
	return &Service{backend: backend, store: store, container: container}
}

// current returns the bearer token and the best known profile.
func (s *Service) current() (string, users.Profile, error) {
	token, ok := s.store.Token()
	if !ok {
		return "", users.Profile{}, pinerrors.ErrNotAuthenticated
	}
	profile := s.container.Snapshot().Profile
	if profile.UserID == 0 {
		stored, ok := s.store.StoredUser()
		if !ok || stored.UserID == 0 {
			return "", users.Profile{}, pinerrors.Wrapf(pinerrors.ErrNoStoredUser, "[Service current]")
		}
		profile = stored
	}
	return token, profile, nil
}

// Refresh fetches the canonical profile and merges it over the cached one.
// On failure or cancellation nothing is changed.
func (s *Service) Refresh(ctx context.Context) (users.Profile, error) {
	token, cached, err := s.current()
	if err != nil {
		return users.Profile{}, err
	}

	fields, err := s.backend.GetUser(ctx, token, cached.UserID)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug().Int64("user_id", cached.UserID).Msg("profile refresh cancelled")
		} else {
			log.Warn().Err(err).Int64("user_id", cached.UserID).Msg("profile refresh failed")
		}
		return users.Profile{}, err
	}
	if err := ctx.Err(); err != nil {
		return users.Profile{}, err
	}

	return s.apply(users.Merge(fields, cached))
}

// RefreshInBackground runs Refresh on its own goroutine. Calling cancel
// aborts the request; done is closed once the refresh has finished.
func (s *Service) RefreshInBackground(ctx context.Context) (cancel context.CancelFunc, done <-chan struct{}) {
	ctx, cancel = context.WithCancel(ctx)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _ = s.Refresh(ctx)
	}()
	return cancel, finished
}

// Update applies edit on the backend. The result is spread over the prior
// profile before the container is replaced.
func (s *Service) Update(ctx context.Context, edit Edit) (users.Profile, error) {
	if err := validateEdit(edit); err != nil {
		return users.Profile{}, err
	}
	token, prior, err := s.current()
	if err != nil {
		return users.Profile{}, err
	}

	fields, err := s.backend.UpdateUser(ctx, token, prior.UserID, api.UpdateRequest{
		Name:     edit.Name,
		Username: edit.Username,
		Mobile:   edit.Mobile,
		Bio:      edit.Bio,
	})
	if err != nil {
		return users.Profile{}, err
	}

	edited := prior
	edited.Name = utils.ValueOr(edit.Name, prior.Name)
	edited.Username = utils.ValueOr(edit.Username, prior.Username)
	edited.Mobile = utils.ValueOr(edit.Mobile, prior.Mobile)
	edited.Bio = utils.ValueOr(edit.Bio, prior.Bio)
	return s.apply(users.Merge(fields, edited))
}

// ConvertToBusiness turns the account into a business account.
func (s *Service) ConvertToBusiness(ctx context.Context, business users.Business) (users.Profile, error) {
	if strings.TrimSpace(business.Name) == "" {
		return users.Profile{}, &ValidationError{Fields: map[string]string{
			validation.FieldBusinessName: validation.Message(validation.FieldBusinessName),
		}}
	}
	token, prior, err := s.current()
	if err != nil {
		return users.Profile{}, err
	}

	fields, err := s.backend.UpdateUser(ctx, token, prior.UserID, api.UpdateRequest{
		AccountType:  utils.Ptr(string(users.AccountBusiness)),
		BusinessName: utils.Ptr(business.Name),
		WebsiteURL:   utils.Ptr(business.WebsiteURL),
		Description:  utils.Ptr(business.Description),
	})
	if err != nil {
		return users.Profile{}, err
	}

	converted := prior
	converted.Account = business
	return s.apply(users.Merge(fields, converted))
}

func (s *Service) apply(profile users.Profile) (users.Profile, error) {
	if err := s.store.SetStoredUser(profile); err != nil {
		return users.Profile{}, err
	}
	s.container.SetUser(profile)
	return profile, nil
}

func validateEdit(edit Edit) error {
	errs := map[string]string{}
	if edit.Name != nil && *edit.Name != "" && !validation.ValidateFullName(*edit.Name) {
		errs[validation.FieldFullName] = validation.Message(validation.FieldFullName)
	}
	if edit.Username != nil && !validation.ValidateUserName(*edit.Username) {
		errs[validation.FieldUserName] = validation.Message(validation.FieldUserName)
	}
	if edit.Mobile != nil && *edit.Mobile != "" && !validation.ValidateMobile(*edit.Mobile) {
		errs[validation.FieldMobile] = validation.Message(validation.FieldMobile)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
