// Package session persists the bearer token and the cached profile
// snapshot and answers whether the client is currently signed in.
package session

import (
	"encoding/json"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/storage"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/rs/zerolog/log"
)

// Storage keys.
const (
	TokenKey = "pinterest_jwt_token"
	UserKey  = "pinterest_user"
)

// Store is the session/token store. Reads never fail: anything that cannot
// be decoded is reported as absent.
type Store struct {
	repo    storage.Repo
	parser  *jwtlib.Parser
	nowTime func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func New(repo storage.Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:    repo,
		parser:  jwtlib.NewParser(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) SetToken(token string) error {
	return pinerrors.Wrapf(s.repo.Set(TokenKey, token), "[Store SetToken]")
}

// Token returns the stored token, if any.
func (s *Store) Token() (string, bool) {
	token, err := s.repo.Get(TokenKey)
	if err != nil {
		if !pinerrors.Is(err, pinerrors.ErrKeyNotFound) {
			log.Debug().Err(err).Msg("token read failed")
		}
		return "", false
	}
	return token, token != ""
}

func (s *Store) RemoveToken() error {
	return pinerrors.Wrapf(s.repo.Delete(TokenKey), "[Store RemoveToken]")
}

// Expiry decodes the token payload without verifying the signature and
// returns its exp claim.
func (s *Store) Expiry() (time.Time, error) {
	token, ok := s.Token()
	if !ok {
		return time.Time{}, pinerrors.ErrNoToken
	}
	return s.expiry(token)
}

func (s *Store) expiry(token string) (time.Time, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return time.Time{}, pinerrors.Wrapf(pinerrors.ErrTokenMalformed, "expected 3 segments, got %d", len(segments))
	}
	// Only the payload is read; the header and signature are not checked.
	payload, err := s.parser.DecodeSegment(segments[1])
	if err != nil {
		return time.Time{}, pinerrors.Wrapf(pinerrors.ErrTokenMalformed, "payload: %s", err.Error())
	}
	claims := jwtlib.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, pinerrors.Wrapf(pinerrors.ErrTokenMalformed, "payload: %s", err.Error())
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, pinerrors.Wrapf(pinerrors.ErrTokenMalformed, "exp claim: %s", err.Error())
	}
	if exp == nil {
		return time.Time{}, pinerrors.Wrapf(pinerrors.ErrTokenMalformed, "missing exp claim")
	}
	return exp.Time, nil
}

// IsAuthenticated is true iff a token is stored, decodes, carries exp and
// exp lies in the future.
func (s *Store) IsAuthenticated() bool {
	exp, err := s.Expiry()
	if err != nil {
		if !pinerrors.Is(err, pinerrors.ErrNoToken) {
			log.Debug().Err(err).Msg("stored token rejected")
		}
		return false
	}
	return exp.UnixMilli() > s.nowTime().UnixMilli()
}

func (s *Store) SetStoredUser(profile users.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return pinerrors.Wrapf(err, "[Store SetStoredUser] encode")
	}
	return pinerrors.Wrapf(s.repo.Set(UserKey, string(data)), "[Store SetStoredUser]")
}

// StoredUser returns the cached profile. Malformed JSON reads as absent.
func (s *Store) StoredUser() (users.Profile, bool) {
	raw, err := s.repo.Get(UserKey)
	if err != nil || raw == "" {
		return users.Profile{}, false
	}
	var profile users.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		log.Debug().Err(err).Msg("stored user is malformed")
		return users.Profile{}, false
	}
	return profile, true
}

// ClearAuth removes the token and the cached profile. It is the only logout primitive.
func (s *Store) ClearAuth() error {
	tokenErr := s.RemoveToken()
	userErr := pinerrors.Wrapf(s.repo.Delete(UserKey), "[Store ClearAuth]")
	if tokenErr != nil {
		return tokenErr
	}
	return userErr
}

// Save persists a fresh login or registration in one step.
func (s *Store) Save(token string, profile users.Profile) error {
	if err := s.SetToken(token); err != nil {
		return err
	}
	return s.SetStoredUser(profile)
}
