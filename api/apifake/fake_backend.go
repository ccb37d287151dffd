// Package apifake is an in-memory implementation of the backend's auth
// and profile endpoints, used by tests and by the client's demo mode.
package apifake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/internal/utils"
	"github.com/jrsteele09/go-pin-client/users"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL      = time.Hour
	defaultMaxAttempts   = 3
	defaultLockoutPeriod = 30 * time.Second
)

type account struct {
	fields       users.Fields
	passwordHash string
	failures     int
	lockedUntil  time.Time
}

// Backend is a fake of the remote API. It is safe for concurrent use.
type Backend struct {
	mux         *http.ServeMux
	secret      []byte
	tokenTTL    time.Duration
	maxAttempts int
	lockout     time.Duration
	nowTime     func() time.Time

	lock     sync.RWMutex
	accounts map[int64]*account
	emails   map[string]int64
	nextID   int64
	calls    map[string]int
	failNext int
}

// BackendOption defines a function type to modify the Backend instance.
type BackendOption func(*Backend)

func WithTokenTTL(ttl time.Duration) BackendOption {
	return func(b *Backend) { b.tokenTTL = ttl }
}

func WithNowTime(nowFunc func() time.Time) BackendOption {
	return func(b *Backend) { b.nowTime = nowFunc }
}

// WithLockout sets how many wrong passwords lock an account and for how long.
func WithLockout(maxAttempts int, period time.Duration) BackendOption {
	return func(b *Backend) {
		b.maxAttempts = maxAttempts
		b.lockout = period
	}
}

func New(options ...BackendOption) *Backend {
	b := &Backend{
		mux:         http.NewServeMux(),
		secret:      []byte("apifake-secret"),
		tokenTTL:    defaultTokenTTL,
		maxAttempts: defaultMaxAttempts,
		lockout:     defaultLockoutPeriod,
		nowTime:     time.Now,
		accounts:    make(map[int64]*account),
		emails:      make(map[string]int64),
		nextID:      1,
		calls:       make(map[string]int),
	}
	for _, opt := range options {
		opt(b)
	}

	b.mux.HandleFunc("POST "+api.PathRegisterUser, b.register)
	b.mux.HandleFunc("POST "+api.PathLoginUser, b.login)
	b.mux.HandleFunc("GET /auth/user/{id}", b.requireBearer(b.getUser))
	b.mux.HandleFunc("PUT /auth/user/{id}", b.requireBearer(b.updateUser))
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.calls[r.Method+" "+routeOf(r.URL.Path)]++
	fail := b.failNext
	if fail > 0 {
		b.failNext = 0
	}
	b.lock.Unlock()

	if fail > 0 {
		http.Error(w, "injected failure", fail)
		return
	}
	b.mux.ServeHTTP(w, r)
}

// FailNext makes the next request fail with the given HTTP status.
func (b *Backend) FailNext(status int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failNext = status
}

// Calls counts requests for "METHOD /path", with user ids collapsed to {id}.
func (b *Backend) Calls(route string) int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.calls[route]
}

// Seed creates an account directly and returns its id.
func (b *Backend) Seed(fields users.Fields, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.insert(fields, string(hash)), nil
}

// Lock locks the account for email for the given period.
func (b *Backend) Lock(email string, period time.Duration) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if id, ok := b.emails[strings.ToLower(email)]; ok {
		b.accounts[id].lockedUntil = b.nowTime().Add(period)
	}
}

// Token issues a valid bearer token for id.
func (b *Backend) Token(id int64) (string, error) {
	return b.issueToken(id)
}

func (b *Backend) insert(fields users.Fields, hash string) int64 {
	id := b.nextID
	b.nextID++
	fields.UserID = id
	fields.AccountType = string(users.ParseAccountType(fields.AccountType))
	b.accounts[id] = &account{fields: fields, passwordHash: hash}
	b.emails[strings.ToLower(fields.Email)] = id
	return id
}

// conflictLocked reports the rejection for an email or username already in use.
func (b *Backend) conflictLocked(email, username string) *api.AuthResponse {
	if _, ok := b.emails[strings.ToLower(email)]; ok {
		return &api.AuthResponse{ErrorCode: api.CodeEmailExists, Message: "Email already registered"}
	}
	for _, a := range b.accounts {
		if a.fields.Username == username {
			return &api.AuthResponse{ErrorCode: api.CodeUsernameExists, Message: "Username already taken"}
		}
	}
	return nil
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		http.Error(w, "failed to register", http.StatusInternalServerError)
		return
	}

	b.lock.Lock()
	if rejection := b.conflictLocked(req.Email, req.Username); rejection != nil {
		b.lock.Unlock()
		writeJSON(w, http.StatusOK, rejection)
		return
	}
	id := b.insert(users.Fields{
		Email:        req.Email,
		Username:     req.Username,
		Bio:          req.Bio,
		Mobile:       req.Mobile,
		AccountType:  req.AccountType,
		BusinessName: req.BusinessName,
		WebsiteURL:   req.WebsiteURL,
		Description:  req.Description,
	}, string(hash))
	b.lock.Unlock()
	b.writeSession(w, id)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	b.lock.Lock()
	id, ok := b.emails[strings.ToLower(req.Email)]
	if !ok {
		b.lock.Unlock()
		writeJSON(w, http.StatusOK, api.AuthResponse{ErrorCode: api.CodeEmailNotFound, Message: "No account with that email"})
		return
	}
	acct := b.accounts[id]
	now := b.nowTime()
	if now.Before(acct.lockedUntil) {
		remaining := int(acct.lockedUntil.Sub(now).Round(time.Second) / time.Second)
		b.lock.Unlock()
		writeJSON(w, http.StatusOK, api.AuthResponse{
			ErrorCode:               api.CodeAccountLocked,
			Message:                 "Account locked",
			LockoutRemainingSeconds: utils.Ptr(remaining),
		})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(req.Password)) != nil {
		acct.failures++
		if acct.failures >= b.maxAttempts {
			acct.failures = 0
			acct.lockedUntil = now.Add(b.lockout)
			b.lock.Unlock()
			writeJSON(w, http.StatusOK, api.AuthResponse{
				ErrorCode:               api.CodeAccountLocked,
				Message:                 "Too many attempts",
				LockoutRemainingSeconds: utils.Ptr(int(b.lockout / time.Second)),
			})
			return
		}
		b.lock.Unlock()
		writeJSON(w, http.StatusOK, api.AuthResponse{ErrorCode: api.CodeWrongPassword, Message: "Wrong password"})
		return
	}
	acct.failures = 0
	b.lock.Unlock()

	b.writeSession(w, id)
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request, id int64) {
	b.lock.RLock()
	acct, ok := b.accounts[id]
	var fields users.Fields
	if ok {
		fields = acct.fields
	}
	b.lock.RUnlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.AuthResponse{Fields: fields})
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request, id int64) {
	var req api.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	b.lock.Lock()
	acct, ok := b.accounts[id]
	if !ok {
		b.lock.Unlock()
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if req.Username != nil && *req.Username != acct.fields.Username {
		for otherID, other := range b.accounts {
			if otherID != id && other.fields.Username == *req.Username {
				b.lock.Unlock()
				writeJSON(w, http.StatusOK, api.AuthResponse{ErrorCode: api.CodeUsernameExists, Message: "Username already taken"})
				return
			}
		}
	}
	f := &acct.fields
	f.Name = utils.ValueOr(req.Name, f.Name)
	f.Username = utils.ValueOr(req.Username, f.Username)
	f.Mobile = utils.ValueOr(req.Mobile, f.Mobile)
	f.Bio = utils.ValueOr(req.Bio, f.Bio)
	if req.AccountType != nil {
		f.AccountType = string(users.ParseAccountType(*req.AccountType))
	}
	f.BusinessName = utils.ValueOr(req.BusinessName, f.BusinessName)
	f.WebsiteURL = utils.ValueOr(req.WebsiteURL, f.WebsiteURL)
	f.Description = utils.ValueOr(req.Description, f.Description)
	fields := *f
	b.lock.Unlock()

	writeJSON(w, http.StatusOK, api.AuthResponse{Fields: fields})
}

func (b *Backend) writeSession(w http.ResponseWriter, id int64) {
	token, err := b.issueToken(id)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	b.lock.RLock()
	fields := b.accounts[id].fields
	b.lock.RUnlock()

	writeJSON(w, http.StatusOK, api.AuthResponse{Token: token, Fields: fields})
}

func (b *Backend) issueToken(id int64) (string, error) {
	now := b.nowTime()
	claims := jwtlib.MapClaims{
		"sub": strconv.FormatInt(id, 10),
		"iat": now.Unix(),
		"exp": now.Add(b.tokenTTL).Unix(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// requireBearer verifies the token and that it belongs to the {id} in the path.
func (b *Backend) requireBearer(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwtlib.Parse(parts[1], func(*jwtlib.Token) (any, error) { return b.secret, nil },
			jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
			jwtlib.WithTimeFunc(b.nowTime),
		)
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sub, _ := token.Claims.GetSubject()
		if sub != strconv.FormatInt(id, 10) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r, id)
	}
}

func routeOf(path string) string {
	if strings.HasPrefix(path, "/auth/user/") {
		return "/auth/user/{id}"
	}
	return path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
