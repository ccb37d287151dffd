package signup_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/api/apifake"
	"github.com/jrsteele09/go-pin-client/appstate"
	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/jrsteele09/go-pin-client/signup"
	fakestoragerepo "github.com/jrsteele09/go-pin-client/storage/repofake"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/stretchr/testify/require"
)

const testPassword = "Passw0rd!"

type fixture struct {
	flow      *signup.Flow
	backend   *apifake.Backend
	store     *session.Store
	container *appstate.Container
	scheduled *manualScheduler
	navigated []string
	navLock   sync.Mutex
}

// manualScheduler captures scheduled functions so tests decide when they run.
type manualScheduler struct {
	lock  sync.Mutex
	delay time.Duration
	fns   []func()
}

func (s *manualScheduler) schedule(d time.Duration, fn func()) func() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.delay = d
	idx := len(s.fns)
	s.fns = append(s.fns, fn)
	return func() bool {
		s.lock.Lock()
		defer s.lock.Unlock()
		stopped := s.fns[idx] != nil
		s.fns[idx] = nil
		return stopped
	}
}

func (s *manualScheduler) runAll() {
	s.lock.Lock()
	fns := append([]func(){}, s.fns...)
	for i := range s.fns {
		s.fns[i] = nil
	}
	s.lock.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func setupFlow(t *testing.T, options ...signup.Option) *fixture {
	t.Helper()
	backend := apifake.New(apifake.WithLockout(2, 5*time.Second))
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	fx := &fixture{
		backend:   backend,
		store:     session.New(fakestoragerepo.NewFakeStorageRepo()),
		container: appstate.New(),
		scheduled: &manualScheduler{},
	}
	options = append([]signup.Option{
		signup.WithScheduler(fx.scheduled.schedule),
		signup.WithLockoutTick(0),
		signup.WithNavigator(func(path string) {
			fx.navLock.Lock()
			defer fx.navLock.Unlock()
			fx.navigated = append(fx.navigated, path)
		}),
	}, options...)
	fx.flow = signup.New(api.New(srv.URL, api.WithHTTPClient(srv.Client())), fx.store, fx.container, options...)
	t.Cleanup(fx.flow.Close)
	return fx
}

func (fx *fixture) navigations() []string {
	fx.navLock.Lock()
	defer fx.navLock.Unlock()
	return append([]string(nil), fx.navigated...)
}

func fillBasicInfo(t *testing.T, flow *signup.Flow, accountType string) {
	t.Helper()
	require.NoError(t, flow.SetFields(map[string]string{
		"email":       "jane@example.com",
		"username":    "jane.doe",
		"accountType": accountType,
	}))
}

func fillProfileSecurity(t *testing.T, flow *signup.Flow) {
	t.Helper()
	require.NoError(t, flow.SetFields(map[string]string{
		"bio":             "I pin things",
		"mobile":          "9876543210",
		"password":        testPassword,
		"confirmPassword": testPassword,
	}))
}

func TestFlow_WizardSteps(t *testing.T) {
	fx := setupFlow(t)
	flow := fx.flow
	ctx := context.Background()

	require.Equal(t, signup.StepBasicInfo, flow.Step())
	require.Equal(t, "USER", flow.Draft().AccountType)
	require.Equal(t, []signup.Step{signup.StepBasicInfo, signup.StepProfileSecurity}, flow.Steps())

	fillBasicInfo(t, flow, "USER")
	res := flow.Submit(ctx)
	require.Equal(t, signup.Advanced, res.Kind)
	require.Equal(t, signup.StepProfileSecurity, flow.Step())

	// BASIC_INFO becomes incomplete while on PROFILE_SECURITY.
	require.NoError(t, flow.SetField("username", ""))
	require.NoError(t, flow.SetField("accountType", "BUSINESS"))
	require.Equal(t, []signup.Step{signup.StepBasicInfo, signup.StepProfileSecurity, signup.StepBusiness}, flow.Steps())
	fillProfileSecurity(t, flow)

	res = flow.Submit(ctx)
	require.Equal(t, signup.Invalid, res.Kind)
	require.NotEqual(t, signup.StepBusiness, flow.Step())
	require.Contains(t, res.FieldErrors, "username")

	fillBasicInfo(t, flow, "BUSINESS")
	res = flow.Submit(ctx)
	require.Equal(t, signup.Advanced, res.Kind)
	require.Equal(t, signup.StepProfileSecurity, flow.Step())

	res = flow.Submit(ctx)
	require.Equal(t, signup.Advanced, res.Kind)
	require.Equal(t, signup.StepBusiness, flow.Step())
	require.Zero(t, fx.backend.Calls("POST "+api.PathRegisterUser))

	t.Run("leaving BUSINESS account type on BUSINESS step", func(t *testing.T) {
		require.NoError(t, flow.SetField("accountType", "USER"))
		require.Equal(t, signup.StepProfileSecurity, flow.Step())
		require.NoError(t, flow.SetField("accountType", "business"))
		require.Equal(t, signup.StepProfileSecurity, flow.Step())
	})

	t.Run("back never passes the first step", func(t *testing.T) {
		require.Equal(t, signup.StepBasicInfo, flow.Back())
		require.Equal(t, signup.StepBasicInfo, flow.Back())
	})
}

func TestFlow_StepValidity(t *testing.T) {
	tests := []struct {
		name   string
		step   signup.Step
		fields map[string]string
		valid  bool
	}{
		{"basic info complete", signup.StepBasicInfo, map[string]string{"email": "a@b.com", "username": "abcd"}, true},
		{"basic info bad email", signup.StepBasicInfo, map[string]string{"email": "a@b.net", "username": "abcd"}, false},
		{"basic info short username", signup.StepBasicInfo, map[string]string{"email": "a@b.com", "username": "abc"}, false},
		{"basic info missing account type", signup.StepBasicInfo, map[string]string{"email": "a@b.com", "username": "abcd", "accountType": ""}, false},
		{"security complete", signup.StepProfileSecurity, map[string]string{"password": testPassword, "confirmPassword": testPassword}, true},
		{"security mismatch", signup.StepProfileSecurity, map[string]string{"password": testPassword, "confirmPassword": "Passw0rd?"}, false},
		{"security weak password", signup.StepProfileSecurity, map[string]string{"password": "password", "confirmPassword": "password"}, false},
		{"security bad mobile", signup.StepProfileSecurity, map[string]string{"password": testPassword, "confirmPassword": testPassword, "mobile": "12345"}, false},
		{"business missing name", signup.StepBusiness, map[string]string{"websiteUrl": "https://x.com"}, false},
		{"business named", signup.StepBusiness, map[string]string{"businessName": "Pins Ltd"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := setupFlow(t)
			require.NoError(t, fx.flow.SetFields(tc.fields))
			require.Equal(t, tc.valid, fx.flow.StepValid(tc.step))
		})
	}
}

func TestFlow_SetFieldsAllOrNothing(t *testing.T) {
	fx := setupFlow(t)
	flow := fx.flow

	for i := 0; i < 20; i++ {
		err := flow.SetFields(map[string]string{
			"email":       "jane@example.com",
			"username":    "jane.doe",
			"accountType": "BUSINESS",
			"bio":         "pins",
			"nickname":    "jd",
		})
		require.ErrorIs(t, err, pinerrors.ErrUnsupported)

		draft := flow.Draft()
		require.Empty(t, draft.Email)
		require.Empty(t, draft.Username)
		require.Empty(t, draft.Bio)
		require.Equal(t, "USER", draft.AccountType)
	}
}

func TestFlow_Register(t *testing.T) {
	fx := setupFlow(t)
	flow := fx.flow
	ctx := context.Background()

	var published []appstate.State
	unsubscribe := fx.container.Subscribe(func(s appstate.State) { published = append(published, s) })
	defer unsubscribe()

	fillBasicInfo(t, flow, "BUSINESS")
	require.Equal(t, signup.Advanced, flow.Submit(ctx).Kind)
	fillProfileSecurity(t, flow)
	require.Equal(t, signup.Advanced, flow.Submit(ctx).Kind)
	require.NoError(t, flow.SetFields(map[string]string{"businessName": "Jane Pins", "websiteUrl": "https://jane.example.com"}))

	res := flow.Submit(ctx)
	require.Equal(t, signup.Registered, res.Kind)
	require.Equal(t, signup.HomePath, res.Redirect)
	require.NotNil(t, res.Profile)
	require.Equal(t, "Jane Pins", res.Profile.Business().Name)

	require.True(t, fx.store.IsAuthenticated())
	stored, ok := fx.store.StoredUser()
	require.True(t, ok)
	require.Equal(t, "jane.doe", stored.Username)
	require.Equal(t, users.AccountBusiness, stored.AccountType())

	snapshot := fx.container.Snapshot()
	require.True(t, snapshot.Authenticated)
	require.True(t, snapshot.IsBusiness())
	require.Len(t, published, 1)

	require.Equal(t, signup.StepBasicInfo, flow.Step())
	require.Empty(t, flow.Draft().Email)

	// Navigation happens only after the redirect delay.
	require.Empty(t, fx.navigations())
	require.Equal(t, 1500*time.Millisecond, fx.scheduled.delay)
	fx.scheduled.runAll()
	require.Equal(t, []string{signup.HomePath}, fx.navigations())
	path, ok := flow.TakeNavigation()
	require.True(t, ok)
	require.Equal(t, signup.HomePath, path)
}

func TestFlow_RegisterConflict(t *testing.T) {
	fx := setupFlow(t)
	_, err := fx.backend.Seed(users.Fields{Email: "jane@example.com", Username: "someone"}, testPassword)
	require.NoError(t, err)
	flow := fx.flow
	ctx := context.Background()

	fillBasicInfo(t, flow, "USER")
	require.Equal(t, signup.Advanced, flow.Submit(ctx).Kind)
	fillProfileSecurity(t, flow)

	res := flow.Submit(ctx)
	require.Equal(t, signup.Rejected, res.Kind)
	require.Equal(t, api.CodeEmailExists, res.Code)
	require.Equal(t, signup.StepBasicInfo, flow.Step())
	require.Equal(t, signup.MessageEmailExists, res.FieldErrors["email"])
	require.Equal(t, signup.MessageEmailExists, flow.Screen().SignupErrors["email"])

	_, ok := fx.store.Token()
	require.False(t, ok)
	require.False(t, fx.store.IsAuthenticated())
	require.False(t, fx.container.Snapshot().Authenticated)

	t.Run("draft values survive the rejection", func(t *testing.T) {
		require.Equal(t, "jane@example.com", flow.Draft().Email)
	})

	t.Run("username conflict", func(t *testing.T) {
		require.NoError(t, flow.SetFields(map[string]string{"email": "new@example.com", "username": "someone"}))
		require.Equal(t, signup.Advanced, flow.Submit(ctx).Kind)
		res := flow.Submit(ctx)
		require.Equal(t, signup.Rejected, res.Kind)
		require.Equal(t, signup.MessageUsernameExists, res.FieldErrors["username"])
		require.Equal(t, signup.StepBasicInfo, flow.Step())
	})
}

func TestFlow_RegisterNetworkFailure(t *testing.T) {
	fx := setupFlow(t)
	flow := fx.flow
	ctx := context.Background()

	fillBasicInfo(t, flow, "USER")
	require.Equal(t, signup.Advanced, flow.Submit(ctx).Kind)
	fillProfileSecurity(t, flow)

	fx.backend.FailNext(500)
	res := flow.Submit(ctx)
	require.Equal(t, signup.Failed, res.Kind)
	require.Equal(t, signup.MessageRegisterFailed, res.Message)
	require.Equal(t, signup.StepProfileSecurity, flow.Step())
	require.False(t, fx.store.IsAuthenticated())
}

func TestFlow_TokenlessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":5,"username":"jane.doe"}`))
	}))
	t.Cleanup(srv.Close)

	store := session.New(fakestoragerepo.NewFakeStorageRepo())
	container := appstate.New()
	var navigated []string
	flow := signup.New(api.New(srv.URL, api.WithHTTPClient(srv.Client())), store, container,
		signup.WithLockoutTick(0),
		signup.WithScheduler(func(time.Duration, func()) func() bool {
			t.Fatal("no redirect expected")
			return nil
		}),
		signup.WithNavigator(func(path string) { navigated = append(navigated, path) }),
	)
	t.Cleanup(flow.Close)
	ctx := context.Background()

	requireSignedOut := func(t *testing.T) {
		t.Helper()
		_, ok := store.Token()
		require.False(t, ok)
		_, ok = store.StoredUser()
		require.False(t, ok)
		require.False(t, store.IsAuthenticated())
		require.False(t, container.Snapshot().Authenticated)
		require.Empty(t, navigated)
	}

	t.Run("Register", func(t *testing.T) {
		fillBasicInfo(t, flow, "USER")
		require.Equal(t, signup.Advanced, flow.Submit(ctx).Kind)
		fillProfileSecurity(t, flow)

		res := flow.Submit(ctx)
		require.Equal(t, signup.Failed, res.Kind)
		require.Equal(t, signup.MessageRegisterFailed, res.Message)
		require.Nil(t, res.Profile)
		require.Equal(t, "jane@example.com", flow.Draft().Email)
		requireSignedOut(t)
	})

	t.Run("Login", func(t *testing.T) {
		res := login(t, flow, "jane@example.com", testPassword)
		require.Equal(t, signup.Failed, res.Kind)
		require.Equal(t, signup.MessageLoginFailed, res.Message)
		requireSignedOut(t)
	})
}

func TestFlow_SwitchMode(t *testing.T) {
	fx := setupFlow(t)
	flow := fx.flow
	ctx := context.Background()
	require.Equal(t, signup.ModeLogin, flow.Mode())

	require.NoError(t, flow.SetLoginField("email", "nope"))
	require.Equal(t, signup.Invalid, flow.SubmitLogin(ctx).Kind)
	require.NotEmpty(t, flow.Screen().LoginErrors)

	flow.SwitchMode(signup.ModeSignup)
	require.NoError(t, flow.SetField("email", "bad"))
	require.Equal(t, signup.Invalid, flow.Submit(ctx).Kind)

	screen := flow.Screen()
	require.Empty(t, screen.LoginErrors)
	require.NotEmpty(t, screen.SignupErrors)
	require.Equal(t, "nope", screen.LoginEmail)

	flow.SwitchMode(signup.ModeLogin)
	screen = flow.Screen()
	require.Empty(t, screen.SignupErrors)
	require.Equal(t, "bad", screen.Draft.Email)
}

func TestFlow_Close(t *testing.T) {
	fx := setupFlow(t)
	flow := fx.flow

	fillBasicInfo(t, flow, "BUSINESS")
	require.Equal(t, signup.Advanced, flow.Submit(context.Background()).Kind)

	flow.Close()
	require.Equal(t, signup.StepBasicInfo, flow.Step())
	require.Empty(t, flow.Draft().Email)
	require.Equal(t, "USER", flow.Draft().AccountType)
}

// blockingBackend holds RegisterUser and LoginUser until release is closed.
type blockingBackend struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingBackend) RegisterUser(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	close(b.started)
	<-b.release
	return nil, context.DeadlineExceeded
}

func (b *blockingBackend) LoginUser(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	close(b.started)
	<-b.release
	return nil, context.DeadlineExceeded
}

func TestFlow_InFlightGuard(t *testing.T) {
	newBlocked := func(t *testing.T) (*signup.Flow, *blockingBackend) {
		backend := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
		flow := signup.New(backend, session.New(fakestoragerepo.NewFakeStorageRepo()), appstate.New(), signup.WithLockoutTick(0))
		t.Cleanup(flow.Close)
		return flow, backend
	}

	t.Run("register", func(t *testing.T) {
		flow, backend := newBlocked(t)
		fillBasicInfo(t, flow, "USER")
		require.Equal(t, signup.Advanced, flow.Submit(context.Background()).Kind)
		fillProfileSecurity(t, flow)

		done := make(chan signup.Result)
		go func() { done <- flow.Submit(context.Background()) }()
		<-backend.started

		require.True(t, flow.Screen().Registering)
		require.Equal(t, signup.Blocked, flow.Submit(context.Background()).Kind)

		close(backend.release)
		require.Equal(t, signup.Failed, (<-done).Kind)
	})

	t.Run("login", func(t *testing.T) {
		flow, backend := newBlocked(t)
		require.NoError(t, flow.SetLoginField("email", "jane@example.com"))
		require.NoError(t, flow.SetLoginField("password", "secret1"))

		done := make(chan signup.Result)
		go func() { done <- flow.SubmitLogin(context.Background()) }()
		<-backend.started

		require.True(t, flow.LoginDisabled())
		require.Equal(t, signup.LabelLoggingIn, flow.LoginLabel())
		require.Equal(t, signup.Blocked, flow.SubmitLogin(context.Background()).Kind)

		close(backend.release)
		res := <-done
		require.Equal(t, signup.Failed, res.Kind)
		require.Equal(t, signup.MessageLoginFailed, res.Message)
	})
}

func TestParseMode(t *testing.T) {
	m, err := signup.ParseMode(" Signup ")
	require.NoError(t, err)
	require.Equal(t, signup.ModeSignup, m)

	_, err = signup.ParseMode("register")
	require.Error(t, err)
}
