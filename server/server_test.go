package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/api/apifake"
	"github.com/jrsteele09/go-pin-client/appstate"
	"github.com/jrsteele09/go-pin-client/internal/config"
	"github.com/jrsteele09/go-pin-client/server"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/jrsteele09/go-pin-client/signup"
	fakestoragerepo "github.com/jrsteele09/go-pin-client/storage/repofake"
	"github.com/jrsteele09/go-pin-client/users"
	"github.com/stretchr/testify/require"
)

const testPassword = "Passw0rd!"

// immediate runs scheduled redirects straight away.
func immediate(_ time.Duration, fn func()) func() bool {
	fn()
	return func() bool { return false }
}

type fixture struct {
	server    *server.Server
	backend   *apifake.Backend
	store     *session.Store
	container *appstate.Container
	// offset moves the fake backend's clock forward.
	offset atomic.Int64
	// stallUser holds profile fetches open until the caller gives up.
	stallUser atomic.Bool
	stalled   chan struct{}
	abandoned chan struct{}
}

func setupServer(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		store:     session.New(fakestoragerepo.NewFakeStorageRepo()),
		container: appstate.New(),
		stalled:   make(chan struct{}, 1),
		abandoned: make(chan struct{}, 1),
	}
	fx.backend = apifake.New(
		apifake.WithLockout(2, 10*time.Second),
		apifake.WithNowTime(func() time.Time { return time.Now().Add(time.Duration(fx.offset.Load())) }),
	)
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/auth/user/") && fx.stallUser.Load() {
			fx.stalled <- struct{}{}
			select {
			case <-r.Context().Done():
				fx.abandoned <- struct{}{}
			case <-time.After(5 * time.Second):
			}
			return
		}
		fx.backend.ServeHTTP(w, r)
	}))
	t.Cleanup(backendSrv.Close)

	fx.server = server.New(config.New(), server.Deps{
		API:         api.New(backendSrv.URL, api.WithHTTPClient(backendSrv.Client())),
		Store:       fx.store,
		Container:   fx.container,
		FlowOptions: []signup.Option{signup.WithScheduler(immediate), signup.WithLockoutTick(0)},
	})
	t.Cleanup(fx.server.Close)
	return fx
}

func (fx *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type submitBody struct {
	Result struct {
		Kind        string            `json:"kind"`
		Step        string            `json:"step"`
		Code        string            `json:"code"`
		Redirect    string            `json:"redirect"`
		FieldErrors map[string]string `json:"fieldErrors"`
	} `json:"result"`
	Screen signup.Screen `json:"screen"`
}

func TestServer_EntryScreen(t *testing.T) {
	fx := setupServer(t)

	rec := fx.do(t, http.MethodGet, "/?redirect=/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))

	entry := decode[server.EntryResponse](t, rec)
	require.Equal(t, "Pin Client", entry.AppName)
	require.False(t, entry.Authenticated)
	require.Equal(t, signup.ModeLogin, entry.Screen.Mode)
	require.Equal(t, "/profile", entry.Screen.Origin)
	require.Equal(t, signup.LabelLogin, entry.Screen.LoginLabel)

	t.Run("switch mode", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, server.RouteAuthMode, map[string]string{"mode": "signup"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, signup.ModeSignup, decode[server.EntryResponse](t, rec).Screen.Mode)

		rec = fx.do(t, http.MethodPost, server.RouteAuthMode, map[string]string{"mode": "other"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, server.RouteSignupFields, bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		fx.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, server.RouteSignupFields, map[string]string{"nickname": "x"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_ProtectedRedirects(t *testing.T) {
	fx := setupServer(t)

	for _, path := range []string{server.RouteHome, server.RouteProfile} {
		rec := fx.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/?redirect=%2F"+path[1:], rec.Header().Get("Location"))
	}

	t.Run("htmx requests get HX-Redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, server.RouteHome, nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		fx.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "/?redirect=%2Fhome", rec.Header().Get("HX-Redirect"))
	})
}

func TestServer_SignupJourney(t *testing.T) {
	fx := setupServer(t)

	rec := fx.do(t, http.MethodPost, server.RouteSignupFields, map[string]string{
		"email":       "jane@example.com",
		"username":    "jane",
		"accountType": "USER",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPost, server.RouteSignupSubmit, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[submitBody](t, rec)
	require.Equal(t, "advanced", body.Result.Kind)
	require.Equal(t, string(signup.StepProfileSecurity), body.Result.Step)

	rec = fx.do(t, http.MethodPost, server.RouteSignupSubmit, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decode[submitBody](t, rec).Result.FieldErrors, "password")

	rec = fx.do(t, http.MethodPost, server.RouteSignupBack, nil)
	require.Equal(t, signup.StepBasicInfo, decode[server.EntryResponse](t, rec).Screen.Step)
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, server.RouteSignupSubmit, nil).Code)

	fx.do(t, http.MethodPost, server.RouteSignupFields, map[string]string{
		"password":        testPassword,
		"confirmPassword": testPassword,
	})
	rec = fx.do(t, http.MethodPost, server.RouteSignupSubmit, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[submitBody](t, rec)
	require.Equal(t, "registered", body.Result.Kind)
	require.Empty(t, body.Screen.Draft.Password)

	rec = fx.do(t, http.MethodGet, "/", nil)
	entry := decode[server.EntryResponse](t, rec)
	require.True(t, entry.Authenticated)
	require.Equal(t, "/home", entry.Navigate)

	rec = fx.do(t, http.MethodGet, server.RouteHome, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	home := decode[struct {
		User server.ProfileView `json:"user"`
	}](t, rec)
	require.Equal(t, "jane", home.User.Username)

	t.Run("profile edit", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, server.RouteProfile, map[string]string{"bio": "pins all day"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "pins all day", decode[server.ProfileView](t, rec).Bio)

		rec = fx.do(t, http.MethodPost, server.RouteProfile, map[string]string{"mobile": "123"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = fx.do(t, http.MethodGet, server.RouteProfile, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[server.ProfileView](t, rec)
		require.Equal(t, "pins all day", view.Bio)
		require.Empty(t, view.AvatarURL)
	})

	t.Run("business conversion", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, server.RouteProfileBusiness, map[string]string{"businessName": "Jane Pins"})
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[server.ProfileView](t, rec)
		require.True(t, view.IsBusiness)
		require.Equal(t, "Jane Pins", view.BusinessName)
		require.True(t, fx.container.Snapshot().IsBusiness())
	})

	t.Run("logout", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, server.RouteAuthLogout, nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))
		require.False(t, fx.store.IsAuthenticated())
		require.False(t, fx.container.Snapshot().Authenticated)

		require.Equal(t, http.StatusSeeOther, fx.do(t, http.MethodGet, server.RouteHome, nil).Code)
	})
}

func TestServer_LoginLockout(t *testing.T) {
	fx := setupServer(t)
	_, err := fx.backend.Seed(users.Fields{Email: "jane@example.com", Username: "jane", ProfilePath: "uploads/jane.png"}, testPassword)
	require.NoError(t, err)

	fx.do(t, http.MethodPost, server.RouteLoginFields, map[string]string{"email": "jane@example.com", "password": "Wrong!pass"})
	require.Equal(t, http.StatusConflict, fx.do(t, http.MethodPost, server.RouteLoginSubmit, nil).Code)

	rec := fx.do(t, http.MethodPost, server.RouteLoginSubmit, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[submitBody](t, rec)
	require.Equal(t, api.CodeAccountLocked, body.Result.Code)
	require.Equal(t, 10, body.Screen.LockoutRemaining)
	require.True(t, body.Screen.LoginDisabled)
	require.Equal(t, "Try again in 10s", body.Screen.LoginLabel)

	require.Equal(t, http.StatusTooManyRequests, fx.do(t, http.MethodPost, server.RouteLoginSubmit, nil).Code)

	for fx.server.Flow().Tick() > 0 {
	}
	fx.offset.Store(int64(11 * time.Second))
	fx.do(t, http.MethodPost, server.RouteLoginFields, map[string]string{"password": testPassword})
	rec = fx.do(t, http.MethodPost, server.RouteLoginSubmit, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[submitBody](t, rec)
	require.Equal(t, "logged_in", body.Result.Kind)
	require.Equal(t, signup.HomePath, body.Result.Redirect)

	rec = fx.do(t, http.MethodGet, server.RouteHome, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	home := decode[struct {
		User server.ProfileView `json:"user"`
	}](t, rec)
	require.Contains(t, home.User.AvatarURL, "/uploads/jane.png")
}

func TestServer_HomeRefreshAbortedOnLogout(t *testing.T) {
	fx := setupServer(t)
	_, err := fx.backend.Seed(users.Fields{Email: "jane@example.com", Username: "jane"}, testPassword)
	require.NoError(t, err)

	fx.do(t, http.MethodPost, server.RouteLoginFields, map[string]string{"email": "jane@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, server.RouteLoginSubmit, nil).Code)

	fx.stallUser.Store(true)
	rec := fx.do(t, http.MethodGet, server.RouteHome, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-fx.stalled:
	case <-time.After(2 * time.Second):
		t.Fatal("home screen did not start a profile refresh")
	}

	rec = fx.do(t, http.MethodPost, server.RouteAuthLogout, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	select {
	case <-fx.abandoned:
	case <-time.After(2 * time.Second):
		t.Fatal("logout left the profile refresh running")
	}

	require.False(t, fx.store.IsAuthenticated())
	_, ok := fx.store.StoredUser()
	require.False(t, ok)
	require.False(t, fx.container.Snapshot().Authenticated)
}

func TestServer_Cors(t *testing.T) {
	fx := setupServer(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteLoginSubmit, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
