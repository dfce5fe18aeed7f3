package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/server/auth"
	"github.com/dmitrijs2005/taskboard/internal/server/models"
	"github.com/dmitrijs2005/taskboard/internal/server/services"
)

type fakeSessions struct {
	registerErr error
	loginErr    error
	refreshErr  error
	changeErr   error
	logoutErr   error

	pair *services.TokenPair

	gotRefresh   string
	gotLogoutRT  string
	gotLogoutAT  string
	gotChangeUID string
}

func (f *fakeSessions) Register(_ context.Context, email, password string) (*services.TokenPair, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.pair, nil
}

func (f *fakeSessions) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.pair, nil
}

func (f *fakeSessions) Refresh(_ context.Context, refreshToken string) (*services.TokenPair, error) {
	f.gotRefresh = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.pair, nil
}

func (f *fakeSessions) ChangePassword(_ context.Context, userID, current, newPw string) error {
	f.gotChangeUID = userID
	return f.changeErr
}

func (f *fakeSessions) Logout(_ context.Context, refreshToken, accessToken string) error {
	f.gotLogoutRT = refreshToken
	f.gotLogoutAT = accessToken
	return f.logoutErr
}

type serverFixture struct {
	sessions *fakeSessions
	issuer   *auth.TokenIssuer
	handler  http.Handler
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	sessions := &fakeSessions{
		pair: &services.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"},
	}
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Minute)
	principals := &fakePrincipals{users: map[string]models.User{
		"user@example.com": {ID: "u1", Email: "user@example.com"},
	}}

	srv := NewServer(":0", nopLogger{}, sessions, principals, issuer,
		newFakeRevocation(), 7*24*time.Hour)

	return &serverFixture{sessions: sessions, issuer: issuer, handler: srv.Handler()}
}

func (f *serverFixture) postJSON(path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	return f.doJSON(http.MethodPost, path, body, mutate...)
}

func (f *serverFixture) doJSON(method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func refreshCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", refreshCookieName)
	return nil
}

func TestHandleRegister_SetsTokenAndCookie(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postJSON("/auth/register", map[string]string{
		"email": "user@example.com", "password": "pw12345",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "access-token", resp.AccessToken)

	c := refreshCookieFrom(t, rec)
	assert.Equal(t, "refresh-token", c.Value)
	assert.Equal(t, "/auth", c.Path)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	f := newServerFixture(t)
	f.sessions.registerErr = common.ErrorEmailInUse

	rec := f.postJSON("/auth/register", map[string]string{
		"email": "user@example.com", "password": "pw12345",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRegister_MissingFields(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postJSON("/auth/register", map[string]string{"email": "user@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	f := newServerFixture(t)
	f.sessions.loginErr = common.ErrorInvalidCredentials

	rec := f.postJSON("/auth/login", map[string]string{
		"email": "user@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp messageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid credentials", resp.Message)
}

func TestHandleRefresh_RotatesCookie(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postJSON("/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "old-refresh"})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old-refresh", f.sessions.gotRefresh)

	c := refreshCookieFrom(t, rec)
	assert.Equal(t, "refresh-token", c.Value)
}

func TestHandleRefresh_MissingCookie(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postJSON("/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.sessions.gotRefresh)
}

func TestHandleRefresh_InvalidToken(t *testing.T) {
	f := newServerFixture(t)
	f.sessions.refreshErr = common.ErrRefreshTokenInvalid

	rec := f.postJSON("/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "stale"})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogout_ClearsCookieAndForwardsTokens(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postJSON("/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "rt-value"})
		r.Header.Set("Authorization", "Bearer at-value")
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rt-value", f.sessions.gotLogoutRT)
	assert.Equal(t, "at-value", f.sessions.gotLogoutAT)

	c := refreshCookieFrom(t, rec)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}

func TestHandleLogout_NoCredentialsStillSucceeds(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postJSON("/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.sessions.gotLogoutRT)
	assert.Empty(t, f.sessions.gotLogoutAT)
}

func TestHandleChangePassword_RequiresAuthentication(t *testing.T) {
	f := newServerFixture(t)

	rec := f.doJSON(http.MethodPut, "/auth/change-password", map[string]string{
		"currentPassword": "old", "newPassword": "new",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleChangePassword_Authenticated(t *testing.T) {
	f := newServerFixture(t)

	token, err := f.issuer.Issue("user@example.com")
	require.NoError(t, err)

	rec := f.doJSON(http.MethodPut, "/auth/change-password", map[string]string{
		"currentPassword": "old", "newPassword": "new",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", f.sessions.gotChangeUID)
}

func TestHandleChangePassword_WrongCurrentPassword(t *testing.T) {
	f := newServerFixture(t)
	f.sessions.changeErr = common.ErrorInvalidCredentials

	token, err := f.issuer.Issue("user@example.com")
	require.NoError(t, err)

	rec := f.doJSON(http.MethodPut, "/auth/change-password", map[string]string{
		"currentPassword": "wrong", "newPassword": "new",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	f := newServerFixture(t)

	rec := f.doJSON(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
