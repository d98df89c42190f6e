package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	client, _ := newTestRedis(t)
	tm := NewTokenManager("secret", "gstore", time.Hour)
	return NewSessions(tm, NewRedisRevoker(client, ""), SessionOptions{RememberTTL: 24 * time.Hour})
}

func requestWith(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestSessions_SignInAuthenticateSignOut(t *testing.T) {
	s := newTestSessions(t)

	rec := httptest.NewRecorder()
	issued, err := s.SignIn(rec, Principal{UserID: "u1", Email: "ana@example.com"}, false)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Zero(t, cookies[0].MaxAge, "session cookie must not be persistent")

	p, ok, err := s.Authenticate(requestWith(cookies[0]))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, issued.SessionID, p.SessionID)

	out := httptest.NewRecorder()
	require.NoError(t, s.SignOut(WithPrincipal(context.Background(), p), out))
	cleared := out.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)

	_, ok, err = s.Authenticate(requestWith(cookies[0]))
	require.NoError(t, err)
	assert.False(t, ok, "revoked session must not authenticate")
}

func TestSessions_RememberSetsPersistentCookie(t *testing.T) {
	s := newTestSessions(t)

	rec := httptest.NewRecorder()
	_, err := s.SignIn(rec, Principal{UserID: "u1"}, true)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookies[0].MaxAge)
}

func TestSessions_SignOutWithoutSessionIsNoop(t *testing.T) {
	s := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, s.SignOut(context.Background(), rec))
	require.NoError(t, s.SignOut(context.Background(), rec))
}

func TestSessions_AuthenticateIgnoresBadCookies(t *testing.T) {
	s := newTestSessions(t)

	_, ok, err := s.Authenticate(requestWith())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Authenticate(requestWith(&http.Cookie{Name: DefaultCookieName, Value: "tampered"}))
	require.NoError(t, err)
	assert.False(t, ok)
}
