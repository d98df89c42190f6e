package handlers

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/http/views"
	"github.com/hongminglow/gstore/internal/storage/memstore"
)

func TestHome_FlashCookieFollowsSecureSetting(t *testing.T) {
	renderer, err := views.New()
	require.NoError(t, err)

	for _, secure := range []bool{true, false} {
		mux := http.NewServeMux()
		NewHomeHandler(memstore.New(), renderer, zap.NewNop(), secure).Register(mux)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: flashCookieName, Value: base64.RawURLEncoding.EncodeToString([]byte("Signed up."))})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Signed up.")
		cleared := cookieNamed(rec, flashCookieName)
		require.NotNil(t, cleared)
		assert.Equal(t, -1, cleared.MaxAge)
		assert.Equal(t, secure, cleared.Secure, "secure=%v", secure)
	}
}

func TestHome_RejectsPost(t *testing.T) {
	renderer, err := views.New()
	require.NoError(t, err)
	mux := http.NewServeMux()
	NewHomeHandler(memstore.New(), renderer, zap.NewNop(), false).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
