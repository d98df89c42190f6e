package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, "ok", map[string]string{"status": "up"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "ok", env.Message)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusMethodNotAllowed, "method not allowed")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"code":405,"message":"method not allowed"}`, rec.Body.String())
}

func TestIsLocalURL(t *testing.T) {
	tests := map[string]bool{
		"":                     false,
		"/":                    true,
		"/orders?id=1":         true,
		"/account/login#top":   true,
		"//evil.example":       false,
		"/\\evil.example":      false,
		"https://evil.example": false,
		"orders":               false,
		"/a\r\nLocation: x":    false,
	}
	for target, want := range tests {
		assert.Equal(t, want, IsLocalURL(target), "target %q", target)
	}
}

func TestLocalRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	LocalRedirect(rec, httptest.NewRequest(http.MethodPost, "/account/login", nil), "https://evil.example", "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	LocalRedirect(rec, httptest.NewRequest(http.MethodPost, "/account/login", nil), "/orders", "/")
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
}
