package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/logger"
)

const (
	// CSRFCookieName holds the anti-forgery token issued to the browser.
	CSRFCookieName = "gstore_csrf"
	// CSRFFormField is the hidden form field echoing the token.
	CSRFFormField = "__RequestVerificationToken"
	// CSRFHeader may carry the token instead of the form field.
	CSRFHeader = "X-CSRF-Token"
)

type csrfKey struct{}

// CSRFToken returns the anti-forgery token for the current request.
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

// CSRFOptions configures the anti-forgery middleware.
type CSRFOptions struct {
	Secure       bool
	MaxBodyBytes int64
}

// CSRF enforces a double-submit token on state-changing requests. Safe
// methods receive a token cookie when they lack one; unsafe methods must echo
// the cookie value in the form field or header. Form bodies are parsed here,
// bounded by MaxBodyBytes.
func CSRF(opts CSRFOptions, log *zap.Logger, next http.Handler) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
			token = c.Value
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		default:
			submitted, err := submittedToken(w, r, opts.MaxBodyBytes)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "malformed form", http.StatusBadRequest)
				return
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				logger.For(r.Context(), log).Warn("anti-forgery token rejected",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Bool("cookie_present", token != ""),
				)
				http.Error(w, "invalid anti-forgery token", http.StatusBadRequest)
				return
			}
		}

		if token == "" {
			var err error
			token, err = newCSRFToken()
			if err != nil {
				logger.For(r.Context(), log).Error("generate anti-forgery token", zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteStrictMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
	})
}

func submittedToken(w http.ResponseWriter, r *http.Request, limit int64) (string, error) {
	if h := r.Header.Get(CSRFHeader); h != "" {
		return h, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(limit); err != nil {
			return "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue(CSRFFormField), nil
}

func newCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
