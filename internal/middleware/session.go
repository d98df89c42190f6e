package middleware

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/auth"
	"github.com/hongminglow/gstore/internal/logger"
)

// Authenticate resolves the session cookie and stores the principal on the
// request context. Requests without a valid session pass through anonymously.
func Authenticate(sessions *auth.Sessions, log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok, err := sessions.Authenticate(r)
		if err != nil {
			logger.For(r.Context(), log).Warn("session lookup failed; treating request as anonymous", zap.Error(err))
		}
		if ok {
			r = r.WithContext(auth.WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole redirects anonymous callers to the login page and callers
// lacking role to the access-denied page.
func RequireRole(role, loginPath, deniedPath string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, loginPath+"?returnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		if role != "" && !p.InRole(role) {
			http.Redirect(w, r, deniedPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
