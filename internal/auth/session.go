package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const DefaultCookieName = "gstore_session"

// SessionOptions controls the session cookie.
type SessionOptions struct {
	CookieName  string
	Secure      bool
	SessionTTL  time.Duration
	RememberTTL time.Duration
}

// Sessions signs principals in and out through a signed cookie.
type Sessions struct {
	tokens  *TokenManager
	revoker Revoker
	opts    SessionOptions
	now     func() time.Time
}

// NewSessions wires the cookie session layer. A nil revoker disables revocation.
func NewSessions(tokens *TokenManager, revoker Revoker, opts SessionOptions) *Sessions {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = tokens.ttl
	}
	if opts.RememberTTL <= 0 {
		opts.RememberTTL = opts.SessionTTL
	}
	return &Sessions{tokens: tokens, revoker: revoker, opts: opts, now: time.Now}
}

// SignIn issues a session cookie for p. When remember is set the cookie
// survives browser restarts; otherwise it is a browser-session cookie.
func (s *Sessions) SignIn(w http.ResponseWriter, p Principal, remember bool) (Principal, error) {
	ttl := s.opts.SessionTTL
	if remember {
		ttl = s.opts.RememberTTL
	}
	token, issued, err := s.tokens.Issue(p, ttl)
	if err != nil {
		return Principal{}, err
	}

	cookie := s.cookie(token)
	if remember {
		cookie.Expires = issued.ExpiresAt
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return issued, nil
}

// SignOut revokes the session carried by ctx, if any, and clears the cookie.
// Signing out without a session is not an error.
func (s *Sessions) SignOut(ctx context.Context, w http.ResponseWriter) error {
	cookie := s.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)

	p, ok := PrincipalFromContext(ctx)
	if !ok || p.SessionID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, p.SessionID, p.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Authenticate resolves the principal from the request cookie. A missing,
// invalid or revoked token yields ok=false; err is set only for lookup failures.
func (s *Sessions) Authenticate(r *http.Request) (p Principal, ok bool, err error) {
	cookie, err := r.Cookie(s.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return Principal{}, false, nil
	}
	p, err = s.tokens.Parse(cookie.Value)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return Principal{}, false, nil
		}
		return Principal{}, false, err
	}
	revoked, err := s.revoker.IsRevoked(r.Context(), p.SessionID)
	if err != nil {
		return Principal{}, false, err
	}
	if revoked {
		return Principal{}, false, nil
	}
	return p, true, nil
}

func (s *Sessions) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
