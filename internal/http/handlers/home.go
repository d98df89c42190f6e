package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/auth"
	"github.com/hongminglow/gstore/internal/http/views"
	"github.com/hongminglow/gstore/internal/logger"
	"github.com/hongminglow/gstore/internal/middleware"
	"github.com/hongminglow/gstore/internal/models"
)

// UserFinder loads the signed-in user's record.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// HomeHandler renders the landing page.
type HomeHandler struct {
	users  UserFinder
	views  *views.Renderer
	log    *zap.Logger
	secure bool
}

// NewHomeHandler builds the landing page handler. secureCookies marks the
// cleared flash cookie Secure, as the account handler does when setting it.
func NewHomeHandler(users UserFinder, v *views.Renderer, log *zap.Logger, secureCookies bool) *HomeHandler {
	return &HomeHandler{users: users, views: v, log: log, secure: secureCookies}
}

// Register wires the handler into a ServeMux. "/" only matches the root path.
func (h *HomeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/{$}", h.handle)
}

func (h *HomeHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := logger.For(r.Context(), h.log)

	page := views.HomePage{Base: views.Base{Title: "Home", CSRFToken: middleware.CSRFToken(r.Context())}}
	page.Flash = takeFlash(w, r, h.secure)
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		page.User = &views.User{Name: p.Name, Email: p.Email}
		if user, err := h.users.FindByID(r.Context(), p.UserID); err == nil {
			page.Photo = user.Photo
		} else {
			log.Warn("load signed-in user", zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
	if err := h.views.Render(w, http.StatusOK, views.Home, page); err != nil {
		log.Error("render page", zap.String("page", views.Home), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
