package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/auth"
	"github.com/hongminglow/gstore/internal/http/respond"
	"github.com/hongminglow/gstore/internal/http/views"
	"github.com/hongminglow/gstore/internal/i18n"
	"github.com/hongminglow/gstore/internal/identity"
	"github.com/hongminglow/gstore/internal/logger"
	"github.com/hongminglow/gstore/internal/metrics"
	"github.com/hongminglow/gstore/internal/middleware"
	"github.com/hongminglow/gstore/internal/models"
	"github.com/hongminglow/gstore/internal/models/dto"
	"github.com/hongminglow/gstore/internal/photos"
	"github.com/hongminglow/gstore/internal/storage"
)

const (
	LoginPath        = "/account/login"
	LogoutPath       = "/account/logout"
	RegisterPath     = "/account/register"
	AccessDeniedPath = "/account/access-denied"

	birthDateLayout = "2006-01-02"
)

// CredentialService is what the account workflow needs from the identity layer.
type CredentialService interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	PasswordSignIn(ctx context.Context, username, password string, lockoutOnFailure bool) (identity.SignInResult, error)
	CreateUser(ctx context.Context, user models.User, password string) (identity.Result, error)
	AddToRole(ctx context.Context, user models.User, role string) error
	UpdatePhoto(ctx context.Context, userID, path string) error
}

// AccountDeps groups the collaborators of AccountHandler.
type AccountDeps struct {
	Credentials    CredentialService
	Sessions       *auth.Sessions
	Photos         photos.Sink
	Views          *views.Renderer
	Catalog        *i18n.Catalog
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	SecureCookies  bool
	MaxUploadBytes int64
}

// AccountHandler owns the login, logout and registration pages.
type AccountHandler struct {
	creds     CredentialService
	sessions  *auth.Sessions
	photos    photos.Sink
	views     *views.Renderer
	catalog   *i18n.Catalog
	metrics   *metrics.Metrics
	log       *zap.Logger
	secure    bool
	maxUpload int64
	now       func() time.Time
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(d AccountDeps) *AccountHandler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 5 << 20
	}
	return &AccountHandler{
		creds:     d.Credentials,
		sessions:  d.Sessions,
		photos:    d.Photos,
		views:     d.Views,
		catalog:   d.Catalog,
		metrics:   d.Metrics,
		log:       d.Logger,
		secure:    d.SecureCookies,
		maxUpload: d.MaxUploadBytes,
		now:       time.Now,
	}
}

// Register attaches account routes to the mux.
func (h *AccountHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(LoginPath, h.handleLogin)
	mux.HandleFunc(LogoutPath, h.handleLogout)
	mux.HandleFunc(RegisterPath, h.handleRegister)
	mux.HandleFunc(AccessDeniedPath, h.handleAccessDenied)
}

func (h *AccountHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.showLogin(w, r)
	case http.MethodPost:
		h.login(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AccountHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.showRegistration(w, r)
	case http.MethodPost:
		h.register(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AccountHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.logout(w, r)
}

func (h *AccountHandler) handleAccessDenied(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.render(w, r, http.StatusForbidden, views.AccessDenied, h.base(r, "Access denied"))
}

func (h *AccountHandler) showLogin(w http.ResponseWriter, r *http.Request) {
	returnURL := r.URL.Query().Get("returnUrl")
	if returnURL == "" {
		returnURL = "/"
	}
	page := views.LoginPage{Base: h.base(r, "Login"), ReturnURL: returnURL}
	page.Flash = takeFlash(w, r, h.secure)
	h.render(w, r, http.StatusOK, views.Login, page)
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.For(ctx, h.log)

	req := dto.LoginRequest{
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
		Remember:  formBool(r.PostFormValue("remember")),
		ReturnURL: r.PostFormValue("returnUrl"),
	}
	page := views.LoginPage{Base: h.base(r, "Login"), Email: req.Email, Remember: req.Remember, ReturnURL: req.ReturnURL}
	if page.ReturnURL == "" {
		page.ReturnURL = "/"
	}

	if fieldErrs := h.catalog.Validate(req); fieldErrs != nil {
		page.Errors = sortedMessages(fieldErrs)
		h.render(w, r, http.StatusUnprocessableEntity, views.Login, page)
		return
	}

	username := req.Email
	if identity.IsValidEmail(req.Email) {
		user, err := h.creds.FindByEmail(ctx, req.Email)
		switch {
		case err == nil:
			username = user.UserName
		case errors.Is(err, storage.ErrNotFound):
		default:
			log.Error("resolve login email", zap.Error(err))
			page.Errors = []string{h.catalog.Message(i18n.Unexpected)}
			h.render(w, r, http.StatusInternalServerError, views.Login, page)
			return
		}
	}

	res, err := h.creds.PasswordSignIn(ctx, username, req.Password, true)
	if err != nil {
		log.Error("password sign-in", zap.Error(err))
		page.Errors = []string{h.catalog.Message(i18n.Unexpected)}
		h.render(w, r, http.StatusInternalServerError, views.Login, page)
		return
	}
	h.metrics.LoginAttempts.WithLabelValues(res.Outcome.String()).Inc()

	switch res.Outcome {
	case identity.Success:
		principal := auth.Principal{
			UserID: res.User.ID,
			Email:  res.User.Email,
			Name:   res.User.Name,
			Roles:  res.Roles,
		}
		if _, err := h.sessions.SignIn(w, principal, req.Remember); err != nil {
			log.Error("issue session", zap.Error(err))
			page.Errors = []string{h.catalog.Message(i18n.Unexpected)}
			h.render(w, r, http.StatusInternalServerError, views.Login, page)
			return
		}
		log.Info("user logged in", zap.String("email", res.User.Email), zap.Bool("remember", req.Remember))
		respond.LocalRedirect(w, r, req.ReturnURL, "/")
		return
	case identity.LockedOut:
		log.Warn("user account locked out", zap.String("username", username))
		page.Errors = []string{h.catalog.Message(i18n.LoginLockedOut)}
	case identity.NotAllowed:
		log.Warn("user account not confirmed", zap.String("username", username))
		page.Errors = []string{h.catalog.Message(i18n.LoginNotAllowed)}
	default:
		log.Info("invalid login attempt", zap.String("username", username))
		page.Errors = []string{h.catalog.Message(i18n.LoginInvalid)}
	}
	h.render(w, r, http.StatusOK, views.Login, page)
}

func (h *AccountHandler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.For(ctx, h.log)

	p, signedIn := auth.PrincipalFromContext(ctx)
	if err := h.sessions.SignOut(ctx, w); err != nil {
		// the cookie is already cleared; a lingering token only lives until it expires
		log.Error("revoke session on logout", zap.Error(err))
	}
	if signedIn {
		h.metrics.Logouts.Inc()
		log.Info("user logged out", zap.String("email", p.Email))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AccountHandler) showRegistration(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.Register, views.RegisterPage{Base: h.base(r, "Register")})
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.For(ctx, h.log)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	req, fieldErrs := h.registrationRequest(r)
	if req.Photo != nil {
		defer req.Photo.File.Close()
	}
	page := views.RegisterPage{
		Base:      h.base(r, "Register"),
		Name:      req.Name,
		BirthDate: r.PostFormValue("birthDate"),
		Email:     req.Email,
	}

	for field, msg := range h.catalog.Validate(req) {
		if _, seen := fieldErrs[field]; !seen {
			fieldErrs[field] = msg
		}
	}
	if len(fieldErrs) > 0 {
		page.FieldErrors = fieldErrs
		h.metrics.Registrations.WithLabelValues("invalid").Inc()
		h.render(w, r, http.StatusUnprocessableEntity, views.Register, page)
		return
	}

	user := models.User{
		UserName:       req.Email,
		Email:          req.Email,
		EmailConfirmed: true,
		Name:           req.Name,
		BirthDate:      req.BirthDate,
	}
	res, err := h.creds.CreateUser(ctx, user, req.Password)
	if err != nil {
		log.Error("create user", zap.Error(err))
		h.metrics.Registrations.WithLabelValues("error").Inc()
		page.Errors = []string{h.catalog.Message(i18n.Unexpected)}
		h.render(w, r, http.StatusInternalServerError, views.Register, page)
		return
	}
	if !res.Succeeded() {
		for _, e := range res.Errors {
			page.Errors = append(page.Errors, h.catalog.Message(e.Code))
		}
		log.Info("registration refused", zap.Strings("codes", res.Codes()))
		h.metrics.Registrations.WithLabelValues("refused").Inc()
		h.render(w, r, http.StatusUnprocessableEntity, views.Register, page)
		return
	}

	created := res.User
	result := "created"
	if err := h.creds.AddToRole(ctx, created, models.CustomerRole); err != nil {
		log.Error("assign customer role", zap.String("user_id", created.ID), zap.Error(err))
		result = "role_failed"
	}
	log.Info("user created a new account with password", zap.String("user_id", created.ID), zap.String("email", created.Email))
	h.metrics.Registrations.WithLabelValues(result).Inc()

	flash := h.catalog.Message(i18n.RegisterSuccess)
	if req.Photo != nil {
		if err := h.savePhoto(ctx, created, req.Photo); err != nil {
			log.Error("store profile photo", zap.String("user_id", created.ID), zap.Error(err))
			h.metrics.PhotoUploads.WithLabelValues("failed").Inc()
			flash = h.catalog.Message(i18n.RegisterPhotoFailed)
		} else {
			h.metrics.PhotoUploads.WithLabelValues("stored").Inc()
		}
	}

	setFlash(w, flash, h.secure)
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// registrationRequest reads the form. Values that cannot be parsed are
// reported in the returned map, keyed by form field.
func (h *AccountHandler) registrationRequest(r *http.Request) (dto.RegistrationRequest, map[string]string) {
	fieldErrs := make(map[string]string)
	req := dto.RegistrationRequest{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}

	if raw := strings.TrimSpace(r.PostFormValue("birthDate")); raw != "" {
		birth, err := time.Parse(birthDateLayout, raw)
		if err != nil || birth.After(h.now()) {
			fieldErrs["birthDate"] = h.catalog.Message(i18n.InvalidBirthDate)
		} else {
			req.BirthDate = birth
		}
	}

	file, header, err := r.FormFile("photo")
	switch {
	case err == nil && header.Size > 0:
		if cerr := photos.Check(file, header.Filename); cerr != nil {
			logger.For(r.Context(), h.log).Warn("photo refused", zap.String("file_name", header.Filename), zap.Error(cerr))
			file.Close()
			fieldErrs["photo"] = h.catalog.Message(i18n.InvalidPhoto)
			break
		}
		req.Photo = &dto.Upload{File: file, FileName: header.Filename, Size: header.Size}
	case err == nil:
		file.Close()
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		fieldErrs["photo"] = h.catalog.Message(i18n.InvalidPhoto)
	}
	return req, fieldErrs
}

func (h *AccountHandler) savePhoto(ctx context.Context, user models.User, upload *dto.Upload) error {
	path, err := h.photos.Save(ctx, photos.FileName(user.ID, upload.FileName), upload.File)
	if err != nil {
		return err
	}
	return h.creds.UpdatePhoto(ctx, user.ID, path)
}

func (h *AccountHandler) base(r *http.Request, title string) views.Base {
	b := views.Base{Title: title, CSRFToken: middleware.CSRFToken(r.Context())}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		b.User = &views.User{Name: p.Name, Email: p.Email}
	}
	return b
}

func (h *AccountHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := h.views.Render(w, status, page, data); err != nil {
		logger.For(r.Context(), h.log).Error("render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func sortedMessages(fieldErrs map[string]string) []string {
	keys := make([]string, 0, len(fieldErrs))
	for k := range fieldErrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fieldErrs[k])
	}
	return out
}

// formBool reads a checkbox value. Browsers submit "on" for a checked box
// that has no value attribute.
func formBool(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
