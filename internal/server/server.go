package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/auth"
	"github.com/hongminglow/gstore/internal/config"
	"github.com/hongminglow/gstore/internal/http/handlers"
	"github.com/hongminglow/gstore/internal/http/views"
	"github.com/hongminglow/gstore/internal/i18n"
	"github.com/hongminglow/gstore/internal/identity"
	"github.com/hongminglow/gstore/internal/metrics"
	"github.com/hongminglow/gstore/internal/middleware"
	"github.com/hongminglow/gstore/internal/models"
	"github.com/hongminglow/gstore/internal/photos"
	"github.com/hongminglow/gstore/internal/storage"
)

// formOverhead leaves room for the text fields of a multipart form next to the photo.
const formOverhead = 1 << 20

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
	redis *red.Client
	log   *zap.Logger
}

// New wires up middleware, routes, and returns a ready server.
func New(ctx context.Context, cfg config.Config, store storage.UserStore, log *zap.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	opts := identity.DefaultOptions()
	opts.MaxFailedAttempts = cfg.LockoutMaxFailedAttempts
	opts.LockoutDuration = cfg.LockoutDuration
	opts.RequireConfirmedEmail = cfg.RequireConfirmedEmail
	opts.Password.MinLength = cfg.PasswordMinLength
	opts.Password.MinStrength = cfg.PasswordMinStrength
	svc, err := identity.NewService(store, opts)
	if err != nil {
		return nil, err
	}

	renderer, err := views.New()
	if err != nil {
		return nil, err
	}
	catalog, err := i18n.New(cfg.Locale)
	if err != nil {
		return nil, err
	}

	s := &Server{log: log}
	var revoker auth.Revoker = auth.NopRevoker{}
	if cfg.RedisAddr != "" {
		s.redis = red.NewClient(&red.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.redis.Ping(pingCtx).Err(); err != nil {
			_ = s.redis.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		revoker = auth.NewRedisRevoker(s.redis, "")
	} else {
		log.Info("REDIS_ADDR not set; logout clears the cookie without revoking the token")
	}

	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
	sessions := auth.NewSessions(tokens, revoker, auth.SessionOptions{
		Secure:      cfg.CookieSecure,
		SessionTTL:  cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
	})

	mux := http.NewServeMux()

	var sink photos.Sink
	switch cfg.PhotoStorage {
	case "s3":
		sink, err = photos.NewS3Sink(ctx, photos.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			s.closeRedis()
			return nil, err
		}
	default:
		local := photos.NewLocalSink(cfg.WebRoot)
		mux.Handle(photos.PublicDir+"/", local.Handler())
		sink = local
	}

	handlers.NewHealthHandler(time.Now(), store).Register(mux)
	handlers.NewHomeHandler(svc, renderer, log, cfg.CookieSecure).Register(mux)
	handlers.NewAccountHandler(handlers.AccountDeps{
		Credentials:    svc,
		Sessions:       sessions,
		Photos:         sink,
		Views:          renderer,
		Catalog:        catalog,
		Metrics:        m,
		Logger:         log,
		SecureCookies:  cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes + formOverhead,
	}).Register(mux)
	mux.Handle("/metrics", middleware.RequireRole(models.AdminRole, handlers.LoginPath, handlers.AccessDeniedPath, m.Handler()))

	var handler http.Handler = mux
	handler = middleware.Authenticate(sessions, log, handler)
	handler = middleware.CSRF(middleware.CSRFOptions{
		Secure:       cfg.CookieSecure,
		MaxBodyBytes: cfg.MaxUploadBytes + formOverhead,
	}, log, handler)
	handler = middleware.Logging(log, m, mux, handler)

	s.inner = &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(log),
	}
	return s, nil
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server and releases the Redis client.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.inner.Shutdown(ctx)
	s.closeRedis()
	return err
}

func (s *Server) closeRedis() {
	if s.redis == nil {
		return
	}
	if err := s.redis.Close(); err != nil {
		s.log.Warn("close redis client", zap.Error(err))
	}
}
