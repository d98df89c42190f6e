package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	Locale      string
	WebRoot     string

	SessionSecret string
	SessionIssuer string
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	CookieSecure  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LockoutMaxFailedAttempts int
	LockoutDuration          time.Duration
	RequireConfirmedEmail    bool
	PasswordMinLength        int
	PasswordMinStrength      int

	PhotoStorage   string
	MaxUploadBytes int64
	S3             S3Config
}

// S3Config locates the bucket used when PhotoStorage is "s3".
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Env:         fallback(os.Getenv("APP_ENV"), "development"),
		Port:        fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Locale:      fallback(os.Getenv("APP_LOCALE"), "en"),
		WebRoot:     fallback(os.Getenv("WEB_ROOT"), "./wwwroot"),

		SessionSecret: strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		SessionIssuer: fallback(os.Getenv("SESSION_ISSUER"), "gstore"),
		SessionTTL:    minutes(os.Getenv("SESSION_TTL_MINUTES"), 60),
		RememberTTL:   time.Duration(positiveInt(os.Getenv("REMEMBER_TTL_HOURS"), 24*14)) * time.Hour,
		CookieSecure:  boolean(os.Getenv("COOKIE_SECURE"), false),

		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       positiveInt(os.Getenv("REDIS_DB"), 0),

		LockoutMaxFailedAttempts: positiveInt(os.Getenv("LOCKOUT_MAX_FAILED_ATTEMPTS"), 5),
		LockoutDuration:          minutes(os.Getenv("LOCKOUT_MINUTES"), 5),
		RequireConfirmedEmail:    boolean(os.Getenv("REQUIRE_CONFIRMED_EMAIL"), true),
		PasswordMinLength:        positiveInt(os.Getenv("PASSWORD_MIN_LENGTH"), 6),
		PasswordMinStrength:      positiveInt(os.Getenv("PASSWORD_MIN_STRENGTH"), 0),

		PhotoStorage:   strings.ToLower(fallback(os.Getenv("PHOTO_STORAGE"), "local")),
		MaxUploadBytes: int64(positiveInt(os.Getenv("MAX_UPLOAD_MB"), 5)) << 20,
		S3: S3Config{
			Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:    fallback(os.Getenv("S3_REGION"), "us-east-1"),
			Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
			Prefix:    strings.TrimSpace(os.Getenv("S3_PREFIX")),
		},
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET is required")
	}
	if cfg.PasswordMinStrength > 4 {
		return Config{}, fmt.Errorf("PASSWORD_MIN_STRENGTH must be between 0 and 4, got %d", cfg.PasswordMinStrength)
	}
	switch cfg.PhotoStorage {
	case "local":
	case "s3":
		if cfg.S3.Bucket == "" {
			return Config{}, errors.New("S3_BUCKET is required when PHOTO_STORAGE=s3")
		}
	default:
		return Config{}, fmt.Errorf("unknown PHOTO_STORAGE %q", cfg.PhotoStorage)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func minutes(value string, def int) time.Duration {
	n := positiveInt(value, def)
	if n == 0 {
		n = def
	}
	return time.Duration(n) * time.Minute
}

func boolean(value string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}
