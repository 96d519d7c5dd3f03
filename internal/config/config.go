package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeJWT     AuthMode = "JWT"     // Signed, stateless bearer tokens
	AuthModeSession AuthMode = "session" // Server-side session keyed by cookie
)

type DBType string

const (
	DBTypeSQLite DBType = "sqlite" // Local development and tests
	DBTypeMySQL  DBType = "mysql"
	DBTypeMongo  DBType = "mongo"
)

type CSRFLookup string

const (
	CSRFLookupHeader CSRFLookup = "header" // X-CSRF-Token header or _csrf form field
	CSRFLookupCookie CSRFLookup = "cookie" // Header or form token, also matched against a signed cookie
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Redis
		Auth
		CSRF
		CORS
		RateLimit
	}

	HTTP struct {
		Port           int32
		Host           string
		TrustedProxies []string // Peers whose X-Forwarded-For is believed; empty trusts none
	}
	Global struct {
		Env                      string
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Type          DBType
		Path          string // SQLite file
		MySQLDSN      string
		MongoURI      string
		MongoDatabase string
	}
	Redis struct {
		URL string // Empty disables Redis-backed sessions and rate limiting
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		JWTSecret       string
		TokenExpiry     time.Duration
		SessionLifetime time.Duration // Sliding idle window
		BcryptCost      int
		SecureCookies   bool // Derived from Env
	}
	CSRF struct {
		CookieName string
		SecretSize int // Bytes of entropy in the per-session secret
		Lookup     CSRFLookup
	}
	CORS struct {
		AllowedOrigin string
	}
	RateLimit struct {
		MaxRequests int
		Window      time.Duration
	}
)

// IsProduction reports whether the service runs with production settings.
func (g Global) IsProduction() bool {
	return g.Env == EnvProduction
}

var (
	ErrUnknownDBType     = errors.New("unknown DB_TYPE")
	ErrUnknownAuthMode   = errors.New("unknown AUTH_MODE")
	ErrMissingJWTSecret  = errors.New("JWT_SECRET is required when AUTH_MODE=JWT")
	ErrCSRFSecretTooWeak = errors.New("CSRF_SECRET_SIZE must be at least 32 bytes")
	ErrUnknownCSRFLookup = errors.New("unknown CSRF_TOKEN_LOOKUP")
	ErrMissingCORSOrigin = errors.New("CORS_ORIGIN is required")
	ErrInvalidRateLimit  = errors.New("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	ErrMissingDSN        = errors.New("database connection string is required")
	ErrInvalidProxy      = errors.New("TRUSTED_PROXIES entries must be IPs or CIDRs")
)

// Validate checks the configuration once at boot. Anything it rejects is a
// deployment defect, so callers are expected to abort startup.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case DBTypeSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: DATABASE_PATH", ErrMissingDSN)
		}
	case DBTypeMySQL:
		if c.Database.MySQLDSN == "" {
			return fmt.Errorf("%w: MYSQL_DSN", ErrMissingDSN)
		}
	case DBTypeMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("%w: MONGO_URI", ErrMissingDSN)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDBType, c.Database.Type)
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return ErrMissingJWTSecret
		}
	case AuthModeSession:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAuthMode, c.Auth.Mode)
	}

	if c.CSRF.SecretSize < MinCSRFSecretSize {
		return ErrCSRFSecretTooWeak
	}
	switch c.CSRF.Lookup {
	case CSRFLookupHeader, CSRFLookupCookie:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCSRFLookup, c.CSRF.Lookup)
	}

	for _, proxy := range c.HTTP.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err == nil {
			continue
		}
		if net.ParseIP(proxy) == nil {
			return fmt.Errorf("%w: %q", ErrInvalidProxy, proxy)
		}
	}

	if c.CORS.AllowedOrigin == "" {
		return ErrMissingCORSOrigin
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// parseAuthMode accepts the documented spellings case-insensitively so that
// AUTH_MODE=jwt and AUTH_MODE=Session both work. Anything else is kept as-is
// and rejected by Validate.
func parseAuthMode(raw string) AuthMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "jwt":
		return AuthModeJWT
	case "session":
		return AuthModeSession
	}
	return AuthMode(raw)
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func NewConfig() *Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("trusted_proxies", "") // Trust no proxy headers
	v.SetDefault("app_env", EnvDevelopment)
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	// Storage defaults
	v.SetDefault("db_type", string(DBTypeSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("mysql_dsn", "")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", DefaultMongoDatabase)
	v.SetDefault("redis_url", "")

	// Auth defaults
	v.SetDefault("auth_mode", string(AuthModeSession))
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiry", "1h")
	v.SetDefault("session_lifetime", "744h") // 31 days
	v.SetDefault("bcrypt_cost", 12)

	// CSRF defaults
	v.SetDefault("csrf_cookie_name", "_csrf")
	v.SetDefault("csrf_secret_size", MinCSRFSecretSize)
	v.SetDefault("csrf_token_lookup", string(CSRFLookupHeader))

	// Transport gates
	v.SetDefault("cors_origin", "http://localhost:3000")
	v.SetDefault("rate_limit_max", 100)
	v.SetDefault("rate_limit_window", "15m")

	env := strings.ToLower(v.GetString("APP_ENV"))

	return &Config{
		HTTP: HTTP{
			Port:           v.GetInt32("PORT"),
			Host:           v.GetString("HOST"),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Global: Global{
			Env:                      env,
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Type:          DBType(strings.ToLower(v.GetString("DB_TYPE"))),
			Path:          v.GetString("DATABASE_PATH"),
			MySQLDSN:      v.GetString("MYSQL_DSN"),
			MongoURI:      v.GetString("MONGO_URI"),
			MongoDatabase: v.GetString("MONGO_DATABASE"),
		},
		Redis: Redis{
			URL: v.GetString("REDIS_URL"),
		},
		Auth: Auth{
			Mode:            parseAuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:   v.GetString("SESSION_SECRET"),
			JWTSecret:       v.GetString("JWT_SECRET"),
			TokenExpiry:     v.GetDuration("JWT_EXPIRY"),
			SessionLifetime: v.GetDuration("SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("BCRYPT_COST"),
			SecureCookies:   env == EnvProduction,
		},
		CSRF: CSRF{
			CookieName: v.GetString("CSRF_COOKIE_NAME"),
			SecretSize: v.GetInt("CSRF_SECRET_SIZE"),
			Lookup:     CSRFLookup(strings.ToLower(v.GetString("CSRF_TOKEN_LOOKUP"))),
		},
		CORS: CORS{
			AllowedOrigin: v.GetString("CORS_ORIGIN"),
		},
		RateLimit: RateLimit{
			MaxRequests: v.GetInt("RATE_LIMIT_MAX"),
			Window:      v.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}
