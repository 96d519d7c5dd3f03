package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database:  Database{Type: DBTypeSQLite, Path: ":memory:"},
		Auth:      Auth{Mode: AuthModeSession},
		CSRF:      CSRF{CookieName: "_csrf", SecretSize: 32, Lookup: CSRFLookupHeader},
		CORS:      CORS{AllowedOrigin: "http://localhost:3000"},
		RateLimit: RateLimit{MaxRequests: 100, Window: 15 * time.Minute},
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, DBTypeSQLite, cfg.Database.Type)
	assert.Equal(t, AuthModeSession, cfg.Auth.Mode)
	assert.Equal(t, time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, 31*24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, "_csrf", cfg.CSRF.CookieName)
	assert.Equal(t, 32, cfg.CSRF.SecretSize)
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.Auth.SecureCookies)
	assert.Empty(t, cfg.HTTP.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_TYPE", "MySQL")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/accounts")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "signing-key")
	t.Setenv("CSRF_COOKIE_NAME", "xsrf")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1,")

	cfg := NewConfig()

	assert.True(t, cfg.Global.IsProduction())
	assert.True(t, cfg.Auth.SecureCookies)
	assert.Equal(t, DBTypeMySQL, cfg.Database.Type)
	assert.Equal(t, AuthModeJWT, cfg.Auth.Mode)
	assert.Equal(t, "xsrf", cfg.CSRF.CookieName)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.HTTP.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"unknown db type", func(c *Config) { c.Database.Type = "postgres" }, ErrUnknownDBType},
		{"mysql without dsn", func(c *Config) { c.Database.Type = DBTypeMySQL }, ErrMissingDSN},
		{"mongo without uri", func(c *Config) { c.Database.Type = DBTypeMongo }, ErrMissingDSN},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "oauth" }, ErrUnknownAuthMode},
		{"jwt without secret", func(c *Config) { c.Auth.Mode = AuthModeJWT }, ErrMissingJWTSecret},
		{"weak csrf secret", func(c *Config) { c.CSRF.SecretSize = 16 }, ErrCSRFSecretTooWeak},
		{"unknown csrf lookup", func(c *Config) { c.CSRF.Lookup = "query" }, ErrUnknownCSRFLookup},
		{"missing cors origin", func(c *Config) { c.CORS.AllowedOrigin = "" }, ErrMissingCORSOrigin},
		{"zero rate limit", func(c *Config) { c.RateLimit.MaxRequests = 0 }, ErrInvalidRateLimit},
		{"proxy cidr and ip", func(c *Config) { c.HTTP.TrustedProxies = []string{"10.0.0.0/8", "127.0.0.1", "::1"} }, nil},
		{"bad proxy", func(c *Config) { c.HTTP.TrustedProxies = []string{"proxy.internal"} }, ErrInvalidProxy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseAuthMode(t *testing.T) {
	assert.Equal(t, AuthModeJWT, parseAuthMode("JWT"))
	assert.Equal(t, AuthModeJWT, parseAuthMode(" jwt "))
	assert.Equal(t, AuthModeSession, parseAuthMode("Session"))
	assert.Equal(t, AuthMode("basic"), parseAuthMode("basic"))
}
