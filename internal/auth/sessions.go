package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID     = "user_id"
	SessionKeyEmail      = "email"
	SessionKeyCSRFSecret = "csrf_secret"
)

// SessionCookieName is the name of the session-id cookie.
const SessionCookieName = "session"

// MaxSessionAge caps a session regardless of activity. The idle timeout
// (SESSION_LIFETIME) is what normally ends a session.
const MaxSessionAge = 365 * 24 * time.Hour

// NewSQLiteSessionStore returns a store sharing the application's SQLite pool.
func NewSQLiteSessionStore(sqlDB *sql.DB) (scs.Store, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}
	return sqlite3store.New(sqlDB), nil
}

// NewMySQLSessionStore returns a store sharing the application's MySQL pool.
func NewMySQLSessionStore(sqlDB *sql.DB) (scs.Store, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token CHAR(43) PRIMARY KEY,
		data BLOB NOT NULL,
		expiry TIMESTAMP(6) NOT NULL,
		INDEX sessions_expiry_idx (expiry)
	)`)
	if err != nil {
		return nil, err
	}
	return mysqlstore.New(sqlDB), nil
}

// NewRedisSessionStore keeps sessions in Redis, shared between replicas.
func NewRedisSessionStore(client *redis.Client) scs.Store {
	return goredisstore.New(client)
}

// NewMemorySessionStore keeps sessions in process memory. Sessions are lost
// on restart; used for single-instance document-store deployments without
// Redis and in tests.
func NewMemorySessionStore() scs.Store {
	return memstore.New()
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager on top of store.
func NewSessionManager(store scs.Store, cfg config.Auth) *SessionManager {
	sm := scs.New()
	sm.Store = store

	// Sliding window: every request that touches the session extends it by
	// IdleTimeout, up to the absolute Lifetime.
	sm.IdleTimeout = cfg.SessionLifetime
	sm.Lifetime = max(MaxSessionAge, cfg.SessionLifetime)

	// Configure cookie security
	sm.Cookie.Name = SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"
	sm.Cookie.Persist = true

	return &SessionManager{SessionManager: sm}
}

// CreateSession records the user's identity in the current session and
// persists it before returning.
func (sm *SessionManager) CreateSession(ctx context.Context, user *entities.User) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}

	sm.Put(ctx, SessionKeyUserID, user.ID)
	sm.Put(ctx, SessionKeyEmail, user.Email)
	if _, _, err := sm.Commit(ctx); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// GetIdentity returns the identity stored at login, or nil.
func (sm *SessionManager) GetIdentity(ctx context.Context) *Identity {
	userID := sm.GetString(ctx, SessionKeyUserID)
	if userID == "" {
		return nil
	}
	return &Identity{
		UserID: userID,
		Email:  sm.GetString(ctx, SessionKeyEmail),
	}
}

// CSRFSecret returns the session's CSRF secret, or nil if none exists yet.
func (sm *SessionManager) CSRFSecret(ctx context.Context) []byte {
	secret, _ := sm.Get(ctx, SessionKeyCSRFSecret).([]byte)
	return secret
}

// StoreCSRFSecret puts the secret in the session and persists it immediately,
// so the secret survives even if the rest of the request fails.
func (sm *SessionManager) StoreCSRFSecret(ctx context.Context, secret []byte) error {
	sm.Put(ctx, SessionKeyCSRFSecret, secret)
	_, _, err := sm.Commit(ctx)
	return err
}
