package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/entities"
	"github.com/mrlokans/accounts/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryStore is an in-process CredentialStore.
type memoryStore struct {
	mu      sync.Mutex
	byEmail map[string]*entities.User
	nextID  int

	findErr   error
	createErr error
	// hidden emails are invisible to FindByEmail but still collide on Create,
	// as a concurrent insert would.
	hidden map[string]bool
}

var _ services.CredentialStore = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byEmail: make(map[string]*entities.User),
		hidden:  make(map[string]bool),
	}
}

func (m *memoryStore) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.byEmail[email]
	if !ok || m.hidden[email] {
		return nil, services.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, user := range m.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (m *memoryStore) Create(_ context.Context, user *entities.User) (*entities.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, exists := m.byEmail[user.Email]; exists {
		return nil, services.ErrDuplicateEmail
	}
	m.nextID++
	stored := *user
	stored.ID = strconv.Itoa(m.nextID)
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	m.byEmail[stored.Email] = &stored
	clone := stored
	return &clone, nil
}

func (m *memoryStore) Ping(context.Context) error {
	return nil
}

// hide inserts a user that FindByEmail will not report.
func (m *memoryStore) hide(user *entities.User) {
	m.mu.Lock()
	m.byEmail[user.Email] = user
	m.hidden[user.Email] = true
	m.mu.Unlock()
}

var errStoreDown = errors.New("connection refused")

func testAuthConfig() config.Auth {
	return config.Auth{
		Mode:            config.AuthModeSession,
		JWTSecret:       "test-jwt-secret",
		TokenExpiry:     time.Hour,
		SessionLifetime: 744 * time.Hour,
		BcryptCost:      bcrypt.MinCost,
		SecureCookies:   false,
	}
}

func testCSRFConfig() config.CSRF {
	return config.CSRF{
		CookieName: "_csrf",
		SecretSize: 32,
		Lookup:     config.CSRFLookupHeader,
	}
}

func setupTestService(t *testing.T, store services.CredentialStore, issuer IdentityIssuer) *Service {
	t.Helper()
	svc, err := NewService(store, issuer, testAuthConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// loadedContext returns a context carrying an empty session.
func loadedContext(t *testing.T, sm *SessionManager) context.Context {
	t.Helper()
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	return ctx
}

// browser replays cookies between requests against an in-process handler.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	// csrf is the last token the server handed out.
	csrf string
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	return &browser{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	b.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	if token := rr.Header().Get(CSRFTokenHeader); token != "" {
		b.csrf = token
	}
	return rr
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, "", nil)
}

// post sends body with the last CSRF token the browser saw.
func (b *browser) post(path, body string) *httptest.ResponseRecorder {
	header := http.Header{}
	if b.csrf != "" {
		header.Set(CSRFTokenHeader, b.csrf)
	}
	return b.do(http.MethodPost, path, body, header)
}
