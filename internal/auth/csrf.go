package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"

	"github.com/mrlokans/accounts/internal/apperror"
	"github.com/mrlokans/accounts/internal/config"
)

// CSRFTokenHeader carries the proof token on requests and responses.
const CSRFTokenHeader = "X-CSRF-Token"

// CSRFFormField is accepted in place of the header for form posts.
const CSRFFormField = "_csrf"

// ContextKeyCSRFToken holds the token derived for the current response.
const ContextKeyCSRFToken = "csrf_token"

const csrfSaltSize = 16

var (
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	ErrCSRFTokenInvalid = errors.New("csrf token invalid")
)

var b64 = base64.RawURLEncoding

// CSRFGuard protects unsafe methods with a proof derived from a per-session
// secret. The secret never leaves the server; clients only see
// salt.HMAC(secret, salt) tokens, a fresh one on every response.
type CSRFGuard struct {
	sessions *SessionManager
	cookies  *securecookie.SecureCookie
	cfg      config.CSRF
	secure   bool
}

// NewCSRFGuard creates the guard. signingKey signs the CSRF cookie that the
// cookie lookup policy binds each echoed token to.
func NewCSRFGuard(sessions *SessionManager, cfg config.CSRF, signingKey []byte, secureCookies bool) *CSRFGuard {
	cookies := securecookie.New(signingKey, nil)
	cookies.MaxAge(int(sessions.Lifetime.Seconds()))
	return &CSRFGuard{
		sessions: sessions,
		cookies:  cookies,
		cfg:      cfg,
		secure:   secureCookies,
	}
}

// Middleware bootstraps the session secret, verifies unsafe requests and
// exposes a fresh token for the next call. It must run after
// SessionLoadSave.
func (g *CSRFGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		secret := g.sessions.CSRFSecret(ctx)
		if len(secret) == 0 {
			fresh, err := GenerateSecret(g.cfg.SecretSize)
			if err != nil {
				respondError(c, apperror.NewInternal(fmt.Errorf("generating csrf secret: %w", err)))
				return
			}
			if err := g.sessions.StoreCSRFSecret(ctx, fresh); err != nil {
				respondError(c, apperror.NewInternal(fmt.Errorf("persisting csrf secret: %w", err)))
				return
			}
			secret = fresh
		}

		if !isSafeMethod(c.Request.Method) {
			if err := g.verify(c, secret); err != nil {
				respondError(c, apperror.NewCSRF("invalid csrf token"))
				return
			}
		}

		token, err := DeriveCSRFToken(secret)
		if err != nil {
			respondError(c, apperror.NewInternal(fmt.Errorf("deriving csrf token: %w", err)))
			return
		}
		c.Set(ContextKeyCSRFToken, token)
		c.Header(CSRFTokenHeader, token)
		if g.cfg.Lookup == config.CSRFLookupCookie {
			if err := g.writeCookie(c, token); err != nil {
				respondError(c, apperror.NewInternal(err))
				return
			}
		}

		c.Next()
	}
}

// verify checks the token the client echoed back. Under the cookie policy
// the echoed token must also match the signed cookie, so the cookie alone,
// which the browser attaches by itself, is never enough.
func (g *CSRFGuard) verify(c *gin.Context, secret []byte) error {
	supplied := c.GetHeader(CSRFTokenHeader)
	if supplied == "" {
		supplied = c.PostForm(CSRFFormField)
	}
	if err := VerifyCSRFToken(secret, supplied); err != nil {
		return err
	}
	if g.cfg.Lookup != config.CSRFLookupCookie {
		return nil
	}

	cookie, err := c.Request.Cookie(g.cfg.CookieName)
	if err != nil {
		return ErrCSRFTokenMissing
	}
	var bound string
	if err := g.cookies.Decode(g.cfg.CookieName, cookie.Value, &bound); err != nil {
		return ErrCSRFTokenInvalid
	}
	if !hmac.Equal([]byte(bound), []byte(supplied)) {
		return ErrCSRFTokenInvalid
	}
	return nil
}

func (g *CSRFGuard) writeCookie(c *gin.Context, token string) error {
	encoded, err := g.cookies.Encode(g.cfg.CookieName, token)
	if err != nil {
		return fmt.Errorf("encoding csrf cookie: %w", err)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// DeriveCSRFToken returns a new salted proof bound to secret.
func DeriveCSRFToken(secret []byte) (string, error) {
	salt := make([]byte, csrfSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return b64.EncodeToString(salt) + "." + b64.EncodeToString(csrfMAC(secret, salt)), nil
}

// VerifyCSRFToken checks that token was derived from secret.
func VerifyCSRFToken(secret []byte, token string) error {
	if token == "" {
		return ErrCSRFTokenMissing
	}
	saltPart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return ErrCSRFTokenInvalid
	}
	salt, err := b64.DecodeString(saltPart)
	if err != nil || len(salt) != csrfSaltSize {
		return ErrCSRFTokenInvalid
	}
	mac, err := b64.DecodeString(macPart)
	if err != nil {
		return ErrCSRFTokenInvalid
	}
	if !hmac.Equal(mac, csrfMAC(secret, salt)) {
		return ErrCSRFTokenInvalid
	}
	return nil
}

func csrfMAC(secret, salt []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(salt)
	return h.Sum(nil)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// GetCSRFToken retrieves the token derived for this response.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(ContextKeyCSRFToken); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
