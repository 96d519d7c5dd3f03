package auth

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// ContextKeyIdentity holds the *Identity resolved for the request.
const ContextKeyIdentity = "auth_identity"

// Middleware resolves the caller's identity and stores it in the Gin context.
// It never rejects a request; RequireAuth does that for protected routes.
func Middleware(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolver == nil {
			c.Next()
			return
		}

		identity, err := resolver.Resolve(c.Request)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "rejected credential", "error", err)
		}
		if identity != nil {
			c.Set(ContextKeyIdentity, identity)
		}
		c.Next()
	}
}

// RequireAuth returns a middleware that rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			respondError(c, ErrAuthRequired)
			return
		}
		c.Next()
	}
}

// GetIdentity retrieves the authenticated caller, or nil.
func GetIdentity(c *gin.Context) *Identity {
	if v, exists := c.Get(ContextKeyIdentity); exists {
		if identity, ok := v.(*Identity); ok {
			return identity
		}
	}
	return nil
}

// IsAuthenticated returns true if the request carries an identity.
func IsAuthenticated(c *gin.Context) bool {
	return GetIdentity(c) != nil
}
