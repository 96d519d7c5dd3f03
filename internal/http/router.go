package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/accounts/internal/auth"
	"github.com/mrlokans/accounts/internal/ratelimit"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
//
// Middleware order matters: security headers, rate limiting and CORS gate
// the request before any session state is touched, and the CSRF guard runs
// after the session is loaded but before any handler.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.Production {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// Registered before the remaining middleware so that probes neither
	// consume rate-limit budget nor create sessions.
	health := NewHealthController(cfg.Store, cfg.Version)
	router.GET("/health", health.Status)

	if cfg.RateLimiter != nil {
		router.Use(ratelimit.Middleware(cfg.RateLimiter))
	}

	if cfg.CORSOrigin != "" {
		router.Use(cors.New(corsConfig(cfg.CORSOrigin)))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.CSRFGuard != nil {
		router.Use(cfg.CSRFGuard.Middleware())
	}

	var resolver auth.IdentityResolver
	if cfg.Mechanism != nil {
		resolver = cfg.Mechanism
	}
	router.Use(auth.Middleware(resolver))

	if cfg.AuthService != nil {
		auth.NewAuthController(cfg.AuthService, cfg.Mechanism).RegisterRoutes(router, auth.RequireAuth())
	}

	return router, nil
}

func corsConfig(origin string) cors.Config {
	return cors.Config{
		AllowOrigins: []string{origin},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			auth.CSRFTokenHeader,
			RequestIDHeader,
		},
		ExposeHeaders: []string{
			auth.CSRFTokenHeader,
			RequestIDHeader,
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
