package http

import (
	"github.com/mrlokans/accounts/internal/auth"
	"github.com/mrlokans/accounts/internal/ratelimit"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Authentication
	AuthService    *auth.Service
	Mechanism      auth.Mechanism
	SessionManager *auth.SessionManager
	CSRFGuard      *auth.CSRFGuard

	// Gates in front of the application
	RateLimiter ratelimit.Limiter
	CORSOrigin  string

	// TrustedProxies lists the peers allowed to set X-Forwarded-For. The rate
	// limiter keys on the resulting client IP, so nil trusts none.
	TrustedProxies []string

	// Health checks
	Store Pinger

	// Production enables HSTS.
	Production bool

	// Application info
	Version string
}
