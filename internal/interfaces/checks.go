package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/accounts/internal/auth"
	"github.com/mrlokans/accounts/internal/database"
	"github.com/mrlokans/accounts/internal/database/mongostore"
	"github.com/mrlokans/accounts/internal/database/users"
	"github.com/mrlokans/accounts/internal/http"
	"github.com/mrlokans/accounts/internal/ratelimit"
	"github.com/mrlokans/accounts/internal/scheduler"
	"github.com/mrlokans/accounts/internal/services"
)

// =============================================================================
// Credential Stores
// =============================================================================

// CredentialStore implementations
var _ services.CredentialStore = (*users.Repository)(nil)
var _ services.CredentialStore = (*mongostore.Repository)(nil)

// =============================================================================
// Identity
// =============================================================================

// Mechanism implementations
var _ auth.Mechanism = (*auth.TokenIssuer)(nil)
var _ auth.Mechanism = (*auth.SessionIssuer)(nil)

// =============================================================================
// Request Gates
// =============================================================================

// Limiter implementations
var _ ratelimit.Limiter = (*ratelimit.MemoryLimiter)(nil)
var _ ratelimit.Limiter = (*ratelimit.RedisLimiter)(nil)

// Sweeper implementations
var _ scheduler.Sweeper = (*ratelimit.MemoryLimiter)(nil)

// =============================================================================
// Health Checks
// =============================================================================

// Pinger implementations
var _ http.Pinger = (*database.Database)(nil)
var _ http.Pinger = (*users.Repository)(nil)
var _ http.Pinger = (*mongostore.Repository)(nil)
