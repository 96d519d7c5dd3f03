// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - CredentialStore: User records keyed by email (internal/services/interfaces.go)
//   - scs.Store: Session persistence, chosen in entrypoint (internal/auth/sessions.go)
//
// ## Identity Interfaces
//
//   - IdentityIssuer: Turns a verified user into a credential (internal/auth/identity.go)
//   - IdentityResolver: Recovers the caller from a request (internal/auth/identity.go)
//   - IdentityRevoker: Ends the caller's identity (internal/auth/identity.go)
//   - Mechanism: All three; one per AUTH_MODE
//
// ## Request Gate Interfaces
//
//   - Limiter: Fixed-window rate limiting (internal/ratelimit/ratelimit.go)
//   - Sweeper: Periodic cleanup of expired state (internal/scheduler/sweeper.go)
//   - Pinger: Health probes (internal/http/health.go)
//
// # Adding a New Credential Store
//
// To back user records with another database (e.g., Postgres via pgx):
//
//  1. Create sub-package: internal/database/pgstore/
//
//  2. Implement CredentialStore, translating the driver's unique-violation
//     error into services.ErrDuplicateEmail and "no rows" into
//     services.ErrUserNotFound:
//
//     type Repository struct { pool *pgxpool.Pool }
//
//     func (r *Repository) FindByEmail(ctx context.Context, email string) (*entities.User, error)
//     func (r *Repository) FindByID(ctx context.Context, id string) (*entities.User, error)
//     func (r *Repository) Create(ctx context.Context, user *entities.User) (*entities.User, error)
//     func (r *Repository) Ping(ctx context.Context) error
//
//  3. Add a DB_TYPE value in internal/config and a case in entrypoint.openStores
//
//  4. Add compile-time check:
//
//     var _ services.CredentialStore = (*pgstore.Repository)(nil)
//
// # Adding a New Identity Mechanism
//
//  1. Implement Issue, Resolve and Revoke in internal/auth/
//
//  2. Add an AUTH_MODE value and a case in auth.NewMechanism
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
