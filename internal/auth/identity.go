package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/entities"
)

// Identity is the authenticated caller as established by a Mechanism.
type Identity struct {
	UserID string
	Email  string
}

// Credential is what a successful login hands back to the client. Exactly one
// field is set: Token in token mode, Message in session mode.
type Credential struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// IdentityIssuer establishes an identity for a user whose password has
// already been verified.
type IdentityIssuer interface {
	Issue(ctx context.Context, user *entities.User) (*Credential, error)
}

// IdentityResolver recovers the caller's identity from a request. It returns
// nil with no error for anonymous requests.
type IdentityResolver interface {
	Resolve(r *http.Request) (*Identity, error)
}

// IdentityRevoker ends the caller's identity, if the mechanism keeps any
// server-side state.
type IdentityRevoker interface {
	Revoke(ctx context.Context) error
}

// Mechanism is one way of carrying identity between requests.
type Mechanism interface {
	IdentityIssuer
	IdentityResolver
	IdentityRevoker
}

// NewMechanism picks the identity mechanism for mode. It is called once at
// startup; an unknown mode is a configuration defect.
func NewMechanism(mode config.AuthMode, sessions *SessionManager, signer *TokenSigner) (Mechanism, error) {
	switch mode {
	case config.AuthModeJWT:
		if signer == nil {
			return nil, fmt.Errorf("%w: token mode requires a signer", ErrServerMisconfigured)
		}
		return &TokenIssuer{signer: signer}, nil
	case config.AuthModeSession:
		if sessions == nil {
			return nil, fmt.Errorf("%w: session mode requires a session manager", ErrServerMisconfigured)
		}
		return &SessionIssuer{sessions: sessions}, nil
	default:
		return nil, fmt.Errorf("%w: unknown auth mode %q", ErrServerMisconfigured, mode)
	}
}

// TokenIssuer hands out signed access tokens. No server-side state is kept.
type TokenIssuer struct {
	signer *TokenSigner
}

func NewTokenIssuer(signer *TokenSigner) *TokenIssuer {
	return &TokenIssuer{signer: signer}
}

func (t *TokenIssuer) Issue(_ context.Context, user *entities.User) (*Credential, error) {
	token, _, err := t.signer.Sign(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Credential{Token: token}, nil
}

// Resolve reads "Authorization: Bearer <token>". A present but invalid token
// is an error, not an anonymous request.
func (t *TokenIssuer) Resolve(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, ErrInvalidToken
	}

	claims, err := t.signer.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Revoke is a no-op: tokens are owned by the client and expire on their own.
func (t *TokenIssuer) Revoke(context.Context) error {
	return nil
}

// SessionIssuer records the identity in the server-side session.
type SessionIssuer struct {
	sessions *SessionManager
}

func NewSessionIssuer(sessions *SessionManager) *SessionIssuer {
	return &SessionIssuer{sessions: sessions}
}

func (s *SessionIssuer) Issue(ctx context.Context, user *entities.User) (*Credential, error) {
	if err := s.sessions.CreateSession(ctx, user); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &Credential{Message: "logged in"}, nil
}

func (s *SessionIssuer) Resolve(r *http.Request) (*Identity, error) {
	return s.sessions.GetIdentity(r.Context()), nil
}

// Revoke drops the session. The next request starts a fresh one, with a new
// CSRF secret.
func (s *SessionIssuer) Revoke(ctx context.Context) error {
	return s.sessions.DestroySession(ctx)
}

var (
	_ Mechanism = (*TokenIssuer)(nil)
	_ Mechanism = (*SessionIssuer)(nil)
)
