package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/entities"
	"github.com/mrlokans/accounts/internal/services"
)

// Validation patterns
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// maxEmailLength is the RFC 5321 path limit.
const maxEmailLength = 254

var (
	ErrRequiredFields      = errors.New("required fields missing")
	ErrEmailInvalid        = errors.New("invalid email")
	ErrBirthDateInvalid    = errors.New("invalid birth date")
	ErrInvalidRole         = errors.New("invalid role")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrServerMisconfigured = errors.New("server misconfigured")
	ErrAuthRequired        = errors.New("authentication required")
)

// RegisterInput is the raw registration payload.
type RegisterInput struct {
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
	BirthDate      string `json:"birthDate"`
	Role           string `json:"role"`
}

// Service handles registration and login against a CredentialStore.
type Service struct {
	store     services.CredentialStore
	issuer    IdentityIssuer
	config    config.Auth
	dummyHash string
}

// NewService creates a new authentication service. issuer may be nil, in
// which case every login fails with ErrServerMisconfigured.
func NewService(store services.CredentialStore, issuer IdentityIssuer, cfg config.Auth) (*Service, error) {
	// Compared against on unknown emails so both failure paths cost one bcrypt.
	dummyHash, err := HashPassword("not-a-real-password", cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &Service{
		store:     store,
		issuer:    issuer,
		config:    cfg,
		dummyHash: dummyHash,
	}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates input, creates the user and returns it without its
// password proof.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	surname := strings.TrimSpace(in.Surname)

	if name == "" || surname == "" || email == "" || in.Password == "" {
		return nil, ErrRequiredFields
	}

	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}

	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	birthDate, err := parseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}

	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}

	_, err = s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, services.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Create(ctx, &entities.User{
		Email:          email,
		PasswordHash:   passwordHash,
		Name:           name,
		Surname:        surname,
		Bio:            in.Bio,
		ProfilePicture: in.ProfilePicture,
		BirthDate:      birthDate,
		Role:           role,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, services.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user.Sanitized(), nil
}

// Authenticate returns the user whose credentials match. Unknown email and
// wrong password both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entities.User, error) {
	user, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			(&entities.User{PasswordHash: s.dummyHash}).VerifyPassword(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues the configured credential.
func (s *Service) Login(ctx context.Context, email, password string) (*Credential, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if s.issuer == nil {
		return nil, ErrServerMisconfigured
	}
	return s.issuer.Issue(ctx, user)
}

// CurrentUser loads the user behind an identity.
func (s *Service) CurrentUser(ctx context.Context, identity *Identity) (*entities.User, error) {
	if identity == nil {
		return nil, ErrAuthRequired
	}

	user, err := s.store.FindByID(ctx, identity.UserID)
	if err != nil {
		// The account behind a still-valid credential is gone.
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, ErrAuthRequired
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user.Sanitized(), nil
}

// Ping checks the credential store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func parseBirthDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrBirthDateInvalid
}

func parseRole(raw string) (entities.UserRole, error) {
	switch role := entities.UserRole(strings.TrimSpace(raw)); role {
	case "":
		return entities.UserRoleUser, nil
	case entities.UserRoleUser, entities.UserRoleAdmin:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}
