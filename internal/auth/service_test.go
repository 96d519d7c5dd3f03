package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrlokans/accounts/internal/entities"
)

func validInput() RegisterInput {
	return RegisterInput{
		Name:     "A",
		Surname:  "B",
		Email:    "a@b.com",
		Password: "longenough",
	}
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(in *RegisterInput)
		wantErr error
	}{
		{
			name:    "valid user",
			modify:  func(in *RegisterInput) {},
			wantErr: nil,
		},
		{
			name:    "missing name",
			modify:  func(in *RegisterInput) { in.Name = "" },
			wantErr: ErrRequiredFields,
		},
		{
			name:    "blank surname",
			modify:  func(in *RegisterInput) { in.Surname = "   " },
			wantErr: ErrRequiredFields,
		},
		{
			name:    "missing email",
			modify:  func(in *RegisterInput) { in.Email = "" },
			wantErr: ErrRequiredFields,
		},
		{
			name:    "missing password",
			modify:  func(in *RegisterInput) { in.Password = "" },
			wantErr: ErrRequiredFields,
		},
		{
			name:    "invalid email",
			modify:  func(in *RegisterInput) { in.Email = "not-an-email" },
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "email without tld",
			modify:  func(in *RegisterInput) { in.Email = "a@b" },
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "email too long",
			modify:  func(in *RegisterInput) { in.Email = strings.Repeat("a", 250) + "@b.com" },
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "password too short",
			modify:  func(in *RegisterInput) { in.Password = "short" },
			wantErr: ErrPasswordTooShort,
		},
		{
			name:    "invalid birth date",
			modify:  func(in *RegisterInput) { in.BirthDate = "31/12/1990" },
			wantErr: ErrBirthDateInvalid,
		},
		{
			name:    "invalid role",
			modify:  func(in *RegisterInput) { in.Role = "Superuser" },
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupTestService(t, newMemoryStore(), nil)
			in := validInput()
			tt.modify(&in)

			user, err := svc.Register(context.Background(), in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user == nil {
				t.Error("Register() returned nil user")
			}
		})
	}
}

func TestService_RegisterSanitizesAndNormalizes(t *testing.T) {
	store := newMemoryStore()
	svc := setupTestService(t, store, nil)

	in := validInput()
	in.Email = "  A@B.Com "
	in.BirthDate = "1990-12-31"
	in.Bio = "hello"

	user, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.PasswordHash != "" {
		t.Error("returned user must not carry the password proof")
	}
	if user.Email != "a@b.com" {
		t.Errorf("Email = %q, want normalized %q", user.Email, "a@b.com")
	}
	if user.Role != entities.UserRoleUser {
		t.Errorf("Role = %q, want default %q", user.Role, entities.UserRoleUser)
	}
	if user.ID == "" {
		t.Error("store-assigned ID should be returned")
	}
	if user.BirthDate == nil || !user.BirthDate.Equal(time.Date(1990, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("BirthDate = %v, want 1990-12-31", user.BirthDate)
	}

	stored, err := store.FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == in.Password {
		t.Error("store must hold a hash, not the cleartext password")
	}
	if !stored.VerifyPassword(in.Password) {
		t.Error("stored hash does not verify the registered password")
	}
}

func TestService_RegisterExplicitRole(t *testing.T) {
	svc := setupTestService(t, newMemoryStore(), nil)
	in := validInput()
	in.Role = "Admin"

	user, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != entities.UserRoleAdmin {
		t.Errorf("Role = %q, want %q", user.Role, entities.UserRoleAdmin)
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	t.Run("detected by lookup", func(t *testing.T) {
		svc := setupTestService(t, newMemoryStore(), nil)
		if _, err := svc.Register(context.Background(), validInput()); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}

		in := validInput()
		in.Email = "A@B.COM"
		_, err := svc.Register(context.Background(), in)
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Register() error = %v, want %v", err, ErrEmailTaken)
		}
	})

	t.Run("detected by store constraint", func(t *testing.T) {
		store := newMemoryStore()
		store.hide(&entities.User{ID: "99", Email: "a@b.com"})
		svc := setupTestService(t, store, nil)

		_, err := svc.Register(context.Background(), validInput())
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("Register() error = %v, want %v", err, ErrEmailTaken)
		}
	})
}

func TestService_RegisterStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errStoreDown
	svc := setupTestService(t, store, nil)

	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, errStoreDown) {
		t.Errorf("Register() error = %v, want wrapped %v", err, errStoreDown)
	}
	if errors.Is(err, ErrEmailTaken) {
		t.Error("infrastructure failure must not look like a conflict")
	}
}

func TestService_Authenticate(t *testing.T) {
	store := newMemoryStore()
	svc := setupTestService(t, store, nil)
	registered, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "a@b.com", "longenough", nil},
		{"email is normalized", " A@B.com", "longenough", nil},
		{"wrong password", "a@b.com", "wrongpassword", ErrInvalidCredentials},
		{"unknown email", "nobody@b.com", "longenough", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user.ID != registered.ID {
				t.Errorf("Authenticate() user = %s, want %s", user.ID, registered.ID)
			}
		})
	}
}

func TestService_AuthenticateStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.findErr = errStoreDown
	svc := setupTestService(t, store, nil)

	_, err := svc.Authenticate(context.Background(), "a@b.com", "longenough")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("store failure must not be reported as invalid credentials")
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("Authenticate() error = %v, want wrapped %v", err, errStoreDown)
	}
}

func TestService_LoginTokenMode(t *testing.T) {
	signer := NewTokenSigner([]byte("secret"), time.Hour)
	svc := setupTestService(t, newMemoryStore(), NewTokenIssuer(signer))
	user, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	credential, err := svc.Login(context.Background(), "a@b.com", "longenough")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if credential.Token == "" {
		t.Fatal("token mode login should return a token")
	}

	claims, err := signer.Parse(credential.Token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != user.ID || claims.Email != user.Email {
		t.Errorf("claims = {%s %s}, want {%s %s}", claims.Subject, claims.Email, user.ID, user.Email)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("token lifetime = %v, want 1h", got)
	}
}

func TestService_LoginSessionMode(t *testing.T) {
	sm := setupSessionManager(t)
	svc := setupTestService(t, newMemoryStore(), NewSessionIssuer(sm))
	user, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ctx := loadedContext(t, sm)
	credential, err := svc.Login(ctx, "a@b.com", "longenough")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if credential.Token != "" {
		t.Error("session mode login must not return a token")
	}

	identity := sm.GetIdentity(ctx)
	if identity == nil || identity.UserID != user.ID || identity.Email != user.Email {
		t.Errorf("session identity = %+v, want {%s %s}", identity, user.ID, user.Email)
	}
}

func TestService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc := setupTestService(t, newMemoryStore(), NewTokenIssuer(NewTokenSigner([]byte("s"), time.Hour)))
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, wrongPassword := svc.Login(context.Background(), "a@b.com", "wrongpassword")
	_, unknownEmail := svc.Login(context.Background(), "x@b.com", "longenough")

	if wrongPassword != ErrInvalidCredentials || unknownEmail != ErrInvalidCredentials {
		t.Errorf("errors = (%v, %v), want both %v", wrongPassword, unknownEmail, ErrInvalidCredentials)
	}
}

func TestService_LoginWithoutIssuer(t *testing.T) {
	svc := setupTestService(t, newMemoryStore(), nil)
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(context.Background(), "a@b.com", "longenough")
	if !errors.Is(err, ErrServerMisconfigured) {
		t.Errorf("Login() error = %v, want %v", err, ErrServerMisconfigured)
	}
}

func TestService_CurrentUser(t *testing.T) {
	svc := setupTestService(t, newMemoryStore(), nil)
	registered, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := svc.CurrentUser(context.Background(), &Identity{UserID: registered.ID, Email: registered.Email})
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("CurrentUser() must not return the password proof")
	}

	if _, err := svc.CurrentUser(context.Background(), nil); err != ErrAuthRequired {
		t.Errorf("CurrentUser(nil) error = %v, want %v", err, ErrAuthRequired)
	}
	if _, err := svc.CurrentUser(context.Background(), &Identity{UserID: "404"}); err != ErrAuthRequired {
		t.Errorf("CurrentUser(deleted) error = %v, want %v", err, ErrAuthRequired)
	}
}
