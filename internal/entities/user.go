package entities

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	UserRoleUser  UserRole = "User" // Default for self-registered accounts
	UserRoleAdmin UserRole = "Admin"
)

// User is a credential record as seen by the application, independent of the
// store that holds it. ID is assigned by the store and is opaque.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"` // Never serialized
	Name           string     `json:"name"`
	Surname        string     `json:"surname"`
	Bio            string     `json:"bio,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	BirthDate      *time.Time `json:"birthDate,omitempty"`
	Role           UserRole   `json:"role"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// VerifyPassword reports whether candidate matches the stored password proof.
func (u *User) VerifyPassword(candidate string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// Sanitized returns a copy of the user without the password proof.
func (u *User) Sanitized() *User {
	clone := *u
	clone.PasswordHash = ""
	return &clone
}
