// Package users provides the relational credential store.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.FindByEmail(ctx, "a@b.com")
package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/mrlokans/accounts/internal/entities"
	"github.com/mrlokans/accounts/internal/services"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Record is the gorm row for a user.
type Record struct {
	ID             uint       `gorm:"primaryKey"`
	Email          string     `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string     `gorm:"size:255;not null"`
	Name           string     `gorm:"size:100;not null"`
	Surname        string     `gorm:"size:100;not null"`
	Bio            string     `gorm:"type:text"`
	ProfilePicture string     `gorm:"size:2048"`
	BirthDate      *time.Time `gorm:"type:date"`
	Role           string     `gorm:"size:32;not null;default:User"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Record) TableName() string {
	return "users"
}

func (r *Record) toEntity() *entities.User {
	return &entities.User{
		ID:             strconv.FormatUint(uint64(r.ID), 10),
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Name:           r.Name,
		Surname:        r.Surname,
		Bio:            r.Bio,
		ProfilePicture: r.ProfilePicture,
		BirthDate:      r.BirthDate,
		Role:           entities.UserRole(r.Role),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func recordFromEntity(u *entities.User) *Record {
	return &Record{
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Name:           u.Name,
		Surname:        u.Surname,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		BirthDate:      u.BirthDate,
		Role:           string(u.Role),
	}
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByEmail looks a user up by already-normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	var rec Record
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return rec.toEntity(), nil
}

// FindByID retrieves a user by the string form of its numeric ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	numericID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, services.ErrUserNotFound
	}

	var rec Record
	err = r.db.WithContext(ctx).First(&rec, numericID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return rec.toEntity(), nil
}

// Create inserts the user and returns the stored record with its ID.
func (r *Repository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	rec := recordFromEntity(user)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, services.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return rec.toEntity(), nil
}

// Ping verifies the connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isDuplicateKey recognizes unique violations from every supported driver.
// gorm translates most of them when TranslateError is on; the fallbacks cover
// sessions opened without it.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
