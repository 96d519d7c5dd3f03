// Package mongostore provides the document credential store on MongoDB.
//
// # Usage
//
//	client, err := mongostore.Connect(ctx, cfg.Database.MongoURI)
//	repo, err := mongostore.NewRepository(ctx, client.Database("accounts"))
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/mrlokans/accounts/internal/entities"
	"github.com/mrlokans/accounts/internal/services"
)

// CollectionName is the collection holding user documents.
const CollectionName = "users"

// userDocument is the BSON shape of a user.
type userDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Email          string        `bson:"email"`
	PasswordHash   string        `bson:"password_hash"`
	Name           string        `bson:"name"`
	Surname        string        `bson:"surname"`
	Bio            string        `bson:"bio,omitempty"`
	ProfilePicture string        `bson:"profile_picture,omitempty"`
	BirthDate      *time.Time    `bson:"birth_date,omitempty"`
	Role           string        `bson:"role"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

func (d *userDocument) toEntity() *entities.User {
	return &entities.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Name:           d.Name,
		Surname:        d.Surname,
		Bio:            d.Bio,
		ProfilePicture: d.ProfilePicture,
		BirthDate:      d.BirthDate,
		Role:           entities.UserRole(d.Role),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func documentFromEntity(u *entities.User, now time.Time) *userDocument {
	// BSON dates have millisecond precision.
	now = now.UTC().Truncate(time.Millisecond)
	return &userDocument{
		ID:             bson.NewObjectID(),
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Name:           u.Name,
		Surname:        u.Surname,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		BirthDate:      u.BirthDate,
		Role:           string(u.Role),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

// Repository stores users as documents.
type Repository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewRepository creates the repository and ensures the unique email index.
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	coll := db.Collection(CollectionName)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating email index: %w", err)
	}

	return &Repository{coll: coll, now: time.Now}, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *Repository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, services.ErrUserNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *Repository) findOne(ctx context.Context, filter bson.D) (*entities.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, services.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toEntity(), nil
}

// Create inserts a new document. The unique index on email decides races.
func (r *Repository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	doc := documentFromEntity(user, r.now())
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, services.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}
