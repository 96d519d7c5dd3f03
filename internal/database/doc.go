// Package database provides the persistence backends for user records.
//
// # Architecture
//
//	database/
//	├── database.go      # gorm connection (SQLite or MySQL), migrations
//	├── users/           # Relational CredentialStore over gorm
//	└── mongostore/      # Document CredentialStore over the MongoDB driver
//
// DB_TYPE selects exactly one backend at startup. Both implement
// services.CredentialStore, so nothing downstream branches on DB_TYPE again:
//
//	db, err := database.NewDatabase(cfg.Database, cfg.Global.IsProduction())
//	store := users.NewRepository(db.DB)
//
//	client, err := mongostore.Connect(ctx, cfg.Database.MongoURI)
//	store, err := mongostore.NewRepository(ctx, client.Database(cfg.Database.MongoDatabase))
//
// # Uniqueness
//
// Email uniqueness is enforced by the store (unique index), not by
// application code. A losing racer receives services.ErrDuplicateEmail.
package database
