package config

const (
	// DefaultDatabasePath is the default SQLite file used when DB_TYPE=sqlite
	DefaultDatabasePath = "./accounts.db"

	// DefaultMongoDatabase is the database name used when MONGO_DATABASE is unset
	DefaultMongoDatabase = "accounts"

	// MinCSRFSecretSize is the minimum entropy, in bytes, of a per-session CSRF secret
	MinCSRFSecretSize = 32
)
