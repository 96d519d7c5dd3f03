package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/database/users"
)

// Database is the relational backend. It serves both the credential store
// (through users.Repository) and, via SQLDB, the SQL session store.
type Database struct {
	DB     *gorm.DB
	dbType config.DBType
}

func NewDatabase(cfg config.Database, production bool) (*Database, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if production {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == config.DBTypeSQLite && cfg.Path == ":memory:" {
		// Every new connection to :memory: is a fresh database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&users.Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("database initialized", "type", cfg.Type)

	return &Database{DB: db, dbType: cfg.Type}, nil
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Type {
	case config.DBTypeSQLite:
		return sqlite.Open(cfg.Path), nil
	case config.DBTypeMySQL:
		dsn, err := normalizeMySQLDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return gormmysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %q is not a relational backend", config.ErrUnknownDBType, cfg.Type)
	}
}

// normalizeMySQLDSN forces parseTime so DATETIME columns scan into time.Time,
// and UTC so stored timestamps do not drift with the server locale.
func normalizeMySQLDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MYSQL_DSN: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

// Type returns the relational flavour, used to pick the matching session store.
func (d *Database) Type() config.DBType {
	return d.dbType
}

// SQLDB returns the pooled *sql.DB underneath gorm.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
