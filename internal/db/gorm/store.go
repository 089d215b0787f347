// Package gorm provides GORM-based storage of raw log lines for logmine.
package gorm

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver used under the GORM dialector
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultTable is the log table used when none is configured.
const DefaultTable = "log_table"

var (
	// ErrTableNotFound is returned when the configured log table does not exist.
	ErrTableNotFound = errors.New("log table does not exist")
	// ErrInvalidTable is returned for table names that are not plain identifiers.
	ErrInvalidTable = errors.New("invalid table name")
	// ErrUnreachable is returned when the database cannot be opened or pinged.
	ErrUnreachable = errors.New("database unreachable")
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds database configuration.
type Config struct {
	URL      string          // sqlite path or URL (sqlite:///path), or postgres:// URL
	Table    string          // log table name (default: log_table)
	MaxConns int             // Maximum number of open connections (default: 4)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
	Create   bool            // create the log table when missing instead of failing
}

// Store is a handle onto one log table.
type Store struct {
	DB      *gorm.DB
	sqlDB   *sql.DB
	table   string
	dialect string
}

// dialect returns the dialect name and the DSN the driver expects.
func dialect(url string) (string, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url
	case strings.HasPrefix(url, "sqlite:///"):
		return "sqlite", strings.TrimPrefix(url, "sqlite:///")
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite", strings.TrimPrefix(url, "sqlite://")
	default:
		return "sqlite", url
	}
}

// sqliteDSN adds connection parameters. Without create the file is opened
// read-write only, so a missing database fails instead of being created empty.
func sqliteDSN(path string, create bool) string {
	if path == ":memory:" {
		return path
	}
	if !create && !strings.HasPrefix(path, "file:") {
		path = "file:" + path + "?mode=rw"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000"
}

// NewStore opens the database, verifies it is reachable and that the log table
// exists (or creates it when cfg.Create is set).
func NewStore(cfg Config) (*Store, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: empty database url", ErrUnreachable)
	}

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		// PrepareStmt enables prepared statement caching for repeated batch reads
		PrepareStmt: true,
	}

	name, dsn := dialect(cfg.URL)

	var (
		db    *gorm.DB
		sqlDB *sql.DB
		err   error
	)
	switch name {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("%w: open postgres: %w", ErrUnreachable, err)
		}
		sqlDB, err = db.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
	default:
		sqlDB, err = sql.Open("sqlite3", sqliteDSN(dsn, cfg.Create))
		if err != nil {
			return nil, fmt.Errorf("%w: open database: %w", ErrUnreachable, err)
		}
		db, err = gorm.Open(sqlite.Dialector{Conn: sqlDB}, gormCfg)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%w: open gorm: %w", ErrUnreachable, err)
		}
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrUnreachable, err)
	}

	store := &Store{DB: db, sqlDB: sqlDB, table: table, dialect: name}

	if cfg.Create {
		if err := runMigrations(db, table); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	} else if !db.Migrator().HasTable(table) {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	if name == "sqlite" {
		// WAL lets shard readers proceed while an import is writing
		if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	return store, nil
}

// Table returns the log table name.
func (s *Store) Table() string {
	return s.table
}

// Dialect returns "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.sqlDB.Ping()
}
