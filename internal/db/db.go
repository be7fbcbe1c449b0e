package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
)

// DB represents a ledger database connection
type DB struct {
	*sqlx.DB
	path string
}

const defaultPragma = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=FULL;
PRAGMA busy_timeout=5000;
PRAGMA temp_store=MEMORY;
`

// TimeLayout is the text form of every timestamp written to the ledger.
const TimeLayout = time.RFC3339Nano

type config struct {
	path    string
	pragmas string
}

// Option configures New
type Option func(*config)

// WithPath sets the database file. ":memory:" opens a private in-memory database.
func WithPath(path string) Option {
	return func(c *config) {
		c.path = path
	}
}

// WithPragmas replaces the default pragma block
func WithPragmas(pragmas string) Option {
	return func(c *config) {
		c.pragmas = pragmas
	}
}

// New opens (creating if needed) the ledger database and its schema.
func New(opts ...Option) (*DB, error) {
	cfg := &config{
		path:    ":memory:",
		pragmas: defaultPragma,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn := ":memory:"
	if cfg.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure parent directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", cfg.path)
	}

	slog.Debug("db", "driver", driverID, "path", cfg.path)
	sqlDB, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// one writer, and pragmas are per connection
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(cfg.pragmas); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	db := &DB{DB: sqlDB, path: cfg.path}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS downloaded_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			file_size BIGINT,
			source_path TEXT UNIQUE NOT NULL,
			downloaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			ftp_modified_time TIMESTAMP,
			uploaded BOOLEAN DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_filename ON downloaded_files(filename);
	`)
	return err
}
