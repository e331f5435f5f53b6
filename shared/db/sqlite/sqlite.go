package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/dfryer1193/spaceblog/shared/db"
	_ "modernc.org/sqlite"
)

const (
	// DefaultPath is the default path for the SQLite database
	DefaultPath = "./spaceblog.db"
)

type SQLiteConfig struct {
	Path string
}

var _ db.Database = (*SQLiteDB)(nil)

// SQLiteDB implements the db.Database interface for SQLite
type SQLiteDB struct {
	dbPath string
	db     *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance
// If cfg.Path is empty, it defaults to "./spaceblog.db"
func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	return &SQLiteDB{
		dbPath: path,
	}
}

// Connect opens a connection to the SQLite database
func (s *SQLiteDB) Connect() error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Pages are read by the server while a build rewrites them
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // readers don't block the build's writes
		"PRAGMA synchronous=NORMAL", // safe under WAL, fewer fsyncs per page
		"PRAGMA foreign_keys=ON",    // enforce declared constraints
		"PRAGMA busy_timeout=5000",  // wait up to 5s on a locked database
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s.db = db

	// Create or upgrade the generated_pages schema
	if err := runMigrations(db); err != nil {
		db.Close()
		s.db = nil
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying *sql.DB instance
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Path returns the database file path
func (s *SQLiteDB) Path() string {
	return s.dbPath
}
