package db

import (
	"database/sql"
)

// Database is a connection lifecycle around a *sql.DB.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
