package store

import (
	"database/sql"
)

// Store wraps the SQL database. A single document write is atomic at
// the driver level; compound sequences are handled per call site.
type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}
