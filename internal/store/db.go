package store

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
)

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("store: unique constraint violated")

// DB wraps the SQLite connection that backs the messages, profiles and
// status collections.
type DB struct {
	*sql.DB
}

// builder uses '?' placeholders, which is what go-sqlite3 expects.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}

func translate(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// nullable maps "" to NULL so optional UNIQUE columns accept many blanks.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
