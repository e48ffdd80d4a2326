package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gap "github.com/muesli/go-app-paths"
	_ "modernc.org/sqlite"
)

// SQLite stores settings in a key/value table.
type SQLite struct {
	db    *sql.DB
	path  string
	clock func() time.Time
}

// DefaultPath returns the settings database location in the user data dir.
func DefaultPath() (string, error) {
	scope := gap.NewScope(gap.User, "readaloud")
	return scope.DataPath("settings.db")
}

// OpenSQLite opens or creates the settings database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db, path: path, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Get(ctx context.Context, defaults Settings) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return defaults, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var stored Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return defaults, fmt.Errorf("scan setting: %w", err)
		}
		// rows from newer versions with unknown keys are ignored
		_ = stored.SetField(key, value)
	}
	if err := rows.Err(); err != nil {
		return defaults, fmt.Errorf("read settings: %w", err)
	}
	return merge(defaults, stored), nil
}

func (s *SQLite) Set(ctx context.Context, values Settings) error {
	if err := values.Validate(); err != nil {
		return err
	}
	values = values.Normalize()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.clock().UTC()
	for _, key := range Keys {
		v, _ := values.Field(key)
		if v == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings(key, value, updated_at) VALUES(?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			key, v, now)
		if err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
