package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/store"
)

// ============================================================================
// SQLITE SUPPORT (Default - single user, local file)
// ============================================================================
// Blobs live in a single table keyed by blob key. WAL mode lets readers proceed
// while the store facade serializes writes per key.
// ============================================================================

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	if dir := filepath.Dir(profile.DSN); dir != "" && !strings.HasPrefix(profile.DSN, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create db dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", withPragmas(profile.DSN))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	// A single writer connection avoids SQLITE_BUSY between concurrent upserts.
	db.SetMaxOpenConns(1)

	d := &DB{db: db, profile: profile}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return d, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
}

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_ts INTEGER NOT NULL
	)`)
	return err
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get blob")
	}
	return value, nil
}

func (d *DB) UpsertBlob(ctx context.Context, key string, value []byte) error {
	stmt := `INSERT INTO blobs (key, value, updated_ts) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, key, value, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "failed to upsert blob")
	}
	return nil
}

func (d *DB) DeleteBlob(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "failed to delete blob")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
