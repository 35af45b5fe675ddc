package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/focusmind/internal/profile"
	"github.com/hrygo/focusmind/store"
)

// ============================================================================
// POSTGRESQL SUPPORT (shared deployments)
// ============================================================================
// Same blob table as SQLite with BYTEA values, upserted with ON CONFLICT.
// ============================================================================

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// Open the PostgreSQL connection
	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Single-user engine: a handful of connections is plenty.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	// Verify connection is working before returning
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping database", "error", err)
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	d := &DB{db: db, profile: profile}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_ts BIGINT NOT NULL
	)`)
	return err
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = `+placeholder(1), key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get blob")
	}
	return value, nil
}

func (d *DB) UpsertBlob(ctx context.Context, key string, value []byte) error {
	stmt := `INSERT INTO blobs (key, value, updated_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, key, value, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "failed to upsert blob")
	}
	return nil
}

func (d *DB) DeleteBlob(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = `+placeholder(1), key); err != nil {
		return errors.Wrap(err, "failed to delete blob")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
