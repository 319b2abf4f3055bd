// Package cache persists fingerprints in SQLite keyed by content digest and
// hash configuration, so unchanged files are not decoded twice.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/phash"
)

const schema = `
CREATE TABLE IF NOT EXISTS fingerprints (
	digest     TEXT    NOT NULL,
	config_key TEXT    NOT NULL,
	bits       INTEGER NOT NULL,
	hash       TEXT    NOT NULL,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (digest, config_key)
)`

// Store is a SQLite-backed fingerprint cache. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one cached fingerprint.
type Entry struct {
	Digest    string
	ConfigKey string
	Hash      phash.Fingerprint
}

// Open creates or opens the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "cache path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: pragmas are per connection and ":memory:" is per
	// connection too.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Lookup returns the cached fingerprint for digest under configKey.
func (s *Store) Lookup(ctx context.Context, digest, configKey string) (phash.Fingerprint, bool, error) {
	var (
		bits int
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT bits, hash FROM fingerprints WHERE digest = ? AND config_key = ?",
		digest, configKey,
	).Scan(&bits, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return phash.Fingerprint{}, false, nil
	}
	if err != nil {
		return phash.Fingerprint{}, false, fmt.Errorf("lookup fingerprint: %w", err)
	}

	fp, err := phash.ParseHexBits(hash, bits)
	if err != nil {
		return phash.Fingerprint{}, false, apperrors.Wrap(err, apperrors.CodeInternal, "corrupt cache row").
			WithMetadata("digest", digest)
	}
	return fp, true, nil
}

// Store records fp, replacing any existing row for the same key.
func (s *Store) Store(ctx context.Context, digest, configKey string, fp phash.Fingerprint) error {
	return s.StoreMany(ctx, []Entry{{Digest: digest, ConfigKey: configKey, Hash: fp}})
}

// StoreMany writes entries in a single transaction.
func (s *Store) StoreMany(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.Hash.IsZero() {
			return apperrors.New(apperrors.CodeInvalidInput, "cannot cache an empty fingerprint").
				WithMetadata("digest", e.Digest)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fingerprints (digest, config_key, bits, hash, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(digest, config_key) DO UPDATE SET bits = excluded.bits, hash = excluded.hash, created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Digest, e.ConfigKey, e.Hash.Len(), e.Hash.Hex(), now); err != nil {
			return fmt.Errorf("store fingerprint: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache tx: %w", err)
	}
	return nil
}

// Count returns the number of cached fingerprints. A non-empty configKey
// restricts the count to that configuration.
func (s *Store) Count(ctx context.Context, configKey string) (int, error) {
	query := "SELECT COUNT(*) FROM fingerprints"
	var args []any
	if configKey != "" {
		query += " WHERE config_key = ?"
		args = append(args, configKey)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

// Clear removes every cached fingerprint and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM fingerprints")
	if err != nil {
		return 0, fmt.Errorf("clear fingerprints: %w", err)
	}
	return res.RowsAffected()
}

// Digest is the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
