package registrystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"medkey/internal/config"
	"medkey/internal/masterkey"
)

// ErrLocked indicates another process holds the registry writer lock.
var ErrLocked = errors.New("registry database is locked by another process")

// Store manages registry persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the registry database, acquires the
// single-writer file lock, and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.RegistryDBPath()
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire registry lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close releases the database connection and the writer lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var closeErr error
	if s.db != nil {
		closeErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// LoadRegistry returns the current registry snapshot.
func (s *Store) LoadRegistry(ctx context.Context) (masterkey.Registry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mk, record_name FROM members ORDER BY added_at, record_name`)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	defer rows.Close()

	registry := masterkey.Registry{}
	for rows.Next() {
		var mk, name string
		if err := rows.Scan(&mk, &name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		registry[mk] = append(registry[mk], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Groups without members (freshly ingested, no assignments yet) still
	// count as registry keys for collision checking.
	keyRows, err := s.db.QueryContext(ctx, `SELECT mk FROM master_keys`)
	if err != nil {
		return nil, fmt.Errorf("load master keys: %w", err)
	}
	defer keyRows.Close()
	for keyRows.Next() {
		var mk string
		if err := keyRows.Scan(&mk); err != nil {
			return nil, fmt.Errorf("scan master key: %w", err)
		}
		if _, ok := registry[mk]; !ok {
			registry[mk] = nil
		}
	}
	return registry, keyRows.Err()
}

// SaveDecision persists one assignment atomically: the master key row (when
// new), the membership row, and the audit entry. The member primary key
// makes a conflicting double-assignment fail the whole transaction.
func (s *Store) SaveDecision(ctx context.Context, recordName string, decision masterkey.Decision) error {
	if recordName == "" {
		return errors.New("record name must not be empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decision tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO master_keys (mk, canonical_name, created_at) VALUES (?, ?, ?)
         ON CONFLICT(mk) DO NOTHING`,
		decision.MasterKey, recordName, now,
	); err != nil {
		return fmt.Errorf("ensure master key: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO members (record_name, mk, added_at) VALUES (?, ?, ?)`,
		recordName, decision.MasterKey, now,
	); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	var score any
	if decision.HasScore {
		score = decision.Score
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (record_name, mk, score, reused, created_at) VALUES (?, ?, ?, ?, ?)`,
		recordName, decision.MasterKey, score, boolToInt(decision.Reused), now,
	); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decision: %w", err)
	}
	return nil
}

// UpsertGroup writes an ingested master key group with its members.
func (s *Store) UpsertGroup(ctx context.Context, mk, canonicalName string, members []string) error {
	if mk == "" {
		return errors.New("master key must not be empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO master_keys (mk, canonical_name, created_at) VALUES (?, ?, ?)
         ON CONFLICT(mk) DO UPDATE SET canonical_name = excluded.canonical_name`,
		mk, canonicalName, now,
	); err != nil {
		return fmt.Errorf("upsert master key: %w", err)
	}
	for _, member := range members {
		if member == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO members (record_name, mk, added_at) VALUES (?, ?, ?)
             ON CONFLICT(record_name) DO NOTHING`,
			member, mk, now,
		); err != nil {
			return fmt.Errorf("upsert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}
	return nil
}

// PutFingerprint stores a deterministic hash for the fast path. Existing
// hashes keep their first owner; the curated base wins over derived
// variations by being ingested first.
func (s *Store) PutFingerprint(ctx context.Context, hash, mk, source string) error {
	if hash == "" || mk == "" {
		return errors.New("fingerprint hash and master key must not be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (hash, mk, source) VALUES (?, ?, ?)
         ON CONFLICT(hash) DO NOTHING`,
		hash, mk, source,
	)
	if err != nil {
		return fmt.Errorf("put fingerprint: %w", err)
	}
	return nil
}

// LookupFingerprint resolves a hash to its master key.
func (s *Store) LookupFingerprint(ctx context.Context, hash string) (string, bool, error) {
	if hash == "" {
		return "", false, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT mk FROM fingerprints WHERE hash = ?`, hash)
	var mk string
	err := row.Scan(&mk)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return mk, true, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
