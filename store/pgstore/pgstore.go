// Package pgstore implements the store collaborators on PostgreSQL with pgx.
//
// Run [Migrate] once to create the tables.  Everything accepts a [DBTX], so a
// pool, a single connection or a transaction can be passed.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hasbyte1/go-unplugged/store"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open parses url, builds a pool and pings it.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parsing url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS options (
	name  text PRIMARY KEY,
	value text NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id             bigserial PRIMARY KEY,
	email          text NOT NULL DEFAULT '',
	password_hash  text NOT NULL DEFAULT '',
	activation_key text NOT NULL DEFAULT ''
);`

// Migrate creates the options and users tables if they do not exist.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return store.Wrap("migrate", "schema", err)
	}
	return nil
}

// Store is a store.KeyValueStore and store.ConditionalSetter over the
// options table.
type Store struct {
	db DBTX
}

// New returns a Store over db.
func New(db DBTX) *Store { return &Store{db: db} }

// Get implements store.KeyValueStore.
func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(ctx, `SELECT value FROM options WHERE name = $1`, name).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Wrap("get", name, err)
	}
	return v, true, nil
}

// Set implements store.KeyValueStore.
func (s *Store) Set(ctx context.Context, name, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO options (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	return store.Wrap("set", name, err)
}

// Delete implements store.KeyValueStore.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM options WHERE name = $1`, name)
	return store.Wrap("delete", name, err)
}

// SetIfAbsent implements store.ConditionalSetter.  The insert is skipped on
// conflict and the surviving row read back.
func (s *Store) SetIfAbsent(ctx context.Context, name, value string) (string, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO options (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, name, value)
	if err != nil {
		return "", store.Wrap("set", name, err)
	}
	if tag.RowsAffected() == 1 {
		return value, nil
	}
	stored, ok, err := s.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", store.Wrap("get", name, errors.New("value vanished during conditional write"))
	}
	return stored, nil
}
