package pgstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/hasbyte1/go-unplugged/store"
)

// ErrUserNotFound is returned when no row of the users table has the ID.
var ErrUserNotFound = errors.New("pgstore: user not found")

// Credentials is a hashing.CredentialStore over the users table.
type Credentials struct {
	db DBTX

	// OnUpdate, when set, runs after every successful update.  Hosts use it
	// to invalidate cached user records.
	OnUpdate func(userID int64)
}

// NewCredentials returns Credentials over db.
func NewCredentials(db DBTX) *Credentials { return &Credentials{db: db} }

// UpdatePasswordHash stores hash for userID and clears any pending
// password-reset key.
func (c *Credentials) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	name := strconv.FormatInt(userID, 10)
	tag, err := c.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, activation_key = '' WHERE id = $1`, userID, hash)
	if err != nil {
		return store.Wrap("update", name, err)
	}
	if tag.RowsAffected() == 0 {
		return store.Wrap("update", name, ErrUserNotFound)
	}
	if c.OnUpdate != nil {
		c.OnUpdate(userID)
	}
	return nil
}

// PasswordHash returns the stored hash of userID.
func (c *Credentials) PasswordHash(ctx context.Context, userID int64) (string, error) {
	name := strconv.FormatInt(userID, 10)
	var hash string
	err := c.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.Wrap("get", name, ErrUserNotFound)
	}
	if err != nil {
		return "", store.Wrap("get", name, err)
	}
	return hash, nil
}

// CreateUser inserts a user and returns its ID.
func (c *Credentials) CreateUser(ctx context.Context, email, hash string) (int64, error) {
	var id int64
	err := c.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`, email, hash).Scan(&id)
	if err != nil {
		return 0, store.Wrap("insert", email, err)
	}
	return id, nil
}
