package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login. Emails are stored lowercased.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByRefreshTokenHash finds the user currently holding the given
	// refresh token fingerprint.
	GetUserByRefreshTokenHash(ctx context.Context, hash string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateName mutates the display name and bumps updated_at.
	UpdateName(ctx context.Context, userID string, name string) error

	// UpdateEmail changes the email and bumps updated_at.
	// Returns ErrAlreadyExists when the new email is taken.
	UpdateEmail(ctx context.Context, userID string, email string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetRefreshToken stores a refresh token fingerprint and its expiry,
	// replacing whatever token the user previously held.
	SetRefreshToken(ctx context.Context, userID string, hash string, expiresAt time.Time) error

	// RotateRefreshToken swaps oldHash for newHash in a single conditional
	// update. Returns ErrNotFound when the user no longer holds oldHash,
	// which is how a lost rotation race surfaces.
	RotateRefreshToken(ctx context.Context, userID string, oldHash, newHash string, expiresAt time.Time) error

	// ClearRefreshToken removes the stored refresh token, if any.
	ClearRefreshToken(ctx context.Context, userID string) error

	// ClearExpiredRefreshTokens removes every refresh token whose expiry is
	// strictly before now. Returns the number of rows cleared.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	// DeleteUser removes the user row.
	DeleteUser(ctx context.Context, userID string) error
}
