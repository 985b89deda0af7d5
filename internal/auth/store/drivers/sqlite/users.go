package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/auth/domain"
	"github.com/aussiebroadwan/tasklist/internal/auth/store"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, name, email, password_hash, refresh_token_hash, refresh_token_expires_at, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var tokenHash sql.NullString
	var tokenExpiry sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&tokenHash,
		&tokenExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.RefreshTokenHash = mapNullStringPtr(tokenHash)
	u.RefreshTokenExpiresAt = mapNullTimePtr(tokenExpiry)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByRefreshTokenHash(ctx context.Context, hash string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE refresh_token_hash = ?`, hash)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, now, now)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *usersRepo) UpdateName(ctx context.Context, userID string, name string) error {
	return r.exec(ctx,
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), userID)
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID string, email string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), userID)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
}

func (r *usersRepo) SetRefreshToken(ctx context.Context, userID string, hash string, expiresAt time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ? WHERE id = ?`,
		hash, expiresAt.UTC(), time.Now().UTC(), userID)
}

// RotateRefreshToken is the heart of rotation-on-use: the update only lands
// when the user still holds oldHash. A concurrent refresh that rotated first
// leaves zero rows matching, which we report as ErrNotFound.
func (r *usersRepo) RotateRefreshToken(ctx context.Context, userID string, oldHash, newHash string, expiresAt time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		 WHERE id = ? AND refresh_token_hash = ?`,
		newHash, expiresAt.UTC(), time.Now().UTC(), userID, oldHash)
}

func (r *usersRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
}

func (r *usersRepo) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = ?
		 WHERE refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < ?`,
		now.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

// exec runs a statement that must touch exactly one row.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
