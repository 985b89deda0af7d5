package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/tasklist/internal/auth/domain"
	"github.com/aussiebroadwan/tasklist/internal/auth/store"
	"github.com/aussiebroadwan/tasklist/pkg/cryptox"
	"github.com/aussiebroadwan/tasklist/pkg/idx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

var (
	ErrEmailTaken  = errors.New("email_taken")
	ErrEmptyUpdate = errors.New("empty_update")
)

type UserService struct {
	Store store.Store
}

// UpdateUserParams carries the optional fields of a profile update. Nil
// means "leave unchanged".
type UpdateUserParams struct {
	Name     *string
	Email    *string
	Password *string
}

func (p UpdateUserParams) isEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil
}

// Register creates a new user account. Emails are normalised to lowercase
// before storage; duplicates surface as ErrEmailTaken. Concurrent duplicate
// submissions are settled by the unique constraint, so at most one wins.
func (s *UserService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	email = normalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			l.Info("registration rejected: email taken")
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// Update applies a partial profile update inside one transaction so a
// multi-field change is all-or-nothing. An update with no fields set is
// rejected with ErrEmptyUpdate.
func (s *UserService) Update(ctx context.Context, userID string, params UpdateUserParams) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if params.isEmpty() {
		return domain.User{}, ErrEmptyUpdate
	}

	var updated domain.User

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if params.Name != nil {
			if err := tx.Users().UpdateName(ctx, user.ID, strings.TrimSpace(*params.Name)); err != nil {
				return err
			}
		}

		if params.Email != nil {
			email := normalizeEmail(*params.Email)
			if email != user.Email {
				if err := tx.Users().UpdateEmail(ctx, user.ID, email); err != nil {
					if errors.Is(err, store.ErrAlreadyExists) {
						return ErrEmailTaken
					}
					return err
				}
			}
		}

		if params.Password != nil {
			hash, err := cryptox.HashPassword(*params.Password)
			if err != nil {
				return err
			}
			if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				return err
			}
		}

		updated, err = tx.Users().GetUserByID(ctx, user.ID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	l.Info("user profile updated", slog.String("user_id", userID))
	return updated, nil
}

// Delete removes the account entirely. The user row carries the refresh
// token state, so deletion also ends any active session.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	l.Info("user account deleted", slog.String("user_id", userID))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
