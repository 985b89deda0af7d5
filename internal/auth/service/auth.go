package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/auth/domain"
	"github.com/aussiebroadwan/tasklist/internal/auth/store"
	"github.com/aussiebroadwan/tasklist/pkg/cryptox"
	"github.com/aussiebroadwan/tasklist/pkg/jwtx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrUserNotFound       = errors.New("user_not_found")
)

// AuthService owns the session credential lifecycle: password login, refresh
// token rotation, and logout. Access tokens are stateless JWTs; the refresh
// token is an opaque value whose fingerprint lives on the user row.
type AuthService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies the email/password pair and, on success, issues a token
// pair. The new refresh token displaces any token the user already held, so
// a login on one device signs the refresh session out everywhere else.
//
// Unknown emails and wrong passwords both come back as
// ErrInvalidCredentials so the response never leaks which one it was.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so the unknown-email path costs the
			// same as a wrong password
			compareDummyPassword(password)
			l.Info("login failed: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed: bad password", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	pair, fingerprint, expiresAt, err := s.mintPair(user, now)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Users().SetRefreshToken(ctx, user.ID, fingerprint, expiresAt); err != nil {
		return nil, err
	}

	l.Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh trades a live refresh token for a fresh token pair. The presented
// token is rotated out in the same step: it can never succeed twice. A
// replayed, unknown, or expired token yields ErrInvalidRefresh.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*domain.TokenPair, error) {
	// Blank tokens never reach storage
	if strings.TrimSpace(presented) == "" {
		return nil, ErrInvalidRefresh
	}

	now := time.Now()
	l := slogx.FromContext(ctx)

	fingerprint := cryptox.FingerprintToken(presented)

	user, err := s.Store.Users().GetUserByRefreshTokenHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh failed: token not recognised")
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if user.RefreshTokenExpiresAt == nil || now.After(*user.RefreshTokenExpiresAt) {
		// Best effort: the 401 goes out whether or not the cleanup lands
		if err := s.Store.Users().ClearRefreshToken(ctx, user.ID); err != nil {
			l.Warn("failed to clear expired refresh token", slog.String("user_id", user.ID), slog.Any("err", err))
		}
		l.Info("refresh failed: token expired", slog.String("user_id", user.ID))
		return nil, ErrInvalidRefresh
	}

	pair, newFingerprint, expiresAt, err := s.mintPair(user, now)
	if err != nil {
		return nil, err
	}

	// Conditional swap keyed on the presented fingerprint. Of two
	// concurrent refreshes with the same token, exactly one lands here;
	// the loser sees ErrNotFound.
	err = s.Store.Users().RotateRefreshToken(ctx, user.ID, fingerprint, newFingerprint, expiresAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh failed: lost rotation race", slog.String("user_id", user.ID))
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	l.Info("tokens refreshed", slog.String("user_id", user.ID))
	return pair, nil
}

// Logout revokes the user's refresh token. Previously issued access tokens
// stay valid until their expiry since they are verified statelessly.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.Store.Users().ClearRefreshToken(ctx, user.ID); err != nil {
		return err
	}

	l.Info("user logged out", slog.String("user_id", user.ID))
	return nil
}

// mintPair signs an access token and generates a fresh opaque refresh token.
// It returns the pair plus the refresh token's fingerprint and expiry for
// the caller to persist.
func (s *AuthService) mintPair(user domain.User, now time.Time) (*domain.TokenPair, string, time.Time, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Email, s.Issuer, s.AccessTTL, now)
	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	refreshToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	pair := &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.AccessTTL,
	}
	return pair, cryptox.FingerprintToken(refreshToken), now.Add(s.RefreshTTL), nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummyPassword runs a full argon2 verification against a throwaway
// hash so failed lookups and failed verifications take comparable time.
func compareDummyPassword(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword(cryptox.MustGenerateToken(cryptox.TokenSize256))
	})
	_ = cryptox.VerifyPassword(password, dummyHash)
}
