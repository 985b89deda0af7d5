package domain

import "time"

type User struct {
	ID                    string
	Name                  string
	Email                 string // stored lowercased
	PasswordHash          string // argon2 encoded
	RefreshTokenHash      *string    // SHA-256 fingerprint of the live refresh token (nullable)
	RefreshTokenExpiresAt *time.Time // nullable, set together with the hash
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasRefreshToken reports whether the user currently holds a refresh token.
func (u User) HasRefreshToken() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}
