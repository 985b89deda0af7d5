package domain

import "time"

// TokenPair is the result of a successful login or refresh: a short-lived
// JWT access token plus the opaque refresh token that replaces any previous
// one for the user.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}
