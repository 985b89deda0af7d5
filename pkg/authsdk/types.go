package authsdk

// TokenResponse is returned by the login and refresh endpoints.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType"`

	// AccessTokenExpiresIn is the lifetime in seconds of the access token
	AccessTokenExpiresIn int `json:"accessTokenExpiresIn"`

	// RefreshToken is the opaque token used to obtain new access tokens.
	// It is only present for mobile clients; web clients receive it as a cookie.
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User represents a user account as returned by the service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterRequest contains the data needed to create a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest is a partial profile update. Nil fields are left unchanged;
// at least one field must be set.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// HealthResponse is the body returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency status on the readiness probe.
type HealthChecks struct {
	Database string `json:"database"`
}
