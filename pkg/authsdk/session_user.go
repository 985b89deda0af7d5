package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetMe retrieves the profile of the authenticated user.
// Automatically refreshes the access token if expired.
func (s *Session) GetMe(ctx context.Context) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/users/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}

	return &user, nil
}

// DeleteMe permanently deletes the authenticated user's account. The
// session's refresh token is revoked server-side, so the session cannot
// be used afterwards.
func (s *Session) DeleteMe(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/users/me", nil, nil)
	if err != nil {
		return err
	}

	if err := checkStatusNoContent(resp); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()

	return nil
}

// UpdateMe applies a partial profile update and returns the updated user.
// At least one field of req must be set.
func (s *Session) UpdateMe(ctx context.Context, req UpdateUserRequest) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/api/users/me", bytes.NewReader(body), jsonHeaders)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}

	return &user, nil
}
