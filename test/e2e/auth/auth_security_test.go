package auth_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/tasklist/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestTamperedAccessTokenRejected verifies that flipping bits in a signed
// access token invalidates it.
func TestTamperedAccessTokenRejected(t *testing.T) {
	baseURL := setupAuthServer(t)
	client := authsdk.NewSDKClient(baseURL)

	session := registerAndLogin(t, client)
	token := session.AccessToken()

	// Corrupt the signature segment
	tampered := token[:len(token)-2] + "xx"
	require.NotEqual(t, token, tampered)

	forged := client.NewSessionFromTokens(tampered, "", 3600)
	_, err := forged.GetMe(t.Context())

	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
}

// TestForgedClaimsRejected verifies a structurally valid JWT signed with the
// wrong key is rejected.
func TestForgedClaimsRejected(t *testing.T) {
	baseURL := setupAuthServer(t)
	client := authsdk.NewSDKClient(baseURL)

	registerAndLogin(t, client)

	// A token minted by a different deployment (different secret)
	forgedToken := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiIwMUgwMDAwMDAwMDAwMDAwMDAwMDAwMDAwMCJ9." +
		"invalid-signature-segment"

	forged := client.NewSessionFromTokens(forgedToken, "", 3600)
	_, err := forged.GetMe(t.Context())
	require.Error(t, err)
}

// TestRefreshTokenIsOpaque sanity-checks the refresh token is not a JWT.
func TestRefreshTokenIsOpaque(t *testing.T) {
	baseURL := setupAuthServer(t)
	client := authsdk.NewSDKClient(baseURL)

	session := registerAndLogin(t, client)

	require.NotContains(t, session.RefreshToken(), ".",
		"refresh tokens are opaque random strings, not JWTs")
	require.Equal(t, 3, len(strings.Split(session.AccessToken(), ".")),
		"access tokens are JWTs")
}
