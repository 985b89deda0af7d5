package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/tasklist/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint works.
func TestLivezEndpoint(t *testing.T) {
	baseURL := setupAuthServer(t)

	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

// TestReadyzEndpoint verifies the readiness check reports the database as healthy.
func TestReadyzEndpoint(t *testing.T) {
	baseURL := setupAuthServer(t)

	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)

	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
}
