package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeeping_ClearsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	_, users, st := newAuthFixture(t)

	expired := registerTestUser(t, users)
	require.NoError(t, st.Users().SetRefreshToken(ctx, expired.ID, "expired-fp", time.Now().Add(-time.Hour)))

	live, err := users.Register(ctx, "Bob", "bob@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NoError(t, st.Users().SetRefreshToken(ctx, live.ID, "live-fp", time.Now().Add(time.Hour)))

	svc := NewHousekeepingService(st, slog.Default(), time.Hour)
	svc.cleanup()

	got, err := st.Users().GetUserByID(ctx, expired.ID)
	require.NoError(t, err)
	require.False(t, got.HasRefreshToken())

	got, err = st.Users().GetUserByID(ctx, live.ID)
	require.NoError(t, err)
	require.True(t, got.HasRefreshToken())
}

func TestHousekeeping_StartStop(t *testing.T) {
	_, _, st := newAuthFixture(t)

	svc := NewHousekeepingService(st, slog.Default(), 10*time.Millisecond)
	svc.Start()

	// Give the worker a couple of ticks before shutting down
	time.Sleep(30 * time.Millisecond)
	svc.Stop()
}

func TestHousekeeping_DefaultInterval(t *testing.T) {
	_, _, st := newAuthFixture(t)

	svc := NewHousekeepingService(st, slog.Default(), 0)
	require.Equal(t, time.Hour, svc.Interval)
}
