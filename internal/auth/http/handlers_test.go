package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/auth/service"
	"github.com/aussiebroadwan/tasklist/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tasklist/pkg/cryptox"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/jwtx"
	"github.com/aussiebroadwan/tasklist/pkg/limitx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepperPath(filepath.Join(os.TempDir(), "tasklist-http-test-pepper"))
	os.Exit(m.Run())
}

const (
	testRefreshTTL = 7 * 24 * time.Hour
	testEmail      = "alice@example.com"
	testPassword   = "correct horse battery"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "test-issuer")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(codec, "test", st, logger, testRefreshTTL, false, limitx.Config{})
	r.AuthService = &service.AuthService{
		Store:      st,
		Signer:     codec,
		Issuer:     "test-issuer",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: testRefreshTTL,
	}
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()

	return r
}

func doJSON(t *testing.T, router *Router, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerTestUser(t *testing.T, router *Router) userResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
		"name":     "Alice",
		"email":    testEmail,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeJSON[userResponse](t, rec)
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	resp := http.Response{Header: rec.Header()}
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterHandler(t *testing.T) {
	router := newTestRouter(t)

	t.Run("creates user", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
			"name":     "  Alice  ",
			"email":    "Alice@Example.com",
			"password": testPassword,
		}, nil)

		require.Equal(t, http.StatusCreated, rec.Code)
		user := decodeJSON[userResponse](t, rec)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "Alice", user.Name)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
			"name":     "Imposter",
			"email":    testEmail,
			"password": testPassword,
		}, nil)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"email_taken","error_description":"A user with this email already exists."}`, rec.Body.String())
	})

	t.Run("rejects short password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
			"name":     "Bob",
			"email":    "bob@example.com",
			"password": "short",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
			"name":     "Bob",
			"email":    "not-an-email",
			"password": testPassword,
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginHandler_Mobile(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[tokenResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.AccessTokenExpiresIn)
	require.NotNil(t, resp.RefreshToken)
	assert.NotEmpty(t, *resp.RefreshToken)

	// Mobile clients get no cookie
	assert.Nil(t, findCookie(t, rec, "refresh_token"))
}

func TestLoginHandler_Web(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, map[string]string{"X-Client-Type": "web"})

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[tokenResponse](t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Nil(t, resp.RefreshToken, "web clients must not receive the refresh token in the body")

	cookie := findCookie(t, rec, "refresh_token")
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int(testRefreshTTL.Seconds()), cookie.MaxAge)
}

func TestLoginHandler_Rejections(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    testEmail,
			"password": "wrong password",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, findCookie(t, rec, "refresh_token"))
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "nobody@example.com",
			"password": testPassword,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{"email": testEmail}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshHandler_Mobile(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	first := decodeJSON[tokenResponse](t, login)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": *first.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	second := decodeJSON[tokenResponse](t, rec)
	assert.NotEmpty(t, second.AccessToken)
	require.NotNil(t, second.RefreshToken)
	assert.NotEqual(t, *first.RefreshToken, *second.RefreshToken)

	// The rotated-out token is dead; replaying it must fail
	replay := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": *first.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.JSONEq(t, `{"error":"invalid_token","error_description":"Refresh token is missing, expired, or revoked."}`, replay.Body.String())
}

func TestRefreshHandler_Web(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, map[string]string{"X-Client-Type": "web"})
	require.Equal(t, http.StatusOK, login.Code)
	cookie := findCookie(t, login, "refresh_token")
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.Header.Set("X-Client-Type", "web")
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: cookie.Value})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[tokenResponse](t, rec)
	assert.Nil(t, resp.RefreshToken)

	rotated := findCookie(t, rec, "refresh_token")
	require.NotNil(t, rotated, "web refresh must re-set the cookie with the new token")
	assert.NotEqual(t, cookie.Value, rotated.Value)
	assert.Equal(t, "/api/auth", rotated.Path)
	assert.True(t, rotated.HttpOnly)
}

func TestRefreshHandler_Rejections(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	t.Run("web without cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.Header.Set("X-Client-Type", "web")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("mobile without token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]string{}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("mobile with unknown token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": "definitely-not-a-real-token",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	tokens := decodeJSON[tokenResponse](t, login)

	t.Run("requires bearer token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revokes refresh token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, map[string]string{
			"Authorization": "Bearer " + tokens.AccessToken,
			"X-Client-Type": "web",
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		cleared := findCookie(t, rec, "refresh_token")
		require.NotNil(t, cleared, "web logout must clear the refresh cookie")
		assert.Empty(t, cleared.Value)
		assert.Less(t, cleared.MaxAge, 0)

		// The stored refresh token is gone
		refresh := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": *tokens.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, refresh.Code)
	})

	t.Run("idempotent for tokenless user", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, map[string]string{
			"Authorization": "Bearer " + tokens.AccessToken,
		})
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Nil(t, findCookie(t, rec, "refresh_token"), "mobile logout sets no cookie")
	})
}

func TestMeHandler(t *testing.T) {
	router := newTestRouter(t)
	user := registerTestUser(t, router)

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	tokens := decodeJSON[tokenResponse](t, login)
	authz := map[string]string{"Authorization": "Bearer " + tokens.AccessToken}

	t.Run("returns current user", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/users/me", nil, authz)
		require.Equal(t, http.StatusOK, rec.Code)

		got := decodeJSON[userResponse](t, rec)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, testEmail, got.Email)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/users/me", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/users/me", nil, map[string]string{
			"Authorization": "Bearer nonsense",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("updates name", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPatch, "/api/users/me", map[string]string{
			"name": "Alice Cooper",
		}, authz)
		require.Equal(t, http.StatusOK, rec.Code)

		got := decodeJSON[userResponse](t, rec)
		assert.Equal(t, "Alice Cooper", got.Name)
	})

	t.Run("rejects empty update", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPatch, "/api/users/me", map[string]string{}, authz)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update email conflict", func(t *testing.T) {
		other := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
			"name":     "Bob",
			"email":    "bob@example.com",
			"password": testPassword,
		}, nil)
		require.Equal(t, http.StatusCreated, other.Code)

		rec := doJSON(t, router, http.MethodPatch, "/api/users/me", map[string]string{
			"email": "bob@example.com",
		}, authz)
		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDeleteMeHandler(t *testing.T) {
	router := newTestRouter(t)
	registerTestUser(t, router)

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	tokens := decodeJSON[tokenResponse](t, login)
	authz := map[string]string{"Authorization": "Bearer " + tokens.AccessToken}

	t.Run("requires bearer token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/users/me", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deletes account and clears web cookie", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/users/me", nil, map[string]string{
			"Authorization": "Bearer " + tokens.AccessToken,
			"X-Client-Type": "web",
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		cleared := findCookie(t, rec, "refresh_token")
		require.NotNil(t, cleared, "web deletion must clear the refresh cookie")
		assert.Less(t, cleared.MaxAge, 0)
	})

	t.Run("account is gone", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/users/me", nil, authz)
		require.Equal(t, http.StatusNotFound, rec.Code)

		// The refresh token was revoked along with the account
		refresh := doJSON(t, router, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": *tokens.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, refresh.Code)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/users/me", nil, authz)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRateLimitHeadersAndExhaustion(t *testing.T) {
	// Shrink the auth profile so the test can exhaust it quickly. The
	// registries snapshot the profile at construction time.
	orig := httpx.AuthLimit
	httpx.AuthLimit = httpx.RateLimitProfile{Requests: 3, Window: time.Minute}
	t.Cleanup(func() { httpx.AuthLimit = orig })

	router := newTestRouter(t)
	registerTestUser(t, router)

	body := map[string]string{"email": testEmail, "password": "wrong password"}

	for i := range 3 {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", body, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limit_exceeded","error_description":"Too many requests. Please try again later."}`, rec.Body.String())
}

func TestRateLimitPrecedesAuthentication(t *testing.T) {
	orig := httpx.AuthLimit
	httpx.AuthLimit = httpx.RateLimitProfile{Requests: 2, Window: time.Minute}
	t.Cleanup(func() { httpx.AuthLimit = orig })

	router := newTestRouter(t)
	badBearer := map[string]string{"Authorization": "Bearer not-a-real-token"}

	// Unauthenticated rejections still consume the bucket and carry the
	// limit headers
	for i := range 2 {
		rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, badBearer)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	// Once the bucket is empty the caller gets 429, never a verdict on
	// the credentials themselves
	rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, badBearer)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("livez", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/livez", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		health := decodeJSON[HealthResponse](t, rec)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, "test", health.Version)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/readyz", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		health := decodeJSON[HealthResponse](t, rec)
		assert.Equal(t, "ok", health.Status)
		require.NotNil(t, health.Checks)
		assert.Equal(t, "ok", health.Checks.Database)
	})
}
