package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tasklist/internal/auth/metrics"
	"github.com/aussiebroadwan/tasklist/internal/auth/service"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

// LogoutHandler serves POST /api/auth/logout. It runs behind the bearer
// authn middleware, so the user identity comes from the access token.
type LogoutHandler struct {
	AuthService *service.AuthService
	Cookies     refreshCookies
}

// ServeHTTP godoc
//
//	@Summary		Logout
//	@Description	Revokes the caller's refresh token. Web clients also get the refresh cookie cleared.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Param			X-Client-Type	header	string	false	"Client type"	Enums(web, mobile)
//	@Success		204				"refresh token revoked"
//	@Failure		401				{object}	APIError	"error, error_description"
//	@Failure		404				{object}	APIError	"error, error_description"
//	@Failure		500				{object}	APIError	"error, error_description"
//	@Router			/api/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		ErrInvalidCredentials.WriteError(w)
		return
	}

	err := h.AuthService.Logout(ctx, userID)
	metrics.ObserveAuthOperation("logout", err)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			ErrUserNotFound.WriteError(w)
			return
		}
		log.Error("logout failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	if clientType(r) == clientTypeWeb {
		h.Cookies.clear(w)
	}

	w.WriteHeader(http.StatusNoContent)
}
