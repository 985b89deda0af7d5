package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/tasklist/internal/auth/metrics"
	"github.com/aussiebroadwan/tasklist/internal/auth/service"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshHandler serves POST /api/auth/refresh.
type RefreshHandler struct {
	AuthService *service.AuthService
	Cookies     refreshCookies
}

// ServeHTTP godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a valid refresh token for a fresh access token and a new refresh token.
//	@Description	The presented token is consumed: replaying it fails with 401. Web clients send the
//	@Description	token via the refresh cookie and get the replacement the same way; mobile clients
//	@Description	use the request body.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Client-Type	header		string			false	"Client type"	Enums(web, mobile)
//	@Param			request			body		refreshRequest	false	"Refresh token (mobile clients)"
//	@Success		200				{object}	tokenResponse
//	@Failure		401				{object}	APIError	"error, error_description"
//	@Failure		500				{object}	APIError	"error, error_description"
//	@Router			/api/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	web := clientType(r) == clientTypeWeb

	var token string
	if web {
		cookieToken, ok := h.Cookies.read(r)
		if !ok {
			ErrInvalidRefreshToken.WriteError(w)
			return
		}
		token = cookieToken
	} else {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			ErrInvalidBody.WriteError(w)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.AuthService.Refresh(ctx, token)
	metrics.ObserveAuthOperation("refresh", err)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			ErrInvalidRefreshToken.WriteError(w)
			return
		}
		log.Error("refresh failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	resp := tokenResponse{
		AccessToken:          pair.AccessToken,
		TokenType:            "Bearer",
		AccessTokenExpiresIn: int64(pair.ExpiresIn.Seconds()),
	}

	if web {
		h.Cookies.set(w, pair.RefreshToken)
	} else {
		resp.RefreshToken = &pair.RefreshToken
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
