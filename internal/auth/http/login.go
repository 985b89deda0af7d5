package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tasklist/internal/auth/metrics"
	"github.com/aussiebroadwan/tasklist/internal/auth/service"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the success body for login and refresh. RefreshToken is
// a pointer so it serializes as an explicit null for web clients, whose
// refresh token travels in the HttpOnly cookie instead.
type tokenResponse struct {
	AccessToken          string  `json:"accessToken"`
	TokenType            string  `json:"tokenType"`
	AccessTokenExpiresIn int64   `json:"accessTokenExpiresIn"`
	RefreshToken         *string `json:"refreshToken"`
}

// LoginHandler serves POST /api/auth/login.
type LoginHandler struct {
	AuthService *service.AuthService
	Cookies     refreshCookies
}

// ServeHTTP godoc
//
//	@Summary		Login with email and password
//	@Description	Verifies credentials and issues a JWT access token plus a rotating refresh token.
//	@Description	Web clients (X-Client-Type: web) receive the refresh token as an HttpOnly cookie;
//	@Description	mobile clients receive it in the response body.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Client-Type	header		string			false	"Client type"	Enums(web, mobile)
//	@Param			request			body		loginRequest	true	"Credentials"
//	@Success		200				{object}	tokenResponse
//	@Failure		400				{object}	APIError	"error, error_description"
//	@Failure		401				{object}	APIError	"error, error_description"
//	@Failure		500				{object}	APIError	"error, error_description"
//	@Router			/api/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidBody.WriteError(w)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		ValidationError("email is required").WriteError(w)
		return
	}
	if req.Password == "" {
		ValidationError("password is required").WriteError(w)
		return
	}

	pair, err := h.AuthService.Login(ctx, req.Email, req.Password)
	metrics.ObserveAuthOperation("login", err)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	resp := tokenResponse{
		AccessToken:          pair.AccessToken,
		TokenType:            "Bearer",
		AccessTokenExpiresIn: int64(pair.ExpiresIn.Seconds()),
	}

	if clientType(r) == clientTypeWeb {
		h.Cookies.set(w, pair.RefreshToken)
	} else {
		resp.RefreshToken = &pair.RefreshToken
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
