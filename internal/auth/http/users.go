package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tasklist/internal/auth/domain"
	"github.com/aussiebroadwan/tasklist/internal/auth/metrics"
	"github.com/aussiebroadwan/tasklist/internal/auth/service"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

const minPasswordLength = 8

// RegisterHandler serves POST /api/users.
type RegisterHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Register a new user
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"New user details"
//	@Success		201		{object}	userResponse
//	@Failure		400		{object}	APIError	"error, error_description"
//	@Failure		409		{object}	APIError	"error, error_description"
//	@Failure		500		{object}	APIError	"error, error_description"
//	@Router			/api/users [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidBody.WriteError(w)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		ValidationError("name is required").WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		ValidationError("a valid email is required").WriteError(w)
		return
	}
	if len(req.Password) < minPasswordLength {
		ValidationError("password must be at least 8 characters").WriteError(w)
		return
	}

	user, err := h.UserService.Register(ctx, req.Name, req.Email, req.Password)
	metrics.ObserveAuthOperation("register", err)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			ErrEmailTaken.WriteError(w)
			return
		}
		log.Error("register failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newUserResponse(user))
}

// MeHandler serves GET /api/users/me for the authenticated user.
type MeHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Get the current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	userResponse
//	@Failure		401	{object}	APIError	"error, error_description"
//	@Failure		404	{object}	APIError	"error, error_description"
//	@Router			/api/users/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		ErrInvalidCredentials.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			ErrUserNotFound.WriteError(w)
			return
		}
		log.Error("get user failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newUserResponse(user))
}

// DeleteMeHandler serves DELETE /api/users/me. Removing the user row also
// invalidates the stored refresh token, so no separate revocation step is
// needed.
type DeleteMeHandler struct {
	UserService *service.UserService
	Cookies     refreshCookies
}

// ServeHTTP godoc
//
//	@Summary		Delete the current user
//	@Description	Permanently removes the account and revokes its refresh token.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			X-Client-Type	header	string	false	"Client type"	Enums(web, mobile)
//	@Success		204				"account deleted"
//	@Failure		401				{object}	APIError	"error, error_description"
//	@Failure		404				{object}	APIError	"error, error_description"
//	@Failure		500				{object}	APIError	"error, error_description"
//	@Router			/api/users/me [delete].
func (h *DeleteMeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		ErrInvalidCredentials.WriteError(w)
		return
	}

	err := h.UserService.Delete(ctx, userID)
	metrics.ObserveAuthOperation("delete_account", err)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			ErrUserNotFound.WriteError(w)
			return
		}
		log.Error("delete user failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	if clientType(r) == clientTypeWeb {
		h.Cookies.clear(w)
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMeHandler serves PATCH /api/users/me.
type UpdateMeHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Update the current user
//	@Description	Applies a partial update. At least one of name, email, or password must be set.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		updateUserRequest	true	"Fields to update"
//	@Success		200		{object}	userResponse
//	@Failure		400		{object}	APIError	"error, error_description"
//	@Failure		401		{object}	APIError	"error, error_description"
//	@Failure		409		{object}	APIError	"error, error_description"
//	@Failure		500		{object}	APIError	"error, error_description"
//	@Router			/api/users/me [patch].
func (h *UpdateMeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		ErrInvalidCredentials.WriteError(w)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidBody.WriteError(w)
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		ValidationError("name cannot be blank").WriteError(w)
		return
	}
	if req.Email != nil && (strings.TrimSpace(*req.Email) == "" || !strings.Contains(*req.Email, "@")) {
		ValidationError("a valid email is required").WriteError(w)
		return
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		ValidationError("password must be at least 8 characters").WriteError(w)
		return
	}

	user, err := h.UserService.Update(ctx, userID, service.UpdateUserParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyUpdate):
			ValidationError("at least one field must be provided").WriteError(w)
		case errors.Is(err, service.ErrEmailTaken):
			ErrEmailTaken.WriteError(w)
		case errors.Is(err, service.ErrUserNotFound):
			ErrUserNotFound.WriteError(w)
		default:
			log.Error("update user failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newUserResponse(user))
}
