package handler

import (
	"context"
	"net/http"

	"github.com/atttc/ladder/internal/service"
)

// Authenticator is the part of the account service the auth routes use.
type Authenticator interface {
	Login(ctx context.Context, input service.LoginInput, clientIP string) (*service.AuthResult, error)
	NoAdmins(ctx context.Context) (bool, error)
	Bootstrap(ctx context.Context, username, password string) (*service.AuthResult, error)
}

// AuthHandler handles login and first-admin bootstrap.
type AuthHandler struct {
	accounts Authenticator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts Authenticator) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	result, err := h.accounts.Login(r.Context(), input, ClientIP(r))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

type bootstrapRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Bootstrap handles POST /auth/bootstrap. It only works while no admin exists.
func (h *AuthHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	none, err := h.accounts.NoAdmins(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	if !none {
		RespondJSON(w, http.StatusForbidden, map[string]string{
			"code":    "FORBIDDEN",
			"message": "an admin account already exists",
		})
		return
	}

	var input bootstrapRequest
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}
	result, err := h.accounts.Bootstrap(r.Context(), input.Username, input.Password)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, result)
}
