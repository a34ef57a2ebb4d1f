package admin

import (
	"net/http"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/handler"
	"github.com/atttc/ladder/internal/service"
	"github.com/go-chi/chi/v5"
)

// AccountAdminHandler manages admin accounts and report tokens.
type AccountAdminHandler struct {
	accounts Accounts
}

// NewAccountAdminHandler creates a new AccountAdminHandler.
func NewAccountAdminHandler(accounts Accounts) *AccountAdminHandler {
	return &AccountAdminHandler{accounts: accounts}
}

// List handles GET /admin/accounts.
func (h *AccountAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, accounts)
}

type accountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Create handles POST /admin/accounts.
func (h *AccountAdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondBadBody(w)
		return
	}
	a, err := h.accounts.CreateAccount(r.Context(), req.Username, req.Password)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, a)
}

// Update handles PATCH /admin/accounts/{username}.
func (h *AccountAdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd service.AccountUpdate
	if err := handler.DecodeJSON(r, &upd); err != nil {
		handler.RespondBadBody(w)
		return
	}
	a, err := h.accounts.UpdateAccount(r.Context(), chi.URLParam(r, "username"), upd)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /admin/accounts/{username}.
func (h *AccountAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteAccount(r.Context(), chi.URLParam(r, "username")); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusNoContent, nil)
}

type tokenRequest struct {
	Type    string `json:"type"`
	Since   string `json:"since"`
	Expires string `json:"expires"`
}

// NewToken handles POST /admin/tokens.
func (h *AccountAdminHandler) NewToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondBadBody(w)
		return
	}
	if req.Type == "" {
		req.Type = domain.TokenReport
	}
	since, err := parseOptionalDate(req.Since)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	expires, err := parseOptionalDate(req.Expires)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	tok, err := h.accounts.NewToken(r.Context(), req.Type, since, timeOrZero(expires))
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, tok)
}
