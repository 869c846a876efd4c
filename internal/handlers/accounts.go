package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/campuskit/registry/internal/auth"
	"github.com/campuskit/registry/internal/models"
	pkghttp "github.com/campuskit/registry/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AccountReader covers account reads and administrative mutations
type AccountReader interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id, fullName string) (*models.Account, error)
	SoftDelete(ctx context.Context, id string) error
	CreateAdmin(ctx context.Context, callerRole models.Role, fullName, email, password string, role models.Role) (*models.Account, error)
}

// AccountHandler handles account CRUD endpoints
type AccountHandler struct {
	accounts AccountReader
	logger   *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts AccountReader, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

type updateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=1,max=120"`
}

type createAdminRequest struct {
	FullName string `json:"full_name" validate:"required,min=1,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=ADMIN MAIN_ADMIN"`
}

// Get handles GET /v1/accounts/{accountID}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	acct, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(acct))
}

// Update handles PATCH /v1/accounts/{accountID}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	acct, err := h.accounts.UpdateProfile(r.Context(), accountID, req.FullName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(acct))
}

// Delete handles DELETE /v1/accounts/{accountID}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	if err := h.accounts.SoftDelete(r.Context(), accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateAdmin handles POST /v1/accounts. The caller's role comes from the
// service token; anything short of MAIN_ADMIN is rejected downstream.
func (h *AccountHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "missing caller identity")
		return
	}

	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	acct, err := h.accounts.CreateAdmin(r.Context(), caller.Role, req.FullName, req.Email, req.Password, models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountToResponse(acct))
}

func pathAccountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := chi.URLParam(r, "accountID")
	if _, err := uuid.Parse(accountID); err != nil {
		pkghttp.WriteBadRequest(w, "invalid account ID")
		return "", false
	}
	return accountID, true
}
