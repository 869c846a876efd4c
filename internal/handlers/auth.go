package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/campuskit/registry/internal/models"
	pkghttp "github.com/campuskit/registry/pkg/http"
)

// Registrar covers registration and the verification code lifecycle
type Registrar interface {
	Register(ctx context.Context, fullName, email, password string) (*models.Account, error)
	Verify(ctx context.Context, accountID, suppliedCode string) error
	Resend(ctx context.Context, accountID string) error
}

// CredentialGate validates login credentials
type CredentialGate interface {
	Login(ctx context.Context, email, password string) (*models.Account, error)
}

// AuthHandler handles registration, verification and login endpoints
type AuthHandler struct {
	registrar Registrar
	gate      CredentialGate
	logger    *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(registrar Registrar, gate CredentialGate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		registrar: registrar,
		gate:      gate,
		logger:    logger,
	}
}

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,min=1,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type verifyRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Code      string `json:"code" validate:"required"`
}

type resendRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	acct, err := h.registrar.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountToResponse(acct))
}

// Verify handles POST /v1/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.registrar.Verify(r.Context(), req.AccountID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// Resend handles POST /v1/auth/verify/resend
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.registrar.Resend(r.Context(), req.AccountID); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	acct, err := h.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(acct))
}
