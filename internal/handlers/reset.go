package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	pkghttp "github.com/campuskit/registry/pkg/http"
)

// Resetter covers the password and email reset token flows
type Resetter interface {
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, externalToken, newPassword string) error
	RequestEmailReset(ctx context.Context, accountID, oldEmail, newEmail string) (string, error)
	ConfirmEmailReset(ctx context.Context, externalToken string) error
}

// ResetHandler handles password and email reset endpoints
type ResetHandler struct {
	resets Resetter
	logger *slog.Logger
}

// NewResetHandler creates a new ResetHandler
func NewResetHandler(resets Resetter, logger *slog.Logger) *ResetHandler {
	return &ResetHandler{
		resets: resets,
		logger: logger,
	}
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type emailResetRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	OldEmail  string `json:"old_email" validate:"required,email"`
	NewEmail  string `json:"new_email" validate:"required,email"`
}

type emailResetConfirm struct {
	Token string `json:"token" validate:"required"`
}

// RequestPasswordReset handles POST /v1/reset/password
//
// The response is the same generic acknowledgement whether or not the email
// maps to an account. The token itself only travels through the notifier.
func (h *ResetHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.resets.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "if the email is registered, a reset link has been sent",
	})
}

// ConfirmPasswordReset handles POST /v1/reset/password/confirm
func (h *ResetHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.resets.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

// RequestEmailReset handles POST /v1/reset/email
func (h *ResetHandler) RequestEmailReset(w http.ResponseWriter, r *http.Request) {
	var req emailResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.resets.RequestEmailReset(r.Context(), req.AccountID, req.OldEmail, req.NewEmail); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "a confirmation link has been sent to the new address",
	})
}

// ConfirmEmailReset handles POST /v1/reset/email/confirm
func (h *ResetHandler) ConfirmEmailReset(w http.ResponseWriter, r *http.Request) {
	var req emailResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.resets.ConfirmEmailReset(r.Context(), req.Token); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "email_updated"})
}
