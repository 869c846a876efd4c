package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campuskit/registry/internal/models"
	pkghttp "github.com/campuskit/registry/pkg/http"
)

// AccountResponse is the public view of an account
type AccountResponse struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	CodeNumber  *int   `json:"code_number,omitempty"`
	IsVerified  bool   `json:"is_verified"`
	LastLoginAt string `json:"last_login_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func accountToResponse(acct *models.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:         acct.ID,
		FullName:   acct.FullName,
		Email:      acct.Email,
		Role:       string(acct.Role),
		Status:     string(acct.Status),
		CodeNumber: acct.CodeNumber,
		IsVerified: acct.IsVerified,
		CreatedAt:  acct.CreatedAt.Format(time.RFC3339),
	}

	if acct.LastLoginAt != nil {
		resp.LastLoginAt = acct.LastLoginAt.Format(time.RFC3339)
	}

	return resp
}

// writeServiceError maps the core error taxonomy onto HTTP responses.
// Messages stay deliberately flat for the credential and token families so
// the response body leaks nothing the error kind doesn't already say.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrAlreadyExists):
		pkghttp.WriteConflict(w, "resource already exists")
	case errors.Is(err, models.ErrInvalidArgument):
		pkghttp.WriteBadRequest(w, "invalid request")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "invalid credentials")
	case errors.Is(err, models.ErrNotVerified):
		pkghttp.WriteForbidden(w, "account not verified")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteUnprocessable(w, "invalid_code", "verification code does not match")
	case errors.Is(err, models.ErrRetriesExhausted):
		pkghttp.WriteUnprocessable(w, "retries_exhausted", "verification code retries exhausted, request a new code")
	case errors.Is(err, models.ErrNoActiveCode):
		pkghttp.WriteUnprocessable(w, "no_active_code", "no active verification code, request a new code")
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteUnprocessable(w, "invalid_token", "invalid or expired token")
	case errors.Is(err, models.ErrCapacityExhausted):
		pkghttp.WriteInternalError(w, "registration temporarily unavailable")
	default:
		pkghttp.WriteInternalError(w, "internal error")
	}
}
