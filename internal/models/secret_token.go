package models

import (
	"time"
)

type TokenPurpose string

const (
	TokenPurposePasswordReset TokenPurpose = "PASSWORD_RESET"
	TokenPurposeEmailReset    TokenPurpose = "EMAIL_RESET"
)

// SecretToken backs the password-reset and email-reset flows. The row stores
// only a bcrypt hash of the secret; the plaintext exists once, inside the
// external token handed back to the requester. Lookup is always by ID —
// the hash is salted per call and cannot serve as a key.
type SecretToken struct {
	ID         string // public lookup key, a random UUID
	AccountID  string
	SecretHash string `json:"-"` // never expose the secret hash
	Purpose    TokenPurpose
	NewEmail   *string // EMAIL_RESET payload, nil otherwise
	ExpiresAt  time.Time
	Used       bool
	CreatedAt  time.Time
}

// IsExpired checks if the token has expired
func (t *SecretToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsValid checks if the token can still be confirmed
func (t *SecretToken) IsValid() bool {
	return !t.Used && !t.IsExpired()
}
