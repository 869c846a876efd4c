package models

import (
	"time"
)

type CodePurpose string

const (
	CodePurposeRegistration CodePurpose = "REGISTRATION"
	CodePurposeEmailChange  CodePurpose = "EMAIL_CHANGE"
)

// MaxCodeRetries is the number of wrong attempts allowed before a code is
// burned. The third miss consumes the code permanently.
const MaxCodeRetries = 3

// VerificationCode is a short-lived, human-typable code bound to an account.
// A code becomes permanently inert once consumed, whether the consumption was
// a successful match or retry exhaustion. Expiry is evaluated at read time;
// nothing sweeps codes into an expired state.
type VerificationCode struct {
	ID         string
	AccountID  string
	Code       string
	Purpose    CodePurpose
	ExpiresAt  time.Time
	RetryCount int
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// IsExpired checks if the code has expired
func (c *VerificationCode) IsExpired() bool {
	return !time.Now().Before(c.ExpiresAt)
}

// IsConsumed checks if the code has already been spent
func (c *VerificationCode) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// IsValid checks if the code can still be attempted
func (c *VerificationCode) IsValid() bool {
	return !c.IsConsumed() && !c.IsExpired() && c.RetryCount < MaxCodeRetries
}
