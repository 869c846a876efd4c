package models

import (
	"time"
)

type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleAdmin     Role = "ADMIN"
	RoleMainAdmin Role = "MAIN_ADMIN"
)

// ValidRole reports whether r is one of the known account roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleMainAdmin:
		return true
	}
	return false
}

type AccountStatus string

const (
	StatusActive   AccountStatus = "ACTIVE"
	StatusInactive AccountStatus = "INACTIVE"
	StatusBlocked  AccountStatus = "BLOCKED"
)

// Account is a registered user of the platform. Students carry a unique
// CodeNumber drawn from the pillar allocator and start out unverified;
// admins have no code number and are verified from creation. Accounts are
// soft-deleted only: every read path excludes rows with DeletedAt set.
type Account struct {
	ID           string
	FullName     string
	Email        string // stored lowercase, unique among live accounts
	Role         Role
	Status       AccountStatus
	CodeNumber   *int // assigned by the pillar allocator, STUDENT only
	IsVerified   bool
	PasswordHash string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsStudent reports whether the account is a student account.
func (a *Account) IsStudent() bool {
	return a.Role == RoleStudent
}

// IsAdmin reports whether the account holds any admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleMainAdmin
}
