package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/campuskit/registry/internal/models"
	pkgauth "github.com/campuskit/registry/pkg/auth"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	GetByID(ctx context.Context, tx pgx.Tx, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Account, error)
	Create(ctx context.Context, tx pgx.Tx, acct *models.Account) (*models.Account, error)
	UpdateProfile(ctx context.Context, tx pgx.Tx, id, fullName string) (*models.Account, error)
	SetVerified(ctx context.Context, tx pgx.Tx, id string) error
	UpdateCodeNumber(ctx context.Context, tx pgx.Tx, id string, codeNumber int) error
	UpdatePasswordHash(ctx context.Context, tx pgx.Tx, id, passwordHash string) error
	UpdateEmail(ctx context.Context, tx pgx.Tx, id, email string) error
	StampLogin(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id string) error
}

// AccountService handles account reads and the administrative mutations that
// sit outside the verification and reset flows.
type AccountService struct {
	db       TxRunner
	accounts AccountRepository
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(db TxRunner, accounts AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		db:       db,
		accounts: accounts,
		logger:   logger,
	}
}

// GetAccount retrieves a live account by ID
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acct, err := s.accounts.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternal
	}

	return acct, nil
}

// UpdateProfile updates the mutable profile fields of an account
func (s *AccountService) UpdateProfile(ctx context.Context, id, fullName string) (*models.Account, error) {
	if strings.TrimSpace(fullName) == "" {
		return nil, models.ErrInvalidArgument
	}

	var updated *models.Account
	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = s.accounts.UpdateProfile(ctx, tx, id, fullName)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternal
	}

	s.logger.Info("profile updated", slog.String("account_id", id))
	return updated, nil
}

// SoftDelete marks an account deleted; the record survives but disappears
// from every core read path.
func (s *AccountService) SoftDelete(ctx context.Context, id string) error {
	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return s.accounts.SoftDelete(ctx, tx, id)
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete account", slog.String("account_id", id), slog.Any("error", err))
		return models.ErrInternal
	}

	s.logger.Info("account soft-deleted", slog.String("account_id", id))
	return nil
}

// CreateAdmin creates an admin account. Admins are verified from creation
// and carry no code number. Only a MAIN_ADMIN caller may create admins;
// student accounts go through registration instead.
func (s *AccountService) CreateAdmin(ctx context.Context, callerRole models.Role, fullName, email, password string, role models.Role) (*models.Account, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(fullName) == "" {
		return nil, models.ErrInvalidArgument
	}

	acct := &models.Account{
		FullName:   fullName,
		Email:      email,
		Role:       role,
		Status:     models.StatusActive,
		IsVerified: true,
	}
	if !models.ValidRole(role) || !acct.IsAdmin() {
		return nil, models.ErrInvalidArgument
	}

	if callerRole != models.RoleMainAdmin {
		return nil, models.ErrInvalidArgument
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrInvalidArgument
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternal
	}
	acct.PasswordHash = passwordHash

	var created *models.Account
	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.accounts.GetByEmail(ctx, tx, email); err == nil {
			return models.ErrAlreadyExists
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		created, err = s.accounts.Create(ctx, tx, acct)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return nil, models.ErrAlreadyExists
		}
		s.logger.Error("failed to create admin account", slog.Any("error", err))
		return nil, models.ErrInternal
	}

	s.logger.Info("admin account created",
		slog.String("account_id", created.ID),
		slog.String("role", string(role)))

	return created, nil
}

// normalizeEmail lowercases and trims an email for lookup and storage.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
