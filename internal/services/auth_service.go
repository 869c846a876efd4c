package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campuskit/registry/internal/models"
	pkgauth "github.com/campuskit/registry/pkg/auth"
	pkglogger "github.com/campuskit/registry/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// AuthService is the credential gate: it validates login credentials against
// the account store and verification state. It issues nothing; session
// handling belongs to the upstream caller.
type AuthService struct {
	db       TxRunner
	accounts AccountRepository
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(db TxRunner, accounts AccountRepository, logger *slog.Logger, audit *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		db:       db,
		accounts: accounts,
		logger:   logger,
		audit:    audit,
	}
}

// Login validates credentials and returns the account on success, stamping
// its last-login time. Unknown email, wrong password and non-active status
// all collapse into ErrInvalidCredentials; only an unverified student gets
// the distinct ErrNotVerified, since that state has a legitimate next step.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, models.ErrInvalidCredentials
	}

	var acct *models.Account
	var outcome error

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		found, err := s.accounts.GetByEmail(ctx, tx, email)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				outcome = models.ErrInvalidCredentials
				s.logFailure("", "invalid_credentials")
				return nil
			}
			return err
		}

		if err := pkgauth.ComparePassword(found.PasswordHash, password); err != nil {
			outcome = models.ErrInvalidCredentials
			s.logFailure(found.ID, "invalid_credentials")
			return nil
		}

		if found.Status != models.StatusActive {
			outcome = models.ErrInvalidCredentials
			s.logFailure(found.ID, "account_"+string(found.Status))
			return nil
		}

		if found.IsStudent() && !found.IsVerified {
			outcome = models.ErrNotVerified
			s.logFailure(found.ID, "not_verified")
			return nil
		}

		if err := s.accounts.StampLogin(ctx, tx, found.ID, time.Now()); err != nil {
			return err
		}

		acct = found
		return nil
	})
	if err != nil {
		s.logger.Error("login failed", slog.Any("error", err))
		return nil, models.ErrInternal
	}

	if outcome != nil {
		return nil, outcome
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: acct.ID,
		Success:   true,
	})

	return acct, nil
}

func (s *AuthService) logFailure(accountID, reason string) {
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     accountID,
		FailureReason: reason,
		Success:       false,
	})
}
