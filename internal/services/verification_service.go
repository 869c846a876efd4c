package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/campuskit/registry/internal/metrics"
	"github.com/campuskit/registry/internal/models"
	pkgauth "github.com/campuskit/registry/pkg/auth"
	pkglogger "github.com/campuskit/registry/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// VerificationCodeRepository defines the interface for verification code operations
type VerificationCodeRepository interface {
	Create(ctx context.Context, tx pgx.Tx, accountID, code string, purpose models.CodePurpose, expiresAt time.Time) (*models.VerificationCode, error)
	GetActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (*models.VerificationCode, error)
	IncrementRetry(ctx context.Context, tx pgx.Tx, id string) (int, error)
	Consume(ctx context.Context, tx pgx.Tx, id string) error
	ConsumeAllActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// Allocator draws unique account code numbers
type Allocator interface {
	Allocate(ctx context.Context) (int, error)
}

// VerificationService owns registration and the verification code state
// machine. Every operation runs in one transaction; notifications go out
// only after commit.
type VerificationService struct {
	db        TxRunner
	accounts  AccountRepository
	codes     VerificationCodeRepository
	allocator Allocator
	notifier  Notifier
	logger    *slog.Logger
	audit     *pkglogger.AuditLogger
	codeTTL   time.Duration
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	db TxRunner,
	accounts AccountRepository,
	codes VerificationCodeRepository,
	allocator Allocator,
	notifier Notifier,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	codeTTL time.Duration,
) *VerificationService {
	return &VerificationService{
		db:        db,
		accounts:  accounts,
		codes:     codes,
		allocator: allocator,
		notifier:  notifier,
		logger:    logger,
		audit:     audit,
		codeTTL:   codeTTL,
	}
}

// Register creates an unverified student account, assigns it a code number
// from the allocator, and issues a verification code equal to that number.
// Allocator exhaustion aborts the registration.
func (s *VerificationService) Register(ctx context.Context, fullName, email, password string) (*models.Account, error) {
	email = normalizeEmail(email)
	if email == "" || fullName == "" {
		return nil, models.ErrInvalidArgument
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		s.logger.Info("registration rejected: weak password")
		return nil, models.ErrInvalidArgument
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternal
	}

	// Duplicate emails are rejected before a code number is drawn; the
	// in-transaction check below is the backstop for the race window.
	if _, err := s.accounts.GetByEmail(ctx, nil, email); err == nil {
		s.logger.Info("registration rejected: email in use")
		return nil, models.ErrAlreadyExists
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("registration failed", slog.Any("error", err))
		return nil, models.ErrInternal
	}

	// The allocator runs its own short transactions so partition locks are
	// never held across the account insert below.
	codeNumber, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	var created *models.Account
	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.accounts.GetByEmail(ctx, tx, email); err == nil {
			return models.ErrAlreadyExists
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		acct := &models.Account{
			FullName:     fullName,
			Email:        email,
			Role:         models.RoleStudent,
			Status:       models.StatusActive,
			CodeNumber:   &codeNumber,
			PasswordHash: passwordHash,
		}

		created, err = s.accounts.Create(ctx, tx, acct)
		if err != nil {
			return err
		}

		_, err = s.codes.Create(ctx, tx, created.ID, strconv.Itoa(codeNumber), models.CodePurposeRegistration, time.Now().Add(s.codeTTL))
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			s.logger.Info("registration rejected: email in use")
			return nil, models.ErrAlreadyExists
		}
		s.logger.Error("registration failed", slog.Any("error", err))
		return nil, models.ErrInternal
	}

	metrics.CodesIssued.WithLabelValues(string(models.CodePurposeRegistration)).Inc()
	s.logger.Info("account registered",
		slog.String("account_id", created.ID),
		slog.Int("code_number", codeNumber))

	s.notify(ctx, created.ID, email, NotifyRegistrationCode, strconv.Itoa(codeNumber))

	return created, nil
}

// Verify checks a supplied code against the account's most recent active
// registration code. A verified account succeeds idempotently without
// touching any code row. The third wrong attempt burns the code for good.
func (s *VerificationService) Verify(ctx context.Context, accountID, suppliedCode string) error {
	var outcome error

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		acct, err := s.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}

		if acct.IsVerified {
			return nil
		}

		code, err := s.codes.GetActive(ctx, tx, accountID, models.CodePurposeRegistration)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				outcome = models.ErrNoActiveCode
				return nil
			}
			return err
		}

		if !code.IsValid() {
			outcome = models.ErrNoActiveCode
			return nil
		}

		if code.Code != suppliedCode {
			retries, err := s.codes.IncrementRetry(ctx, tx, code.ID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					// a concurrent attempt burned the code between our read
					// and the bump
					outcome = models.ErrNoActiveCode
					return nil
				}
				return err
			}

			if retries >= models.MaxCodeRetries {
				if err := s.codes.Consume(ctx, tx, code.ID); err != nil {
					return err
				}
				metrics.CodesConsumed.WithLabelValues("exhausted").Inc()
				outcome = models.ErrRetriesExhausted
				return nil
			}

			outcome = models.ErrInvalidCode
			return nil
		}

		if err := s.codes.Consume(ctx, tx, code.ID); err != nil {
			return err
		}

		metrics.CodesConsumed.WithLabelValues("success").Inc()
		return s.accounts.SetVerified(ctx, tx, accountID)
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("verification failed", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternal
	}

	s.auditVerify(accountID, outcome)
	return outcome
}

// Resend burns any outstanding code, draws a fresh code number from the
// allocator, overwrites the account's public code number with it, and issues
// a new verification code equal to that value. The old number is abandoned
// permanently; the code space is large enough that this is an accepted
// trade-off rather than a leak worth plugging.
func (s *VerificationService) Resend(ctx context.Context, accountID string) error {
	acct, err := s.accounts.GetByID(ctx, nil, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to load account for resend", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternal
	}

	if acct.IsVerified {
		s.logger.Info("resend skipped: account already verified", slog.String("account_id", accountID))
		return nil
	}

	codeNumber, err := s.allocator.Allocate(ctx)
	if err != nil {
		return err
	}

	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.codes.ConsumeAllActive(ctx, tx, accountID, models.CodePurposeRegistration); err != nil {
			return err
		}

		if err := s.accounts.UpdateCodeNumber(ctx, tx, accountID, codeNumber); err != nil {
			return err
		}

		_, err := s.codes.Create(ctx, tx, accountID, strconv.Itoa(codeNumber), models.CodePurposeRegistration, time.Now().Add(s.codeTTL))
		return err
	})
	if err != nil {
		s.logger.Error("resend failed", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternal
	}

	metrics.CodesIssued.WithLabelValues(string(models.CodePurposeRegistration)).Inc()
	s.logger.Info("verification code reissued",
		slog.String("account_id", accountID),
		slog.Int("code_number", codeNumber))

	s.notify(ctx, accountID, acct.Email, NotifyRegistrationCode, strconv.Itoa(codeNumber))

	return nil
}

func (s *VerificationService) auditVerify(accountID string, outcome error) {
	event := pkglogger.AuditEvent{
		EventType: "code_verify",
		AccountID: accountID,
		Success:   outcome == nil,
	}

	switch {
	case errors.Is(outcome, models.ErrInvalidCode):
		event.FailureReason = "code_mismatch"
	case errors.Is(outcome, models.ErrRetriesExhausted):
		event.FailureReason = "retries_exhausted"
	case errors.Is(outcome, models.ErrNoActiveCode):
		event.FailureReason = "no_active_code"
	}

	s.audit.LogAuthAttempt(event)
}

func (s *VerificationService) notify(ctx context.Context, accountID, email, purpose, value string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, accountID, email, purpose, value); err != nil {
		s.logger.Error("notification failed",
			slog.String("account_id", accountID),
			slog.String("purpose", purpose),
			slog.Any("error", err))
	}
}
