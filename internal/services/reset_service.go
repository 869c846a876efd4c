package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campuskit/registry/internal/metrics"
	"github.com/campuskit/registry/internal/models"
	pkgauth "github.com/campuskit/registry/pkg/auth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SecretTokenRepository defines the interface for reset token operations
type SecretTokenRepository interface {
	Create(ctx context.Context, tx pgx.Tx, token *models.SecretToken) (*models.SecretToken, error)
	GetActiveByID(ctx context.Context, tx pgx.Tx, id string, purpose models.TokenPurpose) (*models.SecretToken, error)
	MarkUsed(ctx context.Context, tx pgx.Tx, id string) error
	InvalidateActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.TokenPurpose) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// externalTokenSeparator joins the public token ID and the plaintext secret
// in the caller-facing token. Only the ID side is ever persisted in clear.
const externalTokenSeparator = "."

// ResetService is the secret token engine behind password reset and email
// reset. Tokens pair a random UUID lookup key with a bcrypt hash of a
// high-entropy secret; absent, expired, used and wrong-secret all collapse
// into the same ErrInvalidToken so a caller learns nothing from the failure
// mode.
type ResetService struct {
	db       TxRunner
	accounts AccountRepository
	tokens   SecretTokenRepository
	notifier Notifier
	logger   *slog.Logger
	tokenTTL time.Duration
}

// NewResetService creates a new ResetService
func NewResetService(
	db TxRunner,
	accounts AccountRepository,
	tokens SecretTokenRepository,
	notifier Notifier,
	logger *slog.Logger,
	tokenTTL time.Duration,
) *ResetService {
	return &ResetService{
		db:       db,
		accounts: accounts,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// RequestPasswordReset issues a reset token for the account behind the email.
// The returned external token is empty when no account matches: the HTTP
// layer answers with the same generic acknowledgement either way, and the
// token travels only through the notifier. Any prior outstanding
// password-reset token is invalidated first.
func (s *ResetService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	acct, err := s.accounts.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return "", nil
		}
		s.logger.Error("failed to look up account for password reset", slog.Any("error", err))
		return "", models.ErrInternal
	}

	external, err := s.issue(ctx, acct.ID, models.TokenPurposePasswordReset, nil)
	if err != nil {
		return "", err
	}

	s.notifyToken(ctx, acct.ID, acct.Email, NotifyPasswordReset, external)
	return external, nil
}

// ConfirmPasswordReset spends a reset token and installs the new password.
func (s *ResetService) ConfirmPasswordReset(ctx context.Context, externalToken, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.ErrInvalidArgument
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternal
	}

	return s.confirm(ctx, externalToken, models.TokenPurposePasswordReset, func(tx pgx.Tx, token *models.SecretToken) error {
		return s.accounts.UpdatePasswordHash(ctx, tx, token.AccountID, newHash)
	})
}

// RequestEmailReset issues a token that, once confirmed, swaps the account's
// email for newEmail. The supplied old email must match the account's
// current address; this flow sits behind the caller-identity check, so the
// mismatch is reported as ErrNotFound rather than masked. Any prior
// outstanding email-reset token is invalidated first.
func (s *ResetService) RequestEmailReset(ctx context.Context, accountID, oldEmail, newEmail string) (string, error) {
	oldEmail = normalizeEmail(oldEmail)
	newEmail = normalizeEmail(newEmail)
	if newEmail == "" {
		return "", models.ErrInvalidArgument
	}

	acct, err := s.accounts.GetByID(ctx, nil, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to look up account for email reset", slog.Any("error", err))
		return "", models.ErrInternal
	}

	if acct.Email != oldEmail {
		s.logger.Info("email reset rejected: old email mismatch", slog.String("account_id", accountID))
		return "", models.ErrNotFound
	}

	if _, err := s.accounts.GetByEmail(ctx, nil, newEmail); err == nil {
		return "", models.ErrAlreadyExists
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check new email uniqueness", slog.Any("error", err))
		return "", models.ErrInternal
	}

	external, err := s.issue(ctx, acct.ID, models.TokenPurposeEmailReset, &newEmail)
	if err != nil {
		return "", err
	}

	// The token goes to the address being claimed, proving the requester
	// controls it before the swap happens.
	s.notifyToken(ctx, acct.ID, newEmail, NotifyEmailReset, external)
	return external, nil
}

// ConfirmEmailReset spends an email-reset token and applies the address swap,
// re-checking that the new address is still unclaimed.
func (s *ResetService) ConfirmEmailReset(ctx context.Context, externalToken string) error {
	return s.confirm(ctx, externalToken, models.TokenPurposeEmailReset, func(tx pgx.Tx, token *models.SecretToken) error {
		if token.NewEmail == nil {
			return fmt.Errorf("email reset token %s has no payload", token.ID)
		}

		if _, err := s.accounts.GetByEmail(ctx, tx, *token.NewEmail); err == nil {
			return models.ErrAlreadyExists
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		return s.accounts.UpdateEmail(ctx, tx, token.AccountID, *token.NewEmail)
	})
}

// issue mints a token: random UUID for lookup, bcrypt hash of a fresh
// 32-byte secret for verification, and the one-time external form
// "tokenId.secret" for the caller.
func (s *ResetService) issue(ctx context.Context, accountID string, purpose models.TokenPurpose, newEmail *string) (string, error) {
	secret, err := pkgauth.GenerateSecret()
	if err != nil {
		s.logger.Error("failed to generate token secret", slog.Any("error", err))
		return "", models.ErrInternal
	}

	secretHash, err := pkgauth.HashSecret(secret)
	if err != nil {
		s.logger.Error("failed to hash token secret", slog.Any("error", err))
		return "", models.ErrInternal
	}

	token := &models.SecretToken{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		SecretHash: secretHash,
		Purpose:    purpose,
		NewEmail:   newEmail,
		ExpiresAt:  time.Now().Add(s.tokenTTL),
	}

	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.tokens.InvalidateActive(ctx, tx, accountID, purpose); err != nil {
			return err
		}

		_, err := s.tokens.Create(ctx, tx, token)
		return err
	})
	if err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("account_id", accountID),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err))
		return "", models.ErrInternal
	}

	metrics.TokensIssued.WithLabelValues(string(purpose)).Inc()
	s.logger.Info("reset token issued",
		slog.String("account_id", accountID),
		slog.String("token_id", token.ID),
		slog.String("purpose", string(purpose)))

	return token.ID + externalTokenSeparator + secret, nil
}

// confirm parses and spends an external token, then applies the
// purpose-specific effect inside the same transaction.
func (s *ResetService) confirm(ctx context.Context, externalToken string, purpose models.TokenPurpose, apply func(pgx.Tx, *models.SecretToken) error) error {
	tokenID, secret, ok := splitExternalToken(externalToken)
	if !ok {
		return models.ErrInvalidToken
	}

	var outcome error
	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		token, err := s.tokens.GetActiveByID(ctx, tx, tokenID, purpose)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				outcome = models.ErrInvalidToken
				return nil
			}
			return err
		}

		if err := pkgauth.CompareSecret(token.SecretHash, secret); err != nil {
			s.logger.Warn("reset token secret mismatch", slog.String("token_id", token.ID))
			outcome = models.ErrInvalidToken
			return nil
		}

		if err := apply(tx, token); err != nil {
			return err
		}

		return s.tokens.MarkUsed(ctx, tx, token.ID)
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return models.ErrAlreadyExists
		}
		s.logger.Error("reset confirmation failed", slog.String("purpose", string(purpose)), slog.Any("error", err))
		return models.ErrInternal
	}

	if outcome == nil {
		metrics.TokensConsumed.WithLabelValues(string(purpose)).Inc()
		s.logger.Info("reset confirmed", slog.String("purpose", string(purpose)))
	}

	return outcome
}

func splitExternalToken(external string) (tokenID, secret string, ok bool) {
	parts := strings.SplitN(external, externalTokenSeparator, 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		return "", "", false
	}

	return id.String(), parts[1], true
}

func (s *ResetService) notifyToken(ctx context.Context, accountID, email, purpose, external string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, accountID, email, purpose, external); err != nil {
		s.logger.Error("notification failed",
			slog.String("account_id", accountID),
			slog.String("purpose", purpose),
			slog.Any("error", err))
	}
}
