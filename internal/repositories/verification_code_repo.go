package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/registry/internal/database"
	"github.com/campuskit/registry/internal/models"
	"github.com/jackc/pgx/v5"
)

const codeColumns = `id, account_id, code, purpose, expires_at, retry_count, consumed_at, created_at`

// VerificationCodeRepository handles verification code data access
type VerificationCodeRepository struct {
	pool database.Queryer
}

func NewVerificationCodeRepository(db *database.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{pool: db.Pool}
}

func (r *VerificationCodeRepository) q(tx pgx.Tx) database.Queryer {
	if tx != nil {
		return tx
	}
	return r.pool
}

// scanCodeRow handles nullable fields and populates a VerificationCode model from a database row
func scanCodeRow(scanner rowScanner) (*models.VerificationCode, error) {
	var code models.VerificationCode
	var consumedAt *time.Time

	err := scanner.Scan(
		&code.ID, &code.AccountID, &code.Code, &code.Purpose,
		&code.ExpiresAt, &code.RetryCount, &consumedAt, &code.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	code.ConsumedAt = consumedAt
	return &code, nil
}

// Create inserts a fresh code with retry_count 0 and no consumption mark.
func (r *VerificationCodeRepository) Create(ctx context.Context, tx pgx.Tx, accountID, code string, purpose models.CodePurpose, expiresAt time.Time) (*models.VerificationCode, error) {
	query := `
		INSERT INTO verification_codes (account_id, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + codeColumns + `
	`

	created, err := scanCodeRow(r.q(tx).QueryRow(ctx, query, accountID, code, purpose, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create verification code: %w", err)
	}

	return created, nil
}

// GetActive returns the most recently created code that can still be
// attempted: unconsumed, unexpired, retries remaining.
func (r *VerificationCodeRepository) GetActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	query := `
		SELECT ` + codeColumns + `
		FROM verification_codes
		WHERE account_id = $1 AND purpose = $2
		  AND consumed_at IS NULL AND expires_at > NOW() AND retry_count < $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanCodeRow(r.q(tx).QueryRow(ctx, query, accountID, purpose, models.MaxCodeRetries))
}

// IncrementRetry bumps the retry counter in place and returns the new value.
// The counter moves inside the UPDATE itself, under its row lock, so
// concurrent wrong attempts serialize and none is lost. A consumed or
// already-exhausted code reports ErrNotFound.
func (r *VerificationCodeRepository) IncrementRetry(ctx context.Context, tx pgx.Tx, id string) (int, error) {
	var retryCount int
	err := r.q(tx).QueryRow(ctx, `
		UPDATE verification_codes SET retry_count = retry_count + 1
		WHERE id = $1 AND consumed_at IS NULL AND retry_count < $2
		RETURNING retry_count
	`, id, models.MaxCodeRetries).Scan(&retryCount)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return retryCount, nil
}

// Consume marks the code spent. Idempotence is enforced by the consumed_at
// guard: a second consume reports ErrNotFound.
func (r *VerificationCodeRepository) Consume(ctx context.Context, tx pgx.Tx, id string) error {
	result, err := r.q(tx).Exec(ctx, `
		UPDATE verification_codes SET consumed_at = NOW()
		WHERE id = $1 AND consumed_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ConsumeAllActive burns every outstanding code for the account and purpose.
// Used by resend before a new code is issued.
func (r *VerificationCodeRepository) ConsumeAllActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (int64, error) {
	result, err := r.q(tx).Exec(ctx, `
		UPDATE verification_codes SET consumed_at = NOW()
		WHERE account_id = $1 AND purpose = $2 AND consumed_at IS NULL
	`, accountID, purpose)
	if err != nil {
		return 0, fmt.Errorf("failed to consume active codes: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteExpired removes codes long past their expiry; called by the
// background cleanup, never by a core operation.
func (r *VerificationCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM verification_codes
		WHERE expires_at < NOW() - INTERVAL '30 days'
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired codes: %w", err)
	}

	return result.RowsAffected(), nil
}
