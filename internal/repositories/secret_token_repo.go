package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/registry/internal/database"
	"github.com/campuskit/registry/internal/models"
	"github.com/jackc/pgx/v5"
)

const tokenColumns = `id, account_id, secret_hash, purpose, new_email, expires_at, used, created_at`

// SecretTokenRepository handles reset token data access
type SecretTokenRepository struct {
	pool database.Queryer
}

func NewSecretTokenRepository(db *database.DB) *SecretTokenRepository {
	return &SecretTokenRepository{pool: db.Pool}
}

func (r *SecretTokenRepository) q(tx pgx.Tx) database.Queryer {
	if tx != nil {
		return tx
	}
	return r.pool
}

func scanTokenRow(scanner rowScanner) (*models.SecretToken, error) {
	var token models.SecretToken
	var newEmail *string

	err := scanner.Scan(
		&token.ID, &token.AccountID, &token.SecretHash, &token.Purpose,
		&newEmail, &token.ExpiresAt, &token.Used, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	token.NewEmail = newEmail
	return &token, nil
}

func (r *SecretTokenRepository) Create(ctx context.Context, tx pgx.Tx, token *models.SecretToken) (*models.SecretToken, error) {
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO secret_tokens (id, account_id, secret_hash, purpose, new_email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + tokenColumns + `
	`

	created, err := scanTokenRow(r.q(tx).QueryRow(ctx, query,
		token.ID, token.AccountID, token.SecretHash, token.Purpose,
		token.NewEmail, token.ExpiresAt, token.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create secret token: %w", err)
	}

	return created, nil
}

// GetActiveByID retrieves an unused, unexpired token by its public ID.
// Lookup is never by secret hash; bcrypt output is salted per call.
func (r *SecretTokenRepository) GetActiveByID(ctx context.Context, tx pgx.Tx, id string, purpose models.TokenPurpose) (*models.SecretToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM secret_tokens
		WHERE id = $1 AND purpose = $2 AND NOT used AND expires_at > NOW()
	`

	return scanTokenRow(r.q(tx).QueryRow(ctx, query, id, purpose))
}

// MarkUsed spends the token; the used guard makes a double-spend report
// ErrNotFound.
func (r *SecretTokenRepository) MarkUsed(ctx context.Context, tx pgx.Tx, id string) error {
	result, err := r.q(tx).Exec(ctx, `
		UPDATE secret_tokens SET used = TRUE
		WHERE id = $1 AND NOT used
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// InvalidateActive spends every live token of the account for the purpose,
// keeping at most one reset in flight per account.
func (r *SecretTokenRepository) InvalidateActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.TokenPurpose) (int64, error) {
	result, err := r.q(tx).Exec(ctx, `
		UPDATE secret_tokens SET used = TRUE
		WHERE account_id = $1 AND purpose = $2 AND NOT used
	`, accountID, purpose)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate active tokens: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens long past their expiry.
func (r *SecretTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM secret_tokens
		WHERE expires_at < NOW() - INTERVAL '30 days'
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
