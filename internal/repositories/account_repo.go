package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/campuskit/registry/internal/database"
	"github.com/campuskit/registry/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, full_name, email, role, status, code_number, is_verified, password_hash, last_login_at, created_at, updated_at, deleted_at`

type AccountRepository struct {
	pool database.Queryer
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// q returns the transaction when one is open, otherwise the pool.
func (r *AccountRepository) q(tx pgx.Tx) database.Queryer {
	if tx != nil {
		return tx
	}
	return r.pool
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccountRow handles nullable fields and populates an Account model from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var acct models.Account
	var codeNumber *int
	var lastLoginAt, deletedAt *time.Time

	err := scanner.Scan(
		&acct.ID, &acct.FullName, &acct.Email, &acct.Role, &acct.Status,
		&codeNumber, &acct.IsVerified, &acct.PasswordHash,
		&lastLoginAt, &acct.CreatedAt, &acct.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	acct.CodeNumber = codeNumber
	acct.LastLoginAt = lastLoginAt
	acct.DeletedAt = deletedAt

	return &acct, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, tx pgx.Tx, id string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = $1 AND deleted_at IS NULL
	`

	return scanAccountRow(r.q(tx).QueryRow(ctx, query, id))
}

// GetByEmail looks up a live account by case-insensitive email.
func (r *AccountRepository) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL
	`

	return scanAccountRow(r.q(tx).QueryRow(ctx, query, email))
}

func (r *AccountRepository) Create(ctx context.Context, tx pgx.Tx, acct *models.Account) (*models.Account, error) {
	acct.ID = uuid.New().String()
	acct.Email = strings.ToLower(acct.Email)

	now := time.Now()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	if acct.Status == "" {
		acct.Status = models.StatusActive
	}

	query := `
		INSERT INTO accounts (id, full_name, email, role, status, code_number, is_verified, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + accountColumns + `
	`

	return scanAccountRow(r.q(tx).QueryRow(ctx, query,
		acct.ID, acct.FullName, acct.Email, acct.Role, acct.Status,
		acct.CodeNumber, acct.IsVerified, acct.PasswordHash,
		acct.CreatedAt, acct.UpdatedAt,
	))
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, tx pgx.Tx, id, fullName string) (*models.Account, error) {
	query := `
		UPDATE accounts SET full_name = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING ` + accountColumns + `
	`

	return scanAccountRow(r.q(tx).QueryRow(ctx, query, fullName, id))
}

func (r *AccountRepository) SetVerified(ctx context.Context, tx pgx.Tx, id string) error {
	return r.exec(ctx, tx, `
		UPDATE accounts SET is_verified = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
}

// UpdateCodeNumber overwrites the account's public code number. The partial
// unique index on code_number is the backstop against allocator races.
func (r *AccountRepository) UpdateCodeNumber(ctx context.Context, tx pgx.Tx, id string, codeNumber int) error {
	return r.exec(ctx, tx, `
		UPDATE accounts SET code_number = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, codeNumber, id)
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, tx pgx.Tx, id, passwordHash string) error {
	return r.exec(ctx, tx, `
		UPDATE accounts SET password_hash = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, passwordHash, id)
}

func (r *AccountRepository) UpdateEmail(ctx context.Context, tx pgx.Tx, id, email string) error {
	return r.exec(ctx, tx, `
		UPDATE accounts SET email = LOWER($1), updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, email, id)
}

func (r *AccountRepository) StampLogin(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	return r.exec(ctx, tx, `
		UPDATE accounts SET last_login_at = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, at, id)
}

// SoftDelete marks the account deleted; the row is never removed.
func (r *AccountRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id string) error {
	return r.exec(ctx, tx, `
		UPDATE accounts SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
}

func (r *AccountRepository) exec(ctx context.Context, tx pgx.Tx, query string, args ...any) error {
	result, err := r.q(tx).Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
