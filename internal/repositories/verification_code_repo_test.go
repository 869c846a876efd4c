package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/registry/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodeRepositoryGetActive(t *testing.T) {
	t.Run("returns the newest attemptable code", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM verification_codes").
			WithArgs("acct-1", models.CodePurposeRegistration, models.MaxCodeRetries).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "account_id", "code", "purpose", "expires_at", "retry_count", "consumed_at", "created_at",
			}).AddRow("code-1", "acct-1", "340001", models.CodePurposeRegistration, now.Add(10*time.Minute), 1, nil, now))

		repo := &VerificationCodeRepository{pool: mock}
		code, err := repo.GetActive(context.Background(), nil, "acct-1", models.CodePurposeRegistration)

		require.NoError(t, err)
		assert.Equal(t, "340001", code.Code)
		assert.Equal(t, 1, code.RetryCount)
		assert.Nil(t, code.ConsumedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no attemptable code maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT (.+) FROM verification_codes").
			WithArgs("acct-1", models.CodePurposeRegistration, models.MaxCodeRetries).
			WillReturnError(pgx.ErrNoRows)

		repo := &VerificationCodeRepository{pool: mock}
		_, err = repo.GetActive(context.Background(), nil, "acct-1", models.CodePurposeRegistration)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestVerificationCodeRepositoryIncrementRetry(t *testing.T) {
	t.Run("bumps the counter in place and returns the new value", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("UPDATE verification_codes SET retry_count = retry_count \\+ 1").
			WithArgs("code-1", models.MaxCodeRetries).
			WillReturnRows(pgxmock.NewRows([]string{"retry_count"}).AddRow(2))

		repo := &VerificationCodeRepository{pool: mock}
		retries, err := repo.IncrementRetry(context.Background(), nil, "code-1")

		require.NoError(t, err)
		assert.Equal(t, 2, retries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumed or exhausted code reports not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("UPDATE verification_codes SET retry_count = retry_count \\+ 1").
			WithArgs("code-1", models.MaxCodeRetries).
			WillReturnError(pgx.ErrNoRows)

		repo := &VerificationCodeRepository{pool: mock}
		_, err = repo.IncrementRetry(context.Background(), nil, "code-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestVerificationCodeRepositoryConsume(t *testing.T) {
	t.Run("consumes an outstanding code", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE verification_codes SET consumed_at").
			WithArgs("code-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := &VerificationCodeRepository{pool: mock}
		require.NoError(t, repo.Consume(context.Background(), nil, "code-1"))
	})

	t.Run("second consume hits the guard", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("UPDATE verification_codes SET consumed_at").
			WithArgs("code-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := &VerificationCodeRepository{pool: mock}
		err = repo.Consume(context.Background(), nil, "code-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
