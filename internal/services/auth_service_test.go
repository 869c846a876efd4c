package services

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/registry/internal/models"
	pkgauth "github.com/campuskit/registry/pkg/auth"
	pkglogger "github.com/campuskit/registry/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(accounts *MockAccountRepository) *AuthService {
	logger := testLogger()
	return NewAuthService(stubTxRunner{}, accounts, logger, pkglogger.NewAuditLogger(logger))
}

func accountWithPassword(t *testing.T, password string, mutate func(*models.Account)) *models.Account {
	t.Helper()

	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)

	acct := &models.Account{
		ID:           "acct-1",
		Email:        "dana@example.com",
		Role:         models.RoleStudent,
		Status:       models.StatusActive,
		IsVerified:   true,
		PasswordHash: hash,
	}
	if mutate != nil {
		mutate(acct)
	}
	return acct
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials stamp last login", func(t *testing.T) {
		stamped := false
		acct := accountWithPassword(t, "correct-horse-battery", nil)

		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, email string) (*models.Account, error) {
				assert.Equal(t, "dana@example.com", email)
				return acct, nil
			},
			StampLoginFunc: func(_ context.Context, _ pgx.Tx, id string, at time.Time) error {
				stamped = true
				assert.Equal(t, "acct-1", id)
				assert.WithinDuration(t, time.Now(), at, time.Minute)
				return nil
			},
		}

		svc := newAuthService(accounts)
		got, err := svc.Login(context.Background(), "Dana@Example.com", "correct-horse-battery")

		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		assert.True(t, stamped)
	})

	t.Run("unknown email", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
		}

		svc := newAuthService(accounts)
		_, err := svc.Login(context.Background(), "ghost@example.com", "whatever-password")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		acct := accountWithPassword(t, "correct-horse-battery", nil)
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return acct, nil
			},
		}

		svc := newAuthService(accounts)
		_, err := svc.Login(context.Background(), "dana@example.com", "wrong-password-here")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("blocked account looks like bad credentials", func(t *testing.T) {
		acct := accountWithPassword(t, "correct-horse-battery", func(a *models.Account) {
			a.Status = models.StatusBlocked
		})
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return acct, nil
			},
		}

		svc := newAuthService(accounts)
		_, err := svc.Login(context.Background(), "dana@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("inactive account looks like bad credentials", func(t *testing.T) {
		acct := accountWithPassword(t, "correct-horse-battery", func(a *models.Account) {
			a.Status = models.StatusInactive
		})
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return acct, nil
			},
		}

		svc := newAuthService(accounts)
		_, err := svc.Login(context.Background(), "dana@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("unverified student gets a distinct error", func(t *testing.T) {
		acct := accountWithPassword(t, "correct-horse-battery", func(a *models.Account) {
			a.IsVerified = false
		})
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return acct, nil
			},
		}

		svc := newAuthService(accounts)
		_, err := svc.Login(context.Background(), "dana@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, models.ErrNotVerified)
	})

	t.Run("admins never hit the verification gate", func(t *testing.T) {
		acct := accountWithPassword(t, "correct-horse-battery", func(a *models.Account) {
			a.Role = models.RoleAdmin
			a.IsVerified = false
		})
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return acct, nil
			},
			StampLoginFunc: func(_ context.Context, _ pgx.Tx, _ string, _ time.Time) error {
				return nil
			},
		}

		svc := newAuthService(accounts)
		got, err := svc.Login(context.Background(), "dana@example.com", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("wrong password beats status in the check order", func(t *testing.T) {
		// A blocked account with a wrong password must report the password
		// failure path, not reveal the block.
		acct := accountWithPassword(t, "correct-horse-battery", func(a *models.Account) {
			a.Status = models.StatusBlocked
		})
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return acct, nil
			},
		}

		svc := newAuthService(accounts)
		_, err := svc.Login(context.Background(), "dana@example.com", "wrong-password-here")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})
}
