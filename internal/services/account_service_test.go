package services

import (
	"context"
	"testing"

	"github.com/campuskit/registry/internal/models"
	pkgauth "github.com/campuskit/registry/pkg/auth"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(accounts *MockAccountRepository) *AccountService {
	return NewAccountService(stubTxRunner{}, accounts, testLogger())
}

func TestCreateAdmin(t *testing.T) {
	t.Run("main admin creates a verified admin without a code number", func(t *testing.T) {
		var created *models.Account

		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
			CreateFunc: func(_ context.Context, _ pgx.Tx, acct *models.Account) (*models.Account, error) {
				acct.ID = "admin-1"
				created = acct
				return acct, nil
			},
		}

		svc := newAccountService(accounts)
		acct, err := svc.CreateAdmin(context.Background(), models.RoleMainAdmin, "Pat Admin", "Pat@Example.com", "strong-admin-pass", models.RoleAdmin)

		require.NoError(t, err)
		assert.Equal(t, "pat@example.com", acct.Email)
		assert.Equal(t, models.RoleAdmin, acct.Role)
		assert.True(t, created.IsVerified)
		assert.Nil(t, created.CodeNumber)
		assert.NoError(t, pkgauth.ComparePassword(created.PasswordHash, "strong-admin-pass"))
	})

	t.Run("non main-admin caller is rejected", func(t *testing.T) {
		svc := newAccountService(&MockAccountRepository{})

		for _, role := range []models.Role{models.RoleAdmin, models.RoleStudent} {
			_, err := svc.CreateAdmin(context.Background(), role, "Pat Admin", "pat@example.com", "strong-admin-pass", models.RoleAdmin)
			assert.ErrorIs(t, err, models.ErrInvalidArgument, "caller=%s", role)
		}
	})

	t.Run("student role cannot be created through this path", func(t *testing.T) {
		svc := newAccountService(&MockAccountRepository{})
		_, err := svc.CreateAdmin(context.Background(), models.RoleMainAdmin, "Pat Admin", "pat@example.com", "strong-admin-pass", models.RoleStudent)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		svc := newAccountService(&MockAccountRepository{})
		_, err := svc.CreateAdmin(context.Background(), models.RoleMainAdmin, "Pat Admin", "pat@example.com", "strong-admin-pass", models.Role("SUPERUSER"))
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("duplicate email", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return &models.Account{ID: "existing"}, nil
			},
		}

		svc := newAccountService(accounts)
		_, err := svc.CreateAdmin(context.Background(), models.RoleMainAdmin, "Pat Admin", "pat@example.com", "strong-admin-pass", models.RoleAdmin)
		assert.ErrorIs(t, err, models.ErrAlreadyExists)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("updates the full name", func(t *testing.T) {
		accounts := &MockAccountRepository{
			UpdateProfileFunc: func(_ context.Context, _ pgx.Tx, id, fullName string) (*models.Account, error) {
				return &models.Account{ID: id, FullName: fullName}, nil
			},
		}

		svc := newAccountService(accounts)
		acct, err := svc.UpdateProfile(context.Background(), "acct-1", "New Name")

		require.NoError(t, err)
		assert.Equal(t, "New Name", acct.FullName)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		svc := newAccountService(&MockAccountRepository{})
		_, err := svc.UpdateProfile(context.Background(), "acct-1", "   ")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("unknown account", func(t *testing.T) {
		accounts := &MockAccountRepository{
			UpdateProfileFunc: func(_ context.Context, _ pgx.Tx, _, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
		}

		svc := newAccountService(accounts)
		_, err := svc.UpdateProfile(context.Background(), "missing", "New Name")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestSoftDelete(t *testing.T) {
	t.Run("deletes a live account", func(t *testing.T) {
		deleted := false
		accounts := &MockAccountRepository{
			SoftDeleteFunc: func(_ context.Context, _ pgx.Tx, id string) error {
				deleted = true
				assert.Equal(t, "acct-1", id)
				return nil
			},
		}

		svc := newAccountService(accounts)
		require.NoError(t, svc.SoftDelete(context.Background(), "acct-1"))
		assert.True(t, deleted)
	})

	t.Run("deleting twice reports not found", func(t *testing.T) {
		accounts := &MockAccountRepository{
			SoftDeleteFunc: func(_ context.Context, _ pgx.Tx, _ string) error {
				return models.ErrNotFound
			},
		}

		svc := newAccountService(accounts)
		assert.ErrorIs(t, svc.SoftDelete(context.Background(), "acct-1"), models.ErrNotFound)
	})
}
