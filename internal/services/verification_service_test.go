package services

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/campuskit/registry/internal/models"
	pkglogger "github.com/campuskit/registry/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newVerificationService(accounts *MockAccountRepository, codes *MockVerificationCodeRepository, allocator *MockAllocator, notifier *MockNotifier) *VerificationService {
	logger := testLogger()
	return NewVerificationService(stubTxRunner{}, accounts, codes, allocator, notifier, logger, pkglogger.NewAuditLogger(logger), 15*time.Minute)
}

func activeCode(accountID, code string, retries int) *models.VerificationCode {
	return &models.VerificationCode{
		ID:         "code-1",
		AccountID:  accountID,
		Code:       code,
		Purpose:    models.CodePurposeRegistration,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
		RetryCount: retries,
	}
}

func TestRegister(t *testing.T) {
	t.Run("creates unverified student with allocated code number", func(t *testing.T) {
		var createdAcct *models.Account
		var issuedCode string

		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
			CreateFunc: func(_ context.Context, _ pgx.Tx, acct *models.Account) (*models.Account, error) {
				acct.ID = "acct-1"
				createdAcct = acct
				return acct, nil
			},
		}
		codes := &MockVerificationCodeRepository{
			CreateFunc: func(_ context.Context, _ pgx.Tx, accountID, code string, purpose models.CodePurpose, _ time.Time) (*models.VerificationCode, error) {
				issuedCode = code
				assert.Equal(t, "acct-1", accountID)
				assert.Equal(t, models.CodePurposeRegistration, purpose)
				return activeCode(accountID, code, 0), nil
			},
		}
		allocator := &MockAllocator{
			AllocateFunc: func(_ context.Context) (int, error) { return 340001, nil },
		}
		notifier := &MockNotifier{}

		svc := newVerificationService(accounts, codes, allocator, notifier)
		acct, err := svc.Register(context.Background(), "Dana Velev", "Dana@Example.COM", "correct-horse-battery")

		require.NoError(t, err)
		assert.Equal(t, "dana@example.com", acct.Email)
		assert.Equal(t, models.RoleStudent, acct.Role)
		assert.False(t, acct.IsVerified)
		require.NotNil(t, createdAcct.CodeNumber)
		assert.Equal(t, 340001, *createdAcct.CodeNumber)
		assert.Equal(t, "340001", issuedCode)

		require.Len(t, notifier.Calls, 1)
		assert.Equal(t, NotifyRegistrationCode, notifier.Calls[0].Purpose)
		assert.Equal(t, "340001", notifier.Calls[0].Value)
	})

	t.Run("rejects duplicate email without drawing a code number", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return &models.Account{ID: "existing"}, nil
			},
		}
		allocator := &MockAllocator{
			AllocateFunc: func(_ context.Context) (int, error) {
				t.Fatal("allocator should not run for a duplicate email")
				return 0, nil
			},
		}

		svc := newVerificationService(accounts, &MockVerificationCodeRepository{}, allocator, &MockNotifier{})
		_, err := svc.Register(context.Background(), "Dana Velev", "dana@example.com", "correct-horse-battery")

		assert.ErrorIs(t, err, models.ErrAlreadyExists)
	})

	t.Run("rejects weak password before allocating", func(t *testing.T) {
		allocator := &MockAllocator{
			AllocateFunc: func(_ context.Context) (int, error) {
				t.Fatal("allocator should not run for a rejected password")
				return 0, nil
			},
		}

		svc := newVerificationService(&MockAccountRepository{}, &MockVerificationCodeRepository{}, allocator, &MockNotifier{})
		_, err := svc.Register(context.Background(), "Dana Velev", "dana@example.com", "short")

		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("propagates allocator exhaustion", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByEmailFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
		}
		allocator := &MockAllocator{
			AllocateFunc: func(_ context.Context) (int, error) { return 0, models.ErrCapacityExhausted },
		}

		svc := newVerificationService(accounts, &MockVerificationCodeRepository{}, allocator, &MockNotifier{})
		_, err := svc.Register(context.Background(), "Dana Velev", "dana@example.com", "correct-horse-battery")

		assert.ErrorIs(t, err, models.ErrCapacityExhausted)
	})
}

func TestVerify(t *testing.T) {
	unverified := func() *models.Account {
		return &models.Account{ID: "acct-1", Role: models.RoleStudent, IsVerified: false}
	}

	t.Run("matching code consumes and verifies", func(t *testing.T) {
		consumed := false
		verified := false

		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return unverified(), nil
			},
			SetVerifiedFunc: func(_ context.Context, _ pgx.Tx, id string) error {
				verified = true
				return nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				return activeCode("acct-1", "340001", 0), nil
			},
			ConsumeFunc: func(_ context.Context, _ pgx.Tx, _ string) error {
				consumed = true
				return nil
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		err := svc.Verify(context.Background(), "acct-1", "340001")

		require.NoError(t, err)
		assert.True(t, consumed)
		assert.True(t, verified)
	})

	t.Run("already verified succeeds without touching codes", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return &models.Account{ID: "acct-1", Role: models.RoleStudent, IsVerified: true}, nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				t.Fatal("code lookup should not run for a verified account")
				return nil, nil
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		assert.NoError(t, svc.Verify(context.Background(), "acct-1", "anything"))
	})

	t.Run("wrong code bumps the retry counter", func(t *testing.T) {
		var bumpedID string

		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return unverified(), nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				return activeCode("acct-1", "340001", 0), nil
			},
			IncrementRetryFunc: func(_ context.Context, _ pgx.Tx, id string) (int, error) {
				bumpedID = id
				return 1, nil
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		err := svc.Verify(context.Background(), "acct-1", "999999")

		assert.ErrorIs(t, err, models.ErrInvalidCode)
		assert.Equal(t, "code-1", bumpedID)
	})

	t.Run("third wrong attempt burns the code", func(t *testing.T) {
		consumed := false

		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return unverified(), nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				return activeCode("acct-1", "340001", 2), nil
			},
			IncrementRetryFunc: func(_ context.Context, _ pgx.Tx, _ string) (int, error) {
				return 3, nil
			},
			ConsumeFunc: func(_ context.Context, _ pgx.Tx, _ string) error {
				consumed = true
				return nil
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		err := svc.Verify(context.Background(), "acct-1", "999999")

		assert.ErrorIs(t, err, models.ErrRetriesExhausted)
		assert.True(t, consumed)
	})

	t.Run("code burned by a concurrent attempt", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return unverified(), nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				return activeCode("acct-1", "340001", 2), nil
			},
			IncrementRetryFunc: func(_ context.Context, _ pgx.Tx, _ string) (int, error) {
				return 0, models.ErrNotFound
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		assert.ErrorIs(t, svc.Verify(context.Background(), "acct-1", "999999"), models.ErrNoActiveCode)
	})

	t.Run("code expired since the read is not attemptable", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return unverified(), nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				expired := activeCode("acct-1", "340001", 0)
				expired.ExpiresAt = time.Now().Add(-time.Second)
				return expired, nil
			},
			IncrementRetryFunc: func(_ context.Context, _ pgx.Tx, _ string) (int, error) {
				t.Fatal("an invalid code must not be attempted")
				return 0, nil
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		assert.ErrorIs(t, svc.Verify(context.Background(), "acct-1", "340001"), models.ErrNoActiveCode)
	})

	t.Run("no active code", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return unverified(), nil
			},
		}
		codes := &MockVerificationCodeRepository{
			GetActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (*models.VerificationCode, error) {
				return nil, models.ErrNotFound
			},
		}

		svc := newVerificationService(accounts, codes, &MockAllocator{}, &MockNotifier{})
		assert.ErrorIs(t, svc.Verify(context.Background(), "acct-1", "340001"), models.ErrNoActiveCode)
	})

	t.Run("unknown account", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
		}

		svc := newVerificationService(accounts, &MockVerificationCodeRepository{}, &MockAllocator{}, &MockNotifier{})
		assert.ErrorIs(t, svc.Verify(context.Background(), "missing", "340001"), models.ErrNotFound)
	})
}

func TestResend(t *testing.T) {
	t.Run("burns outstanding codes and overwrites the code number", func(t *testing.T) {
		var burned bool
		var newNumber int
		var newCode string

		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				n := 340001
				return &models.Account{ID: "acct-1", Email: "dana@example.com", Role: models.RoleStudent, CodeNumber: &n}, nil
			},
			UpdateCodeNumberFunc: func(_ context.Context, _ pgx.Tx, _ string, codeNumber int) error {
				newNumber = codeNumber
				return nil
			},
		}
		codes := &MockVerificationCodeRepository{
			ConsumeAllActiveFunc: func(_ context.Context, _ pgx.Tx, _ string, _ models.CodePurpose) (int64, error) {
				burned = true
				return 1, nil
			},
			CreateFunc: func(_ context.Context, _ pgx.Tx, accountID, code string, _ models.CodePurpose, _ time.Time) (*models.VerificationCode, error) {
				newCode = code
				return activeCode(accountID, code, 0), nil
			},
		}
		allocator := &MockAllocator{
			AllocateFunc: func(_ context.Context) (int, error) { return 780042, nil },
		}
		notifier := &MockNotifier{}

		svc := newVerificationService(accounts, codes, allocator, notifier)
		require.NoError(t, svc.Resend(context.Background(), "acct-1"))

		assert.True(t, burned)
		assert.Equal(t, 780042, newNumber)
		assert.Equal(t, strconv.Itoa(780042), newCode)
		require.Len(t, notifier.Calls, 1)
		assert.Equal(t, "780042", notifier.Calls[0].Value)
	})

	t.Run("no-op for a verified account", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return &models.Account{ID: "acct-1", Role: models.RoleStudent, IsVerified: true}, nil
			},
		}
		allocator := &MockAllocator{
			AllocateFunc: func(_ context.Context) (int, error) {
				t.Fatal("allocator should not run for a verified account")
				return 0, nil
			},
		}
		notifier := &MockNotifier{}

		svc := newVerificationService(accounts, &MockVerificationCodeRepository{}, allocator, notifier)
		require.NoError(t, svc.Resend(context.Background(), "acct-1"))
		assert.Empty(t, notifier.Calls)
	})

	t.Run("unknown account", func(t *testing.T) {
		accounts := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ pgx.Tx, _ string) (*models.Account, error) {
				return nil, models.ErrNotFound
			},
		}

		svc := newVerificationService(accounts, &MockVerificationCodeRepository{}, &MockAllocator{}, &MockNotifier{})
		assert.ErrorIs(t, svc.Resend(context.Background(), "missing"), models.ErrNotFound)
	})
}
