package services

import (
	"context"
	"time"

	"github.com/campuskit/registry/internal/models"
	"github.com/jackc/pgx/v5"
)

// stubTxRunner satisfies TxRunner without a database: fn runs with a nil
// transaction, which the repository mocks below ignore.
type stubTxRunner struct{}

func (stubTxRunner) WithTransaction(_ context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	GetByIDFunc            func(ctx context.Context, tx pgx.Tx, id string) (*models.Account, error)
	GetByEmailFunc         func(ctx context.Context, tx pgx.Tx, email string) (*models.Account, error)
	CreateFunc             func(ctx context.Context, tx pgx.Tx, acct *models.Account) (*models.Account, error)
	UpdateProfileFunc      func(ctx context.Context, tx pgx.Tx, id, fullName string) (*models.Account, error)
	SetVerifiedFunc        func(ctx context.Context, tx pgx.Tx, id string) error
	UpdateCodeNumberFunc   func(ctx context.Context, tx pgx.Tx, id string, codeNumber int) error
	UpdatePasswordHashFunc func(ctx context.Context, tx pgx.Tx, id, passwordHash string) error
	UpdateEmailFunc        func(ctx context.Context, tx pgx.Tx, id, email string) error
	StampLoginFunc         func(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	SoftDeleteFunc         func(ctx context.Context, tx pgx.Tx, id string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, tx pgx.Tx, id string) (*models.Account, error) {
	return m.GetByIDFunc(ctx, tx, id)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, tx pgx.Tx, email string) (*models.Account, error) {
	return m.GetByEmailFunc(ctx, tx, email)
}

func (m *MockAccountRepository) Create(ctx context.Context, tx pgx.Tx, acct *models.Account) (*models.Account, error) {
	return m.CreateFunc(ctx, tx, acct)
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, tx pgx.Tx, id, fullName string) (*models.Account, error) {
	return m.UpdateProfileFunc(ctx, tx, id, fullName)
}

func (m *MockAccountRepository) SetVerified(ctx context.Context, tx pgx.Tx, id string) error {
	return m.SetVerifiedFunc(ctx, tx, id)
}

func (m *MockAccountRepository) UpdateCodeNumber(ctx context.Context, tx pgx.Tx, id string, codeNumber int) error {
	return m.UpdateCodeNumberFunc(ctx, tx, id, codeNumber)
}

func (m *MockAccountRepository) UpdatePasswordHash(ctx context.Context, tx pgx.Tx, id, passwordHash string) error {
	return m.UpdatePasswordHashFunc(ctx, tx, id, passwordHash)
}

func (m *MockAccountRepository) UpdateEmail(ctx context.Context, tx pgx.Tx, id, email string) error {
	return m.UpdateEmailFunc(ctx, tx, id, email)
}

func (m *MockAccountRepository) StampLogin(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	return m.StampLoginFunc(ctx, tx, id, at)
}

func (m *MockAccountRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id string) error {
	return m.SoftDeleteFunc(ctx, tx, id)
}

// MockVerificationCodeRepository is a mock implementation of VerificationCodeRepository
type MockVerificationCodeRepository struct {
	CreateFunc           func(ctx context.Context, tx pgx.Tx, accountID, code string, purpose models.CodePurpose, expiresAt time.Time) (*models.VerificationCode, error)
	GetActiveFunc        func(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (*models.VerificationCode, error)
	IncrementRetryFunc   func(ctx context.Context, tx pgx.Tx, id string) (int, error)
	ConsumeFunc          func(ctx context.Context, tx pgx.Tx, id string) error
	ConsumeAllActiveFunc func(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (int64, error)
	DeleteExpiredFunc    func(ctx context.Context) (int64, error)
}

func (m *MockVerificationCodeRepository) Create(ctx context.Context, tx pgx.Tx, accountID, code string, purpose models.CodePurpose, expiresAt time.Time) (*models.VerificationCode, error) {
	return m.CreateFunc(ctx, tx, accountID, code, purpose, expiresAt)
}

func (m *MockVerificationCodeRepository) GetActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	return m.GetActiveFunc(ctx, tx, accountID, purpose)
}

func (m *MockVerificationCodeRepository) IncrementRetry(ctx context.Context, tx pgx.Tx, id string) (int, error) {
	return m.IncrementRetryFunc(ctx, tx, id)
}

func (m *MockVerificationCodeRepository) Consume(ctx context.Context, tx pgx.Tx, id string) error {
	return m.ConsumeFunc(ctx, tx, id)
}

func (m *MockVerificationCodeRepository) ConsumeAllActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.CodePurpose) (int64, error) {
	return m.ConsumeAllActiveFunc(ctx, tx, accountID, purpose)
}

func (m *MockVerificationCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return m.DeleteExpiredFunc(ctx)
}

// MockSecretTokenRepository is a mock implementation of SecretTokenRepository
type MockSecretTokenRepository struct {
	CreateFunc           func(ctx context.Context, tx pgx.Tx, token *models.SecretToken) (*models.SecretToken, error)
	GetActiveByIDFunc    func(ctx context.Context, tx pgx.Tx, id string, purpose models.TokenPurpose) (*models.SecretToken, error)
	MarkUsedFunc         func(ctx context.Context, tx pgx.Tx, id string) error
	InvalidateActiveFunc func(ctx context.Context, tx pgx.Tx, accountID string, purpose models.TokenPurpose) (int64, error)
	DeleteExpiredFunc    func(ctx context.Context) (int64, error)
}

func (m *MockSecretTokenRepository) Create(ctx context.Context, tx pgx.Tx, token *models.SecretToken) (*models.SecretToken, error) {
	return m.CreateFunc(ctx, tx, token)
}

func (m *MockSecretTokenRepository) GetActiveByID(ctx context.Context, tx pgx.Tx, id string, purpose models.TokenPurpose) (*models.SecretToken, error) {
	return m.GetActiveByIDFunc(ctx, tx, id, purpose)
}

func (m *MockSecretTokenRepository) MarkUsed(ctx context.Context, tx pgx.Tx, id string) error {
	return m.MarkUsedFunc(ctx, tx, id)
}

func (m *MockSecretTokenRepository) InvalidateActive(ctx context.Context, tx pgx.Tx, accountID string, purpose models.TokenPurpose) (int64, error) {
	return m.InvalidateActiveFunc(ctx, tx, accountID, purpose)
}

func (m *MockSecretTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return m.DeleteExpiredFunc(ctx)
}

// MockPillarRepository is a mock implementation of PillarRepository
type MockPillarRepository struct {
	LockFunc          func(ctx context.Context, tx pgx.Tx, base int) (*models.PillarTracker, error)
	SetLastIssuedFunc func(ctx context.Context, tx pgx.Tx, base, lastIssued int) error
}

func (m *MockPillarRepository) Lock(ctx context.Context, tx pgx.Tx, base int) (*models.PillarTracker, error) {
	return m.LockFunc(ctx, tx, base)
}

func (m *MockPillarRepository) SetLastIssued(ctx context.Context, tx pgx.Tx, base, lastIssued int) error {
	return m.SetLastIssuedFunc(ctx, tx, base, lastIssued)
}

// MockAllocator is a mock implementation of Allocator
type MockAllocator struct {
	AllocateFunc func(ctx context.Context) (int, error)
}

func (m *MockAllocator) Allocate(ctx context.Context) (int, error) {
	return m.AllocateFunc(ctx)
}

// MockNotifier records notifications instead of sending them
type MockNotifier struct {
	Calls []MockNotification
	Err   error
}

// MockNotification captures one Notify call
type MockNotification struct {
	AccountID string
	Email     string
	Purpose   string
	Value     string
}

func (m *MockNotifier) Notify(_ context.Context, accountID, email, purpose, value string) error {
	m.Calls = append(m.Calls, MockNotification{
		AccountID: accountID,
		Email:     email,
		Purpose:   purpose,
		Value:     value,
	})
	return m.Err
}
