package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/chatgate/internal/models"
	pkglogger "github.com/BradenHooton/chatgate/pkg/logger"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	CreateFunc              func(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByIDFunc             func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.Account, error)
	GetByFederatedIDFunc    func(ctx context.Context, federatedID string) (*models.Account, error)
	ResetAttemptsFunc       func(ctx context.Context, email string) error
	RecordFailedAttemptFunc func(ctx context.Context, axes models.IdentityAxes, threshold int, reason string) (*models.Account, error)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByFederatedID(ctx context.Context, federatedID string) (*models.Account, error) {
	if m.GetByFederatedIDFunc != nil {
		return m.GetByFederatedIDFunc(ctx, federatedID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) ResetAttempts(ctx context.Context, email string) error {
	if m.ResetAttemptsFunc != nil {
		return m.ResetAttemptsFunc(ctx, email)
	}
	return nil
}

func (m *MockAccountRepository) RecordFailedAttempt(ctx context.Context, axes models.IdentityAxes, threshold int, reason string) (*models.Account, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, axes, threshold, reason)
	}
	return nil, models.ErrNotFound
}

// MockBlockRecordRepository implements BlockRecordRepository for testing
type MockBlockRecordRepository struct {
	ExistsMatchingFunc func(ctx context.Context, axes models.IdentityAxes) (bool, error)
	InsertFunc         func(ctx context.Context, axes models.IdentityAxes, reason string) (bool, error)
}

func (m *MockBlockRecordRepository) ExistsMatching(ctx context.Context, axes models.IdentityAxes) (bool, error) {
	if m.ExistsMatchingFunc != nil {
		return m.ExistsMatchingFunc(ctx, axes)
	}
	return false, nil
}

func (m *MockBlockRecordRepository) Insert(ctx context.Context, axes models.IdentityAxes, reason string) (bool, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, axes, reason)
	}
	return true, nil
}

// MockLockoutNotifier records every notification
type MockLockoutNotifier struct {
	mu     sync.Mutex
	Emails []string
	Err    error
}

func (m *MockLockoutNotifier) NotifyLockout(_ context.Context, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = append(m.Emails, email)
	return m.Err
}

func (m *MockLockoutNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails)
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateAccessTokenFunc func(accountID, email string) (string, error)
	ValidateTokenFunc       func(tokenString string) (*models.TokenClaims, error)
}

func (m *MockTokenIssuer) GenerateAccessToken(accountID, email string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(accountID, email)
	}
	return "token-" + accountID, nil
}

func (m *MockTokenIssuer) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	return nil, models.ErrUnauthorized
}

// MockTimingDelay counts padded failures
type MockTimingDelay struct {
	Failures int
}

func (m *MockTimingDelay) WaitFrom(_ time.Time, success bool) {
	if !success {
		m.Failures++
	}
}

// memoryLedger is an in-memory account and block record store with the same
// atomicity as the SQL repositories.
type memoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	records  []*models.BlockRecord
}

func newMemoryLedger(emails ...string) *memoryLedger {
	l := &memoryLedger{accounts: make(map[string]*models.Account)}
	for _, email := range emails {
		l.accounts[email] = NewTestAccount(uuid.New().String(), email)
	}
	return l
}

func (l *memoryLedger) account(email string) models.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.accounts[email]
}

func (l *memoryLedger) recordCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *memoryLedger) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[account.Email]; ok {
		return nil, models.ErrDuplicateAccount
	}
	created := *account
	created.ID = uuid.New().String()
	l.accounts[created.Email] = &created
	return &created, nil
}

func (l *memoryLedger) GetByID(_ context.Context, id string) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.accounts {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (l *memoryLedger) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (l *memoryLedger) GetByFederatedID(_ context.Context, federatedID string) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.accounts {
		if a.FederatedID == federatedID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (l *memoryLedger) ResetAttempts(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[email]; ok {
		a.FailedAttempts = 0
		a.IsBlocked = false
		a.BlockReason = ""
	}
	return nil
}

func (l *memoryLedger) RecordFailedAttempt(_ context.Context, axes models.IdentityAxes, threshold int, reason string) (*models.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[axes.Email]
	if !ok {
		return nil, models.ErrNotFound
	}
	a.FailedAttempts++
	if a.FailedAttempts >= threshold {
		a.IsBlocked = true
		a.BlockReason = reason
		l.insertLocked(axes, reason)
	}
	copied := *a
	return &copied, nil
}

func (l *memoryLedger) ExistsMatching(_ context.Context, axes models.IdentityAxes) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.SomeBy(l.records, func(r *models.BlockRecord) bool { return r.Matches(axes) }), nil
}

func (l *memoryLedger) Insert(_ context.Context, axes models.IdentityAxes, reason string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insertLocked(axes, reason), nil
}

func (l *memoryLedger) insertLocked(axes models.IdentityAxes, reason string) bool {
	if lo.SomeBy(l.records, func(r *models.BlockRecord) bool { return r.Matches(axes) }) {
		return false
	}
	l.records = append(l.records, &models.BlockRecord{
		ID:                uuid.New().String(),
		Email:             lo.EmptyableToPtr(axes.Email),
		DeviceFingerprint: lo.EmptyableToPtr(axes.DeviceFingerprint),
		AgentString:       lo.EmptyableToPtr(axes.AgentString),
		Reason:            reason,
		BlockedAt:         time.Now(),
	})
	return true
}

// memoryCounter implements AttemptCounter
type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: make(map[string]int)}
}

func (c *memoryCounter) Increment(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key]
}

// NewTestAccount creates a password account with no failures
func NewTestAccount(id, email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehol",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestBlockedAccount creates an account that already reached the threshold
func NewTestBlockedAccount(id, email string) *models.Account {
	account := NewTestAccount(id, email)
	account.FailedAttempts = 3
	account.IsBlocked = true
	account.BlockReason = blockReasonAccount
	return account
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}
