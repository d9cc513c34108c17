package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/BradenHooton/chatgate/internal/models"
	pkglogger "github.com/BradenHooton/chatgate/pkg/logger"
)

const (
	blockReasonAccount = "Too many failed attempts"
	blockReasonDevice  = "Too many failed attempts (no email)"
)

// AccountRepository defines the account operations used by the gate and the identity provider
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByFederatedID(ctx context.Context, federatedID string) (*models.Account, error)
	ResetAttempts(ctx context.Context, email string) error
	RecordFailedAttempt(ctx context.Context, axes models.IdentityAxes, threshold int, reason string) (*models.Account, error)
}

// BlockRecordRepository defines the block ledger operations used by the gate
type BlockRecordRepository interface {
	ExistsMatching(ctx context.Context, axes models.IdentityAxes) (bool, error)
	Insert(ctx context.Context, axes models.IdentityAxes, reason string) (bool, error)
}

// AttemptCounter counts failed attempts of callers with no account.
// It is owned by the caller's session and never persisted.
type AttemptCounter interface {
	Increment(key string) int
}

// LockoutNotifier is told when an account becomes blocked
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, email, reason string) error
}

// LockoutConfig holds the shared passcode and the failure threshold
type LockoutConfig struct {
	Passcode    string
	MaxAttempts int
}

// LockoutService decides whether a passcode attempt is allowed, denied or blocked
type LockoutService struct {
	accounts    AccountRepository
	blocks      BlockRecordRepository
	notifier    LockoutNotifier
	cfg         LockoutConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewLockoutService creates a new LockoutService. notifier may be nil.
func NewLockoutService(accounts AccountRepository, blocks BlockRecordRepository, notifier LockoutNotifier, cfg LockoutConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &LockoutService{
		accounts:    accounts,
		blocks:      blocks,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// IsIdentityBlocked reports whether any present axis is blocked. It never mutates state.
// An account flagged as blocked counts as blocked even without a matching block record.
func (s *LockoutService) IsIdentityBlocked(ctx context.Context, axes models.IdentityAxes) (bool, error) {
	if axes.IsEmpty() {
		return false, nil
	}

	exists, err := s.blocks.ExistsMatching(ctx, axes)
	if err != nil {
		return false, storageError("block record lookup", err)
	}
	if exists || axes.Email == "" {
		return exists, nil
	}

	account, err := s.accounts.GetByEmail(ctx, axes.Email)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("account lookup", err)
	}

	return account.IsBlocked, nil
}

// CheckAttempt compares candidate against the shared passcode and updates the
// failure counter of the most specific identity that can be tracked. counter
// may be nil, in which case identities without an account are not tracked.
func (s *LockoutService) CheckAttempt(ctx context.Context, candidate string, axes models.IdentityAxes, counter AttemptCounter) (models.LockoutDecision, error) {
	blocked, err := s.IsIdentityBlocked(ctx, axes)
	if err != nil {
		return models.LockoutDecision{}, err
	}
	if blocked {
		return s.decide(axes, "blocked", models.LockoutDecision{Blocked: true}), nil
	}

	if s.passcodeMatches(candidate) {
		if axes.Email != "" {
			if err := s.accounts.ResetAttempts(ctx, axes.Email); err != nil {
				return models.LockoutDecision{}, storageError("reset attempts", err)
			}
		}
		return s.decide(axes, "passcode", models.LockoutDecision{Allowed: true}), nil
	}

	if axes.Email != "" {
		account, err := s.accounts.RecordFailedAttempt(ctx, axes, s.cfg.MaxAttempts, blockReasonAccount)
		switch {
		case err == nil:
			if account.IsBlocked && account.FailedAttempts == s.cfg.MaxAttempts {
				s.notifyLockout(ctx, account)
			}
			return s.decide(axes, "account", models.LockoutDecision{
				Blocked:  account.IsBlocked,
				Attempts: account.FailedAttempts,
			}), nil
		case !errors.Is(err, models.ErrNotFound):
			return models.LockoutDecision{}, storageError("record failed attempt", err)
		}
		// no account for this email; fall back to the device identity
	}

	if axes.HasDevice() && counter != nil {
		count := counter.Increment(axes.SessionCounterKey())
		if count >= s.cfg.MaxAttempts {
			if _, err := s.blocks.Insert(ctx, axes.DeviceOnly(), blockReasonDevice); err != nil {
				return models.LockoutDecision{}, storageError("insert block record", err)
			}
			return s.decide(axes, "session", models.LockoutDecision{Blocked: true}), nil
		}
		return s.decide(axes, "session", models.LockoutDecision{Attempts: count}), nil
	}

	return s.decide(axes, "untracked", models.LockoutDecision{Attempts: 1}), nil
}

func (s *LockoutService) passcodeMatches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.cfg.Passcode)) == 1
}

func (s *LockoutService) decide(axes models.IdentityAxes, path string, decision models.LockoutDecision) models.LockoutDecision {
	s.auditLogger.LogGateDecision(pkglogger.GateEvent{
		Email:             axes.Email,
		DeviceFingerprint: axes.DeviceFingerprint,
		Allowed:           decision.Allowed,
		Blocked:           decision.Blocked,
		Attempts:          decision.Attempts,
		Path:              path,
	})
	return decision
}

// notifyLockout is best effort; a failed notification never changes the decision
func (s *LockoutService) notifyLockout(ctx context.Context, account *models.Account) {
	email := account.Email
	s.logger.Warn("account blocked after repeated failures", slog.String("email", pkglogger.SanitizedEmail(email)))
	s.auditLogger.LogAccountAction("account_blocked", account.ID, map[string]string{
		"reason":          blockReasonAccount,
		"failed_attempts": strconv.Itoa(account.FailedAttempts),
	})

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyLockout(ctx, email, blockReasonAccount); err != nil {
		s.logger.Error("failed to send lockout notification",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
	}
}

func storageError(op string, err error) error {
	if errors.Is(err, models.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrStorage, err)
}
