package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/chatgate/internal/models"
	pkgauth "github.com/BradenHooton/chatgate/pkg/auth"
	pkglogger "github.com/BradenHooton/chatgate/pkg/logger"
)

// TokenIssuer issues and validates account access tokens
type TokenIssuer interface {
	GenerateAccessToken(accountID, email string) (string, error)
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// TimingDelay pads failed credential checks
type TimingDelay interface {
	WaitFrom(startTime time.Time, success bool)
}

// AccountResponse represents an account in the HTTP response
type AccountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Federated bool   `json:"federated"`
	CreatedAt string `json:"created_at"`
}

// AuthResponse represents the response from signup and login
type AuthResponse struct {
	AccessToken string           `json:"access_token"`
	Account     *AccountResponse `json:"account"`
}

// IdentityService turns credentials into a verified account identity
type IdentityService struct {
	repo         AccountRepository
	tokens       TokenIssuer
	timing       TimingDelay
	hashPassword func(string) (string, error)
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
}

// NewIdentityService creates a new IdentityService. timing may be nil.
func NewIdentityService(repo AccountRepository, tokens TokenIssuer, timing TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *IdentityService {
	return &IdentityService{
		repo:         repo,
		tokens:       tokens,
		timing:       timing,
		hashPassword: pkgauth.HashPassword,
		logger:       logger,
		auditLogger:  auditLogger,
	}
}

// Signup creates a password account and logs it in
func (s *IdentityService) Signup(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", models.ErrValidation)
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.IsBlocked:
		s.auditSignup(email, "", false, "account_blocked")
		return nil, models.ErrAccountBlocked
	case err == nil:
		s.auditSignup(email, "", false, "duplicate_email")
		return nil, models.ErrDuplicateAccount
	case !errors.Is(err, models.ErrNotFound):
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, storageError("signup lookup", err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account, err := s.repo.Create(ctx, &models.Account{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateAccount) {
			s.auditSignup(email, "", false, "duplicate_email")
			return nil, err
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, storageError("create account", err)
	}

	s.logger.Info("account created", slog.String("account_id", account.ID))
	s.auditSignup(email, account.ID, true, "")

	return s.issue(account)
}

// Login verifies an email and password. Blocked accounts are refused even
// with the correct password.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", models.ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.failLogin(start, email, "", "invalid_credentials")
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, storageError("login lookup", err)
	}

	if account.IsBlocked {
		s.failLogin(start, email, account.ID, "account_blocked")
		return nil, models.ErrAccountBlocked
	}

	if account.IsFederated() {
		s.failLogin(start, email, account.ID, "federated_account")
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.failLogin(start, email, account.ID, "invalid_credentials")
		return nil, models.ErrUnauthorized
	}

	s.logger.Info("account logged in", slog.String("account_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		Success:   true,
	})

	return s.issue(account)
}

// FederatedLogin finds the account for an external profile, creating it on
// first sight.
func (s *IdentityService) FederatedLogin(ctx context.Context, profile models.FederatedProfile) (*AuthResponse, error) {
	if strings.TrimSpace(profile.FederatedID) == "" {
		return nil, fmt.Errorf("%w: federated id required", models.ErrValidation)
	}
	federatedID := profile.Provider + ":" + strings.TrimSpace(profile.FederatedID)

	account, err := s.repo.GetByFederatedID(ctx, federatedID)
	if errors.Is(err, models.ErrNotFound) {
		account, err = s.repo.Create(ctx, &models.Account{
			Email:       strings.ToLower(strings.TrimSpace(profile.Email)),
			FederatedID: federatedID,
		})
		if err == nil {
			s.logger.Info("federated account created",
				slog.String("account_id", account.ID),
				slog.String("provider", profile.Provider))
		}
	}
	if err != nil {
		if errors.Is(err, models.ErrDuplicateAccount) || errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		s.logger.Error("federated login failed", slog.String("provider", profile.Provider), slog.Any("error", err))
		return nil, storageError("federated login", err)
	}

	if account.IsBlocked {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "federated_login_failed",
			AccountID:     account.ID,
			FailureReason: "account_blocked",
		})
		return nil, models.ErrAccountBlocked
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "federated_login_success",
		AccountID: account.ID,
		Success:   true,
		Metadata:  map[string]string{"provider": profile.Provider},
	})

	return s.issue(account)
}

// ResolveIdentity maps an access token to its account. Unknown or invalid
// tokens yield models.ErrUnauthorized.
func (s *IdentityService) ResolveIdentity(ctx context.Context, token string) (*models.Account, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	return s.GetAccount(ctx, claims.AccountID)
}

// GetAccount loads the account behind already validated claims
func (s *IdentityService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, storageError("resolve identity", err)
	}
	return account, nil
}

func (s *IdentityService) issue(account *models.Account) (*AuthResponse, error) {
	token, err := s.tokens.GenerateAccessToken(account.ID, account.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{AccessToken: token, Account: ToAccountResponse(account)}, nil
}

func (s *IdentityService) failLogin(start time.Time, email, accountID, reason string) {
	s.logger.Info("login failed", slog.String("reason", reason))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     accountID,
		Email:         email,
		FailureReason: reason,
	})
	if s.timing != nil {
		s.timing.WaitFrom(start, false)
	}
}

func (s *IdentityService) auditSignup(email, accountID string, success bool, reason string) {
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "signup",
		AccountID:     accountID,
		Email:         email,
		Success:       success,
		FailureReason: reason,
	})
}

// ToAccountResponse converts an account to its public shape
func ToAccountResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Federated: account.IsFederated(),
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}
}
