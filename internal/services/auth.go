package services

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluecarbon/registry/internal/models"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown emails, wrong passwords and wrong recovery codes
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles account signup, login and recovery
type AuthService struct {
	repo    storage.Repository
	captcha CaptchaVerifier
	logger  *zap.Logger
	cost    int
}

// NewAuthService creates a new auth service. A nil captcha skips verification.
func NewAuthService(repo storage.Repository, captcha CaptchaVerifier, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:    repo,
		captcha: captcha,
		logger:  logger,
		cost:    bcrypt.DefaultCost,
	}
}

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8,max=72"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// RecoveryRequest resets a password with the account's recovery code
type RecoveryRequest struct {
	Email        string `json:"email" binding:"required,email"`
	RecoveryCode string `json:"recoveryCode" binding:"required"`
	NewPassword  string `json:"newPassword" binding:"required,min=8,max=72"`
}

// Signup creates a user and returns it with its one-time recovery code
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, remoteIP string) (*models.User, string, error) {
	if err := s.verifyCaptcha(ctx, req.RecaptchaToken, remoteIP); err != nil {
		return nil, "", err
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	code, codeHash, err := s.newRecoveryCode()
	if err != nil {
		return nil, "", err
	}

	// Create user
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		RecoveryHash: codeHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	return user, code, nil
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req LoginRequest, remoteIP string) (*models.User, error) {
	if err := s.verifyCaptcha(ctx, req.RecaptchaToken, remoteIP); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Recover sets a new password when the recovery code matches. The code is
// single use: a fresh one is returned and the old one stops working.
func (s *AuthService) Recover(ctx context.Context, req RecoveryRequest) (*models.User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	// Check the recovery code
	if user.RecoveryHash == "" {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.RecoveryHash), []byte(normalizeRecoveryCode(req.RecoveryCode))); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	// Hash new password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	// Rotate the code so it works once
	code, codeHash, err := s.newRecoveryCode()
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.UpdateUserCredentials(ctx, user.ID, string(hash), codeHash); err != nil {
		return nil, "", fmt.Errorf("failed to update credentials: %w", err)
	}

	user.PasswordHash = string(hash)
	user.RecoveryHash = codeHash
	s.logger.Info("account recovered", zap.String("user_id", user.ID.String()))
	return user, code, nil
}

// GetUser retrieves a user by ID
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) verifyCaptcha(ctx context.Context, token, remoteIP string) error {
	if s.captcha == nil {
		return nil
	}
	if err := s.captcha.Verify(ctx, token, remoteIP); err != nil {
		s.logger.Warn("captcha verification failed", zap.String("remote_ip", remoteIP), zap.Error(err))
		if errors.Is(err, ErrCaptchaFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCaptchaFailed, err)
	}
	return nil
}

var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newRecoveryCode returns a code formatted as XXXX-XXXX-XXXX-XXXX and its hash
func (s *AuthService) newRecoveryCode() (string, string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate recovery code: %w", err)
	}
	plain := recoveryEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash recovery code: %w", err)
	}

	groups := make([]string, 0, 4)
	for i := 0; i < len(plain); i += 4 {
		groups = append(groups, plain[i:i+4])
	}
	return strings.Join(groups, "-"), string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRecoveryCode(code string) string {
	code = strings.ToUpper(code)
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}
