package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/dto"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/google/uuid"
)

const msgInvalidCredentials = "Invalid email or password"

// authService implements AuthSvcFacade on top of the credential store and the token issuer.
type authService struct {
	BaseService
	cfg      *config.Config
	userRepo portsrepo.UserRepositoryFacade
	tokens   portssvc.TokenSvcFacade
	linker   portssvc.OAuthLinkerSvc
	notifier portssvc.NotifierSvc
	hasher   *utils.PasswordHasher
}

// NewAuthService creates a new AuthSvcFacade.
func NewAuthService(
	cfg *config.Config,
	userRepo portsrepo.UserRepositoryFacade,
	tokens portssvc.TokenSvcFacade,
	linker portssvc.OAuthLinkerSvc,
	notifier portssvc.NotifierSvc,
	hasher *utils.PasswordHasher,
) portssvc.AuthSvcFacade {
	return &authService{
		cfg:      cfg,
		userRepo: userRepo,
		tokens:   tokens,
		linker:   linker,
		notifier: notifier,
		hasher:   hasher,
	}
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

// Register creates a local account and signs it in.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*domain.AuthResult, error) {
	email := domain.NormalizeEmail(req.Email)

	if _, err := s.userRepo.FindUserByEmail(ctx, email); err == nil {
		return nil, apperrors.NewAlreadyExistsError("An account with this email already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to check existing email")
		return nil, apperrors.NewInternalError("Failed to register user", err)
	}

	var passwordHash *string
	if req.Password != "" {
		hash, err := s.hashPassword(ctx, req.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = &hash
	}

	verifyToken, verifyHash, err := utils.GenerateOneTimeToken()
	if err != nil {
		s.LogError(ctx, err, "Failed to generate verification token")
		return nil, apperrors.NewInternalError("Failed to register user", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    utils.SanitizeText(req.FirstName),
		LastName:     utils.SanitizeText(req.LastName),
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		IsVerified:   false,
		EmailVerification: &domain.ExpiringToken{
			TokenHash: verifyHash,
			ExpiresAt: now.Add(s.cfg.EmailVerificationTTL),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !user.HasAuthMethod() {
		return nil, apperrors.NewValidationError("A password is required")
	}

	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.NewAlreadyExistsError("An account with this email already exists")
		}
		s.LogError(ctx, err, "Failed to save user")
		return nil, apperrors.NewInternalError("Failed to register user", err)
	}
	s.LogInfo(ctx, "User registered", slog.String("user_id", user.UserID))

	if err := s.notifier.SendVerificationEmail(ctx, &user, verifyToken); err != nil {
		s.LogError(ctx, err, "Failed to send verification email", slog.String("user_id", user.UserID))
	}

	pair, err := s.tokens.IssueTokenPair(ctx, &user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{Tokens: *pair, User: &user}, nil
}

// Login checks the password before the account status so that a wrong password
// never reveals whether a suspended account exists.
func (s *authService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.CheckMissing(password)
			return nil, apperrors.NewInvalidCredentialsError(msgInvalidCredentials)
		}
		s.LogError(ctx, err, "Failed to look up user for login")
		return nil, apperrors.NewInternalError("Failed to log in", err)
	}

	if !user.HasPassword() {
		s.hasher.CheckMissing(password)
		return nil, apperrors.NewInvalidCredentialsError(msgInvalidCredentials)
	}
	if !s.hasher.Check(password, *user.PasswordHash) {
		s.LogDebug(ctx, "Password mismatch", slog.String("user_id", user.UserID))
		return nil, apperrors.NewInvalidCredentialsError(msgInvalidCredentials)
	}
	if !user.IsActive() {
		s.LogWarn(ctx, "Login attempt for inactive account", slog.String("user_id", user.UserID), slog.String("status", string(user.Status)))
		return nil, apperrors.NewForbiddenError("Your account is not active")
	}

	return s.completeSignIn(ctx, user)
}

// OAuthLogin signs in the user resolved by the OAuth linker.
func (s *authService) OAuthLogin(ctx context.Context, profile domain.OAuthProfile) (*domain.AuthResult, error) {
	user, err := s.linker.LinkOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		s.LogWarn(ctx, "OAuth login for inactive account", slog.String("user_id", user.UserID))
		return nil, apperrors.NewForbiddenError("Your account is not active")
	}
	return s.completeSignIn(ctx, user)
}

func (s *authService) completeSignIn(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.UserID, now); err != nil {
		s.LogError(ctx, err, "Failed to record last login", slog.String("user_id", user.UserID))
	} else {
		user.LastLoginAt = &now
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "User signed in", slog.String("user_id", user.UserID))
	return &domain.AuthResult{Tokens: *pair, User: user}, nil
}

// Refresh rotates a refresh token. The presented token is consumed atomically,
// so a replayed or concurrently used token is rejected.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	payload, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindUserByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewInvalidTokenError("Invalid refresh token", nil)
		}
		s.LogError(ctx, err, "Failed to load user for refresh", slog.String("user_id", payload.UserID))
		return nil, apperrors.NewInternalError("Failed to refresh token", err)
	}

	removed, err := s.tokens.RevokeRefreshToken(ctx, user.UserID, refreshToken)
	if err != nil {
		return nil, err
	}
	if !removed {
		s.LogWarn(ctx, "Refresh token not in registry", slog.String("user_id", user.UserID), slog.String("token_id", payload.TokenID))
		return nil, apperrors.NewInvalidTokenError("Invalid refresh token", nil)
	}

	if !user.IsActive() {
		return nil, apperrors.NewForbiddenError("Your account is not active")
	}

	return s.tokens.IssueTokenPair(ctx, user)
}

// Logout revokes one refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	payload, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.LogDebug(ctx, "Logout with unusable refresh token ignored")
		return nil
	}
	removed, err := s.tokens.RevokeRefreshToken(ctx, payload.UserID, refreshToken)
	if err != nil {
		return err
	}
	s.LogDebug(ctx, "Logout processed", slog.String("user_id", payload.UserID), slog.Bool("removed", removed))
	return nil
}

// LogoutAll revokes every refresh token of the user.
func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return err
	}
	s.LogInfo(ctx, "All sessions revoked", slog.String("user_id", userID))
	return nil
}

// ChangePassword replaces the password after checking the current one and ends every session.
func (s *authService) ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		s.hasher.CheckMissing(req.CurrentPassword)
		return apperrors.NewValidationError("No password is set for this account; use forgot password to create one")
	}
	if !s.hasher.Check(req.CurrentPassword, *user.PasswordHash) {
		return apperrors.NewInvalidCredentialsError("Current password is incorrect")
	}

	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return err
	}
	s.LogInfo(ctx, "Password changed", slog.String("user_id", userID))
	return nil
}

// ForgotPassword issues a reset token when the account exists and is not suspended.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "Password reset requested for unknown email")
			return nil
		}
		s.LogError(ctx, err, "Failed to look up user for password reset")
		return apperrors.NewInternalError("Failed to process request", err)
	}
	if user.Status == domain.StatusSuspended {
		s.LogWarn(ctx, "Password reset requested for suspended account", slog.String("user_id", user.UserID))
		return nil
	}

	token, tokenHash, err := utils.GenerateOneTimeToken()
	if err != nil {
		s.LogError(ctx, err, "Failed to generate reset token")
		return apperrors.NewInternalError("Failed to process request", err)
	}
	now := time.Now().UTC()
	user.PasswordReset = &domain.ExpiringToken{TokenHash: tokenHash, ExpiresAt: now.Add(s.cfg.PasswordResetTTL)}
	user.UpdatedAt = now
	if err := s.updateUser(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user, token); err != nil {
		s.LogError(ctx, err, "Failed to send password reset email", slog.String("user_id", user.UserID))
	}
	return nil
}

// ResetPassword sets a new password from a reset token and ends every session.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.userRepo.FindUserByResetTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewInvalidTokenError("Invalid or expired reset token", nil)
		}
		s.LogError(ctx, err, "Failed to look up reset token")
		return apperrors.NewInternalError("Failed to reset password", err)
	}
	if user.PasswordReset.IsExpired(time.Now()) {
		return apperrors.NewInvalidTokenError("Invalid or expired reset token", nil)
	}

	user.PasswordReset = nil
	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	s.LogInfo(ctx, "Password reset", slog.String("user_id", user.UserID))
	return nil
}

// VerifyEmail marks the email verified and activates pending accounts.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.FindUserByVerificationTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewInvalidTokenError("Invalid or expired verification token", nil)
		}
		s.LogError(ctx, err, "Failed to look up verification token")
		return apperrors.NewInternalError("Failed to verify email", err)
	}
	if user.EmailVerification.IsExpired(time.Now()) {
		return apperrors.NewInvalidTokenError("Invalid or expired verification token", nil)
	}

	user.IsVerified = true
	user.EmailVerification = nil
	if user.Status == domain.StatusPending {
		user.Status = domain.StatusActive
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.updateUser(ctx, user); err != nil {
		return err
	}
	s.LogInfo(ctx, "Email verified", slog.String("user_id", user.UserID))
	return nil
}

// ResendVerification replaces the verification token and sends it again.
func (s *authService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperrors.NewValidationError("Email is already verified")
	}

	token, tokenHash, err := utils.GenerateOneTimeToken()
	if err != nil {
		s.LogError(ctx, err, "Failed to generate verification token")
		return apperrors.NewInternalError("Failed to resend verification", err)
	}
	now := time.Now().UTC()
	user.EmailVerification = &domain.ExpiringToken{TokenHash: tokenHash, ExpiresAt: now.Add(s.cfg.EmailVerificationTTL)}
	user.UpdatedAt = now
	if err := s.updateUser(ctx, user); err != nil {
		return err
	}
	if err := s.notifier.SendVerificationEmail(ctx, user, token); err != nil {
		s.LogError(ctx, err, "Failed to send verification email", slog.String("user_id", userID))
		return apperrors.NewInternalError("Failed to resend verification", err)
	}
	return nil
}

func (s *authService) setPassword(ctx context.Context, user *domain.User, password string) error {
	passwordHash, err := s.hashPassword(ctx, password)
	if err != nil {
		return err
	}
	user.PasswordHash = &passwordHash
	user.UpdatedAt = time.Now().UTC()
	if err := s.updateUser(ctx, user); err != nil {
		return err
	}
	return s.tokens.RevokeAllRefreshTokens(ctx, user.UserID)
}

func (s *authService) hashPassword(ctx context.Context, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", apperrors.NewValidationError("Password must be at most 72 bytes")
		}
		s.LogError(ctx, err, "Failed to hash password")
		return "", apperrors.NewInternalError("Failed to process password", err)
	}
	return hash, nil
}

func (s *authService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to load user", slog.String("user_id", userID))
		return nil, apperrors.NewInternalError("Failed to load user", err)
	}
	return user, nil
}

func (s *authService) updateUser(ctx context.Context, user *domain.User) error {
	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to update user", slog.String("user_id", user.UserID))
		return apperrors.NewInternalError("Failed to update user", err)
	}
	return nil
}
