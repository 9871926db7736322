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
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

// tokenService implements the TokenSvcFacade for handling JWT access and refresh tokens.
// Access tokens are stateless; refresh tokens are only valid while their hash is in the registry.
type tokenService struct {
	BaseService
	cfg      *config.Config
	registry portsrepo.RefreshTokenRegistry
}

// NewTokenService creates a new instance of tokenService.
func NewTokenService(cfg *config.Config, registry portsrepo.RefreshTokenRegistry) portssvc.TokenSvcFacade {
	return &tokenService{
		cfg:      cfg,
		registry: registry,
	}
}

var _ portssvc.TokenSvcFacade = (*tokenService)(nil)

// IssueAccessToken creates a new JWT access token for the given user.
func (s *tokenService) IssueAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	claims := utils.NewTokenClaims(user.UserID, s.cfg.JWTIssuer, string(domain.TokenUseAccess), time.Now(), s.cfg.JWTAccessExpiryDuration)
	claims.Email = user.Email
	claims.Role = string(user.Role)

	accessToken, err := utils.GenerateJWT(claims, s.cfg.JWTAccessSecret)
	if err != nil {
		s.LogError(ctx, err, "Failed to sign access token", slog.String("user_id", user.UserID))
		return "", time.Time{}, apperrors.NewInternalError("Failed to generate access token", err)
	}
	return accessToken, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken creates a new refresh token for the given user and registers its hash.
func (s *tokenService) IssueRefreshToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	claims := utils.NewTokenClaims(user.UserID, s.cfg.JWTIssuer, string(domain.TokenUseRefresh), time.Now(), s.cfg.JWTRefreshExpiryDuration)

	refreshToken, err := utils.GenerateJWT(claims, s.cfg.JWTRefreshSecret)
	if err != nil {
		s.LogError(ctx, err, "Failed to sign refresh token", slog.String("user_id", user.UserID))
		return "", time.Time{}, apperrors.NewInternalError("Failed to generate refresh token", err)
	}

	expiresAt := claims.ExpiresAt.Time
	if err := s.registry.AddRefreshToken(ctx, user.UserID, utils.HashToken(refreshToken), expiresAt); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", time.Time{}, apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to store refresh token", slog.String("user_id", user.UserID))
		return "", time.Time{}, apperrors.NewInternalError("Failed to generate refresh token", err)
	}
	return refreshToken, expiresAt, nil
}

// IssueTokenPair issues an access token and a registered refresh token.
func (s *tokenService) IssueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, accessExp, err := s.IssueAccessToken(ctx, user)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		UserID:                user.UserID,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken validates signature, issuer and expiry of an access token.
func (s *tokenService) VerifyAccessToken(tokenString string) (*domain.TokenPayload, error) {
	claims, err := utils.ParseAndValidateJWT(tokenString, s.cfg.JWTAccessSecret, s.cfg.JWTIssuer, string(domain.TokenUseAccess))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewExpiredTokenError("Token has expired", err)
		}
		return nil, apperrors.NewInvalidTokenError("Invalid token", err)
	}
	return toTokenPayload(claims), nil
}

// VerifyRefreshToken validates signature, issuer and expiry of a refresh token.
func (s *tokenService) VerifyRefreshToken(tokenString string) (*domain.TokenPayload, error) {
	claims, err := utils.ParseAndValidateJWT(tokenString, s.cfg.JWTRefreshSecret, s.cfg.JWTIssuer, string(domain.TokenUseRefresh))
	if err != nil {
		return nil, apperrors.NewInvalidTokenError("Invalid refresh token", err)
	}
	return toTokenPayload(claims), nil
}

// RevokeRefreshToken atomically removes one refresh token from the user's registry.
func (s *tokenService) RevokeRefreshToken(ctx context.Context, userID string, tokenString string) (bool, error) {
	removed, err := s.registry.ConsumeRefreshToken(ctx, userID, utils.HashToken(tokenString))
	if err != nil {
		s.LogError(ctx, err, "Failed to remove refresh token", slog.String("user_id", userID))
		return false, apperrors.NewInternalError("Failed to revoke refresh token", err)
	}
	return removed, nil
}

// RevokeAllRefreshTokens removes every refresh token of the user.
func (s *tokenService) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	if err := s.registry.ClearRefreshTokens(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to clear refresh tokens", slog.String("user_id", userID))
		return apperrors.NewInternalError("Failed to revoke sessions", err)
	}
	return nil
}

func toTokenPayload(claims *utils.TokenClaims) *domain.TokenPayload {
	payload := &domain.TokenPayload{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Role:    domain.UserRole(claims.Role),
		TokenID: claims.ID,
		Use:     domain.TokenUse(claims.Use),
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload
}
