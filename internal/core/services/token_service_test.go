package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/core/services"
	"github.com/SscSPs/auth_service/internal/repositories/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type TokenServiceTestSuite struct {
	suite.Suite
	repo    *memory.UserRepository
	service portssvc.TokenSvcFacade
	user    *domain.User
}

func (suite *TokenServiceTestSuite) SetupTest() {
	suite.repo = memory.NewUserRepository()
	suite.service = services.NewTokenService(newTestConfig(), suite.repo)
	suite.user = &domain.User{
		UserID: uuid.NewString(),
		Email:  "token@example.com",
		Role:   domain.RoleAdmin,
		Status: domain.StatusActive,
	}
	suite.Require().NoError(suite.repo.SaveUser(context.Background(), *suite.user))
}

func (suite *TokenServiceTestSuite) TestIssueTokenPair_VerifiesAndRegisters() {
	ctx := context.Background()

	pair, err := suite.service.IssueTokenPair(ctx, suite.user)
	suite.Require().NoError(err)
	suite.NotEqual(pair.AccessToken, pair.RefreshToken)
	suite.True(pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
	suite.Equal(1, suite.repo.RefreshTokenCount(suite.user.UserID))
	suite.Equal(suite.user.UserID, pair.UserID)

	payload, err := suite.service.VerifyAccessToken(pair.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(suite.user.UserID, payload.UserID)
	suite.Equal(suite.user.Email, payload.Email)
	suite.Equal(domain.RoleAdmin, payload.Role)
	suite.Equal(domain.TokenUseAccess, payload.Use)
	suite.True(payload.IsAdmin())

	refresh, err := suite.service.VerifyRefreshToken(pair.RefreshToken)
	suite.Require().NoError(err)
	suite.Equal(suite.user.UserID, refresh.UserID)
	suite.NotEqual(payload.TokenID, refresh.TokenID)
}

func (suite *TokenServiceTestSuite) TestIssueAccessToken_HasNoSideEffects() {
	_, _, err := suite.service.IssueAccessToken(context.Background(), suite.user)
	suite.Require().NoError(err)
	suite.Zero(suite.repo.RefreshTokenCount(suite.user.UserID))
}

func (suite *TokenServiceTestSuite) TestIssueRefreshToken_UniquePerCall() {
	ctx := context.Background()
	first, _, err := suite.service.IssueRefreshToken(ctx, suite.user)
	suite.Require().NoError(err)
	second, _, err := suite.service.IssueRefreshToken(ctx, suite.user)
	suite.Require().NoError(err)

	suite.NotEqual(first, second)
	suite.Equal(2, suite.repo.RefreshTokenCount(suite.user.UserID))
}

func (suite *TokenServiceTestSuite) TestIssueRefreshToken_UnknownUser() {
	_, _, err := suite.service.IssueRefreshToken(context.Background(), &domain.User{UserID: uuid.NewString()})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *TokenServiceTestSuite) TestVerifyAccessToken_Tampered() {
	token, _, err := suite.service.IssueAccessToken(context.Background(), suite.user)
	suite.Require().NoError(err)

	parts := strings.Split(token, ".")
	suite.Require().Len(parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = suite.service.VerifyAccessToken(tampered)
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
}

func (suite *TokenServiceTestSuite) TestVerifyAccessToken_Expired() {
	cfg := newTestConfig()
	cfg.JWTAccessExpiryDuration = -time.Minute
	expiring := services.NewTokenService(cfg, suite.repo)

	token, _, err := expiring.IssueAccessToken(context.Background(), suite.user)
	suite.Require().NoError(err)

	_, err = expiring.VerifyAccessToken(token)
	suite.ErrorIs(err, apperrors.ErrExpiredToken)
}

func (suite *TokenServiceTestSuite) TestVerifyRefreshToken_ExpiredIsInvalid() {
	cfg := newTestConfig()
	cfg.JWTRefreshExpiryDuration = -time.Minute
	expiring := services.NewTokenService(cfg, suite.repo)

	token, _, err := expiring.IssueRefreshToken(context.Background(), suite.user)
	suite.Require().NoError(err)

	_, err = expiring.VerifyRefreshToken(token)
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
}

func (suite *TokenServiceTestSuite) TestVerify_WrongTokenKind() {
	ctx := context.Background()
	pair, err := suite.service.IssueTokenPair(ctx, suite.user)
	suite.Require().NoError(err)

	_, err = suite.service.VerifyAccessToken(pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
	_, err = suite.service.VerifyRefreshToken(pair.AccessToken)
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
}

func (suite *TokenServiceTestSuite) TestVerifyAccessToken_WrongIssuer() {
	cfg := newTestConfig()
	cfg.JWTIssuer = "someone-else"
	foreign := services.NewTokenService(cfg, suite.repo)

	token, _, err := foreign.IssueAccessToken(context.Background(), suite.user)
	suite.Require().NoError(err)

	_, err = suite.service.VerifyAccessToken(token)
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
}

func (suite *TokenServiceTestSuite) TestVerifyAccessToken_Garbage() {
	_, err := suite.service.VerifyAccessToken("not-a-jwt")
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
}

func (suite *TokenServiceTestSuite) TestRevokeRefreshToken_OnlyOnce() {
	ctx := context.Background()
	token, _, err := suite.service.IssueRefreshToken(ctx, suite.user)
	suite.Require().NoError(err)

	removed, err := suite.service.RevokeRefreshToken(ctx, suite.user.UserID, token)
	suite.Require().NoError(err)
	suite.True(removed)

	removed, err = suite.service.RevokeRefreshToken(ctx, suite.user.UserID, token)
	suite.Require().NoError(err)
	suite.False(removed)
}

func (suite *TokenServiceTestSuite) TestRevokeAllRefreshTokens() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := suite.service.IssueRefreshToken(ctx, suite.user)
		suite.Require().NoError(err)
	}

	suite.Require().NoError(suite.service.RevokeAllRefreshTokens(ctx, suite.user.UserID))
	suite.Zero(suite.repo.RefreshTokenCount(suite.user.UserID))

	err := suite.service.RevokeAllRefreshTokens(ctx, uuid.NewString())
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestTokenServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}
