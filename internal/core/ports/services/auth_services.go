package services

import (
	"context"
	"time"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/dto"
)

// TokenSvcFacade defines the interface for token management services.
type TokenSvcFacade interface {
	// IssueAccessToken signs a short-lived access token. It has no side effects.
	IssueAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	// IssueRefreshToken signs a refresh token and records its hash in the user's registry.
	IssueRefreshToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	// IssueTokenPair issues an access token and a registered refresh token.
	IssueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error)
	// VerifyAccessToken returns the payload of a valid access token, or an
	// InvalidToken / ExpiredToken app error.
	VerifyAccessToken(tokenString string) (*domain.TokenPayload, error)
	// VerifyRefreshToken checks signature and expiry only; registry membership is
	// checked by RevokeRefreshToken. Expired tokens are reported as InvalidToken.
	VerifyRefreshToken(tokenString string) (*domain.TokenPayload, error)
	// RevokeRefreshToken removes one token from the registry and reports whether it was there.
	RevokeRefreshToken(ctx context.Context, userID string, tokenString string) (bool, error)
	// RevokeAllRefreshTokens empties the user's registry.
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// CredentialAuthSvc covers email and password sign-up and sign-in.
type CredentialAuthSvc interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
}

// SessionSvc covers the refresh token lifecycle after sign-in.
type SessionSvc interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	// Logout is best effort: unknown, expired or already revoked tokens are not errors.
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
}

// OAuthLoginSvc signs a user in from a verified provider profile.
type OAuthLoginSvc interface {
	OAuthLogin(ctx context.Context, profile domain.OAuthProfile) (*domain.AuthResult, error)
}

// AccountRecoverySvc covers password and email verification flows.
type AccountRecoverySvc interface {
	ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) error
	// ForgotPassword never reveals whether the email is registered.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, userID string) error
}

// AuthSvcFacade combines all authentication service interfaces
type AuthSvcFacade interface {
	CredentialAuthSvc
	SessionSvc
	OAuthLoginSvc
	AccountRecoverySvc
}

// OAuthLinkerSvc resolves a provider profile to exactly one local user.
type OAuthLinkerSvc interface {
	LinkOrCreate(ctx context.Context, profile domain.OAuthProfile) (*domain.User, error)
}

// OAuthProviderSvc is the client side of one external OAuth provider.
type OAuthProviderSvc interface {
	// Provider names the provider this client talks to.
	Provider() domain.AuthProvider
	// AuthCodeURL returns the consent page URL carrying state.
	AuthCodeURL(state string) string
	// FetchProfile exchanges an authorization code and returns the user's profile.
	FetchProfile(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

// NotifierSvc delivers out-of-band messages to users.
type NotifierSvc interface {
	SendVerificationEmail(ctx context.Context, user *domain.User, token string) error
	SendPasswordResetEmail(ctx context.Context, user *domain.User, token string) error
}
