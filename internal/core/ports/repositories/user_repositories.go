package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/auth_service/internal/core/domain"
)

// UserReader defines read operations for user data.
// Every finder returns apperrors.ErrNotFound when no user matches.
type UserReader interface {
	// FindUserByID retrieves a specific user by their ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by normalized email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByProviderID retrieves the user linked to an external provider id.
	FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error)

	// FindUserByVerificationTokenHash retrieves the user holding an email verification token.
	FindUserByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)

	// FindUserByResetTokenHash retrieves the user holding a password reset token.
	FindUserByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)

	// FindUsers retrieves a filtered, sorted page of users along with the total match count.
	FindUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error)
}

// UserWriter defines write operations for user data
type UserWriter interface {
	// SaveUser persists a new user. Returns apperrors.ErrDuplicate when the email
	// or a provider id is already taken.
	SaveUser(ctx context.Context, user domain.User) error

	// UpdateUser overwrites profile, password, role, status and one-time token
	// fields. Email, provider ids, last login and refresh tokens are left untouched.
	// Returns apperrors.ErrNotFound when the user does not exist.
	UpdateUser(ctx context.Context, user domain.User) error

	// LinkProvider sets the external id for provider only if that slot is empty or
	// already holds externalID. It reports false when the user is missing or the
	// slot holds a different id. avatarURL is only written when the user has none.
	LinkProvider(ctx context.Context, userID string, provider domain.AuthProvider, externalID string, markVerified bool, avatarURL *string) (bool, error)

	// UpdateLastLogin records a successful sign-in.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

// RefreshTokenRegistry holds the hashes of every outstanding refresh token per user.
type RefreshTokenRegistry interface {
	// AddRefreshToken stores a token hash and prunes the user's expired entries.
	AddRefreshToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error

	// ConsumeRefreshToken atomically removes a token hash and reports whether it was present.
	ConsumeRefreshToken(ctx context.Context, userID string, tokenHash string) (bool, error)

	// ClearRefreshTokens removes every token of a user.
	ClearRefreshTokens(ctx context.Context, userID string) error
}

// UserLifecycleManager defines operations for managing user lifecycle
type UserLifecycleManager interface {
	// DeleteUser removes the user and all of their refresh tokens.
	DeleteUser(ctx context.Context, userID string) error
}

// UserRepositoryFacade combines all user-related repository interfaces
// This is a facade for clients that need access to all operations
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	RefreshTokenRegistry
	UserLifecycleManager
}
