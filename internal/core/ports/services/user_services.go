package services

import (
	"context"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/dto"
)

// UserReaderSvc defines read operations for user data
type UserReaderSvc interface {
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)

	// ListUsers retrieves a filtered, sorted page of users and the total match count.
	ListUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error)
}

// UserWriterSvc defines write operations for user data
type UserWriterSvc interface {
	// UpdateProfile applies a user's own profile changes.
	UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*domain.User, error)

	// UpdateUser applies an admin's changes to any user.
	UpdateUser(ctx context.Context, userID string, req dto.AdminUpdateUserRequest, requestingUserID string) (*domain.User, error)
}

// UserLifecycleSvc defines operations for managing user lifecycle
type UserLifecycleSvc interface {
	// DeleteUser removes a user and revokes all of their sessions.
	DeleteUser(ctx context.Context, userID string, requestingUserID string) error
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	UserLifecycleSvc
}
