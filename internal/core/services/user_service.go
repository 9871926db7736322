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
	"github.com/SscSPs/auth_service/internal/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
	tokens   portssvc.TokenSvcFacade
}

// NewUserService creates a new UserSvcFacade.
func NewUserService(userRepo portsrepo.UserRepositoryFacade, tokens portssvc.TokenSvcFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo, tokens: tokens}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to get user by ID", slog.String("user_id", userID))
		return nil, apperrors.NewInternalError("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		return nil, 0, apperrors.NewValidationError("limit must be between 1 and 100")
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.SortBy == "" {
		opts.SortBy = "createdAt"
	}
	if !domain.UserSortFields[opts.SortBy] {
		return nil, 0, apperrors.NewValidationError("Unsupported sort field")
	}
	if opts.SortOrder != domain.SortAsc {
		opts.SortOrder = domain.SortDesc
	}

	users, total, err := s.userRepo.FindUsers(ctx, filter, opts)
	if err != nil {
		s.LogError(ctx, err, "Failed to list users")
		return nil, 0, apperrors.NewInternalError("Failed to list users", err)
	}
	return users, total, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := applyNames(user, req.FirstName, req.LastName); err != nil {
		return nil, err
	}
	if req.AvatarURL != nil {
		if *req.AvatarURL == "" {
			user.AvatarURL = nil
		} else if avatar := utils.SanitizeAvatarURL(*req.AvatarURL); avatar != nil {
			user.AvatarURL = avatar
		} else {
			return nil, apperrors.NewValidationError("avatarURL must be an absolute http(s) URL")
		}
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Profile updated", slog.String("user_id", userID))
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.AdminUpdateUserRequest, requestingUserID string) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if userID == requestingUserID {
		if req.Role != nil && domain.UserRole(*req.Role) != user.Role {
			return nil, apperrors.NewForbiddenError("You cannot change your own role")
		}
		if req.Status != nil && domain.UserStatus(*req.Status) != user.Status {
			return nil, apperrors.NewForbiddenError("You cannot change your own status")
		}
	}

	if err := applyNames(user, req.FirstName, req.LastName); err != nil {
		return nil, err
	}
	if req.Role != nil {
		role := domain.UserRole(*req.Role)
		if !role.IsValid() {
			return nil, apperrors.NewValidationError("Invalid role")
		}
		user.Role = role
	}
	revokeSessions := false
	if req.Status != nil {
		status := domain.UserStatus(*req.Status)
		if !status.IsValid() {
			return nil, apperrors.NewValidationError("Invalid status")
		}
		revokeSessions = status == domain.StatusSuspended && user.Status != domain.StatusSuspended
		user.Status = status
	}
	if req.IsVerified != nil {
		user.IsVerified = *req.IsVerified
		if user.IsVerified {
			user.EmailVerification = nil
		}
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	if revokeSessions {
		if err := s.tokens.RevokeAllRefreshTokens(ctx, userID); err != nil {
			return nil, err
		}
	}
	s.LogInfo(ctx, "User updated by admin",
		slog.String("target_user_id", userID),
		slog.String("updater_user_id", requestingUserID))
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to delete user", slog.String("user_id", userID))
		return apperrors.NewInternalError("Failed to delete user", err)
	}
	s.LogInfo(ctx, "User deleted",
		slog.String("target_user_id", userID),
		slog.String("deleter_user_id", requestingUserID))
	return nil
}

func (s *userService) save(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("User not found")
		}
		s.LogError(ctx, err, "Failed to update user", slog.String("user_id", user.UserID))
		return apperrors.NewInternalError("Failed to update user", err)
	}
	return nil
}

func applyNames(user *domain.User, firstName, lastName *string) error {
	if firstName != nil {
		name := utils.SanitizeText(*firstName)
		if name == "" {
			return apperrors.NewValidationError("firstName must be between 1 and 50 characters")
		}
		user.FirstName = truncateName(name)
	}
	if lastName != nil {
		name := utils.SanitizeText(*lastName)
		if name == "" {
			return apperrors.NewValidationError("lastName must be between 1 and 50 characters")
		}
		user.LastName = truncateName(name)
	}
	return nil
}
