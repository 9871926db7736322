package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/google/uuid"
)

// maxLinkAttempts bounds the re-reads after a unique index rejected a concurrent write.
const maxLinkAttempts = 3

const maxNameLength = 50

// errLinkRace marks a write that lost to a concurrent sign-in with the same identity.
var errLinkRace = errors.New("concurrent oauth link")

// oauthLinker maps an external identity to exactly one local user.
// Concurrent sign-ins with the same identity are serialized by the store's
// unique indexes; the loser of a race re-reads and returns the winner's user.
type oauthLinker struct {
	BaseService
	cfg      *config.Config
	userRepo portsrepo.UserRepositoryFacade
}

// NewOAuthLinker creates a new OAuthLinkerSvc.
func NewOAuthLinker(cfg *config.Config, userRepo portsrepo.UserRepositoryFacade) portssvc.OAuthLinkerSvc {
	return &oauthLinker{cfg: cfg, userRepo: userRepo}
}

var _ portssvc.OAuthLinkerSvc = (*oauthLinker)(nil)

// LinkOrCreate returns the user owning the external id, links it to the user
// owning the email, or creates a new user, in that order.
func (l *oauthLinker) LinkOrCreate(ctx context.Context, profile domain.OAuthProfile) (*domain.User, error) {
	if !profile.Provider.IsExternal() {
		return nil, apperrors.NewValidationError("Unsupported OAuth provider")
	}
	profile.ExternalID = strings.TrimSpace(profile.ExternalID)
	profile.Email = domain.NormalizeEmail(profile.Email)
	if profile.ExternalID == "" || profile.Email == "" {
		return nil, apperrors.NewValidationError("OAuth profile must include an account id and an email address")
	}

	logger := l.GetLogger(ctx).With(slog.String("provider", string(profile.Provider)))
	var lastErr error
	for attempt := 1; attempt <= maxLinkAttempts; attempt++ {
		user, err := l.resolve(ctx, profile)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, errLinkRace) {
			return nil, err
		}
		lastErr = err
		logger.Debug("Concurrent OAuth link detected, re-reading", slog.Int("attempt", attempt))
	}
	logger.Error("OAuth link did not settle", slog.String("error", lastErr.Error()))
	return nil, apperrors.NewInternalError("Failed to link account", lastErr)
}

func (l *oauthLinker) resolve(ctx context.Context, profile domain.OAuthProfile) (*domain.User, error) {
	user, err := l.userRepo.FindUserByProviderID(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		l.LogError(ctx, err, "Failed to look up user by provider id")
		return nil, apperrors.NewInternalError("Failed to sign in", err)
	}

	user, err = l.userRepo.FindUserByEmail(ctx, profile.Email)
	if err == nil {
		return l.link(ctx, user, profile)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		l.LogError(ctx, err, "Failed to look up user by email")
		return nil, apperrors.NewInternalError("Failed to sign in", err)
	}

	return l.create(ctx, profile)
}

func (l *oauthLinker) link(ctx context.Context, user *domain.User, profile domain.OAuthProfile) (*domain.User, error) {
	if existing := user.ProviderID(profile.Provider); existing != "" && existing != profile.ExternalID {
		l.LogWarn(ctx, "Email already linked to another provider account",
			slog.String("user_id", user.UserID),
			slog.String("provider", string(profile.Provider)))
		return nil, apperrors.NewAlreadyExistsError(fmt.Sprintf("This email is already linked to a different %s account", profile.Provider))
	}

	var avatar *string
	if user.AvatarURL == nil {
		avatar = utils.SanitizeAvatarURL(profile.AvatarURL)
	}
	markVerified := profile.EmailVerified && l.cfg.IsTrustedProvider(string(profile.Provider))

	linked, err := l.userRepo.LinkProvider(ctx, user.UserID, profile.Provider, profile.ExternalID, markVerified, avatar)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("link provider for user %s: %w", user.UserID, errLinkRace)
		}
		l.LogError(ctx, err, "Failed to link provider", slog.String("user_id", user.UserID))
		return nil, apperrors.NewInternalError("Failed to sign in", err)
	}
	if !linked {
		// The slot was filled or the user removed since we read it.
		return nil, fmt.Errorf("link provider for user %s: %w", user.UserID, errLinkRace)
	}

	user.SetProviderID(profile.Provider, profile.ExternalID)
	if markVerified {
		user.IsVerified = true
	}
	if avatar != nil {
		user.AvatarURL = avatar
	}
	l.LogInfo(ctx, "Linked OAuth provider to existing user",
		slog.String("user_id", user.UserID),
		slog.String("provider", string(profile.Provider)))
	return user, nil
}

func (l *oauthLinker) create(ctx context.Context, profile domain.OAuthProfile) (*domain.User, error) {
	first, last := profile.Names()
	now := time.Now().UTC()
	user := domain.User{
		UserID:     uuid.NewString(),
		Email:      profile.Email,
		FirstName:  truncateName(utils.SanitizeText(first)),
		LastName:   truncateName(utils.SanitizeText(last)),
		AvatarURL:  utils.SanitizeAvatarURL(profile.AvatarURL),
		Role:       domain.RoleUser,
		Status:     domain.StatusActive,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	user.SetProviderID(profile.Provider, profile.ExternalID)
	if !user.HasAuthMethod() {
		return nil, apperrors.NewValidationError("OAuth profile does not identify a sign-in method")
	}

	if err := l.userRepo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("create oauth user: %w", errLinkRace)
		}
		l.LogError(ctx, err, "Failed to create OAuth user")
		return nil, apperrors.NewInternalError("Failed to create account", err)
	}
	l.LogInfo(ctx, "Created user from OAuth profile",
		slog.String("user_id", user.UserID),
		slog.String("provider", string(profile.Provider)))
	return &user, nil
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) > maxNameLength {
		return strings.TrimSpace(string(r[:maxNameLength]))
	}
	return name
}
