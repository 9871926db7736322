package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/auth_service/internal/core/domain"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
)

// logNotifier records outgoing messages in the log instead of delivering them.
// Token values are never logged.
type logNotifier struct {
	BaseService
	frontendBaseURL string
}

// NewLogNotifier creates a NotifierSvc that only logs.
func NewLogNotifier(frontendBaseURL string) portssvc.NotifierSvc {
	return &logNotifier{frontendBaseURL: frontendBaseURL}
}

func (n *logNotifier) SendVerificationEmail(ctx context.Context, user *domain.User, token string) error {
	n.LogInfo(ctx, "Verification email queued",
		slog.String("user_id", user.UserID),
		slog.String("link_base", n.frontendBaseURL+"/verify-email"))
	return nil
}

func (n *logNotifier) SendPasswordResetEmail(ctx context.Context, user *domain.User, token string) error {
	n.LogInfo(ctx, "Password reset email queued",
		slog.String("user_id", user.UserID),
		slog.String("link_base", n.frontendBaseURL+"/reset-password"))
	return nil
}
