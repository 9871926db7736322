package mapping

import (
	"time"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/models"
)

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	m := models.User{
		UserID:       d.UserID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		AvatarURL:    d.AvatarURL,
		Role:         string(d.Role),
		Status:       string(d.Status),
		IsVerified:   d.IsVerified,
		GoogleID:     d.GoogleID,
		FacebookID:   d.FacebookID,
		LastLoginAt:  d.LastLoginAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	m.VerificationTokenHash, m.VerificationTokenExpiresAt = splitExpiringToken(d.EmailVerification)
	m.ResetTokenHash, m.ResetTokenExpiresAt = splitExpiringToken(d.PasswordReset)
	return m
}

// ToDomainUser converts a model User to a domain User
func ToDomainUser(m models.User) domain.User {
	return domain.User{
		UserID:            m.UserID,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		AvatarURL:         m.AvatarURL,
		Role:              domain.UserRole(m.Role),
		Status:            domain.UserStatus(m.Status),
		IsVerified:        m.IsVerified,
		GoogleID:          m.GoogleID,
		FacebookID:        m.FacebookID,
		EmailVerification: joinExpiringToken(m.VerificationTokenHash, m.VerificationTokenExpiresAt),
		PasswordReset:     joinExpiringToken(m.ResetTokenHash, m.ResetTokenExpiresAt),
		LastLoginAt:       m.LastLoginAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ToDomainUserSlice converts a slice of model Users to a slice of domain Users
func ToDomainUserSlice(ms []models.User) []domain.User {
	ds := make([]domain.User, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainUser(m)
	}
	return ds
}

func splitExpiringToken(t *domain.ExpiringToken) (*string, *time.Time) {
	if t == nil {
		return nil, nil
	}
	hash := t.TokenHash
	expiresAt := t.ExpiresAt
	return &hash, &expiresAt
}

func joinExpiringToken(hash *string, expiresAt *time.Time) *domain.ExpiringToken {
	if hash == nil || *hash == "" || expiresAt == nil {
		return nil
	}
	return &domain.ExpiringToken{TokenHash: *hash, ExpiresAt: *expiresAt}
}
