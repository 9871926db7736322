package domain

import (
	"strings"
	"time"
)

// UserRole is the authorization level of a user.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// IsValid reports whether r is a known role.
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserStatus is the lifecycle state of an account. Only active accounts may authenticate.
type UserStatus string

const (
	StatusPending   UserStatus = "pending"
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
)

// IsValid reports whether s is a known status.
func (s UserStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// AuthProvider identifies where a credential comes from.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderGoogle   AuthProvider = "google"
	ProviderFacebook AuthProvider = "facebook"
)

// ExternalProviders lists the OAuth providers a user can link.
var ExternalProviders = []AuthProvider{ProviderGoogle, ProviderFacebook}

// IsExternal reports whether p is a linkable OAuth provider.
func (p AuthProvider) IsExternal() bool {
	return p == ProviderGoogle || p == ProviderFacebook
}

// ExpiringToken is a one-time token stored as a hash together with its expiry.
type ExpiringToken struct {
	TokenHash string
	ExpiresAt time.Time
}

// IsExpired reports whether the token is past its expiry at now.
func (t *ExpiringToken) IsExpired(now time.Time) bool {
	return t == nil || !now.Before(t.ExpiresAt)
}

// User represents a user of the application in the domain.
// Refresh tokens are not part of the user; they live in the RefreshTokenRegistry.
type User struct {
	UserID       string
	Email        string
	PasswordHash *string
	FirstName    string
	LastName     string
	AvatarURL    *string
	Role         UserRole
	Status       UserStatus
	IsVerified   bool

	GoogleID   *string
	FacebookID *string

	EmailVerification *ExpiringToken
	PasswordReset     *ExpiringToken

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// HasPassword reports whether a local password is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ProviderID returns the external id linked for provider, or "" if none.
func (u *User) ProviderID(provider AuthProvider) string {
	var id *string
	switch provider {
	case ProviderGoogle:
		id = u.GoogleID
	case ProviderFacebook:
		id = u.FacebookID
	}
	if id == nil {
		return ""
	}
	return *id
}

// SetProviderID links externalID for provider.
func (u *User) SetProviderID(provider AuthProvider, externalID string) {
	id := externalID
	switch provider {
	case ProviderGoogle:
		u.GoogleID = &id
	case ProviderFacebook:
		u.FacebookID = &id
	}
}

// LinkedProviders returns the providers that have an external id set.
func (u *User) LinkedProviders() []AuthProvider {
	var linked []AuthProvider
	for _, p := range ExternalProviders {
		if u.ProviderID(p) != "" {
			linked = append(linked, p)
		}
	}
	return linked
}

// HasAuthMethod reports whether the user can sign in at all.
func (u *User) HasAuthMethod() bool {
	return u.HasPassword() || len(u.LinkedProviders()) > 0
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilter narrows a user listing. Nil fields are not applied.
type UserFilter struct {
	Role     *UserRole
	Status   *UserStatus
	Verified *bool
	Search   string
}

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// UserSortFields are the fields a user listing can be sorted on.
var UserSortFields = map[string]bool{
	"createdAt": true,
	"email":     true,
	"firstName": true,
	"lastName":  true,
	"role":      true,
	"status":    true,
}

// UserListOptions controls pagination and ordering of a user listing.
type UserListOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder SortOrder
}
