// Package memory is a process-local credential store. It enforces the same
// unique constraints as the database stores and is used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	"github.com/SscSPs/auth_service/internal/models"
	"github.com/SscSPs/auth_service/internal/utils/mapping"
)

// UserRepository keeps users in a map guarded by a mutex.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
}

// NewUserRepository creates an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.User)}
}

var (
	_ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)
	_ portsrepo.StoreHealthChecker   = (*UserRepository)(nil)
)

// Ping always succeeds.
func (r *UserRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// FindUserByID retrieves a user by ID.
func (r *UserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(func(u *models.User) bool { return u.UserID == userID })
}

// FindUserByEmail retrieves a user by normalized email.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(func(u *models.User) bool { return u.Email == email })
}

// FindUserByProviderID retrieves the user linked to externalID.
func (r *UserRepository) FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error) {
	return r.findOne(func(u *models.User) bool { return eq(providerSlot(u, provider), externalID) })
}

// FindUserByVerificationTokenHash retrieves the user holding a verification token.
func (r *UserRepository) FindUserByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(func(u *models.User) bool { return eq(u.VerificationTokenHash, tokenHash) })
}

// FindUserByResetTokenHash retrieves the user holding a reset token.
func (r *UserRepository) FindUserByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(func(u *models.User) bool { return eq(u.ResetTokenHash, tokenHash) })
}

// FindUsers filters, sorts and pages users.
func (r *UserRepository) FindUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []models.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != string(*filter.Role) {
			continue
		}
		if filter.Status != nil && u.Status != string(*filter.Status) {
			continue
		}
		if filter.Verified != nil && u.IsVerified != *filter.Verified {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.FirstName), search) &&
			!strings.Contains(strings.ToLower(u.LastName), search) {
			continue
		}
		matched = append(matched, *u)
	}

	less := sortKey(opts.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if opts.SortOrder == domain.SortAsc {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := int64(len(matched))
	start := min(opts.Offset, len(matched))
	end := len(matched)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(matched))
	}
	return mapping.ToDomainUserSlice(matched[start:end]), total, nil
}

// SaveUser inserts a user, rejecting any unique key collision.
func (r *UserRepository) SaveUser(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := mapping.ToModelUser(user)
	if _, exists := r.users[m.UserID]; exists {
		return apperrors.ErrDuplicate
	}
	for _, u := range r.users {
		if u.Email == m.Email || (m.GoogleID != nil && eq(u.GoogleID, *m.GoogleID)) || (m.FacebookID != nil && eq(u.FacebookID, *m.FacebookID)) {
			return apperrors.ErrDuplicate
		}
	}
	r.users[m.UserID] = &m
	return nil
}

// UpdateUser overwrites everything except email, provider ids, last login and refresh tokens.
func (r *UserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.UserID]
	if !ok {
		return apperrors.ErrNotFound
	}
	m := mapping.ToModelUser(user)
	m.Email = existing.Email
	m.GoogleID = existing.GoogleID
	m.FacebookID = existing.FacebookID
	m.LastLoginAt = existing.LastLoginAt
	m.RefreshTokens = existing.RefreshTokens
	m.CreatedAt = existing.CreatedAt
	r.users[user.UserID] = &m
	return nil
}

// LinkProvider fills an empty provider slot or confirms an identical one.
func (r *UserRepository) LinkProvider(ctx context.Context, userID string, provider domain.AuthProvider, externalID string, markVerified bool, avatarURL *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	if slot := providerSlot(u, provider); slot != nil && *slot != externalID {
		return false, nil
	}
	for id, other := range r.users {
		if id != userID && eq(providerSlot(other, provider), externalID) {
			return false, apperrors.ErrDuplicate
		}
	}

	id := externalID
	switch provider {
	case domain.ProviderGoogle:
		u.GoogleID = &id
	case domain.ProviderFacebook:
		u.FacebookID = &id
	}
	if markVerified {
		u.IsVerified = true
	}
	if u.AvatarURL == nil && avatarURL != nil {
		avatar := *avatarURL
		u.AvatarURL = &avatar
	}
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

// UpdateLastLogin records a sign-in time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// AddRefreshToken appends a token hash after pruning expired ones.
func (r *UserRepository) AddRefreshToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now().UTC()
	kept := u.RefreshTokens[:0]
	for _, t := range u.RefreshTokens {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	u.RefreshTokens = append(kept, models.RefreshToken{TokenHash: tokenHash, UserID: userID, ExpiresAt: expiresAt, CreatedAt: now})
	return nil
}

// ConsumeRefreshToken removes a token hash and reports whether it was present.
func (r *UserRepository) ConsumeRefreshToken(ctx context.Context, userID string, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	for i, t := range u.RefreshTokens {
		if t.TokenHash == tokenHash {
			u.RefreshTokens = append(u.RefreshTokens[:i], u.RefreshTokens[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ClearRefreshTokens removes every token of a user.
func (r *UserRepository) ClearRefreshTokens(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.RefreshTokens = nil
	return nil
}

// DeleteUser removes a user together with its refresh tokens.
func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

// RefreshTokenCount returns the number of registered refresh tokens of a user.
func (r *UserRepository) RefreshTokenCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[userID]; ok {
		return len(u.RefreshTokens)
	}
	return 0
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *UserRepository) findOne(match func(*models.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			user := mapping.ToDomainUser(*u)
			return &user, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func providerSlot(u *models.User, provider domain.AuthProvider) *string {
	switch provider {
	case domain.ProviderGoogle:
		return u.GoogleID
	case domain.ProviderFacebook:
		return u.FacebookID
	}
	return nil
}

func eq(p *string, v string) bool {
	return p != nil && *p == v
}

func sortKey(field string) func(a, b models.User) bool {
	switch field {
	case "email":
		return func(a, b models.User) bool { return a.Email < b.Email }
	case "firstName":
		return func(a, b models.User) bool { return a.FirstName < b.FirstName }
	case "lastName":
		return func(a, b models.User) bool { return a.LastName < b.LastName }
	case "role":
		return func(a, b models.User) bool { return a.Role < b.Role }
	case "status":
		return func(a, b models.User) bool { return a.Status < b.Status }
	default:
		return func(a, b models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}
