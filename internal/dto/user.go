package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/auth_service/internal/core/domain"
)

// UserResponse is the public view of a user. Secrets and token hashes never leave the service.
type UserResponse struct {
	UserID          string     `json:"userID"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	AvatarURL       *string    `json:"avatarURL,omitempty"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	IsVerified      bool       `json:"isVerified"`
	HasPassword     bool       `json:"hasPassword"`
	LinkedProviders []string   `json:"linkedProviders"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ToUserResponse converts a domain.User to UserResponse.
func ToUserResponse(user *domain.User) UserResponse {
	providers := make([]string, 0, len(domain.ExternalProviders))
	for _, p := range user.LinkedProviders() {
		providers = append(providers, string(p))
	}
	return UserResponse{
		UserID:          user.UserID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		AvatarURL:       user.AvatarURL,
		Role:            string(user.Role),
		Status:          string(user.Status),
		IsVerified:      user.IsVerified,
		HasPassword:     user.HasPassword(),
		LinkedProviders: providers,
		LastLoginAt:     user.LastLoginAt,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

// UpdateProfileRequest defines the fields a user may change on their own profile.
// Using pointers to differentiate between omitted fields and zero-value fields.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=50"`
	AvatarURL *string `json:"avatarURL" binding:"omitempty,url,max=2048"`
}

// AdminUpdateUserRequest defines the fields an admin may change on any user.
type AdminUpdateUserRequest struct {
	FirstName  *string `json:"firstName" binding:"omitempty,min=1,max=50"`
	LastName   *string `json:"lastName" binding:"omitempty,min=1,max=50"`
	Role       *string `json:"role" binding:"omitempty,oneof=user admin"`
	Status     *string `json:"status" binding:"omitempty,oneof=pending active suspended"`
	IsVerified *bool   `json:"isVerified"`
}

// ListUsersParams defines query parameters for listing users.
type ListUsersParams struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Sort     string `form:"sort" binding:"omitempty,max=40"`
	Search   string `form:"search" binding:"omitempty,max=100"`
	Role     string `form:"role" binding:"omitempty,oneof=user admin"`
	Status   string `form:"status" binding:"omitempty,oneof=pending active suspended"`
	Verified *bool  `form:"verified"`
}

// ToFilter extracts the domain filter from the query.
func (p ListUsersParams) ToFilter() domain.UserFilter {
	filter := domain.UserFilter{
		Search:   strings.TrimSpace(p.Search),
		Verified: p.Verified,
	}
	if p.Role != "" {
		role := domain.UserRole(p.Role)
		filter.Role = &role
	}
	if p.Status != "" {
		status := domain.UserStatus(p.Status)
		filter.Status = &status
	}
	return filter
}

// ToListOptions parses paging and the "field:asc|desc" sort expression.
func (p ListUsersParams) ToListOptions() (domain.UserListOptions, error) {
	opts := domain.UserListOptions{
		Limit:     p.Limit,
		Offset:    (p.Page - 1) * p.Limit,
		SortBy:    "createdAt",
		SortOrder: domain.SortDesc,
	}
	if p.Sort == "" {
		return opts, nil
	}
	field, order, hasOrder := strings.Cut(p.Sort, ":")
	if !domain.UserSortFields[field] {
		return opts, fmt.Errorf("unsupported sort field %q", field)
	}
	opts.SortBy = field
	opts.SortOrder = domain.SortAsc
	if hasOrder {
		switch domain.SortOrder(strings.ToLower(order)) {
		case domain.SortAsc:
		case domain.SortDesc:
			opts.SortOrder = domain.SortDesc
		default:
			return opts, fmt.Errorf("unsupported sort order %q", order)
		}
	}
	return opts, nil
}

// PaginationMeta describes the page returned by a listing.
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ListUsersResponse wraps the list of users.
type ListUsersResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination PaginationMeta `json:"pagination"`
}

// ToListUsersResponse converts a page of domain users to ListUsersResponse.
func ToListUsersResponse(users []domain.User, total int64, page, limit int) ListUsersResponse {
	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = ToUserResponse(&users[i])
	}
	var totalPages int64
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return ListUsersResponse{
		Users: userResponses,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}
