package models

import (
	"time"
)

// User is the persisted form of a user, shared by the Mongo and Postgres stores.
// Provider ids stay nil rather than empty so the unique indexes only cover linked accounts.
type User struct {
	UserID       string  `bson:"_id" db:"user_id"`
	Email        string  `bson:"email" db:"email"`
	PasswordHash *string `bson:"password_hash,omitempty" db:"password_hash"`
	FirstName    string  `bson:"first_name" db:"first_name"`
	LastName     string  `bson:"last_name" db:"last_name"`
	AvatarURL    *string `bson:"avatar_url,omitempty" db:"avatar_url"`
	Role         string  `bson:"role" db:"role"`
	Status       string  `bson:"status" db:"status"`
	IsVerified   bool    `bson:"is_verified" db:"is_verified"`

	GoogleID   *string `bson:"google_id,omitempty" db:"google_id"`
	FacebookID *string `bson:"facebook_id,omitempty" db:"facebook_id"`

	VerificationTokenHash      *string    `bson:"verification_token_hash,omitempty" db:"verification_token_hash"`
	VerificationTokenExpiresAt *time.Time `bson:"verification_token_expires_at,omitempty" db:"verification_token_expires_at"`
	ResetTokenHash             *string    `bson:"reset_token_hash,omitempty" db:"reset_token_hash"`
	ResetTokenExpiresAt        *time.Time `bson:"reset_token_expires_at,omitempty" db:"reset_token_expires_at"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `bson:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" db:"updated_at"`

	// RefreshTokens is only populated in Mongo, where tokens are embedded in the user document.
	RefreshTokens []RefreshToken `bson:"refresh_tokens,omitempty" db:"-"`
}

// RefreshToken is one registry entry. Only the SHA-256 of the token is stored.
type RefreshToken struct {
	TokenHash string    `bson:"hash" db:"token_hash"`
	UserID    string    `bson:"-" db:"user_id"`
	ExpiresAt time.Time `bson:"expires_at" db:"expires_at"`
	CreatedAt time.Time `bson:"created_at" db:"created_at"`
}
