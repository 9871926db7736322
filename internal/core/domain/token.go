package domain

import "time"

// TokenUse distinguishes access tokens from refresh tokens inside the claims.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// TokenPayload is the verified content of an access or refresh token.
// Email and Role are only populated for access tokens.
type TokenPayload struct {
	UserID    string
	Email     string
	Role      UserRole
	TokenID   string
	Use       TokenUse
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAdmin reports whether the token was issued to an admin.
func (p *TokenPayload) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// TokenPair is what a successful authentication hands back to the client.
type TokenPair struct {
	// UserID is the subject both tokens were issued to.
	UserID                string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// AuthResult bundles a fresh token pair with the authenticated user.
type AuthResult struct {
	Tokens TokenPair
	User   *User
}
