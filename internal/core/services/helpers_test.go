package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "Str0ng!Pass"
	testIssuer   = "auth-service-test"
)

func newTestConfig() *config.Config {
	return &config.Config{
		JWTIssuer:                testIssuer,
		JWTAccessSecret:          "test-access-secret",
		JWTAccessExpiryDuration:  15 * time.Minute,
		JWTRefreshSecret:         "test-refresh-secret",
		JWTRefreshExpiryDuration: 24 * time.Hour,
		EmailVerificationTTL:     24 * time.Hour,
		PasswordResetTTL:         time.Hour,
		BcryptCost:               bcrypt.MinCost,
		OAuthTrustedProviders:    []string{"google"},
		FrontendBaseURL:          "http://localhost:3000",
	}
}

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) userResult(args mock.Arguments) (*domain.User, error) {
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, userID))
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, email))
}

func (m *MockUserRepository) FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, provider, externalID))
}

func (m *MockUserRepository) FindUserByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, tokenHash))
}

func (m *MockUserRepository) FindUserByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, tokenHash))
}

func (m *MockUserRepository) FindUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error) {
	args := m.Called(ctx, filter, opts)
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) LinkProvider(ctx context.Context, userID string, provider domain.AuthProvider, externalID string, markVerified bool, avatarURL *string) (bool, error) {
	args := m.Called(ctx, userID, provider, externalID, markVerified, avatarURL)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func (m *MockUserRepository) AddRefreshToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *MockUserRepository) ConsumeRefreshToken(ctx context.Context, userID string, tokenHash string) (bool, error) {
	args := m.Called(ctx, userID, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ClearRefreshTokens(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- Mock TokenService ---
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenService) IssueRefreshToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenService) IssueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	args := m.Called(ctx, user)
	var pair *domain.TokenPair
	if args.Get(0) != nil {
		pair = args.Get(0).(*domain.TokenPair)
	}
	return pair, args.Error(1)
}

func (m *MockTokenService) VerifyAccessToken(tokenString string) (*domain.TokenPayload, error) {
	args := m.Called(tokenString)
	var payload *domain.TokenPayload
	if args.Get(0) != nil {
		payload = args.Get(0).(*domain.TokenPayload)
	}
	return payload, args.Error(1)
}

func (m *MockTokenService) VerifyRefreshToken(tokenString string) (*domain.TokenPayload, error) {
	args := m.Called(tokenString)
	var payload *domain.TokenPayload
	if args.Get(0) != nil {
		payload = args.Get(0).(*domain.TokenPayload)
	}
	return payload, args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, userID string, tokenString string) (bool, error) {
	args := m.Called(ctx, userID, tokenString)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenService) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// recordingNotifier keeps the last token sent per user.
type recordingNotifier struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verification: map[string]string{}, reset: map[string]string{}}
}

func (n *recordingNotifier) SendVerificationEmail(ctx context.Context, user *domain.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verification[user.UserID] = token
	return nil
}

func (n *recordingNotifier) SendPasswordResetEmail(ctx context.Context, user *domain.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[user.UserID] = token
	return nil
}

func (n *recordingNotifier) verificationToken(userID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verification[userID]
}

func (n *recordingNotifier) resetToken(userID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[userID]
}

func strPtr(s string) *string { return &s }
