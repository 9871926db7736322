package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/SscSPs/auth_service/internal/core/services"
	"github.com/SscSPs/auth_service/internal/dto"
	"github.com/SscSPs/auth_service/internal/handlers"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/repositories/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow_RegisterLoginRefreshReplay(t *testing.T) {
	app := newTestApp(t)

	registered := app.register("ada@example.com")
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "Bearer", registered.TokenType)
	assert.Positive(t, registered.ExpiresIn)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.False(t, registered.User.IsVerified)
	assert.True(t, registered.User.HasPassword)

	rec := app.login("ada@example.com", testPassword)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loggedIn dto.AuthResponse
	decode(t, rec, &loggedIn)
	assert.NotEqual(t, registered.RefreshToken, loggedIn.RefreshToken)
	assert.NotEqual(t, registered.AccessToken, loggedIn.AccessToken)

	rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: loggedIn.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed dto.TokenResponse
	decode(t, rec, &refreshed)
	assert.NotEqual(t, loggedIn.RefreshToken, refreshed.RefreshToken)

	rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: loggedIn.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))

	rec = app.request(http.MethodGet, "/api/v1/users/profile", nil, refreshed.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow_SingleLetterNames(t *testing.T) {
	app := newTestApp(t)

	rec := app.request(http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email: "a@x.com", Password: "P@ssw0rd1", FirstName: "A", LastName: "B",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered dto.AuthResponse
	decode(t, rec, &registered)
	require.NotEmpty(t, registered.AccessToken)
	require.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "A", registered.User.FirstName)
	assert.Equal(t, "B", registered.User.LastName)

	rec = app.login("a@x.com", "P@ssw0rd1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loggedIn dto.AuthResponse
	decode(t, rec, &loggedIn)
	assert.NotEqual(t, registered.AccessToken, loggedIn.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, loggedIn.RefreshToken)

	rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: loggedIn.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed dto.TokenResponse
	decode(t, rec, &refreshed)
	assert.NotEqual(t, loggedIn.RefreshToken, refreshed.RefreshToken)

	rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: loggedIn.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))

	rec = app.request(http.MethodPut, "/api/v1/users/profile", dto.UpdateProfileRequest{LastName: strPtr("C")}, refreshed.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		req  dto.RegisterRequest
	}{
		{"weak password", dto.RegisterRequest{Email: "a@example.com", Password: "password", FirstName: "Ada", LastName: "Lovelace"}},
		{"no special character", dto.RegisterRequest{Email: "a@example.com", Password: "Passw0rdX", FirstName: "Ada", LastName: "Lovelace"}},
		{"bad email", dto.RegisterRequest{Email: "not-an-email", Password: testPassword, FirstName: "Ada", LastName: "Lovelace"}},
		{"blank name", dto.RegisterRequest{Email: "a@example.com", Password: testPassword, FirstName: "", LastName: "Lovelace"}},
		{"missing last name", dto.RegisterRequest{Email: "a@example.com", Password: testPassword, FirstName: "Ada"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.request(http.MethodPost, "/auth/register", tc.req, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
		})
	}
	assert.Zero(t, app.repo.Len())
}

func TestRegister_MalformedBody(t *testing.T) {
	app := newTestApp(t)

	rec := app.request(http.MethodPost, "/auth/register", "not an object", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestRegister_Duplicate(t *testing.T) {
	app := newTestApp(t)
	app.register("dup@example.com")

	rec := app.request(http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email: "DUP@example.com", Password: testPassword, FirstName: "Other", LastName: "Person",
	}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", errorCode(t, rec))
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	app := newTestApp(t)
	app.register("ada@example.com")

	wrongPassword := app.login("ada@example.com", "Wr0ng!Pass")
	unknownEmail := app.login("nobody@example.com", "Wr0ng!Pass")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, wrongPassword))
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	session := app.register("ada@example.com")

	rec := app.request(http.MethodPost, "/auth/logout", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.request(http.MethodPost, "/auth/logout", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "logout is idempotent")

	rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAll(t *testing.T) {
	app := newTestApp(t)
	first := app.register("ada@example.com")
	rec := app.login("ada@example.com", testPassword)
	var second dto.AuthResponse
	decode(t, rec, &second)

	rec = app.request(http.MethodPost, "/auth/logout-all", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.request(http.MethodPost, "/auth/logout-all", nil, second.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: token}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	app := newTestApp(t)
	session := app.register("ada@example.com")

	rec := app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: session.AccessToken}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestForgotAndResetPassword(t *testing.T) {
	app := newTestApp(t)
	session := app.register("ada@example.com")

	rec := app.request(http.MethodPost, "/auth/forgot-password", dto.ForgotPasswordRequest{Email: "nobody@example.com"}, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	unknownBody := rec.Body.String()

	rec = app.request(http.MethodPost, "/auth/forgot-password", dto.ForgotPasswordRequest{Email: "ada@example.com"}, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, unknownBody, rec.Body.String())

	_, resetToken := app.notifier.tokens(session.User.UserID)
	require.NotEmpty(t, resetToken)

	const newPassword = "N3w!Passw0rd"
	rec = app.request(http.MethodPost, "/auth/reset-password", dto.ResetPasswordRequest{Token: "bogus", NewPassword: newPassword}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.request(http.MethodPost, "/auth/reset-password", dto.ResetPasswordRequest{Token: resetToken, NewPassword: newPassword}, "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = app.request(http.MethodPost, "/auth/reset-password", dto.ResetPasswordRequest{Token: resetToken, NewPassword: newPassword}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "reset tokens are single use")

	assert.Equal(t, http.StatusUnauthorized, app.login("ada@example.com", testPassword).Code)
	assert.Equal(t, http.StatusOK, app.login("ada@example.com", newPassword).Code)

	rec = app.request(http.MethodPost, "/auth/refresh-token", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "reset signs out existing sessions")
}

func TestVerifyEmail(t *testing.T) {
	app := newTestApp(t)
	session := app.register("ada@example.com")
	verifyToken, _ := app.notifier.tokens(session.User.UserID)
	require.NotEmpty(t, verifyToken)

	rec := app.request(http.MethodPost, "/auth/verify-email", dto.VerifyEmailRequest{Token: "bogus"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.request(http.MethodPost, "/auth/verify-email", dto.VerifyEmailRequest{Token: verifyToken}, "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	user, err := app.repo.FindUserByID(context.Background(), session.User.UserID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	rec = app.request(http.MethodPost, "/auth/resend-verification", nil, session.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestResendVerification(t *testing.T) {
	app := newTestApp(t)
	session := app.register("ada@example.com")
	first, _ := app.notifier.tokens(session.User.UserID)

	rec := app.request(http.MethodPost, "/auth/resend-verification", nil, session.AccessToken)
	require.Equal(t, http.StatusAccepted, rec.Code)

	second, _ := app.notifier.tokens(session.User.UserID)
	assert.NotEqual(t, first, second)

	rec = app.request(http.MethodPost, "/auth/verify-email", dto.VerifyEmailRequest{Token: first}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "resend replaces the previous token")
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.AuthRateLimit = "2-M" })

	for i := 0; i < 2; i++ {
		rec := app.login("ada@example.com", testPassword)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := app.login("ada@example.com", testPassword)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))

	rec = app.request(http.MethodPost, "/auth/logout", dto.RefreshTokenRequest{RefreshToken: "x"}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "logout is not rate limited")
}

func TestRegisterRoutes_InvalidRateLimit(t *testing.T) {
	cfg := newTestConfig()
	cfg.AuthRateLimit = "lots"
	repo := memory.NewUserRepository()
	svcs, err := services.NewServiceContainer(cfg, portsrepoProvider(repo))
	require.NoError(t, err)

	err = handlers.RegisterRoutes(gin.New(), cfg, svcs, repo, nil)

	assert.Error(t, err)
}
