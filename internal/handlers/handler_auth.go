package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/auth_service/internal/apperrors"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/dto"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/gin-gonic/gin"
)

// authHandler handles credential sign-up, sign-in and the session lifecycle.
type authHandler struct {
	authService portssvc.AuthSvcFacade
	analytics   *utils.PosthogClientWrapper
}

func newAuthHandler(as portssvc.AuthSvcFacade, analytics *utils.PosthogClientWrapper) *authHandler {
	return &authHandler{authService: as, analytics: analytics}
}

// registerAuthRoutes sets up the public /auth routes. limit guards the endpoints
// that accept credentials or one-time tokens; authRequired guards session-wide actions.
func registerAuthRoutes(auth *gin.RouterGroup, h *authHandler, limit, authRequired gin.HandlerFunc) {
	auth.POST("/register", limit, h.register)
	auth.POST("/login", limit, h.login)
	auth.POST("/refresh-token", limit, h.refreshToken)
	auth.POST("/forgot-password", limit, h.forgotPassword)
	auth.POST("/reset-password", limit, h.resetPassword)
	auth.POST("/logout", h.logout)
	auth.POST("/verify-email", h.verifyEmail)

	auth.POST("/logout-all", authRequired, h.logoutAll)
	auth.POST("/resend-verification", authRequired, h.resendVerification)
}

// register godoc
// @Summary Register new user
// @Description Creates a local account and signs it in.
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.RegisterRequest true "User Registration Info"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "An account with this email already exists"
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *authHandler) register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("User registered", slog.String("user_id", result.User.UserID))
	middleware.PosthogEvent(c, h.analytics, result.User.UserID, utils.EventUserRegistered, nil)
	c.JSON(http.StatusCreated, dto.ToAuthResponse(result))
}

// login godoc
// @Summary User login
// @Description Authenticates with email and password and returns a token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login Credentials"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Account is not active"
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *authHandler) login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}
	middleware.PosthogEvent(c, h.analytics, result.User.UserID, utils.EventUserLoggedIn, map[string]any{"provider": "local"})
	c.JSON(http.StatusOK, dto.ToAuthResponse(result))
}

// refreshToken godoc
// @Summary Rotate a refresh token
// @Description Consumes a refresh token and returns a new token pair. A token can be used once.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/refresh-token [post]
func (h *authHandler) refreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondWithError(c, err)
		return
	}
	middleware.PosthogEvent(c, h.analytics, pair.UserID, utils.EventTokenRefreshed, nil)
	c.JSON(http.StatusOK, dto.ToTokenResponse(*pair))
}

// logout godoc
// @Summary Log out
// @Description Revokes one refresh token. Unknown or already revoked tokens are accepted.
// @Tags auth
// @Accept json
// @Param body body dto.RefreshTokenRequest true "Refresh token"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *authHandler) logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// logoutAll godoc
// @Summary Log out everywhere
// @Description Revokes every refresh token of the caller.
// @Tags auth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /auth/logout-all [post]
func (h *authHandler) logoutAll(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.authService.LogoutAll(c.Request.Context(), userID); err != nil {
		respondWithError(c, err)
		return
	}
	middleware.PosthogEvent(c, h.analytics, userID, utils.EventUserLoggedOutAll, nil)
	c.Status(http.StatusNoContent)
}

// forgotPassword godoc
// @Summary Request a password reset
// @Description Sends a reset link when the account exists. The response never reveals whether it does.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.ForgotPasswordRequest true "Account email"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/forgot-password [post]
func (h *authHandler) forgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, MessageResponse{Message: "If an account exists for this email, a reset link has been sent"})
}

// resetPassword godoc
// @Summary Reset a password
// @Description Sets a new password with a reset token and signs out every session.
// @Tags auth
// @Accept json
// @Param body body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid or expired reset token"
// @Failure 429 {object} ErrorResponse
// @Router /auth/reset-password [post]
func (h *authHandler) resetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// verifyEmail godoc
// @Summary Verify an email address
// @Tags auth
// @Accept json
// @Param body body dto.VerifyEmailRequest true "Verification token"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid or expired verification token"
// @Router /auth/verify-email [post]
func (h *authHandler) verifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// resendVerification godoc
// @Summary Resend the verification email
// @Tags auth
// @Produce json
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Email is already verified"
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /auth/resend-verification [post]
func (h *authHandler) resendVerification(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.authService.ResendVerification(c.Request.Context(), userID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, MessageResponse{Message: "Verification email sent"})
}

// requireUserID returns the authenticated caller or writes 401.
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		respondWithError(c, apperrors.NewInvalidTokenError("Authentication required", nil))
		return "", false
	}
	return userID, true
}
