package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/dto"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/gin-gonic/gin"
)

// userHandler handles HTTP requests related to users.
type userHandler struct {
	userService portssvc.UserSvcFacade
	authService portssvc.AuthSvcFacade
	analytics   *utils.PosthogClientWrapper
}

// newUserHandler creates a new userHandler.
func newUserHandler(us portssvc.UserSvcFacade, as portssvc.AuthSvcFacade, analytics *utils.PosthogClientWrapper) *userHandler {
	return &userHandler{userService: us, authService: as, analytics: analytics}
}

// registerUserRoutes registers all user-related routes under an authenticated group.
func registerUserRoutes(rg *gin.RouterGroup, h *userHandler) {
	users := rg.Group("/users")
	{
		users.GET("/profile", h.getProfile)
		users.PUT("/profile", h.updateProfile)
		users.DELETE("/profile", h.deleteProfile)
		users.PUT("/change-password", h.changePassword)
	}

	admin := users.Group("", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("", h.listUsers)
		admin.GET("/:id", h.getUser)
		admin.PUT("/:id", h.updateUser)
		admin.DELETE("/:id", h.deleteUser)
	}
}

// getProfile godoc
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/profile [get]
func (h *userHandler) getProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// updateProfile godoc
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Param profile body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/profile [put]
func (h *userHandler) updateProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// deleteProfile godoc
// @Summary Delete own account
// @Description Removes the caller's account and every session.
// @Tags users
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/profile [delete]
func (h *userHandler) deleteProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), userID, userID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// changePassword godoc
// @Summary Change own password
// @Description Verifies the current password, sets the new one and signs out every session.
// @Tags users
// @Accept json
// @Param body body dto.ChangePasswordRequest true "Current and new password"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Current password is incorrect"
// @Security BearerAuth
// @Router /api/v1/users/change-password [put]
func (h *userHandler) changePassword(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondWithError(c, err)
		return
	}
	middleware.PosthogEvent(c, h.analytics, userID, utils.EventPasswordChanged, nil)
	c.Status(http.StatusNoContent)
}

// listUsers godoc
// @Summary List users
// @Description Admin only. Filters, sorts and paginates users.
// @Tags users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param sort query string false "field:asc|desc, field one of createdAt,email,firstName,lastName,role,status"
// @Param search query string false "Matches email, first or last name"
// @Param role query string false "Role" Enums(user, admin)
// @Param status query string false "Status" Enums(pending, active, suspended)
// @Param verified query bool false "Email verified"
// @Success 200 {object} dto.ListUsersResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users [get]
func (h *userHandler) listUsers(c *gin.Context) {
	var params dto.ListUsersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondWithError(c, apperrors.NewAppError(apperrors.KindValidation, describeBindError(err), err))
		return
	}
	opts, err := params.ToListOptions()
	if err != nil {
		respondWithError(c, apperrors.NewAppError(apperrors.KindValidation, err.Error(), err))
		return
	}
	users, total, err := h.userService.ListUsers(c.Request.Context(), params.ToFilter(), opts)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListUsersResponse(users, total, params.Page, params.Limit))
}

// getUser godoc
// @Summary Get a user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.UserResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/{id} [get]
func (h *userHandler) getUser(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// updateUser godoc
// @Summary Update a user
// @Description Admin only. Suspending a user signs out every session.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body dto.AdminUpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/{id} [put]
func (h *userHandler) updateUser(c *gin.Context) {
	adminID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req dto.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), req, adminID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

// deleteUser godoc
// @Summary Delete a user
// @Tags users
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/v1/users/{id} [delete]
func (h *userHandler) deleteUser(c *gin.Context) {
	adminID, ok := requireUserID(c)
	if !ok {
		return
	}
	targetID := c.Param("id")
	if err := h.userService.DeleteUser(c.Request.Context(), targetID, adminID); err != nil {
		respondWithError(c, err)
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("User deleted by admin", slog.String("target_user_id", targetID))
	c.Status(http.StatusNoContent)
}
