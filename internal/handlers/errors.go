package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code  string `json:"code" example:"VALIDATION_ERROR"`
	Error string `json:"error" example:"email: must be a valid email address"`
}

// MessageResponse acknowledges an accepted request.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondWithError writes the {"code","error"} body for err. Internal causes are
// logged and never sent to the client.
func respondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if appErr.Kind == apperrors.KindInternal {
		logger.Error("Request failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Request rejected", slog.String("code", string(appErr.Kind)), slog.String("message", appErr.Message))
	}
	c.AbortWithStatusJSON(appErr.Code, ErrorResponse{Code: string(appErr.Kind), Error: appErr.Message})
}

// bindJSON binds the body into req and writes a validation error when it fails.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondWithError(c, apperrors.NewAppError(apperrors.KindValidation, describeBindError(err), err))
		return false
	}
	return true
}

// describeBindError turns validator failures into a short client message.
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", lowerFirst(fe.Field()), validationMessage(fe)))
	}
	return strings.Join(msgs, "; ")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "strongpassword":
		return passwordRuleMessage
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "nefield":
		return "must differ from " + lowerFirst(fe.Param())
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
