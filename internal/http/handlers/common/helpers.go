package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/logema/payments-backend/internal/dto"
	"github.com/logema/payments-backend/internal/http/middleware"
	"github.com/logema/payments-backend/internal/pkg/apperror"
)

var (
	// ErrUserNotFound is returned when no user is present in the context
	ErrUserNotFound = errors.New("user not found in request context")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("invalid UUID format")
)

// CurrentUserID extracts the authenticated user's ID from the Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// IsAdmin reports whether the authenticated user carries the admin role
func IsAdmin(c *gin.Context) bool {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return false
	}
	role, ok := raw.(string)
	return ok && role == middleware.RoleAdmin
}

// ParseUUIDParam parses a UUID from a URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("parameter %s is missing", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// RespondError sends a standardized error response
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{Error: message})
}

// RespondAppError maps a service error to its HTTP status and sends it.
// Non-AppError causes are masked as internal errors.
func RespondAppError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		RespondError(c, appErr.HTTPStatus, appErr.Message)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal server error")
}

// RespondSuccess sends a standardized success response
func RespondSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, dto.SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	RespondError(c, http.StatusUnauthorized, message)
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "invalid request"
	}
	RespondError(c, http.StatusBadRequest, message)
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
