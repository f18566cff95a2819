package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/pkg/apperror"
)

// ErrorHandler turns errors attached to the gin context into uniform JSON
// responses. AppErrors keep their status and message; everything else is
// masked as an internal error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("request error")
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
			return
		}

		message := "internal server error"
		if msg := err.Error(); msg != "" && !containsInternalKeywords(msg) {
			message = msg
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

// containsInternalKeywords reports whether an error message leaks internals
// that must not reach clients.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	lower := strings.ToLower(s)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
