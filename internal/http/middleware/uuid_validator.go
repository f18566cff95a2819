package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UUIDValidator checks that the named URL parameter is a valid UUID.
// Usage: router.GET("/payments/:id", UUIDValidator("id"), handler.GetPayment)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "parameter " + paramName + " is required",
			})
			c.Abort()
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "parameter " + paramName + " must be a valid UUID",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
