package middleware

import (
	"fmt"
	"runtime/debug"

	"opt-eligibility/internal/api/respond"
	"opt-eligibility/internal/common/errors"
	"opt-eligibility/internal/common/logger"

	"github.com/gin-gonic/gin"
)

// Recovery recovers from panics and returns a standardized error response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic", map[string]interface{}{
					"request_id": RequestIDFromContext(c),
					"error":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				respond.Error(c, errors.NewInternalError(fmt.Errorf("panic: %v", rec)))
			}
		}()
		c.Next()
	}
}
