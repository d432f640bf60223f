package middleware

import (
	"net/http"
	"time"

	"opt-eligibility/internal/common/logger"

	"github.com/gin-gonic/gin"
)

// Logging emits one structured log line per request.
func Logging(log logger.Logger) gin.HandlerFunc {
	log = log.WithFields(map[string]interface{}{"component": "http"})

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
		}
		if eligible, ok := c.Get("isEligible"); ok {
			fields["isEligible"] = eligible
		}
		if count, ok := c.Get("violationCount"); ok {
			fields["violationCount"] = count
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request.complete", fields)
			return
		}
		log.Info("request.complete", fields)
	}
}
