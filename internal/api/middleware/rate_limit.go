package middleware

import (
	"context"
	"math"
	"strconv"

	"opt-eligibility/internal/api/respond"
	"opt-eligibility/internal/common/errors"
	"opt-eligibility/internal/common/ratelimit"

	"github.com/gin-gonic/gin"
)

// Allower decides whether a client may make another request.
type Allower interface {
	Allow(ctx context.Context, client string) (ratelimit.Decision, error)
	Limit() int
}

// RateLimit rejects clients over their budget with 429 and Retry-After.
// Limiter errors have already been logged and counted; the request proceeds.
func RateLimit(limiter Allower) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, _ := limiter.Allow(c.Request.Context(), c.ClientIP())

		h := c.Writer.Header()
		if !decision.FailOpen {
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}

		if decision.Allowed {
			c.Next()
			return
		}

		retryAfterSeconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		h.Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, errors.NewRateLimitedError(decision.RetryAfter))
	}
}
