package respond

import (
	"opt-eligibility/internal/common/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse wraps the standard error body.
type ErrorResponse struct {
	Error *errors.StandardError `json:"error"`
}

// Error aborts the request with stdErr and the status mapped from its code.
func Error(c *gin.Context, stdErr *errors.StandardError) {
	c.AbortWithStatusJSON(errors.HTTPStatus(stdErr.Code), ErrorResponse{Error: stdErr})
}
