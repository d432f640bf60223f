// Package api binds the eligibility engine to HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"opt-eligibility/internal/api/middleware"
	"opt-eligibility/internal/common/logger"
	"opt-eligibility/internal/common/observability"
	"opt-eligibility/internal/eligibility"

	"github.com/gin-gonic/gin"
)

const (
	maxBodyBytes = 64 << 10
	readyTimeout = 2 * time.Second
)

// ReadinessCheck reports whether a backing service is usable.
type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Engine        *eligibility.Engine
	Logger        logger.Logger
	Observability *observability.Observability
	CORSOrigins   []string

	// Limiter guards POST /validate. Nil disables rate limiting.
	Limiter middleware.Allower

	// ReadinessChecks run on GET /ready, keyed by backend name.
	ReadinessChecks map[string]ReadinessCheck
}

type Handler struct {
	engine *eligibility.Engine
	obs    *observability.Observability
	logger logger.Logger
	checks map[string]ReadinessCheck
}

// NewRouter constructs the gin engine with middleware and routes registered.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(deps.Logger),
		middleware.Recovery(deps.Logger),
		middleware.CORS(deps.CORSOrigins),
	)

	h := &Handler{
		engine: deps.Engine,
		obs:    deps.Observability,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "api"}),
		checks: deps.ReadinessChecks,
	}

	validate := []gin.HandlerFunc{h.Validate}
	if deps.Limiter != nil {
		validate = append([]gin.HandlerFunc{middleware.RateLimit(deps.Limiter)}, validate...)
	}

	r.POST("/validate", validate...)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/rules", h.Rules)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	return r
}
