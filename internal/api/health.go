package api

import (
	"context"
	"net/http"
	"time"

	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency the health check pings, e.g. the database or the leaderboard store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthRoutes struct {
	checks map[string]Pinger
}

// NewHealthRoutes registers an unauthenticated GET /health that pings every dependency.
func NewHealthRoutes(handler *gin.RouterGroup, checks map[string]Pinger) {
	r := &healthRoutes{checks: checks}
	handler.GET("/health", r.Health)
}

func (r *healthRoutes) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	out := make(gin.H, len(r.checks))
	for name, p := range r.checks {
		if err := p.Ping(ctx); err != nil {
			logger.Logger().Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			out[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}

	c.JSON(status, gin.H{"checks": out})
}
