package api

import (
	"net/http"

	"timalaus_progression/internal/middleware"
	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type catalogRoutes struct {
	catalog service.CatalogInvalidator
}

// NewCatalogRoutes lets admins drop cached quest and achievement definitions after editing them.
func NewCatalogRoutes(handler *gin.RouterGroup, catalog service.CatalogInvalidator, a *auth.SupabaseAuth, authz *middleware.Authorization) {
	r := &catalogRoutes{catalog: catalog}

	admin := handler.Group("/admin")
	admin.Use(a.Middleware(), authz.AdminOnly())
	{
		admin.POST("/catalog/refresh", r.Refresh)
	}
}

func (r *catalogRoutes) Refresh(c *gin.Context) {
	r.catalog.Invalidate()

	if user, err := auth.UserFromContext(c); err == nil {
		logger.Logger().Info("catalog cache invalidated", zap.String("user_id", user.ID.String()))
	}
	c.Status(http.StatusNoContent)
}
