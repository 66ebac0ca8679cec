package middleware

import (
	"errors"
	"net/http"

	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Authorization struct {
	profileService service.ProfileServiceI
}

func NewAuthorization(profileService service.ProfileServiceI) *Authorization {
	return &Authorization{
		profileService: profileService,
	}
}

// AdminOnly must run after the auth middleware. Admin status comes from the profile row,
// never from token claims.
func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		user, err := auth.UserFromContext(c)
		if err != nil {
			log.Error("auth user not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		view, err := a.profileService.GetProfile(c.Request.Context(), user.ID)
		if err != nil {
			if errors.Is(err, service.ErrProfileNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "profile not found"})
				return
			}
			log.Error("failed to get profile", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		if !view.Profile.IsAdmin {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.String("user_id", user.ID.String()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Next()
	}
}
