package api

import (
	"net/http"

	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"

	"github.com/gin-gonic/gin"
)

type achievementRoutes struct {
	as service.AchievementServiceI
}

func NewAchievementRoutes(handler *gin.RouterGroup, as service.AchievementServiceI, a *auth.SupabaseAuth) {
	r := &achievementRoutes{as: as}

	h := handler.Group("/achievements")
	h.Use(a.Middleware())
	{
		h.GET("", r.ListAchievements)
		h.POST("/:key/unlock", r.Unlock)
	}
}

func (r *achievementRoutes) ListAchievements(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	statuses, err := r.as.List(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, "failed to get achievements", err)
		return
	}

	out := make([]AchievementResponse, len(statuses))
	for i, s := range statuses {
		out[i] = AchievementResponse{
			Key:         s.Achievement.Key,
			Title:       s.Achievement.Title,
			Description: s.Achievement.Description,
			XPBonus:     s.Achievement.XPBonus,
			Unlocked:    s.Unlocked,
			UnlockedAt:  s.UnlockedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"achievements": out})
}

func (r *achievementRoutes) Unlock(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	res, err := r.as.Unlock(c.Request.Context(), user.ID, c.Param("key"))
	if err != nil {
		writeServiceError(c, "failed to unlock achievement", err)
		return
	}

	c.JSON(http.StatusOK, UnlockResponse{
		Key:       res.AchievementKey,
		Unlocked:  res.Unlocked,
		XPGranted: res.XPGranted,
		XPTotal:   res.XPTotal,
		LeveledUp: res.LeveledUp,
	})
}
