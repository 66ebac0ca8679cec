package api

import (
	"net/http"

	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type gameRoutes struct {
	gs  service.GameServiceI
	hub *Hub
}

// NewGameRoutes registers the end-of-run endpoint and the notification socket.
func NewGameRoutes(handler *gin.RouterGroup, gs service.GameServiceI, hub *Hub, a *auth.SupabaseAuth) {
	r := &gameRoutes{gs: gs, hub: hub}

	h := handler.Group("/")
	h.Use(a.Middleware())
	{
		h.POST("/games", r.RecordGame)
		h.GET("/ws", hub.serveWS)
	}
}

type RecordGameRequest struct {
	Points int    `json:"points" binding:"min=0"`
	Mode   string `json:"mode"`
}

func (r *gameRoutes) RecordGame(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req RecordGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := r.gs.RecordGame(c.Request.Context(), user.ID, req.Points, req.Mode)
	if err != nil {
		writeServiceError(c, "failed to record game", err)
		return
	}

	c.JSON(http.StatusCreated, GameResponse{
		Points:               res.Points,
		Mode:                 res.Mode,
		XPGained:             res.XPGained,
		XPTotal:              res.XPTotal,
		RankBefore:           res.RankBefore,
		RankAfter:            res.RankAfter,
		LeveledUp:            res.LeveledUp,
		Streak:               res.Streak,
		CompletedQuests:      emptyIfNil(res.CompletedQuests),
		UnlockedAchievements: emptyIfNil(res.UnlockedAchievements),
	})
}
