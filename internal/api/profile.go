package api

import (
	"net/http"
	"strconv"

	"timalaus_progression/internal/middleware"
	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type profileRoutes struct {
	ps service.ProfileServiceI
}

func NewProfileRoutes(handler *gin.RouterGroup, ps service.ProfileServiceI, a *auth.SupabaseAuth, authz *middleware.Authorization) {
	r := &profileRoutes{ps: ps}

	h := handler.Group("/")
	h.Use(a.Middleware())
	{
		h.GET("/profile", r.GetProfile)
		h.GET("/ranks", r.GetRanks)
		h.GET("/leaderboard", r.GetLeaderboard)
		h.GET("/leaderboard/me", r.GetLeaderboardPosition)
	}

	admin := handler.Group("/admin")
	admin.Use(a.Middleware(), authz.AdminOnly())
	{
		admin.PATCH("/profiles/:user_id/xp", r.AdjustXP)
	}
}

func (r *profileRoutes) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := r.ps.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, "failed to get profile", err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(view))
}

func (r *profileRoutes) GetRanks(c *gin.Context) {
	ladder := r.ps.Ladder()

	out := make([]gin.H, len(ladder))
	for i, step := range ladder {
		out[i] = gin.H{
			"index":     step.Index,
			"name":      step.Name,
			"tier":      step.Tier.String(),
			"threshold": step.Threshold,
		}
	}

	c.JSON(http.StatusOK, gin.H{"ranks": out})
}

func (r *profileRoutes) GetLeaderboard(c *gin.Context) {
	limit := service.DefaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := r.ps.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, "failed to get leaderboard", err)
		return
	}

	out := make([]LeaderboardEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntryResponse{Rank: e.Rank, UserID: e.UserID, XPTotal: e.XPTotal}
	}

	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (r *profileRoutes) GetLeaderboardPosition(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	entry, err := r.ps.LeaderboardPosition(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, "failed to get leaderboard position", err)
		return
	}

	c.JSON(http.StatusOK, LeaderboardEntryResponse{Rank: entry.Rank, UserID: entry.UserID, XPTotal: entry.XPTotal})
}

type AdjustXPRequest struct {
	XPTotal *int64 `json:"xp_total" binding:"required"`
}

func (r *profileRoutes) AdjustXP(c *gin.Context) {
	log := logger.Logger()

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	var req AdjustXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	view, err := r.ps.AdjustXP(c.Request.Context(), userID, *req.XPTotal)
	if err != nil {
		writeServiceError(c, "failed to adjust xp", err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(view))
}
