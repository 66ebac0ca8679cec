package api

import (
	"net/http"

	"timalaus_progression/internal/model"
	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type questRoutes struct {
	qt service.QuestTrackerI
}

func NewQuestRoutes(handler *gin.RouterGroup, qt service.QuestTrackerI, a *auth.SupabaseAuth) {
	r := &questRoutes{qt: qt}

	h := handler.Group("/quests")
	h.Use(a.Middleware())
	{
		h.GET("", r.ListQuests)
		h.POST("/:quest_key/progress", r.UpdateProgress)
		h.PUT("/:quest_key/progress", r.SetProgress)
	}
}

func (r *questRoutes) ListQuests(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	statuses, err := r.qt.EnsureQuests(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, "failed to get quests", err)
		return
	}

	out := make([]QuestResponse, len(statuses))
	for i, s := range statuses {
		out[i] = toQuestResponse(s)
	}

	c.JSON(http.StatusOK, gin.H{"quests": out})
}

type UpdateProgressRequest struct {
	Increment int64 `json:"increment" binding:"min=0"`
}

func (r *questRoutes) UpdateProgress(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := r.qt.UpdateProgress(c.Request.Context(), user.ID, c.Param("quest_key"), req.Increment)
	r.respond(c, res, err)
}

type SetProgressRequest struct {
	Value *int64 `json:"value" binding:"required,min=0"`
}

func (r *questRoutes) SetProgress(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req SetProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := r.qt.SetProgress(c.Request.Context(), user.ID, c.Param("quest_key"), *req.Value)
	r.respond(c, res, err)
}

func (r *questRoutes) respond(c *gin.Context, res *model.ProgressResult, err error) {
	if err != nil {
		writeServiceError(c, "failed to update quest progress", err)
		return
	}
	c.JSON(http.StatusOK, toProgressResponse(res))
}
