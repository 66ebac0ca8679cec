package api

import (
	"errors"
	"net/http"
	"time"

	"timalaus_progression/internal/model"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RankResponse struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	Tier          string `json:"tier"`
	Threshold     int64  `json:"threshold"`
	NextThreshold *int64 `json:"next_threshold"`
	XPToNext      int64  `json:"xp_to_next"`
}

type ProfileResponse struct {
	ID            uuid.UUID    `json:"id"`
	Username      string       `json:"username"`
	XPTotal       int64        `json:"xp_total"`
	GamesPlayed   int          `json:"games_played"`
	CurrentStreak int          `json:"current_streak"`
	LastPlayedAt  *time.Time   `json:"last_played_at"`
	BonusPlays    int          `json:"bonus_plays"`
	Rank          RankResponse `json:"rank"`
}

type QuestResponse struct {
	QuestKey     string     `json:"quest_key"`
	Cadence      string     `json:"cadence"`
	Description  string     `json:"description"`
	TargetValue  int64      `json:"target_value"`
	XPReward     int64      `json:"xp_reward"`
	BonusPlays   int        `json:"bonus_plays"`
	CurrentValue int64      `json:"current_value"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at"`
	ResetAt      time.Time  `json:"reset_at"`
}

type ProgressResponse struct {
	QuestKey       string `json:"quest_key"`
	Applied        bool   `json:"applied"`
	CurrentValue   int64  `json:"current_value"`
	Target         int64  `json:"target"`
	Completed      bool   `json:"completed"`
	NewlyCompleted bool   `json:"newly_completed"`
	XPGranted      int64  `json:"xp_granted"`
	XPTotal        int64  `json:"xp_total"`
	LeveledUp      bool   `json:"leveled_up"`
}

type AchievementResponse struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	XPBonus     int64      `json:"xp_bonus"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at"`
}

type UnlockResponse struct {
	Key       string `json:"key"`
	Unlocked  bool   `json:"unlocked"`
	XPGranted int64  `json:"xp_granted"`
	XPTotal   int64  `json:"xp_total"`
	LeveledUp bool   `json:"leveled_up"`
}

type GameResponse struct {
	Points               int      `json:"points"`
	Mode                 string   `json:"mode"`
	XPGained             int64    `json:"xp_gained"`
	XPTotal              int64    `json:"xp_total"`
	RankBefore           int      `json:"rank_before"`
	RankAfter            int      `json:"rank_after"`
	LeveledUp            bool     `json:"leveled_up"`
	Streak               int      `json:"streak"`
	CompletedQuests      []string `json:"completed_quests"`
	UnlockedAchievements []string `json:"unlocked_achievements"`
}

type LeaderboardEntryResponse struct {
	Rank    int       `json:"rank"`
	UserID  uuid.UUID `json:"user_id"`
	XPTotal int64     `json:"xp_total"`
}

func toRankResponse(info progression.RankInfo) RankResponse {
	return RankResponse{
		Index:         info.Index,
		Name:          info.Name,
		Tier:          info.Tier.String(),
		Threshold:     info.Threshold,
		NextThreshold: info.NextThreshold,
		XPToNext:      info.XPToNext,
	}
}

func toProfileResponse(v *service.ProfileView) ProfileResponse {
	p := v.Profile
	return ProfileResponse{
		ID:            p.ID,
		Username:      p.Username,
		XPTotal:       p.XPTotal,
		GamesPlayed:   p.GamesPlayed,
		CurrentStreak: p.CurrentStreak,
		LastPlayedAt:  p.LastPlayedAt,
		BonusPlays:    p.BonusPlays,
		Rank:          toRankResponse(v.Rank),
	}
}

func toQuestResponse(s *model.QuestStatus) QuestResponse {
	return QuestResponse{
		QuestKey:     s.Definition.Key,
		Cadence:      string(s.Definition.Cadence),
		Description:  s.Definition.Description,
		TargetValue:  s.Definition.TargetValue,
		XPReward:     s.Definition.XPReward,
		BonusPlays:   s.Definition.BonusPlays,
		CurrentValue: s.Progress.CurrentValue,
		Completed:    s.Progress.Completed,
		CompletedAt:  s.Progress.CompletedAt,
		ResetAt:      s.Progress.ResetAt,
	}
}

func toProgressResponse(r *model.ProgressResult) ProgressResponse {
	return ProgressResponse{
		QuestKey:       r.QuestKey,
		Applied:        r.Applied,
		CurrentValue:   r.CurrentValue,
		Target:         r.Target,
		Completed:      r.Completed,
		NewlyCompleted: r.NewlyCompleted,
		XPGranted:      r.XPGranted,
		XPTotal:        r.XPTotal,
		LeveledUp:      r.LeveledUp,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// currentUser reads the authenticated user set by the auth middleware.
func currentUser(c *gin.Context) (*auth.UserData, bool) {
	user, err := auth.UserFromContext(c)
	if err != nil {
		logger.Logger().Error("auth user not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return user, true
}

func writeServiceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, service.ErrNotRanked):
		c.JSON(http.StatusNotFound, gin.H{"error": "not ranked yet"})
	case errors.Is(err, service.ErrInvalidXP):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Logger().Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
