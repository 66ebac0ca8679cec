package service

import (
	"context"
	"errors"
	"time"

	"timalaus_progression/internal/model"
	"timalaus_progression/internal/progression"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrQuestNotFound       = errors.New("quest not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrInvalidXP           = errors.New("xp total must not be negative")
	ErrNotRanked           = errors.New("player is not on the leaderboard")
)

type QuestTrackerI interface {
	UpdateProgress(ctx context.Context, userID uuid.UUID, questKey string, increment int64) (*model.ProgressResult, error)
	SetProgress(ctx context.Context, userID uuid.UUID, questKey string, value int64) (*model.ProgressResult, error)
	EnsureQuests(ctx context.Context, userID uuid.UUID) ([]*model.QuestStatus, error)
}

type AchievementServiceI interface {
	Unlock(ctx context.Context, userID uuid.UUID, key string) (*model.UnlockResult, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.AchievementStatus, error)
}

type GameServiceI interface {
	RecordGame(ctx context.Context, userID uuid.UUID, points int, mode string) (*model.GameResult, error)
}

type ProfileServiceI interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileView, error)
	AdjustXP(ctx context.Context, userID uuid.UUID, xpTotal int64) (*ProfileView, error)
	Ladder() []progression.RankStep
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	LeaderboardPosition(ctx context.Context, userID uuid.UUID) (*model.LeaderboardEntry, error)
}

// CatalogInvalidator lets operators force a catalog reload after editing definitions.
type CatalogInvalidator interface {
	Invalidate()
}

type QuestRepository interface {
	ListQuestDefinitions(ctx context.Context) ([]*model.QuestDefinition, error)
	GetQuestDefinition(ctx context.Context, questKey string) (*model.QuestDefinition, error)
	GetQuestProgress(ctx context.Context, userID uuid.UUID, questKey string) (*model.QuestProgress, error)
	ListQuestProgress(ctx context.Context, userID uuid.UUID, questKeys []string) (map[string]*model.QuestProgress, error)
	EnsureQuestProgress(ctx context.Context, userID uuid.UUID, questKey string, resetAt, now time.Time) (*model.QuestProgress, bool, error)
	AdvanceQuestProgress(ctx context.Context, u model.ProgressUpdate) (*model.ProgressOutcome, error)
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	RecordGame(ctx context.Context, rec model.GameRecord) (*model.Profile, error)
	SetProfileXP(ctx context.Context, userID uuid.UUID, xpTotal int64) (*model.Profile, error)
	ListProfileXP(ctx context.Context, limit int) ([]*model.Profile, error)
	CountProfilesAbove(ctx context.Context, xpTotal int64) (int, error)
}

type AchievementRepository interface {
	ListAchievements(ctx context.Context) ([]*model.Achievement, error)
	GetAchievement(ctx context.Context, key string) (*model.Achievement, error)
	ListAchievementUnlocks(ctx context.Context, userID uuid.UUID) ([]*model.AchievementUnlock, error)
	UnlockedAchievementKeys(ctx context.Context, userID uuid.UUID) ([]string, error)
	UnlockAchievement(ctx context.Context, userID uuid.UUID, key string, xpBonus int64, now time.Time) (bool, int64, error)
}

// Notifier pushes events to a player's live connections.
type Notifier interface {
	Notify(userID uuid.UUID, event model.Event)
}

// LeaderboardPublisher receives every new XP total. Implementations must not block.
type LeaderboardPublisher interface {
	Publish(userID uuid.UUID, xpTotal int64)
}

type LeaderboardStore interface {
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	SetXPBatch(ctx context.Context, totals map[uuid.UUID]int64) error
	// Rank returns the 1-based position, or leaderboard.ErrNotRanked.
	Rank(ctx context.Context, userID uuid.UUID) (int, error)
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, model.Event) {}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, int64) {}

// Hooks carries the optional side channels fed after a successful grant.
type Hooks struct {
	Notifier    Notifier
	Leaderboard LeaderboardPublisher
}

func (h Hooks) withDefaults() Hooks {
	if h.Notifier == nil {
		h.Notifier = nopNotifier{}
	}
	if h.Leaderboard == nil {
		h.Leaderboard = nopPublisher{}
	}
	return h
}

func utcNow() time.Time {
	return time.Now().UTC()
}
