package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timalaus_progression/internal/model"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/repository"
	"timalaus_progression/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxRecordAttempts bounds the retries when concurrent runs race on the same profile.
const maxRecordAttempts = 3

type GameService struct {
	catalog      *Catalog
	profiles     ProfileRepository
	tracker      *QuestTracker
	achievements *AchievementService
	engine       *progression.Engine
	hooks        Hooks
	now          func() time.Time
}

func NewGameService(catalog *Catalog, profiles ProfileRepository, tracker *QuestTracker, achievements *AchievementService, engine *progression.Engine, hooks Hooks) *GameService {
	return &GameService{
		catalog:      catalog,
		profiles:     profiles,
		tracker:      tracker,
		achievements: achievements,
		engine:       engine,
		hooks:        hooks.withDefaults(),
		now:          utcNow,
	}
}

// RecordGame credits a finished run. Once the profile update has committed, quest and
// achievement failures are logged and do not fail the call, so a client retry cannot credit
// the run twice.
func (s *GameService) RecordGame(ctx context.Context, userID uuid.UUID, points int, mode string) (*model.GameResult, error) {
	log := logger.Logger().With(zap.String("user_id", userID.String()))
	now := s.now()
	if points < 0 {
		points = 0
	}

	xp := int64(s.engine.PointsToXP(points, mode))

	var (
		before, after *model.Profile
		streak        int
		err           error
	)
	for attempt := 1; ; attempt++ {
		before, err = s.profiles.GetProfile(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProfileNotFound
			}
			return nil, err
		}

		streak = progression.NextStreak(before.CurrentStreak, before.LastPlayedAt, now)
		after, err = s.profiles.RecordGame(ctx, model.GameRecord{
			UserID:       userID,
			XPGained:     xp,
			Streak:       streak,
			PlayedAt:     now,
			PrevPlayedAt: before.LastPlayedAt,
		})
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrStaleProfile) && attempt < maxRecordAttempts {
			log.Debug("profile changed during game record, retrying", zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to record game: %w", err)
	}

	result := &model.GameResult{
		Points:     points,
		Mode:       mode,
		XPGained:   xp,
		XPTotal:    after.XPTotal,
		RankBefore: s.engine.RankForXP(before.XPTotal),
		Streak:     streak,
	}
	log.Info("game recorded",
		zap.Int("points", points),
		zap.String("mode", mode),
		zap.Int64("xp_gained", xp),
		zap.Int("streak", streak),
	)

	s.feedQuests(ctx, userID, points, streak, result)

	unlocked, err := s.achievements.Evaluate(ctx, userID, progression.Snapshot{
		GamesPlayed: after.GamesPlayed,
		Streak:      streak,
		XPTotal:     result.XPTotal,
		Rank:        s.engine.RankForXP(result.XPTotal),
		GamePoints:  points,
	})
	if err != nil {
		log.Error("failed to evaluate achievements", zap.Error(err))
	}
	for _, u := range unlocked {
		result.UnlockedAchievements = append(result.UnlockedAchievements, u.AchievementKey)
		result.XPTotal = u.XPTotal
	}

	result.RankAfter = s.engine.RankForXP(result.XPTotal)
	result.LeveledUp = result.RankAfter > result.RankBefore
	// Quest and achievement grants announce their own level ups.
	if s.engine.RankForXP(after.XPTotal) > result.RankBefore {
		notifyLevelUp(s.hooks.Notifier, s.engine, userID, after.XPTotal)
	}
	s.hooks.Leaderboard.Publish(userID, result.XPTotal)

	return result, nil
}

// feedQuests routes the run to every offered quest by category. Plays count one per run,
// score and streak quests record the best observation.
func (s *GameService) feedQuests(ctx context.Context, userID uuid.UUID, points, streak int, result *model.GameResult) {
	defs, err := s.catalog.ActiveQuests(ctx)
	if err != nil {
		logger.Logger().Error("failed to load quests for game", zap.Error(err))
		return
	}

	for _, def := range defs {
		var (
			res *model.ProgressResult
			err error
		)
		switch progression.CategoryOf(def.Key) {
		case progression.CategoryPlays:
			res, err = s.tracker.UpdateProgress(ctx, userID, def.Key, 1)
		case progression.CategoryScore:
			res, err = s.tracker.SetProgress(ctx, userID, def.Key, int64(points))
		case progression.CategoryStreak:
			res, err = s.tracker.SetProgress(ctx, userID, def.Key, int64(streak))
		default:
			continue
		}
		if err != nil {
			logger.Logger().Error("failed to update quest after game",
				zap.String("user_id", userID.String()),
				zap.String("quest_key", def.Key),
				zap.Error(err),
			)
			continue
		}
		if res.NewlyCompleted {
			result.CompletedQuests = append(result.CompletedQuests, def.Key)
			result.XPTotal = res.XPTotal
		}
	}
}
