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

type AchievementService struct {
	catalog *Catalog
	repo    AchievementRepository
	engine  *progression.Engine
	hooks   Hooks
	now     func() time.Time
}

func NewAchievementService(catalog *Catalog, repo AchievementRepository, engine *progression.Engine, hooks Hooks) *AchievementService {
	return &AchievementService{
		catalog: catalog,
		repo:    repo,
		engine:  engine,
		hooks:   hooks.withDefaults(),
		now:     utcNow,
	}
}

// Unlock grants an achievement at most once per user. Repeated calls, unknown keys and
// inactive achievements return a result with Unlocked == false and no error.
func (s *AchievementService) Unlock(ctx context.Context, userID uuid.UUID, key string) (*model.UnlockResult, error) {
	log := logger.Logger().With(zap.String("user_id", userID.String()), zap.String("achievement_key", key))
	result := &model.UnlockResult{AchievementKey: key}

	a, err := s.catalog.Achievement(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAchievementNotFound) {
			log.Warn("unlock for unknown achievement ignored")
			return result, nil
		}
		return nil, err
	}
	if !a.IsActive {
		log.Info("unlock for inactive achievement ignored")
		return result, nil
	}

	unlocked, xpTotal, err := s.repo.UnlockAchievement(ctx, userID, key, a.XPBonus, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to unlock achievement %s: %w", key, err)
	}
	if !unlocked {
		log.Debug("achievement already unlocked")
		return result, nil
	}

	result.Unlocked = true
	result.XPGranted = a.XPBonus
	result.XPTotal = xpTotal
	result.LeveledUp = s.engine.RankForXP(xpTotal) > s.engine.RankForXP(xpTotal-a.XPBonus)

	log.Info("achievement unlocked", zap.Int64("xp_bonus", a.XPBonus), zap.Int64("xp_total", xpTotal))

	s.hooks.Notifier.Notify(userID, model.Event{
		Type: model.EventAchievementUnlocked,
		Payload: map[string]any{
			"achievement_key": key,
			"title":           a.Title,
			"xp_bonus":        a.XPBonus,
			"xp_total":        xpTotal,
		},
	})
	if result.LeveledUp {
		notifyLevelUp(s.hooks.Notifier, s.engine, userID, xpTotal)
	}
	s.hooks.Leaderboard.Publish(userID, xpTotal)

	return result, nil
}

// Evaluate unlocks every active achievement whose condition holds for snap and that the user
// does not hold yet. Only the newly unlocked results are returned.
func (s *AchievementService) Evaluate(ctx context.Context, userID uuid.UUID, snap progression.Snapshot) ([]*model.UnlockResult, error) {
	all, err := s.catalog.Achievements(ctx)
	if err != nil {
		return nil, err
	}
	held, err := s.repo.UnlockedAchievementKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	heldSet := make(map[string]struct{}, len(held))
	for _, key := range held {
		heldSet[key] = struct{}{}
	}

	var unlocked []*model.UnlockResult
	for _, a := range all {
		if !a.IsActive {
			continue
		}
		if _, ok := heldSet[a.Key]; ok {
			continue
		}
		if !progression.ConditionMet(a, snap) {
			continue
		}

		res, err := s.Unlock(ctx, userID, a.Key)
		if err != nil {
			return unlocked, err
		}
		if res.Unlocked {
			unlocked = append(unlocked, res)
			snap.XPTotal = res.XPTotal
			snap.Rank = s.engine.RankForXP(res.XPTotal)
		}
	}

	return unlocked, nil
}

// List returns every active achievement with the user's unlock state.
func (s *AchievementService) List(ctx context.Context, userID uuid.UUID) ([]*model.AchievementStatus, error) {
	all, err := s.catalog.Achievements(ctx)
	if err != nil {
		return nil, err
	}
	unlocks, err := s.repo.ListAchievementUnlocks(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlockedAt[u.AchievementKey] = u.UnlockedAt
	}

	statuses := make([]*model.AchievementStatus, 0, len(all))
	for _, a := range all {
		if !a.IsActive {
			continue
		}
		status := &model.AchievementStatus{Achievement: a}
		if at, ok := unlockedAt[a.Key]; ok {
			at := at
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
