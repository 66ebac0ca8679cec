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

type QuestTracker struct {
	catalog  *Catalog
	quests   QuestRepository
	profiles ProfileRepository
	engine   *progression.Engine
	hooks    Hooks
	now      func() time.Time
}

func NewQuestTracker(catalog *Catalog, quests QuestRepository, profiles ProfileRepository, engine *progression.Engine, hooks Hooks) *QuestTracker {
	return &QuestTracker{
		catalog:  catalog,
		quests:   quests,
		profiles: profiles,
		engine:   engine,
		hooks:    hooks.withDefaults(),
		now:      utcNow,
	}
}

// UpdateProgress adds increment to the user's progress on questKey. Negative increments count as zero.
// A missing, inactive or rank-gated quest is a no-op and returns a result with Applied == false.
func (t *QuestTracker) UpdateProgress(ctx context.Context, userID uuid.UUID, questKey string, increment int64) (*model.ProgressResult, error) {
	if increment < 0 {
		increment = 0
	}
	return t.apply(ctx, userID, questKey, model.ProgressUpdate{Increment: increment})
}

// SetProgress records an absolute observation such as a best score or a streak length.
// Progress never moves backwards within a period.
func (t *QuestTracker) SetProgress(ctx context.Context, userID uuid.UUID, questKey string, value int64) (*model.ProgressResult, error) {
	if value < 0 {
		value = 0
	}
	return t.apply(ctx, userID, questKey, model.ProgressUpdate{Absolute: value, IsAbsolute: true})
}

func (t *QuestTracker) apply(ctx context.Context, userID uuid.UUID, questKey string, u model.ProgressUpdate) (*model.ProgressResult, error) {
	log := logger.Logger().With(zap.String("user_id", userID.String()), zap.String("quest_key", questKey))
	now := t.now()

	def, err := t.catalog.Quest(ctx, questKey)
	if err != nil {
		if errors.Is(err, ErrQuestNotFound) {
			log.Warn("progress for unknown quest ignored")
			return &model.ProgressResult{QuestKey: questKey}, nil
		}
		return nil, err
	}
	if !def.IsActive {
		log.Info("progress for inactive quest ignored")
		return &model.ProgressResult{QuestKey: questKey}, nil
	}

	profile, err := t.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank := t.engine.RankForXP(profile.XPTotal)
	if !def.AllowsRank(rank) {
		log.Debug("quest not offered at this rank", zap.Int("rank", rank))
		return &model.ProgressResult{QuestKey: questKey}, nil
	}
	scaled := t.engine.ScaleQuestForTier(*def, t.engine.TierForRank(rank))

	current, err := t.current(ctx, userID, scaled, now)
	if err != nil {
		return nil, err
	}

	result := &model.ProgressResult{
		QuestKey:     questKey,
		CurrentValue: current.CurrentValue,
		Target:       scaled.TargetValue,
		Completed:    current.Completed,
		XPTotal:      profile.XPTotal,
	}
	if current.Completed {
		log.Debug("quest already completed this period")
		return result, nil
	}

	u.UserID = userID
	u.QuestKey = questKey
	u.Target = scaled.TargetValue
	u.XPReward = scaled.XPReward
	u.BonusPlays = scaled.BonusPlays
	u.Now = now

	outcome, err := t.quests.AdvanceQuestProgress(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to advance quest %s: %w", questKey, err)
	}
	if !outcome.Applied {
		// Lost a race with a concurrent completion or a reset boundary.
		log.Debug("quest progress write not applied")
		return result, nil
	}

	result.Applied = true
	result.CurrentValue = outcome.CurrentValue
	if !outcome.NewlyCompleted {
		return result, nil
	}

	result.Completed = true
	result.NewlyCompleted = true
	result.XPGranted = scaled.XPReward
	result.XPTotal = outcome.XPTotal
	result.LeveledUp = t.engine.RankForXP(outcome.XPTotal) > t.engine.RankForXP(outcome.XPTotal-scaled.XPReward)

	log.Info("quest completed",
		zap.Int64("xp_reward", scaled.XPReward),
		zap.Int64("xp_total", outcome.XPTotal),
		zap.Int("bonus_plays", scaled.BonusPlays),
	)

	t.hooks.Notifier.Notify(userID, model.Event{
		Type: model.EventQuestCompleted,
		Payload: map[string]any{
			"quest_key": questKey,
			"xp_reward": scaled.XPReward,
			"xp_total":  outcome.XPTotal,
		},
	})
	if result.LeveledUp {
		notifyLevelUp(t.hooks.Notifier, t.engine, userID, outcome.XPTotal)
	}
	t.hooks.Leaderboard.Publish(userID, outcome.XPTotal)

	return result, nil
}

// current returns the live row for the quest, writing a fresh one when the row is missing or
// its reset instant has passed.
func (t *QuestTracker) current(ctx context.Context, userID uuid.UUID, def model.QuestDefinition, now time.Time) (*model.QuestProgress, error) {
	progress, err := t.quests.GetQuestProgress(ctx, userID, def.Key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}
	if progress != nil && !progress.IsExpired(now) {
		return progress, nil
	}

	fresh, refreshed, err := t.quests.EnsureQuestProgress(ctx, userID, def.Key, progression.NextReset(def.Cadence, now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to reset quest progress: %w", err)
	}
	if refreshed {
		logger.Logger().Debug("quest progress reset",
			zap.String("user_id", userID.String()),
			zap.String("quest_key", def.Key),
			zap.Time("reset_at", fresh.ResetAt),
		)
	}
	return fresh, nil
}

// EnsureQuests returns every quest offered to the user with a live progress row, resetting
// expired rows on the way. Definitions are scaled to the user's tier.
func (t *QuestTracker) EnsureQuests(ctx context.Context, userID uuid.UUID) ([]*model.QuestStatus, error) {
	now := t.now()

	profile, err := t.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := t.catalog.ActiveQuests(ctx)
	if err != nil {
		return nil, err
	}

	rank := t.engine.RankForXP(profile.XPTotal)
	tier := t.engine.TierForRank(rank)

	offered := make([]model.QuestDefinition, 0, len(defs))
	keys := make([]string, 0, len(defs))
	for _, def := range defs {
		if !def.AllowsRank(rank) {
			continue
		}
		offered = append(offered, t.engine.ScaleQuestForTier(def, tier))
		keys = append(keys, def.Key)
	}

	existing, err := t.quests.ListQuestProgress(ctx, userID, keys)
	if err != nil {
		return nil, err
	}

	statuses := make([]*model.QuestStatus, 0, len(offered))
	for _, def := range offered {
		progress := existing[def.Key]
		if progress == nil || progress.IsExpired(now) {
			progress, _, err = t.quests.EnsureQuestProgress(ctx, userID, def.Key, progression.NextReset(def.Cadence, now), now)
			if err != nil {
				return nil, fmt.Errorf("failed to reset quest %s: %w", def.Key, err)
			}
		}
		statuses = append(statuses, &model.QuestStatus{Definition: def, Progress: *progress})
	}

	return statuses, nil
}

func (t *QuestTracker) loadProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	profile, err := t.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func notifyLevelUp(n Notifier, engine *progression.Engine, userID uuid.UUID, xpTotal int64) {
	info := engine.RankInfo(xpTotal)
	n.Notify(userID, model.Event{
		Type: model.EventLevelUp,
		Payload: map[string]any{
			"rank":      info.Index,
			"rank_name": info.Name,
			"xp_total":  xpTotal,
		},
	})
}
