package mocks

import (
	"context"
	"time"

	"timalaus_progression/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) ListQuestDefinitions(ctx context.Context) ([]*model.QuestDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestDefinition), args.Error(1)
}

func (m *MockQuestRepository) GetQuestDefinition(ctx context.Context, questKey string) (*model.QuestDefinition, error) {
	args := m.Called(ctx, questKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuestDefinition), args.Error(1)
}

func (m *MockQuestRepository) GetQuestProgress(ctx context.Context, userID uuid.UUID, questKey string) (*model.QuestProgress, error) {
	args := m.Called(ctx, userID, questKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuestProgress), args.Error(1)
}

func (m *MockQuestRepository) ListQuestProgress(ctx context.Context, userID uuid.UUID, questKeys []string) (map[string]*model.QuestProgress, error) {
	args := m.Called(ctx, userID, questKeys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*model.QuestProgress), args.Error(1)
}

func (m *MockQuestRepository) EnsureQuestProgress(ctx context.Context, userID uuid.UUID, questKey string, resetAt, now time.Time) (*model.QuestProgress, bool, error) {
	args := m.Called(ctx, userID, questKey, resetAt, now)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.QuestProgress), args.Bool(1), args.Error(2)
}

func (m *MockQuestRepository) AdvanceQuestProgress(ctx context.Context, u model.ProgressUpdate) (*model.ProgressOutcome, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgressOutcome), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) RecordGame(ctx context.Context, rec model.GameRecord) (*model.Profile, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) SetProfileXP(ctx context.Context, userID uuid.UUID, xpTotal int64) (*model.Profile, error) {
	args := m.Called(ctx, userID, xpTotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) ListProfileXP(ctx context.Context, limit int) ([]*model.Profile, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) CountProfilesAbove(ctx context.Context, xpTotal int64) (int, error) {
	args := m.Called(ctx, xpTotal)
	return args.Int(0), args.Error(1)
}

type MockAchievementRepository struct {
	mock.Mock
}

func (m *MockAchievementRepository) ListAchievements(ctx context.Context) ([]*model.Achievement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) GetAchievement(ctx context.Context, key string) (*model.Achievement, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) ListAchievementUnlocks(ctx context.Context, userID uuid.UUID) ([]*model.AchievementUnlock, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AchievementUnlock), args.Error(1)
}

func (m *MockAchievementRepository) UnlockedAchievementKeys(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAchievementRepository) UnlockAchievement(ctx context.Context, userID uuid.UUID, key string, xpBonus int64, now time.Time) (bool, int64, error) {
	args := m.Called(ctx, userID, key, xpBonus, now)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(userID uuid.UUID, event model.Event) {
	m.Called(userID, event)
}

type MockLeaderboard struct {
	mock.Mock
}

func (m *MockLeaderboard) Publish(userID uuid.UUID, xpTotal int64) {
	m.Called(userID, xpTotal)
}

func (m *MockLeaderboard) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeaderboardEntry), args.Error(1)
}

func (m *MockLeaderboard) SetXPBatch(ctx context.Context, totals map[uuid.UUID]int64) error {
	args := m.Called(ctx, totals)
	return args.Error(0)
}

func (m *MockLeaderboard) Rank(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
