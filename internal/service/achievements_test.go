package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"timalaus_progression/internal/model"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAchievementService_UnlockGrantsOnce(t *testing.T) {
	f := newFixture(t)
	svc := f.achievementService()
	ctx := context.Background()
	a := &model.Achievement{Key: "first_win", Title: "First win", XPBonus: 150, IsActive: true}

	f.achievements.On("GetAchievement", mock.Anything, a.Key).Return(a, nil)
	f.achievements.On("UnlockAchievement", mock.Anything, testUserID, a.Key, int64(150), testNow).
		Return(true, int64(600), nil).Once()
	f.achievements.On("UnlockAchievement", mock.Anything, testUserID, a.Key, int64(150), testNow).
		Return(false, int64(0), nil)
	f.notifier.On("Notify", testUserID, mock.Anything)
	f.board.On("Publish", testUserID, int64(600)).Once()

	first, err := svc.Unlock(ctx, testUserID, a.Key)
	require.NoError(t, err)
	assert.True(t, first.Unlocked)
	assert.Equal(t, int64(150), first.XPGranted)
	assert.Equal(t, int64(600), first.XPTotal)
	assert.True(t, first.LeveledUp)

	second, err := svc.Unlock(ctx, testUserID, a.Key)
	require.NoError(t, err)
	assert.False(t, second.Unlocked)
	assert.Zero(t, second.XPGranted)

	// The definition came from the cache the second time.
	f.achievements.AssertNumberOfCalls(t, "GetAchievement", 1)
	f.board.AssertNumberOfCalls(t, "Publish", 1)
}

func TestAchievementService_UnlockNoOps(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{
			name: "unknown achievement",
			setup: func(f *fixture) {
				f.achievements.On("GetAchievement", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
			},
		},
		{
			name: "inactive achievement",
			setup: func(f *fixture) {
				f.achievements.On("GetAchievement", mock.Anything, "ghost").
					Return(&model.Achievement{Key: "ghost", XPBonus: 10}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			res, err := f.achievementService().Unlock(context.Background(), testUserID, "ghost")
			require.NoError(t, err)
			assert.False(t, res.Unlocked)
			assert.Equal(t, "ghost", res.AchievementKey)
			f.achievements.AssertNotCalled(t, "UnlockAchievement",
				mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAchievementService_UnlockErrors(t *testing.T) {
	f := newFixture(t)
	a := &model.Achievement{Key: "first_win", XPBonus: 150, IsActive: true}
	dbErr := errors.New("deadlock detected")

	f.achievements.On("GetAchievement", mock.Anything, a.Key).Return(a, nil)
	f.achievements.On("UnlockAchievement", mock.Anything, testUserID, a.Key, int64(150), testNow).
		Return(false, int64(0), dbErr)

	res, err := f.achievementService().Unlock(context.Background(), testUserID, a.Key)
	assert.ErrorIs(t, err, dbErr)
	assert.Nil(t, res)
	f.board.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAchievementService_Evaluate(t *testing.T) {
	f := newFixture(t)
	svc := f.achievementService()

	catalog := []*model.Achievement{
		{Key: "ten_games", XPBonus: 50, IsActive: true, ConditionKind: model.ConditionGamesPlayed, ConditionThreshold: 10},
		{Key: "hundred_games", XPBonus: 200, IsActive: true, ConditionKind: model.ConditionGamesPlayed, ConditionThreshold: 100},
		{Key: "streak_3", XPBonus: 30, IsActive: true, ConditionKind: model.ConditionStreak, ConditionThreshold: 3},
		{Key: "manual", XPBonus: 500, IsActive: true},
		{Key: "retired", XPBonus: 10, IsActive: false, ConditionKind: model.ConditionGamesPlayed, ConditionThreshold: 1},
	}
	f.achievements.On("ListAchievements", mock.Anything).Return(catalog, nil)
	f.achievements.On("UnlockedAchievementKeys", mock.Anything, testUserID).Return([]string{"streak_3"}, nil)
	f.achievements.On("UnlockAchievement", mock.Anything, testUserID, "ten_games", int64(50), testNow).
		Return(true, int64(1050), nil)
	f.notifier.On("Notify", testUserID, mock.Anything)
	f.board.On("Publish", testUserID, mock.Anything)

	unlocked, err := svc.Evaluate(context.Background(), testUserID, progression.Snapshot{
		GamesPlayed: 12,
		Streak:      5,
		XPTotal:     1000,
	})
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "ten_games", unlocked[0].AchievementKey)
	assert.Equal(t, int64(1050), unlocked[0].XPTotal)

	f.achievements.AssertNumberOfCalls(t, "UnlockAchievement", 1)
	f.achievements.AssertNotCalled(t, "GetAchievement", mock.Anything, mock.Anything)
}

func TestAchievementService_List(t *testing.T) {
	f := newFixture(t)
	unlockedAt := testNow.Add(-48 * time.Hour)

	f.achievements.On("ListAchievements", mock.Anything).Return([]*model.Achievement{
		{Key: "first_win", IsActive: true},
		{Key: "streak_3", IsActive: true},
		{Key: "retired", IsActive: false},
	}, nil)
	f.achievements.On("ListAchievementUnlocks", mock.Anything, testUserID).Return([]*model.AchievementUnlock{
		{UserID: testUserID, AchievementKey: "streak_3", UnlockedAt: unlockedAt},
	}, nil)

	statuses, err := f.achievementService().List(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "first_win", statuses[0].Achievement.Key)
	assert.False(t, statuses[0].Unlocked)
	assert.Nil(t, statuses[0].UnlockedAt)

	assert.True(t, statuses[1].Unlocked)
	require.NotNil(t, statuses[1].UnlockedAt)
	assert.Equal(t, unlockedAt, *statuses[1].UnlockedAt)
}
