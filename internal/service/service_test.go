package service

import (
	"testing"
	"time"

	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	testUserID = uuid.MustParse("6f1c2a52-8d5e-4b1a-9d3f-2a7c0e4b9f10")
	testNow    = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
)

// catalogSource joins the two repository mocks into the catalog's source.
type catalogSource struct {
	*mocks.MockQuestRepository
	*mocks.MockAchievementRepository
}

type fixture struct {
	engine       *progression.Engine
	catalog      *Catalog
	quests       *mocks.MockQuestRepository
	profiles     *mocks.MockProfileRepository
	achievements *mocks.MockAchievementRepository
	notifier     *mocks.MockNotifier
	board        *mocks.MockLeaderboard
	hooks        Hooks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine, err := progression.NewEngine(progression.DefaultConfig())
	require.NoError(t, err)

	f := &fixture{
		engine:       engine,
		quests:       &mocks.MockQuestRepository{},
		profiles:     &mocks.MockProfileRepository{},
		achievements: &mocks.MockAchievementRepository{},
		notifier:     &mocks.MockNotifier{},
		board:        &mocks.MockLeaderboard{},
	}
	f.hooks = Hooks{Notifier: f.notifier, Leaderboard: f.board}

	f.catalog, err = NewCatalog(catalogSource{f.quests, f.achievements}, 32, time.Minute)
	require.NoError(t, err)
	f.catalog.now = func() time.Time { return testNow }

	return f
}

func (f *fixture) tracker() *QuestTracker {
	tr := NewQuestTracker(f.catalog, f.quests, f.profiles, f.engine, f.hooks)
	tr.now = func() time.Time { return testNow }
	return tr
}

func (f *fixture) achievementService() *AchievementService {
	s := NewAchievementService(f.catalog, f.achievements, f.engine, f.hooks)
	s.now = func() time.Time { return testNow }
	return s
}

func intPtr(v int) *int {
	return &v
}
