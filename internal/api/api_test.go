package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"timalaus_progression/internal/middleware"
	"timalaus_progression/internal/model"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/service"
	"timalaus_progression/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

type mockTracker struct{ mock.Mock }

func (m *mockTracker) UpdateProgress(ctx context.Context, userID uuid.UUID, questKey string, increment int64) (*model.ProgressResult, error) {
	args := m.Called(ctx, userID, questKey, increment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgressResult), args.Error(1)
}

func (m *mockTracker) SetProgress(ctx context.Context, userID uuid.UUID, questKey string, value int64) (*model.ProgressResult, error) {
	args := m.Called(ctx, userID, questKey, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProgressResult), args.Error(1)
}

func (m *mockTracker) EnsureQuests(ctx context.Context, userID uuid.UUID) ([]*model.QuestStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestStatus), args.Error(1)
}

type mockGames struct{ mock.Mock }

func (m *mockGames) RecordGame(ctx context.Context, userID uuid.UUID, points int, mode string) (*model.GameResult, error) {
	args := m.Called(ctx, userID, points, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameResult), args.Error(1)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) GetProfile(ctx context.Context, userID uuid.UUID) (*service.ProfileView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProfileView), args.Error(1)
}

func (m *mockProfiles) AdjustXP(ctx context.Context, userID uuid.UUID, xpTotal int64) (*service.ProfileView, error) {
	args := m.Called(ctx, userID, xpTotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProfileView), args.Error(1)
}

func (m *mockProfiles) Ladder() []progression.RankStep {
	return m.Called().Get(0).([]progression.RankStep)
}

func (m *mockProfiles) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeaderboardEntry), args.Error(1)
}

func (m *mockProfiles) LeaderboardPosition(ctx context.Context, userID uuid.UUID) (*model.LeaderboardEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LeaderboardEntry), args.Error(1)
}

type countingCatalog struct{ invalidations int }

func (c *countingCatalog) Invalidate() { c.invalidations++ }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router   *gin.Engine
	auth     *auth.SupabaseAuth
	hub      *Hub
	tracker  *mockTracker
	games    *mockGames
	profiles *mockProfiles
	catalog  *countingCatalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		router:   gin.New(),
		auth:     auth.NewSupabaseAuth(auth.Config{JWTSecret: testSecret}),
		hub:      NewHub(),
		tracker:  &mockTracker{},
		games:    &mockGames{},
		profiles: &mockProfiles{},
		catalog:  &countingCatalog{},
	}
	t.Cleanup(s.hub.Close)

	v1 := s.router.Group("/api/v1")
	NewQuestRoutes(v1, s.tracker, s.auth)
	NewGameRoutes(v1, s.games, s.hub, s.auth)
	authz := middleware.NewAuthorization(s.profiles)
	NewProfileRoutes(v1, s.profiles, s.auth, authz)
	NewCatalogRoutes(v1, s.catalog, s.auth, authz)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, userID *uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != nil {
		token, err := s.auth.IssueToken(*userID, "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestRoutes_RequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/quests", "/api/v1/profile", "/api/v1/leaderboard"} {
		w := s.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestQuestRoutes(t *testing.T) {
	s := newTestServer(t)
	userID := uuid.New()
	resetAt := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)

	s.tracker.On("EnsureQuests", mock.Anything, userID).Return([]*model.QuestStatus{
		{
			Definition: model.QuestDefinition{Key: "daily_play_games", Cadence: model.CadenceDaily, TargetValue: 2, XPReward: 40},
			Progress:   model.QuestProgress{CurrentValue: 1, ResetAt: resetAt},
		},
	}, nil)
	s.tracker.On("UpdateProgress", mock.Anything, userID, "daily_play_games", int64(1)).
		Return(&model.ProgressResult{
			QuestKey: "daily_play_games", Applied: true, CurrentValue: 2, Target: 2,
			Completed: true, NewlyCompleted: true, XPGranted: 40, XPTotal: 540, LeveledUp: true,
		}, nil)
	s.tracker.On("SetProgress", mock.Anything, userID, "daily_high_score", int64(0)).
		Return(&model.ProgressResult{QuestKey: "daily_high_score"}, nil)

	t.Run("list", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/quests", &userID, "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Quests []QuestResponse `json:"quests"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Quests, 1)
		assert.Equal(t, "daily_play_games", body.Quests[0].QuestKey)
		assert.Equal(t, "daily", body.Quests[0].Cadence)
		assert.Equal(t, resetAt, body.Quests[0].ResetAt)
	})

	t.Run("increment", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/quests/daily_play_games/progress", &userID, `{"increment": 1}`)
		require.Equal(t, http.StatusOK, w.Code)

		var body ProgressResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.NewlyCompleted)
		assert.Equal(t, int64(40), body.XPGranted)
		assert.True(t, body.LeveledUp)
	})

	t.Run("negative increment rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/quests/daily_play_games/progress", &userID, `{"increment": -3}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("absolute value of zero is accepted", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/v1/quests/daily_high_score/progress", &userID, `{"value": 0}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("absolute value is required", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/v1/quests/daily_high_score/progress", &userID, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGameRoutes_RecordGame(t *testing.T) {
	s := newTestServer(t)
	userID := uuid.New()

	s.games.On("RecordGame", mock.Anything, userID, 4200, "classic").Return(&model.GameResult{
		Points: 4200, Mode: "classic", XPGained: 180, XPTotal: 680, RankBefore: 0, RankAfter: 1,
		LeveledUp: true, Streak: 2, CompletedQuests: []string{"daily_high_score"},
	}, nil)
	s.games.On("RecordGame", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, service.ErrProfileNotFound)

	w := s.do(t, http.MethodPost, "/api/v1/games", &userID, `{"points": 4200, "mode": "classic"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body GameResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(180), body.XPGained)
	assert.True(t, body.LeveledUp)
	assert.Equal(t, []string{"daily_high_score"}, body.CompletedQuests)
	assert.Equal(t, []string{}, body.UnlockedAchievements)

	stranger := uuid.New()
	w = s.do(t, http.MethodPost, "/api/v1/games", &stranger, `{"points": 10}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t)
	admin, player := uuid.New(), uuid.New()
	next := int64(1300)

	s.profiles.On("GetProfile", mock.Anything, admin).Return(&service.ProfileView{
		Profile: &model.Profile{ID: admin, IsAdmin: true},
	}, nil)
	s.profiles.On("GetProfile", mock.Anything, player).Return(&service.ProfileView{
		Profile: &model.Profile{ID: player, XPTotal: 600},
		Rank:    progression.RankInfo{Index: 1, Name: "Écuyer", Threshold: 500, NextThreshold: &next, XPToNext: 700},
	}, nil)
	s.profiles.On("AdjustXP", mock.Anything, player, int64(0)).Return(&service.ProfileView{
		Profile: &model.Profile{ID: player},
	}, nil)
	s.profiles.On("Leaderboard", mock.Anything, 10).Return([]model.LeaderboardEntry{
		{Rank: 1, UserID: player, XPTotal: 600},
	}, nil)

	t.Run("profile", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/profile", &player, "")
		require.Equal(t, http.StatusOK, w.Code)

		var body ProfileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(600), body.XPTotal)
		assert.Equal(t, "Écuyer", body.Rank.Name)
		assert.Equal(t, "beginner", body.Rank.Tier)
		assert.Equal(t, int64(700), body.Rank.XPToNext)
	})

	t.Run("leaderboard", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=10", &player, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), player.String())

		w = s.do(t, http.MethodGet, "/api/v1/leaderboard?limit=abc", &player, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("own position", func(t *testing.T) {
		s.profiles.On("LeaderboardPosition", mock.Anything, player).
			Return(&model.LeaderboardEntry{Rank: 12, UserID: player, XPTotal: 600}, nil)
		s.profiles.On("LeaderboardPosition", mock.Anything, admin).Return(nil, service.ErrNotRanked)

		w := s.do(t, http.MethodGet, "/api/v1/leaderboard/me", &player, "")
		require.Equal(t, http.StatusOK, w.Code)
		var body LeaderboardEntryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 12, body.Rank)

		w = s.do(t, http.MethodGet, "/api/v1/leaderboard/me", &admin, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("catalog refresh", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/admin/catalog/refresh", &player, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, s.catalog.invalidations)

		w = s.do(t, http.MethodPost, "/api/v1/admin/catalog/refresh", &admin, "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 1, s.catalog.invalidations)
	})

	t.Run("admin correction", func(t *testing.T) {
		path := "/api/v1/admin/profiles/" + player.String() + "/xp"

		w := s.do(t, http.MethodPatch, path, &player, `{"xp_total": 0}`)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.do(t, http.MethodPatch, path, &admin, `{"xp_total": 0}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.do(t, http.MethodPatch, path, &admin, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = s.do(t, http.MethodPatch, "/api/v1/admin/profiles/not-a-uuid/xp", &admin, `{"xp_total": 5}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHub_DeliversEventsToPlayerSockets(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	userID := uuid.New()
	token, err := s.auth.IssueToken(userID, "", time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.ClientCount(userID) == 1 }, time.Second, 10*time.Millisecond)

	// Other players' events are not delivered.
	s.hub.Notify(uuid.New(), model.Event{Type: model.EventLevelUp})
	s.hub.Notify(userID, model.Event{
		Type:    model.EventQuestCompleted,
		Payload: map[string]any{"quest_key": "daily_play_games"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event model.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, model.EventQuestCompleted, event.Type)
	assert.Equal(t, "daily_play_games", event.Payload["quest_key"])

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.ClientCount(userID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_RejectsUnauthenticatedSocket(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
		body   string
	}{
		{"all up", map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{}}, http.StatusOK, `"redis":"ok"`},
		{"redis down", map[string]Pinger{"database": stubPinger{}, "redis": stubPinger{err: context.DeadlineExceeded}}, http.StatusServiceUnavailable, `"redis":"down"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			NewHealthRoutes(router.Group("/api/v1"), tt.checks)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.Contains(t, w.Body.String(), `"database":"ok"`)
		})
	}
}
