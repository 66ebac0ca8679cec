package service

import (
	"context"
	"errors"
	"fmt"

	"timalaus_progression/internal/leaderboard"
	"timalaus_progression/internal/model"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/repository"
	"timalaus_progression/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 500
)

type ProfileView struct {
	Profile *model.Profile
	Rank    progression.RankInfo
}

type ProfileService struct {
	repo   ProfileRepository
	board  LeaderboardStore
	engine *progression.Engine
	hooks  Hooks
}

// NewProfileService builds the service. board may be nil when no leaderboard store is configured.
func NewProfileService(repo ProfileRepository, board LeaderboardStore, engine *progression.Engine, hooks Hooks) *ProfileService {
	return &ProfileService{
		repo:   repo,
		board:  board,
		engine: engine,
		hooks:  hooks.withDefaults(),
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &ProfileView{Profile: profile, Rank: s.engine.RankInfo(profile.XPTotal)}, nil
}

// AdjustXP overwrites the XP total as an administrative correction.
func (s *ProfileService) AdjustXP(ctx context.Context, userID uuid.UUID, xpTotal int64) (*ProfileView, error) {
	if xpTotal < 0 {
		return nil, ErrInvalidXP
	}

	profile, err := s.repo.SetProfileXP(ctx, userID, xpTotal)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	logger.Logger().Info("profile xp adjusted",
		zap.String("user_id", userID.String()),
		zap.Int64("xp_total", xpTotal),
	)
	s.hooks.Leaderboard.Publish(userID, profile.XPTotal)

	return &ProfileView{Profile: profile, Rank: s.engine.RankInfo(profile.XPTotal)}, nil
}

func (s *ProfileService) Ladder() []progression.RankStep {
	return s.engine.Ladder()
}

// Leaderboard reads the top entries from the leaderboard store, falling back to the database
// when no store is configured.
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	if s.board != nil {
		return s.board.Top(ctx, limit)
	}

	profiles, err := s.repo.ListProfileXP(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = model.LeaderboardEntry{Rank: i + 1, UserID: p.ID, XPTotal: p.XPTotal}
	}
	return entries, nil
}

// LeaderboardPosition returns the player's own leaderboard entry. Without a store the rank
// is counted from the database.
func (s *ProfileService) LeaderboardPosition(ctx context.Context, userID uuid.UUID) (*model.LeaderboardEntry, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var rank int
	if s.board != nil {
		rank, err = s.board.Rank(ctx, userID)
		if errors.Is(err, leaderboard.ErrNotRanked) {
			return nil, ErrNotRanked
		}
	} else {
		var above int
		above, err = s.repo.CountProfilesAbove(ctx, profile.XPTotal)
		rank = above + 1
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard position: %w", err)
	}

	return &model.LeaderboardEntry{Rank: rank, UserID: userID, XPTotal: profile.XPTotal}, nil
}

// SyncLeaderboard copies the top limit XP totals from the database into the leaderboard store.
func (s *ProfileService) SyncLeaderboard(ctx context.Context, limit int) error {
	if s.board == nil {
		return nil
	}

	profiles, err := s.repo.ListProfileXP(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list profiles for leaderboard sync: %w", err)
	}
	totals := make(map[uuid.UUID]int64, len(profiles))
	for _, p := range profiles {
		totals[p.ID] = p.XPTotal
	}
	if err := s.board.SetXPBatch(ctx, totals); err != nil {
		return fmt.Errorf("failed to sync leaderboard: %w", err)
	}

	logger.Logger().Info("leaderboard synced", zap.Int("profiles", len(totals)))
	return nil
}
