package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"timalaus_progression/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey = "progression:leaderboard:xp"

	// tieBreakSlots is the number of distinct minutes the tie-break fraction can express,
	// about 19 years after tieBreakEpoch. Later timestamps share the last slot.
	tieBreakSlots = 10_000_000

	// MaxExactXP is the largest total for which one minute of tie-break still changes the
	// float64 score: below 2^29 the spacing of representable scores is under 1/tieBreakSlots.
	// Totals above it keep their XP order but ties may fall back to member order.
	MaxExactXP = 1<<29 - 1
)

var tieBreakEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

var ErrNotRanked = errors.New("user is not on the leaderboard")

type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// Board mirrors XP totals into a Redis sorted set. Postgres stays the source of truth.
type Board struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func New(cfg Config) *Board {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.Key)
}

func NewWithClient(client *redis.Client, key string) *Board {
	if key == "" {
		key = DefaultKey
	}
	return &Board{client: client, key: key, now: time.Now}
}

// CompositeScore orders equal XP totals by who reached them first, at minute resolution.
// The fraction added to the total stays strictly inside (0, 1).
func CompositeScore(xpTotal int64, reachedAt time.Time) float64 {
	minutes := int64(reachedAt.Sub(tieBreakEpoch) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes > tieBreakSlots-2 {
		minutes = tieBreakSlots - 2
	}
	return float64(xpTotal) + 1.0 - float64(minutes+1)/tieBreakSlots
}

// BaseScore recovers the XP total from a composite score.
func BaseScore(composite float64) int64 {
	return int64(math.Floor(composite))
}

// SetXP records the user's current XP total.
func (b *Board) SetXP(ctx context.Context, userID uuid.UUID, xpTotal int64) error {
	err := b.client.ZAdd(ctx, b.key, redis.Z{
		Score:  CompositeScore(xpTotal, b.now()),
		Member: userID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}
	return nil
}

// SetXPBatch writes many totals in one pipeline.
func (b *Board) SetXPBatch(ctx context.Context, totals map[uuid.UUID]int64) error {
	if len(totals) == 0 {
		return nil
	}

	at := b.now()
	pipe := b.client.Pipeline()
	for userID, xp := range totals {
		pipe.ZAdd(ctx, b.key, redis.Z{
			Score:  CompositeScore(xp, at),
			Member: userID.String(),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to sync leaderboard: %w", err)
	}
	return nil
}

func (b *Board) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return []model.LeaderboardEntry{}, nil
	}

	results, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return toEntries(results, 1), nil
}

// Rank returns the 1-based position of the user.
func (b *Board) Rank(ctx context.Context, userID uuid.UUID) (int, error) {
	pos, err := b.client.ZRevRank(ctx, b.key, userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotRanked
		}
		return 0, err
	}
	return int(pos) + 1, nil
}

func (b *Board) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Board) Close() error {
	return b.client.Close()
}

func toEntries(results []redis.Z, firstRank int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		userID, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:    firstRank + i,
			UserID:  userID,
			XPTotal: BaseScore(z.Score),
		})
	}
	return entries
}
