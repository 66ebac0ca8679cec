package leaderboard

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeScore(t *testing.T) {
	earlier := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	assert.Greater(t, CompositeScore(1000, earlier), CompositeScore(1000, later), "first to reach a total ranks higher")
	assert.Greater(t, CompositeScore(1001, later), CompositeScore(1000, earlier), "more xp always wins")

	for _, xp := range []int64{0, 1, 499, 500, 44000, 1_000_000, MaxExactXP} {
		assert.Equal(t, xp, BaseScore(CompositeScore(xp, later)))
	}
}

func TestCompositeScore_HighTotalsKeepTieBreak(t *testing.T) {
	earlier := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)

	for _, xp := range []int64{1_000_000, 100_000_000, MaxExactXP} {
		assert.Greater(t, CompositeScore(xp, earlier), CompositeScore(xp, later), "xp %d", xp)
		assert.Less(t, CompositeScore(xp, earlier), float64(xp+1), "xp %d", xp)
		assert.Equal(t, xp, BaseScore(CompositeScore(xp, earlier)))
	}
}

func TestCompositeScore_ClampsOutsideWindow(t *testing.T) {
	before := tieBreakEpoch.Add(-24 * time.Hour)
	after := tieBreakEpoch.Add(tieBreakSlots * 2 * time.Minute)

	assert.Equal(t, int64(700), BaseScore(CompositeScore(700, before)))
	assert.Equal(t, int64(700), BaseScore(CompositeScore(700, after)))
	assert.GreaterOrEqual(t, CompositeScore(700, before), CompositeScore(700, after))
}

func TestToEntries(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	entries := toEntries([]redis.Z{
		{Member: a.String(), Score: CompositeScore(900, time.Now())},
		{Member: "not-a-uuid", Score: 800},
		{Member: b.String(), Score: CompositeScore(700, time.Now())},
	}, 1)

	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].UserID)
	assert.Equal(t, int64(900), entries[0].XPTotal)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, b, entries[1].UserID)
	assert.Equal(t, int64(700), entries[1].XPTotal)
}

// Runs against a real server when LEADERBOARD_REDIS_ADDR is set.
func TestBoard_Redis(t *testing.T) {
	addr := os.Getenv("LEADERBOARD_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEADERBOARD_REDIS_ADDR not set")
	}

	ctx := context.Background()
	board := New(Config{Addr: addr, Key: "test:leaderboard:" + uuid.NewString()})
	t.Cleanup(func() {
		board.client.Del(ctx, board.key)
		board.Close()
	})
	require.NoError(t, board.Ping(ctx))

	top, mid, low := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, board.SetXPBatch(ctx, map[uuid.UUID]int64{mid: 1300, low: 20}))
	require.NoError(t, board.SetXP(ctx, top, 5000))

	entries, err := board.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, top, entries[0].UserID)
	assert.Equal(t, int64(5000), entries[0].XPTotal)
	assert.Equal(t, mid, entries[1].UserID)

	rank, err := board.Rank(ctx, low)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	_, err = board.Rank(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotRanked)
}
