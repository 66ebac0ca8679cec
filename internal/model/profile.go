package model

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID            uuid.UUID
	Username      string
	XPTotal       int64
	GamesPlayed   int
	CurrentStreak int
	LastPlayedAt  *time.Time
	BonusPlays    int
	IsAdmin       bool
}

// GameRecord is the profile mutation applied at the end of a run. PrevPlayedAt is the
// last_played_at the streak was computed from.
type GameRecord struct {
	UserID       uuid.UUID
	XPGained     int64
	Streak       int
	PlayedAt     time.Time
	PrevPlayedAt *time.Time
}

type GameResult struct {
	Points               int
	Mode                 string
	XPGained             int64
	XPTotal              int64
	RankBefore           int
	RankAfter            int
	LeveledUp            bool
	Streak               int
	CompletedQuests      []string
	UnlockedAchievements []string
}
