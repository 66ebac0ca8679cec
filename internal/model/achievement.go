package model

import (
	"time"

	"github.com/google/uuid"
)

type ConditionKind string

const (
	ConditionNone        ConditionKind = ""
	ConditionGamesPlayed ConditionKind = "games_played"
	ConditionStreak      ConditionKind = "streak"
	ConditionXPTotal     ConditionKind = "xp_total"
	ConditionRank        ConditionKind = "rank"
	ConditionGamePoints  ConditionKind = "game_points"
)

type Achievement struct {
	Key                string
	Title              string
	Description        string
	XPBonus            int64
	IsActive           bool
	ConditionKind      ConditionKind
	ConditionThreshold int64
}

type AchievementUnlock struct {
	UserID         uuid.UUID
	AchievementKey string
	UnlockedAt     time.Time
}

type UnlockResult struct {
	AchievementKey string
	Unlocked       bool
	XPGranted      int64
	XPTotal        int64
	LeveledUp      bool
}

type AchievementStatus struct {
	Achievement Achievement
	Unlocked    bool
	UnlockedAt  *time.Time
}
