package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

func ParseCadence(s string) (Cadence, error) {
	switch c := Cadence(s); c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return c, nil
	default:
		return "", fmt.Errorf("unknown cadence %q", s)
	}
}

type QuestDefinition struct {
	Key         string
	Cadence     Cadence
	Description string
	TargetValue int64
	XPReward    int64
	BonusPlays  int
	IsActive    bool
	MinRank     *int
	MaxRank     *int
}

// AllowsRank reports whether a player at rankIndex may take the quest.
func (q *QuestDefinition) AllowsRank(rankIndex int) bool {
	if q.MinRank != nil && rankIndex < *q.MinRank {
		return false
	}
	if q.MaxRank != nil && rankIndex > *q.MaxRank {
		return false
	}
	return true
}

type QuestProgress struct {
	UserID       uuid.UUID
	QuestKey     string
	CurrentValue int64
	Completed    bool
	CompletedAt  *time.Time
	ResetAt      time.Time
}

func (p *QuestProgress) IsExpired(now time.Time) bool {
	return !now.Before(p.ResetAt)
}

type QuestStatus struct {
	Definition QuestDefinition
	Progress   QuestProgress
}

// ProgressUpdate is one conditional write against a progress row. Exactly one of
// Increment or Absolute applies, selected by IsAbsolute.
type ProgressUpdate struct {
	UserID     uuid.UUID
	QuestKey   string
	Increment  int64
	Absolute   int64
	IsAbsolute bool
	Target     int64
	XPReward   int64
	BonusPlays int
	Now        time.Time
}

// ProgressOutcome is what the persistence layer observed while applying a ProgressUpdate.
// Applied is false when the row was already completed, expired or missing.
type ProgressOutcome struct {
	Applied        bool
	CurrentValue   int64
	NewlyCompleted bool
	XPTotal        int64
}

type ProgressResult struct {
	QuestKey       string
	Applied        bool
	CurrentValue   int64
	Target         int64
	Completed      bool
	NewlyCompleted bool
	XPGranted      int64
	XPTotal        int64
	LeveledUp      bool
}
