package model

import "github.com/google/uuid"

const (
	EventQuestCompleted      = "quest_completed"
	EventAchievementUnlocked = "achievement_unlocked"
	EventLevelUp             = "level_up"
)

// Event is pushed to a player's connected clients.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

type LeaderboardEntry struct {
	Rank    int
	UserID  uuid.UUID
	XPTotal int64
}
