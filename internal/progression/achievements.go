package progression

import "timalaus_progression/internal/model"

// Snapshot is the player state achievement conditions are checked against.
type Snapshot struct {
	GamesPlayed int
	Streak      int
	XPTotal     int64
	Rank        int
	GamePoints  int
}

// ConditionMet reports whether an achievement's automatic condition holds. Achievements without
// a condition are only unlocked explicitly.
func ConditionMet(a model.Achievement, s Snapshot) bool {
	var value int64
	switch a.ConditionKind {
	case model.ConditionGamesPlayed:
		value = int64(s.GamesPlayed)
	case model.ConditionStreak:
		value = int64(s.Streak)
	case model.ConditionXPTotal:
		value = s.XPTotal
	case model.ConditionRank:
		value = int64(s.Rank)
	case model.ConditionGamePoints:
		value = int64(s.GamePoints)
	default:
		return false
	}
	return value >= a.ConditionThreshold
}
