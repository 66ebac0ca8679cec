package progression

import (
	"strings"

	"timalaus_progression/internal/model"
)

type Tier int

const (
	TierBeginner Tier = iota
	TierIntermediate
	TierAdvanced
	TierExpert

	tierCount = 4
)

func (t Tier) String() string {
	switch t {
	case TierBeginner:
		return "beginner"
	case TierIntermediate:
		return "intermediate"
	case TierAdvanced:
		return "advanced"
	case TierExpert:
		return "expert"
	default:
		return "unknown"
	}
}

// TierForRank buckets a rank index. Out of range indices are clamped onto the ladder first.
func (e *Engine) TierForRank(rankIndex int) Tier {
	rankIndex = e.clampRank(rankIndex)

	tier := TierBeginner
	for _, cut := range e.cfg.TierCutoffs {
		if rankIndex >= cut {
			tier++
		}
	}
	return tier
}

// ScaleQuestForTier returns the quest as seen by a player of the given tier. Quests without a
// scaling table come back unchanged.
func (e *Engine) ScaleQuestForTier(def model.QuestDefinition, tier Tier) model.QuestDefinition {
	table, ok := e.cfg.QuestScaling[def.Key]
	if !ok {
		return def
	}
	if tier < TierBeginner {
		tier = TierBeginner
	}
	if tier > TierExpert {
		tier = TierExpert
	}

	scaled := table[tier]
	def.TargetValue = scaled.Target
	def.XPReward = scaled.XPReward
	if scaled.Description != "" {
		def.Description = scaled.Description
	}
	return def
}

type Category string

const (
	CategoryScore  Category = "score"
	CategoryStreak Category = "streak"
	CategoryPlays  Category = "plays"
	CategoryCustom Category = "custom"
)

// CategoryOf infers which game event feeds a quest from its key.
func CategoryOf(questKey string) Category {
	k := strings.ToLower(questKey)
	switch {
	case strings.Contains(k, "streak"):
		return CategoryStreak
	case strings.Contains(k, "score"), strings.Contains(k, "points"):
		return CategoryScore
	case strings.Contains(k, "play"), strings.Contains(k, "games"):
		return CategoryPlays
	default:
		return CategoryCustom
	}
}
