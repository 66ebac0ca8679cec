package progression

import (
	"errors"
	"fmt"
	"math"
)

const ModeClassic = "classic"

// CurveParams shapes the points→XP curve of one game mode:
// xp = XPBase + K*points^Alpha, plus K2*sqrt(points-SurplusThreshold) above the threshold.
type CurveParams struct {
	XPBase           float64 `mapstructure:"xpBase"`
	K                float64 `mapstructure:"k"`
	Alpha            float64 `mapstructure:"alpha"`
	SurplusThreshold int     `mapstructure:"surplusThreshold"`
	K2               float64 `mapstructure:"k2"`
}

// RankCurve gives the cumulative XP of rank i as A*i^2 + B*i + C.
type RankCurve struct {
	A float64 `mapstructure:"a"`
	B float64 `mapstructure:"b"`
	C float64 `mapstructure:"c"`
}

// ScaledQuest replaces a quest's target, reward and description for one tier.
type ScaledQuest struct {
	Target      int64  `mapstructure:"target"`
	XPReward    int64  `mapstructure:"xpReward"`
	Description string `mapstructure:"description"`
}

type Config struct {
	MinXP       int                    `mapstructure:"minXP"`
	MaxXP       int                    `mapstructure:"maxXP"`
	DefaultMode string                 `mapstructure:"defaultMode"`
	Curves      map[string]CurveParams `mapstructure:"curves"`

	RankCurve RankCurve `mapstructure:"rankCurve"`
	Ranks     []string  `mapstructure:"ranks"`

	// TierCutoffs holds the first rank index of the intermediate, advanced and expert tiers.
	TierCutoffs []int `mapstructure:"tierCutoffs"`

	// QuestScaling maps a quest key to one entry per tier, beginner first.
	QuestScaling map[string][]ScaledQuest `mapstructure:"questScaling"`
}

func DefaultConfig() Config {
	return Config{
		MinXP:       20,
		MaxXP:       500,
		DefaultMode: ModeClassic,
		Curves: map[string]CurveParams{
			ModeClassic: {XPBase: 15, K: 1.2, Alpha: 0.6, SurplusThreshold: 10000, K2: 0.5},
			"date":      {XPBase: 15, K: 1.4, Alpha: 0.58, SurplusThreshold: 8000, K2: 0.6},
			"precision": {XPBase: 10, K: 2.5, Alpha: 0.55, SurplusThreshold: 3000, K2: 0.8},
		},
		RankCurve: RankCurve{A: 150, B: 350, C: 0},
		Ranks: []string{
			"Page", "Écuyer", "Chevalier", "Bachelier", "Seigneur", "Baronnet", "Baron", "Vicomte",
			"Comte", "Marquis", "Duc", "Archiduc", "Prince", "Prince Électeur", "Roi", "Grand Roi",
			"Empereur",
		},
		TierCutoffs: []int{4, 8, 12},
		QuestScaling: map[string][]ScaledQuest{
			"daily_high_score": {
				{Target: 2000, XPReward: 60, Description: "Marquer 2 000 points en une partie"},
				{Target: 5000, XPReward: 90, Description: "Marquer 5 000 points en une partie"},
				{Target: 10000, XPReward: 130, Description: "Marquer 10 000 points en une partie"},
				{Target: 20000, XPReward: 180, Description: "Marquer 20 000 points en une partie"},
			},
			"daily_play_games": {
				{Target: 2, XPReward: 40, Description: "Jouer 2 parties"},
				{Target: 3, XPReward: 50, Description: "Jouer 3 parties"},
				{Target: 5, XPReward: 70, Description: "Jouer 5 parties"},
				{Target: 8, XPReward: 100, Description: "Jouer 8 parties"},
			},
			"weekly_streak": {
				{Target: 3, XPReward: 150, Description: "Jouer 3 jours d'affilée"},
				{Target: 4, XPReward: 200, Description: "Jouer 4 jours d'affilée"},
				{Target: 5, XPReward: 250, Description: "Jouer 5 jours d'affilée"},
				{Target: 7, XPReward: 350, Description: "Jouer 7 jours d'affilée"},
			},
			"weekly_play_games": {
				{Target: 10, XPReward: 150, Description: "Jouer 10 parties"},
				{Target: 15, XPReward: 200, Description: "Jouer 15 parties"},
				{Target: 25, XPReward: 300, Description: "Jouer 25 parties"},
				{Target: 40, XPReward: 450, Description: "Jouer 40 parties"},
			},
			"monthly_high_score": {
				{Target: 10000, XPReward: 400, Description: "Marquer 10 000 points en une partie"},
				{Target: 20000, XPReward: 550, Description: "Marquer 20 000 points en une partie"},
				{Target: 35000, XPReward: 750, Description: "Marquer 35 000 points en une partie"},
				{Target: 50000, XPReward: 1000, Description: "Marquer 50 000 points en une partie"},
			},
		},
	}
}

var (
	ErrInvalidCurve   = errors.New("invalid xp curve")
	ErrInvalidRanks   = errors.New("invalid rank ladder")
	ErrInvalidTiers   = errors.New("invalid tier cutoffs")
	ErrInvalidScaling = errors.New("invalid quest scaling")
)

// Validate checks every constraint the engine relies on for monotonic and bounded output.
func (c Config) Validate() error {
	if c.MinXP < 0 || c.MaxXP < c.MinXP {
		return fmt.Errorf("%w: xp band [%d, %d]", ErrInvalidCurve, c.MinXP, c.MaxXP)
	}
	if _, ok := c.Curves[c.DefaultMode]; !ok {
		return fmt.Errorf("%w: default mode %q has no curve", ErrInvalidCurve, c.DefaultMode)
	}
	for mode, p := range c.Curves {
		if p.Alpha <= 0 || p.Alpha >= 1 {
			return fmt.Errorf("%w: mode %q alpha %v outside (0,1)", ErrInvalidCurve, mode, p.Alpha)
		}
		if p.XPBase < 0 || p.K < 0 || p.K2 < 0 || p.SurplusThreshold < 0 {
			return fmt.Errorf("%w: mode %q has a negative coefficient", ErrInvalidCurve, mode)
		}
	}

	if len(c.Ranks) == 0 {
		return fmt.Errorf("%w: no ranks", ErrInvalidRanks)
	}
	prev := int64(math.MinInt64)
	for i := range c.Ranks {
		t := c.RankCurve.threshold(i)
		if t <= prev {
			return fmt.Errorf("%w: threshold of rank %d (%d) does not exceed rank %d", ErrInvalidRanks, i, t, i-1)
		}
		prev = t
	}

	if len(c.TierCutoffs) != tierCount-1 {
		return fmt.Errorf("%w: want %d cutoffs, got %d", ErrInvalidTiers, tierCount-1, len(c.TierCutoffs))
	}
	last := 0
	for _, cut := range c.TierCutoffs {
		if cut <= last {
			return fmt.Errorf("%w: cutoffs must be positive and increasing", ErrInvalidTiers)
		}
		last = cut
	}

	for key, table := range c.QuestScaling {
		if len(table) != tierCount {
			return fmt.Errorf("%w: %q needs %d tier entries, got %d", ErrInvalidScaling, key, tierCount, len(table))
		}
		for _, s := range table {
			if s.Target <= 0 || s.XPReward < 0 {
				return fmt.Errorf("%w: %q has a non-positive target or negative reward", ErrInvalidScaling, key)
			}
		}
	}

	return nil
}

// Clone returns a deep copy, so edits to the copy never reach an engine built from c.
func (c Config) Clone() Config {
	out := c

	if c.Curves != nil {
		out.Curves = make(map[string]CurveParams, len(c.Curves))
		for mode, p := range c.Curves {
			out.Curves[mode] = p
		}
	}
	out.Ranks = append([]string(nil), c.Ranks...)
	out.TierCutoffs = append([]int(nil), c.TierCutoffs...)
	if c.QuestScaling != nil {
		out.QuestScaling = make(map[string][]ScaledQuest, len(c.QuestScaling))
		for key, table := range c.QuestScaling {
			out.QuestScaling[key] = append([]ScaledQuest(nil), table...)
		}
	}

	return out
}

func (rc RankCurve) threshold(i int) int64 {
	f := float64(i)
	return int64(math.Round(rc.A*f*f + rc.B*f + rc.C))
}
