package progression

import (
	"math"
	"sort"
)

// Engine evaluates the progression rules of one validated Config. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	cfg        Config
	thresholds []int64
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	thresholds := make([]int64, len(cfg.Ranks))
	for i := range thresholds {
		thresholds[i] = cfg.RankCurve.threshold(i)
	}

	return &Engine{cfg: cfg, thresholds: thresholds}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg.Clone()
}

func (e *Engine) MinXP() int { return e.cfg.MinXP }
func (e *Engine) MaxXP() int { return e.cfg.MaxXP }

// PointsToXP converts the points of a single run into XP. Negative points count as zero and
// unknown modes use the default curve.
func (e *Engine) PointsToXP(points int, mode string) int {
	p, ok := e.cfg.Curves[mode]
	if !ok {
		p = e.cfg.Curves[e.cfg.DefaultMode]
	}
	if points < 0 {
		points = 0
	}

	xp := p.XPBase + p.K*math.Pow(float64(points), p.Alpha)
	if points > p.SurplusThreshold {
		xp += p.K2 * math.Sqrt(float64(points-p.SurplusThreshold))
	}

	result := int(math.Round(xp))
	if result < e.cfg.MinXP {
		return e.cfg.MinXP
	}
	if result > e.cfg.MaxXP {
		return e.cfg.MaxXP
	}
	return result
}

// RankThreshold is the cumulative XP needed for rank i. Negative indices are treated as 0.
func (e *Engine) RankThreshold(i int) int64 {
	if i < 0 {
		i = 0
	}
	if i < len(e.thresholds) {
		return e.thresholds[i]
	}
	return e.cfg.RankCurve.threshold(i)
}

func (e *Engine) RankCount() int {
	return len(e.thresholds)
}

// RankForXP returns the largest rank index whose threshold is at most xp.
func (e *Engine) RankForXP(xp int64) int {
	n := sort.Search(len(e.thresholds), func(i int) bool {
		return e.thresholds[i] > xp
	})
	if n == 0 {
		return 0
	}
	return n - 1
}

func (e *Engine) RankName(i int) string {
	return e.cfg.Ranks[e.clampRank(i)]
}

type RankInfo struct {
	Index         int
	Name          string
	Tier          Tier
	Threshold     int64
	NextThreshold *int64
	XPToNext      int64
}

func (e *Engine) RankInfo(xp int64) RankInfo {
	if xp < 0 {
		xp = 0
	}
	idx := e.RankForXP(xp)
	info := RankInfo{
		Index:     idx,
		Name:      e.cfg.Ranks[idx],
		Tier:      e.TierForRank(idx),
		Threshold: e.thresholds[idx],
	}
	if idx+1 < len(e.thresholds) {
		next := e.thresholds[idx+1]
		info.NextThreshold = &next
		info.XPToNext = next - xp
	}
	return info
}

type RankStep struct {
	Index     int
	Name      string
	Tier      Tier
	Threshold int64
}

func (e *Engine) Ladder() []RankStep {
	steps := make([]RankStep, len(e.thresholds))
	for i, t := range e.thresholds {
		steps[i] = RankStep{
			Index:     i,
			Name:      e.cfg.Ranks[i],
			Tier:      e.TierForRank(i),
			Threshold: t,
		}
	}
	return steps
}

func (e *Engine) clampRank(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(e.thresholds) {
		return len(e.thresholds) - 1
	}
	return i
}
