// game/scoring.go
package game

import (
	"fmt"
	"strings"
)

// ScoringPolicy decides how many points a correct quiz answer is worth.
// streak is the number of consecutive correct answers before this one.
type ScoringPolicy interface {
	Points(streak int) int
	Name() string
}

// FlatRate 每答对一题固定得分，当前默认策略
type FlatRate struct {
	PerCorrect int
}

func (f FlatRate) Points(int) int { return f.PerCorrect }
func (f FlatRate) Name() string   { return PolicyFlat }

// StreakBonus awards Base plus PerStreak for every answer already in the streak.
//
// Deprecated: kept only for replaying sessions scored before the flat rate.
// New sessions use FlatRate unless configuration explicitly asks for this.
type StreakBonus struct {
	Base      int
	PerStreak int
}

func (s StreakBonus) Points(streak int) int { return s.Base + streak*s.PerStreak }
func (s StreakBonus) Name() string          { return PolicyStreakBonus }

const (
	PolicyFlat        = "flat"
	PolicyStreakBonus = "streak_bonus"

	PointsPerCorrect = 10
)

// DefaultPolicy is the canonical quiz scoring.
var DefaultPolicy ScoringPolicy = FlatRate{PerCorrect: PointsPerCorrect}

// PolicyByName resolves the configured policy name.
func PolicyByName(name string) (ScoringPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFlat:
		return DefaultPolicy, nil
	case PolicyStreakBonus:
		return StreakBonus{Base: 100, PerStreak: 10}, nil
	}
	return nil, fmt.Errorf("unknown scoring policy %q", name)
}

// WordPoints 猜词得分：第 1 次 10 分，第 2 次 5 分，其后 3 分
func WordPoints(attempt int) int {
	switch attempt {
	case 0:
		return 10
	case 1:
		return 5
	default:
		return 3
	}
}
