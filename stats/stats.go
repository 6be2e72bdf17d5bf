// stats/stats.go
package stats

import (
	"sort"
	"time"

	"github.com/wfunc/analogyarena/models"
)

const (
	// WinThreshold 单局得分达到该值算作一胜
	WinThreshold = 10
	// PointsPerRank 每 100 分升一级
	PointsPerRank = 100
)

// Aggregator computes PlayerStats from a player's result history.
// Calendar days are always taken in UTC.
type Aggregator struct {
	WinThreshold int
}

// Default uses WinThreshold.
var Default = Aggregator{WinThreshold: WinThreshold}

// ComputeStats is Default.Compute.
func ComputeStats(results []models.GameResult, asOf time.Time) models.PlayerStats {
	return Default.Compute(results, asOf)
}

// Compute 纯函数，不修改 results
func (a Aggregator) Compute(results []models.GameResult, asOf time.Time) models.PlayerStats {
	st := models.PlayerStats{GamesPlayed: len(results)}
	for _, r := range results {
		st.TotalPoints += r.Score
	}
	st.DayStreak = DayStreak(results, asOf)
	st.WinningStreak = a.WinningStreak(results)
	st.Rank = RankFor(st.TotalPoints)
	return st
}

// RankFor 等级 = floor(points/100) + 1
func RankFor(totalPoints int) int {
	if totalPoints < 0 {
		totalPoints = 0
	}
	return totalPoints/PointsPerRank + 1
}

// DayKey truncates t to its UTC calendar day.
func DayKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayStreak counts consecutive played days ending today. When today has no
// result yet the streak may still end yesterday.
func DayStreak(results []models.GameResult, asOf time.Time) int {
	if len(results) == 0 {
		return 0
	}
	days := make(map[time.Time]struct{}, len(results))
	for _, r := range results {
		days[DayKey(r.CreatedAt)] = struct{}{}
	}

	cursor := DayKey(asOf)
	if _, ok := days[cursor]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := days[cursor]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[cursor]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// WinningStreak 从最近一局往前数连续达到阈值的局数
func (a Aggregator) WinningStreak(results []models.GameResult) int {
	sorted := make([]models.GameResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	streak := 0
	for _, r := range sorted {
		if r.Score < a.WinThreshold {
			break
		}
		streak++
	}
	return streak
}
