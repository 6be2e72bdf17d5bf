package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wfunc/analogyarena/models"
)

var today = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func played(daysAgo int, score int) models.GameResult {
	return models.GameResult{
		UserID:    "u1",
		GameType:  models.GameRiddle,
		Score:     score,
		CreatedAt: today.AddDate(0, 0, -daysAgo),
	}
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil, today)
	assert.Equal(t, 0, st.GamesPlayed)
	assert.Equal(t, 0, st.TotalPoints)
	assert.Equal(t, 0, st.DayStreak)
	assert.Equal(t, 0, st.WinningStreak)
	assert.Equal(t, 1, st.Rank)
}

func TestComputeStats_Totals(t *testing.T) {
	results := []models.GameResult{played(0, 70), played(3, 50), played(9, 130)}
	st := ComputeStats(results, today)
	assert.Equal(t, 250, st.TotalPoints)
	assert.Equal(t, 3, st.GamesPlayed)
	assert.Equal(t, 3, st.Rank)

	reversed := []models.GameResult{results[2], results[1], results[0]}
	assert.Equal(t, st, ComputeStats(reversed, today), "order must not matter")
}

func TestDayStreak(t *testing.T) {
	tests := []struct {
		name    string
		daysAgo []int
		want    int
	}{
		{"today and three before", []int{0, 1, 2, 3, 5}, 4},
		{"grace from yesterday", []int{1, 2}, 2},
		{"today only, yesterday missing", []int{0, 2}, 1},
		{"two days gap", []int{2, 3}, 0},
		{"several games same day", []int{0, 0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []models.GameResult
			for _, d := range tt.daysAgo {
				results = append(results, played(d, 10))
			}
			assert.Equal(t, tt.want, DayStreak(results, today))
		})
	}
}

func TestDayStreak_UsesUTCDays(t *testing.T) {
	// 23:30 UTC yesterday is "today" in UTC+8 but must count as yesterday.
	cst := time.FixedZone("CST", 8*3600)
	late := time.Date(2025, 6, 9, 23, 30, 0, 0, time.UTC).In(cst)
	results := []models.GameResult{{Score: 10, CreatedAt: late}}
	assert.Equal(t, 1, DayStreak(results, today))
	assert.Equal(t, DayKey(late), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
}

func TestWinningStreak(t *testing.T) {
	tests := []struct {
		name    string
		results []models.GameResult
		want    int
	}{
		{"all wins", []models.GameResult{played(0, 10), played(1, 20), played(2, 30)}, 3},
		{"latest is a loss", []models.GameResult{played(0, 5), played(1, 20), played(2, 30)}, 0},
		{"stops at first loss", []models.GameResult{played(2, 40), played(0, 10), played(1, 3)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.WinningStreak(tt.results))
		})
	}
}

func TestAggregator_CustomThreshold(t *testing.T) {
	a := Aggregator{WinThreshold: 50}
	st := a.Compute([]models.GameResult{played(0, 60), played(1, 40)}, today)
	assert.Equal(t, 1, st.WinningStreak)
}

func TestRankFor(t *testing.T) {
	assert.Equal(t, 1, RankFor(0))
	assert.Equal(t, 1, RankFor(99))
	assert.Equal(t, 2, RankFor(100))
	assert.Equal(t, 11, RankFor(1050))
}
