package leaderboard

import (
	"fmt"
	"time"

	"github.com/wfunc/analogyarena/models"
)

// Period 排行榜时间范围
type Period string

const (
	AllTime Period = "all-time"
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

var Periods = []Period{AllTime, Daily, Weekly, Monthly}

// ParsePeriod accepts the query-string form; empty means all-time.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return AllTime, nil
	case AllTime, Daily, Weekly, Monthly:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Since 返回时间范围的起点，all-time 为零值
func (p Period) Since(now time.Time) time.Time {
	now = now.UTC()
	switch p {
	case Daily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case Weekly:
		return now.AddDate(0, 0, -7)
	case Monthly:
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

// Filter keeps results inside the period, preserving order.
func (p Period) Filter(results []models.GameResult, now time.Time) []models.GameResult {
	since := p.Since(now)
	if since.IsZero() {
		return results
	}
	out := make([]models.GameResult, 0, len(results))
	for _, r := range results {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out
}
