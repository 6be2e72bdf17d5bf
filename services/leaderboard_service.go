// services/leaderboard_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/analogyarena/leaderboard"
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/monitor"
)

// MaxTopN 单次请求最多返回的条目
const MaxTopN = 100

type LeaderboardService struct {
	builder leaderboard.Builder
	cache   LeaderboardCache
	monitor *monitor.Monitor
	topN    int
}

func NewLeaderboardService(builder leaderboard.Builder, cache LeaderboardCache, mon *monitor.Monitor, defaultTopN int) *LeaderboardService {
	if defaultTopN <= 0 || defaultTopN > MaxTopN {
		defaultTopN = leaderboard.DefaultTopN
	}
	return &LeaderboardService{builder: builder, cache: cache, monitor: mon, topN: defaultTopN}
}

func (s *LeaderboardService) clampTopN(topN int) int {
	if topN <= 0 {
		return s.topN
	}
	if topN > MaxTopN {
		return MaxTopN
	}
	return topN
}

// Leaderboard 返回带当前用户标记的排行榜
func (s *LeaderboardService) Leaderboard(ctx context.Context, viewerID string, period leaderboard.Period, topN int) ([]models.LeaderboardEntry, error) {
	topN = s.clampTopN(topN)

	entries, ok, err := s.cache.Leaderboard(ctx, string(period), topN)
	if err != nil {
		logger.Log.Warnw("leaderboard cache read failed", "period", period, "error", err)
	}
	if !ok {
		entries, err = s.build(ctx, period, topN)
		if err != nil {
			return nil, err
		}
	}
	return leaderboard.ApplyViewer(entries, viewerID), nil
}

func (s *LeaderboardService) build(ctx context.Context, period leaderboard.Period, topN int) ([]models.LeaderboardEntry, error) {
	start := time.Now()
	entries, err := s.builder.Build(ctx, period, topN)
	if err != nil {
		return nil, fmt.Errorf("build leaderboard: %w", err)
	}
	s.monitor.ObserveLeaderboardBuild(time.Since(start))

	if err := s.cache.SetLeaderboard(ctx, string(period), topN, entries); err != nil {
		logger.Log.Warnw("leaderboard cache write failed", "period", period, "error", err)
	}
	return entries, nil
}

// UserRank 用户在采样窗口内的真实名次
func (s *LeaderboardService) UserRank(ctx context.Context, period leaderboard.Period, userID string) (models.UserRank, error) {
	if userID == "" {
		return models.UserRank{}, ErrInvalidUser
	}
	return s.builder.Position(ctx, period, userID)
}

// Warm rebuilds the default-size board of every period into the cache.
func (s *LeaderboardService) Warm(ctx context.Context) error {
	for _, p := range leaderboard.Periods {
		if _, err := s.build(ctx, p, s.topN); err != nil {
			return err
		}
	}
	return nil
}
