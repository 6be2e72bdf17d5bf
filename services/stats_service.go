// services/stats_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/persistence"
	"github.com/wfunc/analogyarena/stats"
)

type StatsService struct {
	db    persistence.Database
	cache StatsCache
	agg   stats.Aggregator
	now   func() time.Time
}

func NewStatsService(db persistence.Database, cache StatsCache, agg stats.Aggregator) *StatsService {
	return &StatsService{db: db, cache: cache, agg: agg, now: time.Now}
}

// PlayerStats 先读缓存，未命中时用玩家的全部结果重新计算
func (s *StatsService) PlayerStats(ctx context.Context, userID string) (models.PlayerStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.PlayerStats{}, ErrInvalidUser
	}

	if st, ok, err := s.cache.Stats(ctx, userID); err != nil {
		logger.Log.Warnw("stats cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return st, nil
	}

	results, err := s.allResults(ctx, userID)
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("load results: %w", err)
	}
	st := s.agg.Compute(results, s.now())

	if err := s.cache.SetStats(ctx, userID, st); err != nil {
		logger.Log.Warnw("stats cache write failed", "user_id", userID, "error", err)
	}
	return st, nil
}

// allResults 按页读取玩家的所有结果，直到某页不满
func (s *StatsService) allResults(ctx context.Context, userID string) ([]models.GameResult, error) {
	var all []models.GameResult
	for {
		page, err := s.db.ListResults(ctx, persistence.ResultQuery{
			UserID: userID,
			Limit:  persistence.MaxListLimit,
			Offset: len(all),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < persistence.MaxListLimit {
			return all, nil
		}
	}
}

// History 玩家最近的结果，gameType 为空时不过滤
func (s *StatsService) History(ctx context.Context, userID string, gameType models.GameType, limit int) ([]models.GameResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	if gameType != "" && !gameType.Valid() {
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
	return s.db.ListResults(ctx, persistence.ResultQuery{UserID: userID, GameType: gameType, Limit: limit})
}

// DeleteResult removes one of the player's own results and drops their cached stats.
func (s *StatsService) DeleteResult(ctx context.Context, userID, resultID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if err := s.db.DeleteResult(ctx, resultID, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *StatsService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		logger.Log.Warnw("cache invalidation failed", "user_id", userID, "error", err)
	}
}
