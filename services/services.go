// services/services.go
package services

import (
	"context"
	"errors"

	"github.com/wfunc/analogyarena/models"
)

// 错误定义
var (
	ErrInvalidUser = errors.New("user id is required")
	ErrForbidden   = errors.New("not allowed to access another player's data")
)

// StatsCache 玩家统计缓存，cache.Redis 和 cache.Nop 都满足
type StatsCache interface {
	Stats(ctx context.Context, userID string) (models.PlayerStats, bool, error)
	SetStats(ctx context.Context, userID string, st models.PlayerStats) error
	InvalidateUser(ctx context.Context, userID string) error
}

// LeaderboardCache stores viewer-independent leaderboards.
type LeaderboardCache interface {
	Leaderboard(ctx context.Context, period string, topN int) ([]models.LeaderboardEntry, bool, error)
	SetLeaderboard(ctx context.Context, period string, topN int, entries []models.LeaderboardEntry) error
}

type Cache interface {
	StatsCache
	LeaderboardCache
}

// Pusher 把消息推送到某个用户的所有连接
type Pusher interface {
	SendToUser(userID string, msgID uint16, payload interface{}) (int, error)
}
