// cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/analogyarena/models"
)

const (
	DefaultTTL = time.Minute
	keyPrefix  = "arena:"
)

// Redis 缓存排行榜与玩家统计，结果写入后由调用方失效
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) keyLeaderboard(period string, topN int) string {
	return fmt.Sprintf("%slb:%s:%d", keyPrefix, strings.TrimSpace(period), topN)
}
func (c *Redis) keyLeaderboardIdx() string      { return keyPrefix + "lb:keys" }
func (c *Redis) keyStats(userID string) string { return keyPrefix + "stats:" + strings.TrimSpace(userID) }

func (c *Redis) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		// 坏数据直接丢弃
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *Redis) setJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Leaderboard returns a cached viewer-independent list.
func (c *Redis) Leaderboard(ctx context.Context, period string, topN int) ([]models.LeaderboardEntry, bool, error) {
	var entries []models.LeaderboardEntry
	ok, err := c.getJSON(ctx, c.keyLeaderboard(period, topN), &entries)
	return entries, ok, err
}

func (c *Redis) SetLeaderboard(ctx context.Context, period string, topN int, entries []models.LeaderboardEntry) error {
	key := c.keyLeaderboard(period, topN)
	if err := c.setJSON(ctx, key, entries); err != nil {
		return err
	}
	if err := c.rdb.SAdd(ctx, c.keyLeaderboardIdx(), key).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, c.keyLeaderboardIdx(), 2*c.ttl).Err()
}

func (c *Redis) Stats(ctx context.Context, userID string) (models.PlayerStats, bool, error) {
	var st models.PlayerStats
	ok, err := c.getJSON(ctx, c.keyStats(userID), &st)
	return st, ok, err
}

func (c *Redis) SetStats(ctx context.Context, userID string, st models.PlayerStats) error {
	return c.setJSON(ctx, c.keyStats(userID), st)
}

// InvalidateUser 删除该玩家统计以及所有排行榜缓存
func (c *Redis) InvalidateUser(ctx context.Context, userID string) error {
	keys, err := c.rdb.SMembers(ctx, c.keyLeaderboardIdx()).Result()
	if err != nil {
		return err
	}
	keys = append(keys, c.keyStats(userID), c.keyLeaderboardIdx())
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Nop 不缓存，Redis 未启用时使用
type Nop struct{}

func (Nop) Leaderboard(context.Context, string, int) ([]models.LeaderboardEntry, bool, error) {
	return nil, false, nil
}
func (Nop) SetLeaderboard(context.Context, string, int, []models.LeaderboardEntry) error { return nil }
func (Nop) Stats(context.Context, string) (models.PlayerStats, bool, error) {
	return models.PlayerStats{}, false, nil
}
func (Nop) SetStats(context.Context, string, models.PlayerStats) error { return nil }
func (Nop) InvalidateUser(context.Context, string) error                { return nil }
func (Nop) Ping(context.Context) error                                  { return nil }
