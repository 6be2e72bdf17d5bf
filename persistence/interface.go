// persistence/interface.go
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/analogyarena/models"
)

// ResultQuery 查询条件，结果总是按 created_at 倒序
type ResultQuery struct {
	UserID   string
	GameType models.GameType
	Since    time.Time
	Limit    int
	// Offset 跳过前 Offset 条，用于分页读取全部结果
	Offset int
}

// Database 数据库接口
type Database interface {
	// InsertResult 只插入，结果记录不可修改
	InsertResult(ctx context.Context, r models.GameResult) error
	ListResults(ctx context.Context, q ResultQuery) ([]models.GameResult, error)
	// DeleteResult removes one of userID's results. ErrRecordNotFound when nothing matched.
	DeleteResult(ctx context.Context, id, userID string) error
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) error
	Ping(ctx context.Context) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	errClosed         = fmt.Errorf("database closed")
)

// 查询上限，避免一次拉取过多
const MaxListLimit = 1000

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
