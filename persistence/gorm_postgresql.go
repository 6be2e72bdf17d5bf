// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/analogyarena/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	p, err := NewGormFromDialector(postgres.Open(dsn), false)
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := p.db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(p.db); err != nil {
		return nil, err
	}
	return p, nil
}

// NewGormFromDialector opens a store on an existing dialector without migrating.
func NewGormFromDialector(dialector gorm.Dialector, disablePing bool) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   disablePing,
	})
	if err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormGameResult{},
		&models.GormProfile{},
	)
}

// InsertResult 保存一局结果
func (p *GormPostgreSQL) InsertResult(ctx context.Context, r models.GameResult) error {
	row := models.NewGormGameResult(r)
	return p.db.WithContext(ctx).Create(&row).Error
}

func (p *GormPostgreSQL) ListResults(ctx context.Context, q ResultQuery) ([]models.GameResult, error) {
	tx := p.db.WithContext(ctx).Model(&models.GormGameResult{})
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.GameType != "" {
		tx = tx.Where("game_type = ?", string(q.GameType))
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since)
	}

	var rows []models.GormGameResult
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if err := tx.Order("created_at DESC, id DESC").Limit(clampLimit(q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]models.GameResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.ToModel())
	}
	return results, nil
}

func (p *GormPostgreSQL) DeleteResult(ctx context.Context, id, userID string) error {
	res := p.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.GormGameResult{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// GetProfiles 按 id 批量查询，缺失的用户不出现在结果里
func (p *GormPostgreSQL) GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error) {
	profiles := make(map[string]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	var rows []models.GormProfile
	if err := p.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		profiles[row.ID] = row.ToModel()
	}
	return profiles, nil
}

// SaveProfile upserts by id.
func (p *GormPostgreSQL) SaveProfile(ctx context.Context, profile models.Profile) error {
	row := models.GormProfile{ID: profile.ID, Username: profile.Username, AvatarURL: profile.AvatarURL}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "avatar_url", "updated_at"}),
	}).Create(&row).Error
}

func (p *GormPostgreSQL) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound also recognises gorm's own sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
