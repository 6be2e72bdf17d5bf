// models/gorm_models.go
package models

import (
	"time"
)

// GormGameResult 游戏结果表
type GormGameResult struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `gorm:"index:idx_game_results_user_created,priority:1;not null"`
	GameType   string    `gorm:"index;not null"`
	Topic      string    `gorm:"default:''"`
	SubTopic   string    `gorm:"default:''"`
	Difficulty string    `gorm:"not null"`
	Score      int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"index;index:idx_game_results_user_created,priority:2;not null"`
}

func (GormGameResult) TableName() string { return "game_results" }

// ToModel converts the row into the domain record.
func (g GormGameResult) ToModel() GameResult {
	return GameResult{
		ID:         g.ID,
		UserID:     g.UserID,
		GameType:   GameType(g.GameType),
		Topic:      g.Topic,
		SubTopic:   g.SubTopic,
		Difficulty: Difficulty(g.Difficulty),
		Score:      g.Score,
		CreatedAt:  g.CreatedAt,
	}
}

func NewGormGameResult(r GameResult) GormGameResult {
	return GormGameResult{
		ID:         r.ID,
		UserID:     r.UserID,
		GameType:   string(r.GameType),
		Topic:      r.Topic,
		SubTopic:   r.SubTopic,
		Difficulty: string(r.Difficulty),
		Score:      r.Score,
		CreatedAt:  r.CreatedAt,
	}
}

// GormProfile 玩家资料表
type GormProfile struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Username  string `gorm:"not null;default:''"`
	AvatarURL string `gorm:"default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GormProfile) TableName() string { return "profiles" }

func (p GormProfile) ToModel() Profile {
	return Profile{ID: p.ID, Username: p.Username, AvatarURL: p.AvatarURL}
}
