// models/models.go
package models

import (
	"time"
)

// GameType 小游戏类型
type GameType string

const (
	GameRiddle           GameType = "riddle"
	GameContextChallenge GameType = "context-challenge"
	GameWordle           GameType = "wordle"
)

// GameTypes lists every playable mode in display order.
var GameTypes = []GameType{GameRiddle, GameContextChallenge, GameWordle}

func (g GameType) Valid() bool {
	switch g {
	case GameRiddle, GameContextChallenge, GameWordle:
		return true
	}
	return false
}

// Label is the human readable name shown next to leaderboard rows.
func (g GameType) Label() string {
	switch g {
	case GameRiddle:
		return "Reverse Riddle"
	case GameContextChallenge:
		return "Context Challenge"
	case GameWordle:
		return "Daily Cipher"
	}
	return string(g)
}

// Difficulty 难度
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

// GameResult 一局小游戏的结果记录，创建后不可修改
type GameResult struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	GameType   GameType   `json:"game_type"`
	Topic      string     `json:"topic,omitempty"`
	SubTopic   string     `json:"sub_topic,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
	Score      int        `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PlayerStats 玩家统计信息（派生数据，不落库）
type PlayerStats struct {
	TotalPoints   int `json:"total_points"`
	GamesPlayed   int `json:"games_played"`
	DayStreak     int `json:"day_streak"`
	WinningStreak int `json:"winning_streak"`
	Rank          int `json:"rank"`
}

// Profile is the public identity of a player.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Initials      string    `json:"initials"`
	TotalScore    int       `json:"total_score"`
	GamesCounted  int       `json:"games_counted"`
	LastGameType  GameType  `json:"last_game_type"`
	LastPlayedAt  time.Time `json:"last_played_at"`
	IsCurrentUser bool      `json:"is_current_user"`
}

// UserRank is a player's position inside the sampled leaderboard window.
type UserRank struct {
	UserID     string  `json:"user_id"`
	Rank       int     `json:"rank"`
	Score      int     `json:"score"`
	TotalUsers int     `json:"total_users"`
	Percentile float64 `json:"percentile"` // top X%
}

// Option 选择题选项
type Option struct {
	ID        string `json:"id" yaml:"id" validate:"required"`
	Text      string `json:"text" yaml:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct" yaml:"is_correct"`
}

// RiddleQuestion is read-only game content shared by riddle and context-challenge.
type RiddleQuestion struct {
	ID            string     `json:"id" yaml:"id" validate:"required"`
	Prompt        string     `json:"prompt" yaml:"prompt" validate:"required"`
	Options       []Option   `json:"options,omitempty" yaml:"options" validate:"dive"`
	CorrectAnswer string     `json:"-" yaml:"correct_answer" validate:"required"`
	Hints         []string   `json:"-" yaml:"hints"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty" validate:"oneof=Easy Medium Hard"`
	Topic         string     `json:"topic" yaml:"topic" validate:"required"`
	SubTopic      string     `json:"sub_topic,omitempty" yaml:"sub_topic"`
}

// AnswerRecord 单题作答记录
type AnswerRecord struct {
	QuestionID string        `json:"question_id"`
	IsCorrect  bool          `json:"is_correct"`
	TimeTaken  time.Duration `json:"time_taken"`
}

// PlayerSessionStats lives only while a session is active.
type PlayerSessionStats struct {
	Score          int            `json:"score"`
	Streak         int            `json:"streak"`
	HintsUsed      int            `json:"hints_used"`
	TotalQuestions int            `json:"total_questions"`
	CorrectAnswers int            `json:"correct_answers"`
	History        []AnswerRecord `json:"history"`
}

// WordPuzzle 猜词谜题：给出类比描述，猜出目标词
type WordPuzzle struct {
	Number     int        `json:"number" yaml:"number" validate:"gte=0"`
	Clue       string     `json:"clue" yaml:"clue" validate:"required"`
	Answer     string     `json:"-" yaml:"answer" validate:"required,min=2"`
	Topic      string     `json:"topic,omitempty" yaml:"topic"`
	Difficulty Difficulty `json:"difficulty,omitempty" yaml:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
}
