// services/game_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/analogyarena/content"
	"github.com/wfunc/analogyarena/game"
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/monitor"
	"github.com/wfunc/analogyarena/network"
	"github.com/wfunc/analogyarena/persistence"
)

// 结局标签，用于指标
const (
	OutcomeFinished = "finished"
	OutcomeWon      = "won"
	OutcomeLost     = "lost"
)

// StartRequest 开局参数
type StartRequest struct {
	GameType   models.GameType
	Topic      string
	SubTopics  []string
	Difficulty models.Difficulty
}

// GameService builds game sessions and records their results.
type GameService struct {
	db        persistence.Database
	cache     StatsCache
	bank      *content.Bank
	generator content.Generator
	policy    game.ScoringPolicy
	stats     *StatsService
	monitor   *monitor.Monitor
	pusher    Pusher
	now       func() time.Time
}

type GameServiceConfig struct {
	DB        persistence.Database
	Cache     StatsCache
	Bank      *content.Bank
	Generator content.Generator // 可选
	Policy    game.ScoringPolicy
	Stats     *StatsService
	Monitor   *monitor.Monitor
	Pusher    Pusher // 可选
}

func NewGameService(cfg GameServiceConfig) *GameService {
	policy := cfg.Policy
	if policy == nil {
		policy = game.DefaultPolicy
	}
	return &GameService{
		db:        cfg.DB,
		cache:     cfg.Cache,
		bank:      cfg.Bank,
		generator: cfg.Generator,
		policy:    policy,
		stats:     cfg.Stats,
		monitor:   cfg.Monitor,
		pusher:    cfg.Pusher,
		now:       time.Now,
	}
}

func (s *GameService) Bank() *content.Bank { return s.bank }

// Policy 当前使用的计分策略
func (s *GameService) Policy() game.ScoringPolicy { return s.policy }

// StartQuiz 创建并开始一局问答。题库不够时，riddle 模式尝试用生成服务补题。
//
// 没有任何题目时返回的 session 停在 SETUP 且 LoadFailed 为 true，err 为 game.ErrNoContent。
func (s *GameService) StartQuiz(ctx context.Context, userID string, req StartRequest) (*game.QuizSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	if req.Difficulty == "" {
		req.Difficulty = models.Medium
	}
	quiz, err := game.NewQuizSession(uuid.NewString(), userID, req.GameType, game.WithPolicy(s.policy), game.WithClock(s.now))
	if err != nil {
		return nil, err
	}

	want := game.QuestionCount(req.GameType)
	pool := s.bank.Candidates(req.GameType, req.Topic, req.SubTopics, req.Difficulty, want)
	if len(pool) == 0 && req.GameType == models.GameRiddle {
		pool = s.generateRiddles(ctx, req.Topic, req.Difficulty, want)
	}

	cfg := game.QuizConfig{Topic: req.Topic, SubTopics: req.SubTopics, Difficulty: req.Difficulty}
	if err := quiz.Start(cfg, pool); err != nil {
		logger.Log.Infow("quiz start failed", "user_id", userID, "game_type", req.GameType, "topic", req.Topic, "error", err)
		return quiz, err
	}
	s.monitor.IncActiveGames()
	return quiz, nil
}

// generateRiddles 逐题调用生成服务，遇到失败即停止
func (s *GameService) generateRiddles(ctx context.Context, topic string, difficulty models.Difficulty, want int) []models.RiddleQuestion {
	if s.generator == nil {
		return nil
	}
	var out []models.RiddleQuestion
	for i := 0; i < want; i++ {
		g, err := s.generator.Generate(ctx, content.ModeRiddle, topic)
		if err != nil {
			break
		}
		if q, ok := g.RiddleQuestion(uuid.NewString(), difficulty); ok {
			out = append(out, q)
		}
	}
	return out
}

// StartWord 开始今天的猜词。题库没有猜词题时改用生成服务出一道类比题。
func (s *GameService) StartWord(ctx context.Context, userID, topic string) (*game.WordSession, int, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, ErrInvalidUser
	}
	puzzle, err := s.bank.DailyPuzzle(s.now())
	if errors.Is(err, content.ErrNoContent) && s.generator != nil {
		var g content.Generated
		g, err = s.generator.Generate(ctx, content.ModeAnalogy, topic)
		if err == nil {
			var ok bool
			if puzzle, ok = g.WordPuzzle(content.PuzzleNumber(s.now())); !ok {
				err = content.ErrNoContent
			}
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", game.ErrNoContent, err)
	}

	word := game.NewWordSession(uuid.NewString(), userID, puzzle, game.WithClock(s.now))
	s.monitor.IncActiveGames()
	return word, puzzle.Number, nil
}

// EndGame 一局不计结果地结束（放弃或断线）
func (s *GameService) EndGame() { s.monitor.DecActiveGames() }

// RecordResult persists a finished game, then refreshes everything derived
// from it: cached stats and leaderboards, metrics and the player's live stats.
func (s *GameService) RecordResult(ctx context.Context, r models.GameResult, outcome string) error {
	s.monitor.DecActiveGames()

	if err := s.db.InsertResult(ctx, r); err != nil {
		s.monitor.IncSaveFailed()
		logger.Log.Errorw("save game result failed", "user_id", r.UserID, "result_id", r.ID, "error", err)
		return fmt.Errorf("save result: %w", err)
	}
	s.monitor.GameFinished(string(r.GameType), outcome, r.Score)
	logger.Log.Infow("game result saved", "user_id", r.UserID, "game_type", r.GameType, "score", r.Score, "outcome", outcome)

	if err := s.cache.InvalidateUser(ctx, r.UserID); err != nil {
		logger.Log.Warnw("cache invalidation failed", "user_id", r.UserID, "error", err)
	}

	if s.pusher == nil || s.stats == nil {
		return nil
	}
	st, err := s.stats.PlayerStats(ctx, r.UserID)
	if err != nil {
		logger.Log.Warnw("stats refresh failed", "user_id", r.UserID, "error", err)
		return nil
	}
	if _, err := s.pusher.SendToUser(r.UserID, network.MsgTypeStatsUpdate, st); err != nil {
		logger.Log.Warnw("stats push failed", "user_id", r.UserID, "error", err)
	}
	return nil
}

// Generate 直接调用生成服务，供 REST 使用
func (s *GameService) Generate(ctx context.Context, mode content.Mode, topic string) (content.Generated, error) {
	if s.generator == nil {
		return content.Generated{}, content.ErrNoContent
	}
	return s.generator.Generate(ctx, mode, topic)
}
