// game/word.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/state"
)

// MaxAttempts 猜词最多尝试次数
const MaxAttempts = 3

const (
	WordPlaying = "playing"
	WordWon     = "won"
	WordLost    = "lost"
)

// GuessOutcome 单次猜测的反馈
type GuessOutcome struct {
	Correct   bool   `json:"correct"`
	Points    int    `json:"points"`
	Remaining int    `json:"remaining"`
	Status    string `json:"status"`
	Answer    string `json:"answer,omitempty"` // 终局后才返回
}

// WordSession is one daily-cipher game: guess the word behind an analogy.
type WordSession struct {
	ID     string
	UserID string
	Puzzle models.WordPuzzle

	now      func() time.Time
	machine  *state.BaseStateMachine
	playing  *state.Phase
	won      *state.Phase
	lost     *state.Phase
	attempts int
	points   int
	result   *models.GameResult
}

func NewWordSession(id, userID string, puzzle models.WordPuzzle, opts ...Option) *WordSession {
	o := buildOptions(opts)
	s := &WordSession{
		ID:     id,
		UserID: userID,
		Puzzle: puzzle,
		now:    o.now,
	}
	s.playing = state.NewPhase(WordPlaying)
	s.won = &state.Phase{ID: WordWon, Enter: s.buildResult}
	s.lost = &state.Phase{ID: WordLost, Enter: s.buildResult}

	s.machine = state.NewStrictStateMachine(s.playing)
	s.machine.AddTransition(s.playing, s.won, nil)
	s.machine.AddTransition(s.playing, s.lost, nil)
	return s
}

func (s *WordSession) Status() string {
	return s.machine.GetCurrentState().GetID()
}

// Attempts 已经失败的次数
func (s *WordSession) Attempts() int { return s.attempts }

func (s *WordSession) Remaining() int { return MaxAttempts - s.attempts }

func (s *WordSession) Points() int { return s.points }

// Guess checks one guess. Invalid guesses return ErrInvalidGuess and cost nothing.
func (s *WordSession) Guess(guess string) (GuessOutcome, error) {
	if s.Status() != WordPlaying {
		return GuessOutcome{}, ErrNotPlaying
	}
	if err := ValidateGuess(guess); err != nil {
		return GuessOutcome{}, err
	}

	if MatchesAnswer(guess, s.Puzzle.Answer) {
		s.points = WordPoints(s.attempts)
		if err := s.machine.ChangeState(s.won); err != nil {
			return GuessOutcome{}, err
		}
		return s.outcome(true), nil
	}

	s.attempts++
	if s.attempts >= MaxAttempts {
		if err := s.machine.ChangeState(s.lost); err != nil {
			return GuessOutcome{}, err
		}
	}
	return s.outcome(false), nil
}

func (s *WordSession) outcome(correct bool) GuessOutcome {
	out := GuessOutcome{
		Correct:   correct,
		Points:    s.points,
		Remaining: s.Remaining(),
		Status:    s.Status(),
	}
	if out.Status != WordPlaying {
		out.Answer = s.Puzzle.Answer
	}
	return out
}

func (s *WordSession) buildResult() {
	s.result = &models.GameResult{
		ID:         uuid.NewString(),
		UserID:     s.UserID,
		GameType:   models.GameWordle,
		Topic:      s.Puzzle.Topic,
		Difficulty: s.Puzzle.Difficulty,
		Score:      s.points,
		CreatedAt:  s.now().UTC(),
	}
	if s.result.Difficulty == "" {
		s.result.Difficulty = models.Medium
	}
}

// Result is available once the game is won or lost.
func (s *WordSession) Result() (models.GameResult, bool) {
	if s.result == nil {
		return models.GameResult{}, false
	}
	return *s.result, true
}

// ShareText 结果分享文案
func (s *WordSession) ShareText(puzzleNumber int) string {
	line := "Failed 💀"
	if s.Status() == WordWon {
		line = fmt.Sprintf("Solved in %d Attempt(s) 🎯", s.attempts+1)
	}
	return fmt.Sprintf("%s #%d\n%s\n\nPlayed on Analogy AI", models.GameWordle.Label(), puzzleNumber, line)
}
