// game/quiz.go
package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/analogyarena/models"
	"github.com/wfunc/analogyarena/state"
)

// 会话阶段
const (
	PhaseIntro    = "INTRO"
	PhaseSetup    = "SETUP"
	PhasePlaying  = "PLAYING"
	PhaseFinished = "FINISHED"
)

const (
	// HintCap 每局最多提示次数
	HintCap = 5
	// HintsPerQuestion 单题最多提示次数（同时受该题提示条数限制）
	HintsPerQuestion = 3

	RiddleQuestionCount  = 10
	ContextQuestionCount = 5
)

// QuestionCount is how many questions a quiz of the given type asks.
func QuestionCount(gameType models.GameType) int {
	if gameType == models.GameContextChallenge {
		return ContextQuestionCount
	}
	return RiddleQuestionCount
}

// QuizConfig 开局配置
type QuizConfig struct {
	Topic      string            `json:"topic" validate:"max=64"`
	SubTopics  []string          `json:"sub_topics" validate:"max=5,dive,max=64"`
	Difficulty models.Difficulty `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
}

// AnswerOutcome is what the player learns after answering.
type AnswerOutcome struct {
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correct_answer"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
	Phase         string `json:"phase"`
}

// Summary 结束页展示的数据
type Summary struct {
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
	HintsUsed      int     `json:"hints_used"`
	Streak         int     `json:"streak"`
	Accuracy       float64 `json:"accuracy"` // 0-100
	Progression    []int   `json:"progression"`
}

// QuizSession drives one riddle or context-challenge game.
//
// A session is owned by a single connection and is not safe for concurrent use.
type QuizSession struct {
	ID       string
	UserID   string
	GameType models.GameType

	cfg    QuizConfig
	policy ScoringPolicy
	now    func() time.Time
	rng    *rand.Rand

	machine  *state.BaseStateMachine
	intro    *state.Phase
	setup    *state.Phase
	playing  *state.Phase
	finished *state.Phase

	questions   []models.RiddleQuestion
	current     int
	stats       models.PlayerSessionStats
	progression []int
	hintsShown  map[string]int
	askedAt     time.Time
	loadFailed  bool
	result      *models.GameResult
}

func NewQuizSession(id, userID string, gameType models.GameType, opts ...Option) (*QuizSession, error) {
	if gameType != models.GameRiddle && gameType != models.GameContextChallenge {
		return nil, fmt.Errorf("game type %q is not a quiz", gameType)
	}
	o := buildOptions(opts)
	s := &QuizSession{
		ID:         id,
		UserID:     userID,
		GameType:   gameType,
		policy:     o.policy,
		now:        o.now,
		rng:        o.rng,
		hintsShown: make(map[string]int),
		stats:      emptyStats(),
	}

	s.intro = state.NewPhase(PhaseIntro)
	s.setup = state.NewPhase(PhaseSetup)
	s.playing = &state.Phase{ID: PhasePlaying, Enter: func() { s.askedAt = s.now() }}
	s.finished = &state.Phase{ID: PhaseFinished, Enter: s.buildResult}

	s.machine = state.NewStrictStateMachine(s.intro)
	s.machine.AddTransition(s.intro, s.setup, nil)
	s.machine.AddTransition(s.setup, s.playing, nil)
	s.machine.AddTransition(s.playing, s.finished, nil)
	s.machine.AddTransition(s.playing, s.setup, nil)
	s.machine.AddTransition(s.finished, s.setup, nil)
	return s, nil
}

func emptyStats() models.PlayerSessionStats {
	return models.PlayerSessionStats{History: []models.AnswerRecord{}}
}

// Phase returns the current phase id.
func (s *QuizSession) Phase() string {
	return s.machine.GetCurrentState().GetID()
}

// LoadFailed reports that the last Start found no content.
func (s *QuizSession) LoadFailed() bool { return s.loadFailed }

func (s *QuizSession) Config() QuizConfig { return s.cfg }

// Start 进入 SETUP 并用 pool 开新局，之前的进度全部丢弃
func (s *QuizSession) Start(cfg QuizConfig, pool []models.RiddleQuestion) error {
	if s.Phase() != PhaseSetup {
		if err := s.machine.ChangeState(s.setup); err != nil {
			return err
		}
	}

	s.cfg = cfg
	s.stats = emptyStats()
	s.progression = nil
	s.hintsShown = make(map[string]int)
	s.questions = nil
	s.current = 0
	s.result = nil

	if len(pool) == 0 {
		s.loadFailed = true
		return ErrNoContent
	}
	s.loadFailed = false
	s.questions = sampleQuestions(pool, QuestionCount(s.GameType), s.rng)
	return s.machine.ChangeState(s.playing)
}

// Abandon 放弃当前局，回到 SETUP，不产生结果
func (s *QuizSession) Abandon() error {
	if s.Phase() != PhasePlaying {
		return ErrNotPlaying
	}
	return s.machine.ChangeState(s.setup)
}

func sampleQuestions(pool []models.RiddleQuestion, n int, rng *rand.Rand) []models.RiddleQuestion {
	picked := make([]models.RiddleQuestion, len(pool))
	copy(picked, pool)
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if n < len(picked) {
		picked = picked[:n]
	}
	return picked
}

// Current returns the question waiting for an answer.
func (s *QuizSession) Current() (models.RiddleQuestion, bool) {
	if s.Phase() != PhasePlaying {
		return models.RiddleQuestion{}, false
	}
	return s.questions[s.current], true
}

// QuestionNumber 当前题号，从 1 开始
func (s *QuizSession) QuestionNumber() int { return s.current + 1 }

func (s *QuizSession) TotalQuestions() int { return len(s.questions) }

func (s *QuizSession) checkCurrent(questionID string) (models.RiddleQuestion, error) {
	if s.Phase() != PhasePlaying {
		return models.RiddleQuestion{}, ErrNotPlaying
	}
	q := s.questions[s.current]
	if q.ID != questionID {
		return models.RiddleQuestion{}, ErrWrongQuestion
	}
	return q, nil
}

// Answer 自由文本作答
func (s *QuizSession) Answer(questionID, guess string) (AnswerOutcome, error) {
	q, err := s.checkCurrent(questionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if err := ValidateGuess(guess); err != nil {
		return AnswerOutcome{}, err
	}
	return s.record(q, MatchesAnswer(guess, answerText(q)))
}

// Choose 选择题作答
func (s *QuizSession) Choose(questionID, optionID string) (AnswerOutcome, error) {
	q, err := s.checkCurrent(questionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return s.record(q, opt.IsCorrect)
		}
	}
	return AnswerOutcome{}, ErrUnknownOption
}

// answerText 正确答案文本，选择题取正确选项
func answerText(q models.RiddleQuestion) string {
	if q.CorrectAnswer != "" {
		return q.CorrectAnswer
	}
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.Text
		}
	}
	return ""
}

func (s *QuizSession) record(q models.RiddleQuestion, correct bool) (AnswerOutcome, error) {
	points := 0
	if correct {
		points = s.policy.Points(s.stats.Streak)
		s.stats.Score += points
		s.stats.Streak++
		s.stats.CorrectAnswers++
	} else {
		s.stats.Streak = 0
	}
	s.stats.TotalQuestions++
	s.stats.History = append(s.stats.History, models.AnswerRecord{
		QuestionID: q.ID,
		IsCorrect:  correct,
		TimeTaken:  s.now().Sub(s.askedAt),
	})
	s.progression = append(s.progression, s.stats.Score)

	if s.current+1 >= len(s.questions) {
		if err := s.machine.ChangeState(s.finished); err != nil {
			return AnswerOutcome{}, err
		}
	} else {
		s.current++
		s.askedAt = s.now()
	}

	return AnswerOutcome{
		QuestionID:    q.ID,
		IsCorrect:     correct,
		Points:        points,
		CorrectAnswer: answerText(q),
		Score:         s.stats.Score,
		Streak:        s.stats.Streak,
		Phase:         s.Phase(),
	}, nil
}

// UseHint 返回下一条提示；超过上限时 granted 为 false 且不计数
func (s *QuizSession) UseHint(questionID string) (hint string, granted bool) {
	q, err := s.checkCurrent(questionID)
	if err != nil {
		return "", false
	}
	if s.stats.HintsUsed >= HintCap {
		return "", false
	}
	shown := s.hintsShown[q.ID]
	if shown >= min(HintsPerQuestion, len(q.Hints)) {
		return "", false
	}
	s.hintsShown[q.ID] = shown + 1
	s.stats.HintsUsed++
	return q.Hints[shown], true
}

// HintsRemaining 本局剩余提示次数
func (s *QuizSession) HintsRemaining() int { return HintCap - s.stats.HintsUsed }

// Stats returns a copy of the running stats.
func (s *QuizSession) Stats() models.PlayerSessionStats {
	out := s.stats
	out.History = append([]models.AnswerRecord{}, s.stats.History...)
	return out
}

func (s *QuizSession) buildResult() {
	s.result = &models.GameResult{
		ID:         uuid.NewString(),
		UserID:     s.UserID,
		GameType:   s.GameType,
		Topic:      s.cfg.Topic,
		SubTopic:   strings.Join(s.cfg.SubTopics, ","),
		Difficulty: s.cfg.Difficulty,
		Score:      s.stats.Score,
		CreatedAt:  s.now().UTC(),
	}
}

// Result is the finished game's record; ok is false until the session finishes.
func (s *QuizSession) Result() (models.GameResult, bool) {
	if s.Phase() != PhaseFinished || s.result == nil {
		return models.GameResult{}, false
	}
	return *s.result, true
}

// Summary 准确率按已答题数计算，未答题时为 0
func (s *QuizSession) Summary() Summary {
	sum := Summary{
		Score:          s.stats.Score,
		CorrectAnswers: s.stats.CorrectAnswers,
		TotalQuestions: s.stats.TotalQuestions,
		HintsUsed:      s.stats.HintsUsed,
		Streak:         s.stats.Streak,
		Progression:    append([]int{}, s.progression...),
	}
	if s.stats.TotalQuestions > 0 {
		sum.Accuracy = float64(s.stats.CorrectAnswers) * 100 / float64(s.stats.TotalQuestions)
	}
	return sum
}
