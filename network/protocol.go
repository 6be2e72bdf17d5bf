package network

import (
	"encoding/json"

	"github.com/wfunc/analogyarena/models"
)

// 客户端 -> 服务端
const (
	MsgTypeHeartbeat = 1
	MsgTypeAuth      = 2
	MsgTypeStartGame = 101
	MsgTypeAnswer    = 102
	MsgTypeChoose    = 103
	MsgTypeHint      = 104
	MsgTypeGuess     = 105
	MsgTypeLeaveGame = 106
)

// 服务端 -> 客户端
const (
	MsgTypeAuthResult   = 201
	MsgTypeQuestion     = 301
	MsgTypeAnswerResult = 302
	MsgTypeHintResult   = 303
	MsgTypeGuessResult  = 304
	MsgTypeGameEnd      = 305
	MsgTypeStatsUpdate  = 306
	MsgTypeError        = 500
)

type AuthRequest struct {
	Token string `json:"token" validate:"required"`
}

type AuthResult struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type StartGameRequest struct {
	GameType   models.GameType   `json:"game_type" validate:"required,oneof=riddle context-challenge wordle"`
	Topic      string            `json:"topic" validate:"max=64"`
	SubTopics  []string          `json:"sub_topics" validate:"max=5,dive,max=64"`
	Difficulty models.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

type ChooseRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	OptionID   string `json:"option_id" validate:"required"`
}

type HintRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
}

type GuessRequest struct {
	Guess string `json:"guess"`
}

// OptionView 选项，不带对错
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is what a client may see of a question: no answer, no hints.
type QuestionView struct {
	ID         string            `json:"id"`
	Prompt     string            `json:"prompt"`
	Options    []OptionView      `json:"options,omitempty"`
	Difficulty models.Difficulty `json:"difficulty"`
	Topic      string            `json:"topic,omitempty"`
	SubTopic   string            `json:"sub_topic,omitempty"`
	HintCount  int               `json:"hint_count"`
}

func NewQuestionView(q models.RiddleQuestion) *QuestionView {
	v := &QuestionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
		SubTopic:   q.SubTopic,
		HintCount:  len(q.Hints),
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text})
	}
	return v
}

// QuestionPush 下发当前题目；猜词模式下 Puzzle 非空
type QuestionPush struct {
	SessionID      string             `json:"session_id"`
	GameType       models.GameType    `json:"game_type"`
	Number         int                `json:"number,omitempty"`
	Total          int                `json:"total,omitempty"`
	Question       *QuestionView      `json:"question,omitempty"`
	Puzzle         *models.WordPuzzle `json:"puzzle,omitempty"`
	HintsRemaining int                `json:"hints_remaining"`
	Remaining      int                `json:"remaining,omitempty"`
}

type HintResult struct {
	QuestionID     string `json:"question_id"`
	Hint           string `json:"hint,omitempty"`
	Granted        bool   `json:"granted"`
	HintsRemaining int    `json:"hints_remaining"`
}

// GameEnd 一局结束，Summary 只在问答模式出现，ShareText 只在猜词模式出现
type GameEnd struct {
	Result    models.GameResult `json:"result"`
	Summary   interface{}       `json:"summary,omitempty"`
	ShareText string            `json:"share_text,omitempty"`
	Saved     bool              `json:"saved"`
}

// 错误码
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthenticated = "unauthenticated"
	ErrCodeNoContent       = "no_content"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeNoGame          = "no_game"
	ErrCodeInternal        = "internal"
)

type ErrorPush struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals a payload for Send.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode 解析消息体，空消息体视为 {}
func Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	return json.Unmarshal(data, v)
}
