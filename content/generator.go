// content/generator.go
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wfunc/analogyarena/models"
)

// ErrNoContent 生成服务没有返回可用内容
var ErrNoContent = errors.New("no content available")

// Mode 生成内容的类型
type Mode string

const (
	ModeRiddle  Mode = "riddle"
	ModeWord    Mode = "word"
	ModeAnalogy Mode = "analogy"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRiddle, ModeWord, ModeAnalogy:
		return m, nil
	}
	return "", fmt.Errorf("unknown content mode %q", s)
}

type RiddlePayload struct {
	Riddle string `json:"riddle" validate:"required"`
	Answer string `json:"answer" validate:"required"`
}

type WordPayload struct {
	Word string `json:"word" validate:"required"`
	Hint string `json:"hint" validate:"required"`
}

type AnalogyPayload struct {
	Analogy string `json:"analogy" validate:"required"`
	Answer  string `json:"answer" validate:"required"`
}

// Generated holds exactly one payload, selected by Mode.
type Generated struct {
	Mode    Mode            `json:"mode"`
	Topic   string          `json:"topic,omitempty"`
	Riddle  *RiddlePayload  `json:"riddle,omitempty"`
	Word    *WordPayload    `json:"word,omitempty"`
	Analogy *AnalogyPayload `json:"analogy,omitempty"`
}

// Generator produces fresh content for a mode and optional topic.
type Generator interface {
	Generate(ctx context.Context, mode Mode, topic string) (Generated, error)
}

// ParseContent decodes a model reply. Replies are often wrapped in markdown
// code fences or surrounded by chatter, so only the outermost JSON object is
// decoded. Anything that does not validate is ErrNoContent.
func ParseContent(mode Mode, raw []byte) (Generated, error) {
	text := string(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Generated{}, ErrNoContent
	}
	body := []byte(text[start : end+1])

	out := Generated{Mode: mode}
	var payload interface{}
	switch mode {
	case ModeRiddle:
		out.Riddle = &RiddlePayload{}
		payload = out.Riddle
	case ModeWord:
		out.Word = &WordPayload{}
		payload = out.Word
	case ModeAnalogy:
		out.Analogy = &AnalogyPayload{}
		payload = out.Analogy
	default:
		return Generated{}, fmt.Errorf("unknown content mode %q", mode)
	}

	if err := json.Unmarshal(body, payload); err != nil {
		return Generated{}, ErrNoContent
	}
	if err := validate.Struct(payload); err != nil {
		return Generated{}, ErrNoContent
	}
	return out, nil
}

// RiddleQuestion turns a generated riddle into a free-text question.
func (g Generated) RiddleQuestion(id string, difficulty models.Difficulty) (models.RiddleQuestion, bool) {
	if g.Riddle == nil {
		return models.RiddleQuestion{}, false
	}
	return models.RiddleQuestion{
		ID:            id,
		Prompt:        g.Riddle.Riddle,
		CorrectAnswer: strings.TrimSpace(g.Riddle.Answer),
		Difficulty:    difficulty,
		Topic:         g.Topic,
	}, true
}

// WordPuzzle 把生成的类比题转为猜词题
func (g Generated) WordPuzzle(number int) (models.WordPuzzle, bool) {
	if g.Analogy == nil {
		return models.WordPuzzle{}, false
	}
	return models.WordPuzzle{
		Number: number,
		Clue:   g.Analogy.Analogy,
		Answer: strings.TrimSpace(g.Analogy.Answer),
		Topic:  g.Topic,
	}, true
}
