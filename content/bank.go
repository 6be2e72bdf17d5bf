// content/bank.go
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/wfunc/analogyarena/models"
)

//go:embed questions.yaml
var defaultFiles embed.FS

// Topic 题目大类及其子类
type Topic struct {
	ID        string   `json:"id" yaml:"id" validate:"required"`
	Label     string   `json:"label" yaml:"label"`
	SubTopics []string `json:"sub_topics" yaml:"sub_topics"`
}

type bankFile struct {
	Topics            []Topic                 `yaml:"topics" validate:"dive"`
	Riddles           []models.RiddleQuestion `yaml:"riddles" validate:"dive"`
	ContextChallenges []models.RiddleQuestion `yaml:"context_challenges" validate:"dive"`
	WordPuzzles       []models.WordPuzzle     `yaml:"word_puzzles" validate:"dive"`
}

// Bank is the read-only question pool, safe for concurrent readers.
type Bank struct {
	data bankFile
}

var validate = validator.New()

// NewBank loads the embedded questions, replaced by file when one is given.
func NewBank(file string) (*Bank, error) {
	var (
		raw []byte
		err error
	)
	if strings.TrimSpace(file) != "" {
		raw, err = os.ReadFile(file)
	} else {
		raw, err = fs.ReadFile(defaultFiles, "questions.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseBank(raw)
}

func ParseBank(raw []byte) (*Bank, error) {
	var data bankFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if err := validate.Struct(data); err != nil {
		return nil, fmt.Errorf("invalid question bank: %w", err)
	}
	return &Bank{data: data}, nil
}

func (b *Bank) Topics() []Topic {
	return append([]Topic(nil), b.data.Topics...)
}

func (b *Bank) pool(gameType models.GameType) []models.RiddleQuestion {
	switch gameType {
	case models.GameRiddle:
		return b.data.Riddles
	case models.GameContextChallenge:
		return b.data.ContextChallenges
	}
	return nil
}

// Candidates 按主题和难度挑题
//
// 依次尝试 主题+难度、仅主题、仅难度，取第一个不少于 want 道题的集合；
// 都不够时返回该模式全部题目。
func (b *Bank) Candidates(gameType models.GameType, topic string, subTopics []string, difficulty models.Difficulty, want int) []models.RiddleQuestion {
	all := b.pool(gameType)
	byTopic := func(q models.RiddleQuestion) bool { return matchesTopic(q, topic, subTopics) }
	byDifficulty := func(q models.RiddleQuestion) bool { return difficulty == "" || q.Difficulty == difficulty }

	tiers := [][]models.RiddleQuestion{
		filter(all, func(q models.RiddleQuestion) bool { return byTopic(q) && byDifficulty(q) }),
		filter(all, byTopic),
		filter(all, byDifficulty),
	}
	for _, tier := range tiers {
		if len(tier) > 0 && len(tier) >= want {
			return tier
		}
	}
	return append([]models.RiddleQuestion(nil), all...)
}

func matchesTopic(q models.RiddleQuestion, topic string, subTopics []string) bool {
	if len(subTopics) > 0 {
		for _, sub := range subTopics {
			if strings.EqualFold(q.SubTopic, sub) {
				return true
			}
		}
		return false
	}
	if topic == "" || strings.EqualFold(topic, "General") {
		return true
	}
	return strings.EqualFold(q.Topic, topic)
}

func filter(in []models.RiddleQuestion, keep func(models.RiddleQuestion) bool) []models.RiddleQuestion {
	var out []models.RiddleQuestion
	for _, q := range in {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

// PuzzleEpoch is day #1 of the daily cipher.
var PuzzleEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// PuzzleNumber 从 PuzzleEpoch 起的第几天，从 1 开始
func PuzzleNumber(day time.Time) int {
	days := int(day.UTC().Sub(PuzzleEpoch).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days + 1
}

// DailyPuzzle 每个 UTC 日期轮换一道猜词题
func (b *Bank) DailyPuzzle(day time.Time) (models.WordPuzzle, error) {
	if len(b.data.WordPuzzles) == 0 {
		return models.WordPuzzle{}, ErrNoContent
	}
	n := PuzzleNumber(day)
	p := b.data.WordPuzzles[(n-1)%len(b.data.WordPuzzles)]
	p.Number = n
	return p, nil
}
