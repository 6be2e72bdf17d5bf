package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/analogyarena/models"
)

func TestNewBank_Embedded(t *testing.T) {
	b, err := NewBank("")
	require.NoError(t, err)

	assert.Len(t, b.Topics(), 5)
	assert.Len(t, b.Candidates(models.GameRiddle, "", nil, "", 10), 10)
	assert.Len(t, b.Candidates(models.GameContextChallenge, "", nil, "", 5), 5)
	assert.Empty(t, b.Candidates(models.GameWordle, "", nil, "", 1))
}

func TestBank_CandidatesFallBack(t *testing.T) {
	b, err := NewBank("")
	require.NoError(t, err)

	easyTech := b.Candidates(models.GameRiddle, "Technology", nil, models.Easy, 1)
	require.Len(t, easyTech, 1)
	assert.Equal(t, "Keyboard", easyTech[0].CorrectAnswer)

	// 只有两道 Technology 题，要 10 道时退回全部
	assert.Len(t, b.Candidates(models.GameRiddle, "Technology", nil, models.Easy, 10), 10)

	food := b.Candidates(models.GameRiddle, "General", []string{"food"}, "", 1)
	require.Len(t, food, 1)
	assert.Equal(t, "Banana", food[0].CorrectAnswer)
}

func TestBank_DailyPuzzle(t *testing.T) {
	b, err := NewBank("")
	require.NoError(t, err)

	first, err := b.DailyPuzzle(PuzzleEpoch.Add(5 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "Phone", first.Answer)

	second, err := b.DailyPuzzle(PuzzleEpoch.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Number)
	assert.NotEqual(t, first.Answer, second.Answer)

	empty, err := ParseBank([]byte("topics: []\n"))
	require.NoError(t, err)
	_, err = empty.DailyPuzzle(PuzzleEpoch)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestParseBank_Invalid(t *testing.T) {
	_, err := ParseBank([]byte("riddles:\n  - id: x\n    prompt: p\n    difficulty: Impossible\n    topic: t\n    correct_answer: a\n"))
	assert.Error(t, err)

	_, err = ParseBank([]byte("riddles: [unclosed"))
	assert.Error(t, err)
}
