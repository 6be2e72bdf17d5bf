package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/analogyarena/models"
)

func newTestWord() *WordSession {
	return NewWordSession("w1", "user-1", models.WordPuzzle{
		Number: 42,
		Clue:   "A digital brain that never sleeps",
		Answer: "Server",
		Topic:  "Technology",
	}, WithClock(fixedClock))
}

func TestWordSession_Points(t *testing.T) {
	tests := []struct {
		name   string
		misses int
		want   int
	}{
		{"first try", 0, 10},
		{"second try", 1, 5},
		{"third try", 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestWord()
			for i := 0; i < tt.misses; i++ {
				out, err := s.Guess("client")
				require.NoError(t, err)
				assert.False(t, out.Correct)
				assert.Empty(t, out.Answer)
			}
			out, err := s.Guess(" server")
			require.NoError(t, err)
			assert.True(t, out.Correct)
			assert.Equal(t, tt.want, out.Points)
			assert.Equal(t, WordWon, s.Status())
			assert.Equal(t, "Server", out.Answer)

			res, ok := s.Result()
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Score)
			assert.Equal(t, models.GameWordle, res.GameType)
		})
	}
}

func TestWordSession_Lost(t *testing.T) {
	s := newTestWord()
	for i := 0; i < MaxAttempts; i++ {
		_, err := s.Guess("router")
		require.NoError(t, err)
	}
	assert.Equal(t, WordLost, s.Status())
	assert.Equal(t, 0, s.Remaining())

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 0, res.Score)

	_, err := s.Guess("server")
	assert.ErrorIs(t, err, ErrNotPlaying)
	assert.Equal(t, 0, s.Points())
}

func TestWordSession_InvalidGuessIsFree(t *testing.T) {
	s := newTestWord()
	_, err := s.Guess(" s ")
	assert.ErrorIs(t, err, ErrInvalidGuess)
	assert.Equal(t, MaxAttempts, s.Remaining())
	assert.Equal(t, WordPlaying, s.Status())
	_, ok := s.Result()
	assert.False(t, ok)
}

func TestWordSession_ShareText(t *testing.T) {
	s := newTestWord()
	_, _ = s.Guess("client")
	_, _ = s.Guess("server")
	text := s.ShareText(42)
	assert.True(t, strings.HasPrefix(text, "Daily Cipher #42\n"))
	assert.Contains(t, text, "Solved in 2 Attempt(s)")

	lost := newTestWord()
	for i := 0; i < MaxAttempts; i++ {
		_, _ = lost.Guess("nope")
	}
	assert.Contains(t, lost.ShareText(7), "Failed")
}
