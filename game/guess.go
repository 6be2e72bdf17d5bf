// game/guess.go
package game

import (
	"errors"
	"strings"
)

// MinGuessLength 猜测至少两个字符（去掉首尾空白后）
const MinGuessLength = 2

var (
	ErrInvalidGuess  = errors.New("guess must be at least 2 characters")
	ErrNotPlaying    = errors.New("session is not in play")
	ErrWrongQuestion = errors.New("question is not the current question")
	ErrUnknownOption = errors.New("unknown option")
	ErrNoContent     = errors.New("no content available")
)

// NormalizeGuess lower-cases and trims a free-text answer.
func NormalizeGuess(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateGuess rejects guesses that are too short to be meaningful.
func ValidateGuess(s string) error {
	if len([]rune(strings.TrimSpace(s))) < MinGuessLength {
		return ErrInvalidGuess
	}
	return nil
}

// MatchesAnswer compares a guess with the expected answer, ignoring case and surrounding whitespace.
func MatchesAnswer(guess, answer string) bool {
	return NormalizeGuess(guess) == NormalizeGuess(answer)
}
