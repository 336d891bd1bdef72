package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Question is a trivia question of the question pool. Answers[0] is always the correct one,
// game questions shuffle the order they are displayed in.
type Question struct {
	ID      int64     `json:"id" yaml:"id"`
	Level   int       `json:"level" yaml:"level"`
	Text    string    `json:"text" yaml:"text"`
	Answers [4]string `json:"answers" yaml:"answers"`
}

// Payout is a credit of winnings to a user's balance for a finished game.
type Payout struct {
	GameID string
	UserID string
	Amount decimal.Decimal
}

// GameSummary describes the outcome of a game.
type GameSummary struct {
	GameID     string
	UserID     string
	Status     string
	Level      int
	Prize      decimal.Decimal
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Leaderboard represents players ranked by their total winnings, in descending order.
type Leaderboard struct {
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	UserID string
	Total  float64
}
