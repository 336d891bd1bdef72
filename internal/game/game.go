package game

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/millionaire/internal/domain"
)

// Game is a single player game session. It owns one GameQuestion per level, ordered by level.
// A game is not safe for concurrent use; stores serialize access to it.
type Game struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Questions    []*GameQuestion `json:"questions"`
	CurrentLevel int             `json:"current_level"`
	IsFailed     bool            `json:"is_failed"`
	Prize        decimal.Decimal `json:"prize"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// Finished reports whether a terminal transition happened.
func (g *Game) Finished() bool {
	return g.FinishedAt != nil
}

// CurrentGameQuestion returns the question of the current level, nil once the ladder is climbed.
func (g *Game) CurrentGameQuestion() *GameQuestion {
	if g.CurrentLevel < 0 || g.CurrentLevel >= len(g.Questions) {
		return nil
	}
	return g.Questions[g.CurrentLevel]
}

// PreviousLevel returns the last level answered correctly, -1 before any answer.
func (g *Game) PreviousLevel() int {
	return g.CurrentLevel - 1
}

// HelpUsed reports whether kind was used on any question of the game.
func (g *Game) HelpUsed(kind HelpKind) bool {
	for _, q := range g.Questions {
		if q.Help.Has(kind) {
			return true
		}
	}
	return false
}

func (g *Game) Summary(s Status) domain.GameSummary {
	sum := domain.GameSummary{
		GameID:    g.ID,
		UserID:    g.UserID,
		Status:    string(s),
		Level:     g.CurrentLevel,
		Prize:     g.Prize,
		CreatedAt: g.CreatedAt,
	}
	if g.FinishedAt != nil {
		sum.FinishedAt = *g.FinishedAt
	}
	return sum
}
