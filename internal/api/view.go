package api

import (
	"strconv"
	"time"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/game"
)

type (
	Game struct {
		ID             string     `json:"id"`
		Status         string     `json:"status"`
		CurrentLevel   int        `json:"current_level"`
		Prize          string     `json:"prize"`
		FireproofPrize string     `json:"fireproof_prize"`
		CreatedAt      time.Time  `json:"created_at"`
		Deadline       time.Time  `json:"deadline"`
		FinishedAt     *time.Time `json:"finished_at,omitempty"`
		// Question is the question to answer, set while the game is in progress.
		Question *Question `json:"question,omitempty"`
	}

	Question struct {
		Level    int                    `json:"level"`
		Text     string                 `json:"text"`
		Prize    string                 `json:"prize"`
		Variants map[game.Letter]string `json:"variants"`
		Help     game.Help              `json:"help"`
	}

	Profile struct {
		UserID  string `json:"user_id"`
		Balance string `json:"balance"`
		Games   []Game `json:"games"`
	}

	Leaderboard struct {
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		UserID string `json:"user_id"`
		Total  string `json:"total"`
	}

	GameSummary struct {
		GameID string `json:"game_id"`
		Status string `json:"status"`
		Level  int    `json:"level"`
		Prize  string `json:"prize"`
		Paid   bool   `json:"paid"`
	}
)

func (a *API) gameView(g *game.Game) Game {
	e := a.ss.Engine()
	status := e.Status(g)

	v := Game{
		ID:             g.ID,
		Status:         string(status),
		CurrentLevel:   g.CurrentLevel,
		Prize:          g.Prize.String(),
		FireproofPrize: e.Prizes().FireproofPrize(g.CurrentLevel).String(),
		CreatedAt:      g.CreatedAt,
		Deadline:       e.Deadline(g),
		FinishedAt:     g.FinishedAt,
	}

	if q := g.CurrentGameQuestion(); q != nil && !status.Terminal() {
		v.Question = &Question{
			Level:    q.Level(),
			Text:     q.Text(),
			Prize:    e.Prizes().PrizeFor(q.Level()).String(),
			Variants: q.Variants(),
			Help:     q.Help,
		}
	}

	return v
}

func leaderboardView(l domain.Leaderboard) Leaderboard {
	v := Leaderboard{
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for _, e := range l.Entries {
		v.Entries = append(v.Entries, LeaderboardEntry{
			UserID: e.UserID,
			Total:  formatTotal(e.Total),
		})
	}

	return v
}

func formatTotal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
