package domain

const (
	EventNameGameStarted        = "game.started"
	EventNameGameFinished       = "game.finished"
	EventNameHelpUsed           = "help.used"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventGameStarted struct {
	GameID string
	UserID string
}

func (EventGameStarted) Name() string { return EventNameGameStarted }

// EventGameFinished is published once per game, after its terminal transition is committed.
type EventGameFinished struct {
	Game GameSummary
	// Paid reports whether the prize was credited to the user's balance.
	Paid bool
}

func (EventGameFinished) Name() string { return EventNameGameFinished }

type EventHelpUsed struct {
	GameID string
	UserID string
	Level  int
	Kind   string
}

func (EventHelpUsed) Name() string { return EventNameHelpUsed }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
