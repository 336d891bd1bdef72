package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/millionaire/internal/domain"
)

const maxConcurrent = 100

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishGameFinished notifies the owner of a finished game.
func (a *API) PublishGameFinished(ctx context.Context, e domain.EventGameFinished) error {
	g := e.Game

	data := GameSummary{
		GameID: g.GameID,
		Status: g.Status,
		Level:  g.Level,
		Prize:  g.Prize.String(),
		Paid:   e.Paid,
	}

	return a.publishNotification(ctx, g.UserID, e.Name(), data)
}

// PublishLeaderboardUpdated sends the leaderboard to every user on it.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := leaderboardView(e.Leaderboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.UserID, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, UserChannel(a.prefix, user), b).Err()
}

// UserChannel is the Redis channel notifications of a user are published to.
func UserChannel(prefix, user string) string {
	return fmt.Sprintf("%s:user:%s", prefix, user)
}
