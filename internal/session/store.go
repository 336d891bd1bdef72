package session

import (
	"context"

	"github.com/victornm/millionaire/internal/game"
)

// Store persists games. Update serializes access to a game: fn sees the latest state and its
// changes are saved only if it returns nil. Writes made through ctx inside fn, such as ledger
// credits, commit together with the game when the store supports it.
type Store interface {
	// Create saves a new game. It fails with AlreadyExists when the user has an unfinished game.
	Create(ctx context.Context, g *game.Game) error
	Get(ctx context.Context, id string) (*game.Game, error)
	Update(ctx context.Context, id string, fn func(ctx context.Context, g *game.Game) error) error
	// Unfinished returns the unfinished game of a user, nil if there is none.
	Unfinished(ctx context.Context, userID string) (*game.Game, error)
	// ListByUser returns the games of a user, newest first, without their questions.
	ListByUser(ctx context.Context, userID string) ([]*game.Game, error)
}
