package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/event"
	"github.com/victornm/millionaire/internal/game"
)

// Ledger credits winnings. Credit must join the transaction carried by ctx when there is one.
type Ledger interface {
	Credit(ctx context.Context, p domain.Payout) (decimal.Decimal, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Config struct {
	Engine    *game.Engine
	Store     Store
	Questions game.QuestionSource
	Ledger    Ledger
	EventBus  *event.Bus
}

// Service runs the games of users: it loads a game, lets the engine move it, pays the prize of
// a finished game and saves the result in one step.
type Service struct {
	engine    *game.Engine
	store     Store
	questions game.QuestionSource
	ledger    Ledger
	eb        *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		engine:    c.Engine,
		store:     c.Store,
		questions: c.Questions,
		ledger:    c.Ledger,
		eb:        c.EventBus,
	}
}

func (s *Service) Engine() *game.Engine { return s.engine }

type CreateGameRequest struct {
	UserID string
}

// CreateGame starts a game for a user. A user plays one game at a time: an unfinished game
// that is past its time limit is timed out first, otherwise the request is rejected.
func (s *Service) CreateGame(ctx context.Context, req CreateGameRequest) (*game.Game, error) {
	if req.UserID == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("user id is required"))
	}

	current, err := s.store.Unfinished(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get unfinished game: %w", err)
	}

	if current != nil {
		if !s.engine.Expired(current) {
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("game %s is in progress", current.ID),
			)
		}

		if _, err := s.mutate(ctx, current.ID, req.UserID, s.expire); err != nil {
			return nil, err
		}
	}

	g, err := s.engine.NewGame(ctx, req.UserID, s.questions)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, g); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "session: game created", "game_id", g.ID, "user_id", g.UserID)

	s.eb.Publish(ctx, domain.EventGameStarted{
		GameID: g.ID,
		UserID: g.UserID,
	})

	return g, nil
}

type GetGameRequest struct {
	GameID string
	UserID string
}

// GetGame returns a game of the user. A game past its time limit is timed out on the way.
func (s *Service) GetGame(ctx context.Context, req GetGameRequest) (*game.Game, error) {
	g, err := s.store.Get(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	if err := checkOwner(g, req.UserID); err != nil {
		return nil, err
	}

	if !s.engine.Expired(g) {
		return g, nil
	}

	return s.mutate(ctx, req.GameID, req.UserID, s.expire)
}

type SubmitAnswerRequest struct {
	GameID string
	UserID string
	Letter string
}

type SubmitAnswerResponse struct {
	Game    *game.Game
	Correct bool
	// CorrectAnswerKey and CorrectAnswer belong to the question that was answered.
	CorrectAnswerKey game.Letter
	CorrectAnswer    string
}

// SubmitAnswer answers the current question of a game.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	res := &SubmitAnswerResponse{}

	g, err := s.mutate(ctx, req.GameID, req.UserID, func(g *game.Game) error {
		if q := g.CurrentGameQuestion(); q != nil {
			res.CorrectAnswerKey = q.CorrectAnswerKey()
			res.CorrectAnswer = q.CorrectAnswer()
		}

		correct, err := s.engine.AnswerCurrentQuestion(g, req.Letter)
		res.Correct = correct
		return err
	})
	if err != nil {
		return nil, err
	}

	res.Game = g
	return res, nil
}

type UseHelpRequest struct {
	GameID string
	UserID string
	Kind   string
}

// UseHelp applies a hint to the current question of a game. The hint is stored on the question.
func (s *Service) UseHelp(ctx context.Context, req UseHelpRequest) (*game.Game, error) {
	kind, err := game.ParseHelpKind(req.Kind)
	if err != nil {
		return nil, err
	}

	g, err := s.mutate(ctx, req.GameID, req.UserID, func(g *game.Game) error {
		return s.engine.UseHelp(g, kind)
	})
	if err != nil {
		return nil, err
	}

	if !g.Finished() {
		s.eb.Publish(ctx, domain.EventHelpUsed{
			GameID: g.ID,
			UserID: g.UserID,
			Level:  g.CurrentLevel,
			Kind:   string(kind),
		})
	}

	return g, nil
}

type TakeMoneyRequest struct {
	GameID string
	UserID string
}

// TakeMoney ends a game with the prize of the last answered level.
func (s *Service) TakeMoney(ctx context.Context, req TakeMoneyRequest) (*game.Game, error) {
	return s.mutate(ctx, req.GameID, req.UserID, s.engine.TakeMoney)
}

type ListGamesRequest struct {
	UserID string
}

// ListGames returns the games of a user, newest first, without their questions.
func (s *Service) ListGames(ctx context.Context, req ListGamesRequest) ([]*game.Game, error) {
	games, err := s.store.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("list games of %s: %w", req.UserID, err)
	}

	return games, nil
}

type GetProfileRequest struct {
	UserID string
}

type Profile struct {
	UserID  string
	Balance decimal.Decimal
	Games   []*game.Game
}

func (s *Service) GetProfile(ctx context.Context, req GetProfileRequest) (*Profile, error) {
	balance, err := s.ledger.Balance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get balance of %s: %w", req.UserID, err)
	}

	games, err := s.ListGames(ctx, ListGamesRequest{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	return &Profile{
		UserID:  req.UserID,
		Balance: balance,
		Games:   games,
	}, nil
}

func (s *Service) expire(g *game.Game) error {
	s.engine.Expire(g)
	return nil
}

// mutate applies op to a game of the user inside a store update. When op finishes the game,
// a paying prize is credited in the same update and EventGameFinished is published after it.
func (s *Service) mutate(ctx context.Context, gameID, userID string, op func(g *game.Game) error) (*game.Game, error) {
	var (
		out      *game.Game
		finished bool
		paid     bool
	)

	err := s.store.Update(ctx, gameID, func(ctx context.Context, g *game.Game) error {
		finished, paid = false, false

		if err := checkOwner(g, userID); err != nil {
			return err
		}

		wasFinished := g.Finished()
		if err := op(g); err != nil {
			return err
		}

		if !wasFinished && g.Finished() {
			finished = true

			if s.engine.Status(g).PaysOut() && g.Prize.IsPositive() {
				if _, err := s.ledger.Credit(ctx, domain.Payout{
					GameID: g.ID,
					UserID: g.UserID,
					Amount: g.Prize,
				}); err != nil {
					return fmt.Errorf("credit prize of game %s: %w", g.ID, err)
				}
				paid = true
			}
		}

		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finished {
		status := s.engine.Status(out)

		slog.InfoContext(ctx, "session: game finished",
			"game_id", out.ID,
			"user_id", out.UserID,
			"status", status,
			"prize", out.Prize.String(),
			"duration", out.FinishedAt.Sub(out.CreatedAt).Round(time.Second).String(),
		)

		s.eb.Publish(ctx, domain.EventGameFinished{
			Game: out.Summary(status),
			Paid: paid,
		})
	}

	return out, nil
}

func checkOwner(g *game.Game, userID string) error {
	if g.UserID != userID {
		return errors.PermissionDenied("game %s belongs to another user", g.ID)
	}
	return nil
}
