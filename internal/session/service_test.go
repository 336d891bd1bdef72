package session_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/event"
	"github.com/victornm/millionaire/internal/game"
	"github.com/victornm/millionaire/internal/ledger"
	"github.com/victornm/millionaire/internal/question"
	"github.com/victornm/millionaire/internal/session"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyLedger fails credits while err is set.
type flakyLedger struct {
	*ledger.Memory
	err error
}

func (l *flakyLedger) Credit(ctx context.Context, p domain.Payout) (decimal.Decimal, error) {
	if l.err != nil {
		return decimal.Zero, l.err
	}
	return l.Memory.Credit(ctx, p)
}

type fixture struct {
	svc      *session.Service
	clock    *clock
	ledger   *flakyLedger
	bus      *event.Bus
	mu       sync.Mutex
	finished []domain.EventGameFinished
	helps    []domain.EventHelpUsed
}

func (f *fixture) finishedEvents() []domain.EventGameFinished {
	f.bus.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.EventGameFinished(nil), f.finished...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pool := question.NewPool()
	for level := range 15 {
		for i := range 3 {
			pool.Add(domain.Question{
				Level:   level,
				Text:    fmt.Sprintf("question %d of level %d", i, level),
				Answers: [4]string{"right", "wrong 1", "wrong 2", "wrong 3"},
			})
		}
	}

	f := &fixture{
		clock:  &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		ledger: &flakyLedger{Memory: ledger.NewMemory()},
		bus:    event.NewBus(),
	}

	f.bus.Subscribe(domain.EventNameGameFinished, func(_ context.Context, e event.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.finished = append(f.finished, e.(domain.EventGameFinished))
		return nil
	})
	f.bus.Subscribe(domain.EventNameHelpUsed, func(_ context.Context, e event.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.helps = append(f.helps, e.(domain.EventHelpUsed))
		return nil
	})

	f.svc = session.NewService(session.Config{
		Engine: game.NewEngine(game.Config{
			TimeLimit: 35 * time.Minute,
			Rand:      game.NewSeededRand(7),
			Now:       f.clock.Now,
		}),
		Store:     session.NewMemoryStore(),
		Questions: pool,
		Ledger:    f.ledger,
		EventBus:  f.bus,
	})

	return f
}

func (f *fixture) answer(t *testing.T, g *game.Game, correct bool) *session.SubmitAnswerResponse {
	t.Helper()

	q := g.CurrentGameQuestion()
	require.NotNil(t, q)

	letter := q.CorrectAnswerKey()
	if !correct {
		for _, l := range game.Letters {
			if l != letter {
				letter = l
				break
			}
		}
	}

	res, err := f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
		GameID: g.ID,
		UserID: g.UserID,
		Letter: letter.Upper(),
	})
	require.NoError(t, err)
	require.Equal(t, correct, res.Correct)
	return res
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()

	b, err := f.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func TestService_TakeMoney(t *testing.T) {
	tests := map[string]struct {
		answered  int
		wantPrize int64
	}{
		"after level 0": {answered: 1, wantPrize: 100},
		"after level 1": {answered: 2, wantPrize: 200},
		"after level 2": {answered: 3, wantPrize: 300},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)

			g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
			require.NoError(t, err)

			for range tt.answered {
				g = f.answer(t, g, true).Game
			}

			g, err = f.svc.TakeMoney(ctx, session.TakeMoneyRequest{GameID: g.ID, UserID: "u1"})
			require.NoError(t, err)
			require.Equal(t, game.StatusMoney, f.svc.Engine().Status(g))
			require.True(t, g.Prize.Equal(decimal.NewFromInt(tt.wantPrize)))
			require.True(t, f.balance(t, "u1").Equal(decimal.NewFromInt(tt.wantPrize)))

			events := f.finishedEvents()
			require.Len(t, events, 1)
			assert.True(t, events[0].Paid)
			assert.Equal(t, string(game.StatusMoney), events[0].Game.Status)
			assert.Equal(t, g.ID, events[0].Game.GameID)
		})
	}
}

func TestService_WrongAnswerAtFirstLevel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	want := g.CurrentGameQuestion()
	res := f.answer(t, g, false)

	require.Equal(t, want.CorrectAnswerKey(), res.CorrectAnswerKey)
	require.Equal(t, "right", res.CorrectAnswer)
	require.Equal(t, game.StatusFail, f.svc.Engine().Status(res.Game))
	require.True(t, res.Game.Prize.IsZero())
	require.True(t, f.balance(t, "u1").IsZero())

	events := f.finishedEvents()
	require.Len(t, events, 1)
	assert.False(t, events[0].Paid)
	assert.Equal(t, string(game.StatusFail), events[0].Game.Status)
}

func TestService_FailedGameIsNotPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	for range 6 {
		g = f.answer(t, g, true).Game
	}
	res := f.answer(t, g, false)

	require.Equal(t, game.StatusFail, f.svc.Engine().Status(res.Game))
	require.True(t, res.Game.Prize.Equal(decimal.NewFromInt(1000)))
	require.True(t, f.balance(t, "u1").IsZero())
	require.Empty(t, f.ledger.Payouts("u1"))
}

func TestService_WinPaysOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	for range 15 {
		g = f.answer(t, g, true).Game
	}

	require.Equal(t, game.StatusWon, f.svc.Engine().Status(g))
	require.True(t, g.Prize.Equal(decimal.NewFromInt(1_000_000)))

	_, err = f.svc.TakeMoney(ctx, session.TakeMoneyRequest{GameID: g.ID, UserID: "u1"})
	require.ErrorIs(t, err, game.ErrGameFinished)
	require.Equal(t, errors.CodeFailedPrecondition, errors.CodeOf(err))

	_, err = f.svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{GameID: g.ID, UserID: "u1", Letter: "a"})
	require.ErrorIs(t, err, game.ErrGameFinished)

	require.True(t, f.balance(t, "u1").Equal(decimal.NewFromInt(1_000_000)))
	require.Len(t, f.ledger.Payouts("u1"), 1)
	require.Len(t, f.finishedEvents(), 1)
}

func TestService_OneGameInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	_, err = f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.Equal(t, errors.CodeAlreadyExists, errors.CodeOf(err))

	_, err = f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u2"})
	require.NoError(t, err)

	_, err = f.svc.TakeMoney(ctx, session.TakeMoneyRequest{GameID: g.ID, UserID: "u1"})
	require.ErrorIs(t, err, game.ErrNothingToTake)

	f.answer(t, g, false)

	next, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)
	require.NotEqual(t, g.ID, next.ID)

	games, err := f.svc.ListGames(ctx, session.ListGamesRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, next.ID, games[0].ID)
	assert.Equal(t, g.ID, games[1].ID)
	assert.Nil(t, games[0].Questions)
}

func TestService_StaleGameTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)
	for range 5 {
		g = f.answer(t, g, true).Game
	}

	f.clock.Advance(36 * time.Minute)

	next, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)
	require.NotEqual(t, g.ID, next.ID)

	old, err := f.svc.GetGame(ctx, session.GetGameRequest{GameID: g.ID, UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, game.StatusTimeout, f.svc.Engine().Status(old))
	require.True(t, old.Prize.Equal(decimal.NewFromInt(1000)))
	require.True(t, f.balance(t, "u1").IsZero())

	events := f.finishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, string(game.StatusTimeout), events[0].Game.Status)
	assert.False(t, events[0].Paid)
}

func TestService_ExpiredOnAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	res, err := f.svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{
		GameID: g.ID,
		UserID: "u1",
		Letter: string(g.CurrentGameQuestion().CorrectAnswerKey()),
	})
	require.NoError(t, err)
	require.False(t, res.Correct)
	require.Equal(t, game.StatusTimeout, f.svc.Engine().Status(res.Game))
}

func TestService_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	tests := map[string]struct {
		call     func() error
		wantCode errors.Code
	}{
		"unknown game": {
			call: func() error {
				_, err := f.svc.GetGame(ctx, session.GetGameRequest{GameID: "missing", UserID: "u1"})
				return err
			},
			wantCode: errors.CodeNotFound,
		},
		"game of another user": {
			call: func() error {
				_, err := f.svc.GetGame(ctx, session.GetGameRequest{GameID: g.ID, UserID: "u2"})
				return err
			},
			wantCode: errors.CodePermissionDenied,
		},
		"answer game of another user": {
			call: func() error {
				_, err := f.svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{GameID: g.ID, UserID: "u2", Letter: "a"})
				return err
			},
			wantCode: errors.CodePermissionDenied,
		},
		"invalid letter": {
			call: func() error {
				_, err := f.svc.SubmitAnswer(ctx, session.SubmitAnswerRequest{GameID: g.ID, UserID: "u1", Letter: "e"})
				return err
			},
			wantCode: errors.CodeInvalidArgument,
		},
		"invalid help kind": {
			call: func() error {
				_, err := f.svc.UseHelp(ctx, session.UseHelpRequest{GameID: g.ID, UserID: "u1", Kind: "phone_home"})
				return err
			},
			wantCode: errors.CodeInvalidArgument,
		},
		"missing user": {
			call: func() error {
				_, err := f.svc.CreateGame(ctx, session.CreateGameRequest{})
				return err
			},
			wantCode: errors.CodeInvalidArgument,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.wantCode, errors.CodeOf(tt.call()))
		})
	}

	got, err := f.svc.GetGame(ctx, session.GetGameRequest{GameID: g.ID, UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 0, got.CurrentLevel)
	require.False(t, got.Finished())
}

func TestService_UseHelp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)

	g, err = f.svc.UseHelp(ctx, session.UseHelpRequest{GameID: g.ID, UserID: "u1", Kind: "fifty_fifty"})
	require.NoError(t, err)

	q := g.CurrentGameQuestion()
	require.Len(t, q.Help.FiftyFifty, 2)
	require.Contains(t, q.Help.FiftyFifty, q.CorrectAnswerKey())

	_, err = f.svc.UseHelp(ctx, session.UseHelpRequest{GameID: g.ID, UserID: "u1", Kind: "fifty_fifty"})
	require.ErrorIs(t, err, game.ErrHelpUsed)

	g, err = f.svc.UseHelp(ctx, session.UseHelpRequest{GameID: g.ID, UserID: "u1", Kind: "audience_help"})
	require.NoError(t, err)

	stored, err := f.svc.GetGame(ctx, session.GetGameRequest{GameID: g.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, q.Help.FiftyFifty, stored.CurrentGameQuestion().Help.FiftyFifty)
	assert.Len(t, stored.CurrentGameQuestion().Help.AudienceHelp, 2)

	f.bus.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]string, 0, len(f.helps))
	for _, h := range f.helps {
		kinds = append(kinds, h.Kind)
	}
	assert.ElementsMatch(t, []string{"fifty_fifty", "audience_help"}, kinds)
}

func TestService_CreditFailureKeepsGame(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
	require.NoError(t, err)
	g = f.answer(t, g, true).Game

	f.ledger.err = stderrors.New("ledger is down")

	_, err = f.svc.TakeMoney(ctx, session.TakeMoneyRequest{GameID: g.ID, UserID: "u1"})
	require.Error(t, err)

	got, err := f.svc.GetGame(ctx, session.GetGameRequest{GameID: g.ID, UserID: "u1"})
	require.NoError(t, err)
	require.False(t, got.Finished())
	require.Equal(t, 1, got.CurrentLevel)

	f.ledger.err = nil

	got, err = f.svc.TakeMoney(ctx, session.TakeMoneyRequest{GameID: g.ID, UserID: "u1"})
	require.NoError(t, err)
	require.True(t, got.Prize.Equal(decimal.NewFromInt(100)))
	require.True(t, f.balance(t, "u1").Equal(decimal.NewFromInt(100)))
	require.Len(t, f.finishedEvents(), 1)
}

func TestService_GetProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for range 2 {
		g, err := f.svc.CreateGame(ctx, session.CreateGameRequest{UserID: "u1"})
		require.NoError(t, err)
		g = f.answer(t, g, true).Game
		g = f.answer(t, g, true).Game

		_, err = f.svc.TakeMoney(ctx, session.TakeMoneyRequest{GameID: g.ID, UserID: "u1"})
		require.NoError(t, err)
	}

	p, err := f.svc.GetProfile(ctx, session.GetProfileRequest{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, p.Balance.Equal(decimal.NewFromInt(400)))
	require.Len(t, p.Games, 2)
}
