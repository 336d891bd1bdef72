package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
)

const DefaultTimeLimit = 35 * time.Minute

// QuestionSource supplies the question pool of a level.
type QuestionSource interface {
	QuestionsAtLevel(ctx context.Context, level int) ([]domain.Question, error)
}

type Config struct {
	Prizes    *PrizeTable
	TimeLimit time.Duration
	HelpScope HelpScope
	Rand      Rand
	Now       func() time.Time

	Friends            []string
	FriendCallTemplate string
}

// Engine runs the rules of the game. Games are plain data, the engine moves them between states.
type Engine struct {
	prizes    *PrizeTable
	timeLimit time.Duration
	helpScope HelpScope
	rand      Rand
	now       func() time.Time
	helper    *Helper
}

func NewEngine(c Config) *Engine {
	e := &Engine{
		prizes:    c.Prizes,
		timeLimit: c.TimeLimit,
		helpScope: c.HelpScope,
		rand:      c.Rand,
		now:       c.Now,
	}

	if e.prizes == nil {
		e.prizes = DefaultPrizeTable()
	}
	if e.timeLimit <= 0 {
		e.timeLimit = DefaultTimeLimit
	}
	if e.helpScope == "" {
		e.helpScope = HelpScopeQuestion
	}
	if e.rand == nil {
		e.rand = DefaultRand()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.helper = NewHelper(e.rand, c.Friends, c.FriendCallTemplate)

	return e
}

func (e *Engine) Prizes() *PrizeTable { return e.prizes }

func (e *Engine) TimeLimit() time.Duration { return e.timeLimit }

// NewGame creates a game for user with one random question of every level, ordered by level.
func (e *Engine) NewGame(ctx context.Context, userID string, src QuestionSource) (*Game, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate game ID: %w", err)
	}

	g := &Game{
		ID:        id.String(),
		UserID:    userID,
		Questions: make([]*GameQuestion, 0, e.prizes.Levels()),
		Prize:     decimal.Zero,
		CreatedAt: e.now(),
	}

	for level := range e.prizes.Levels() {
		pool, err := src.QuestionsAtLevel(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("questions at level %d: %w", level, err)
		}

		if len(pool) == 0 {
			return nil, failedPrecondition(ErrNotEnoughQuestions, "no questions available at level %d", level)
		}

		q := pool[e.rand.IntN(len(pool))]
		q.Level = level
		g.Questions = append(g.Questions, NewGameQuestion(q, e.rand))
	}

	return g, nil
}

// Status derives the status of g from its fields.
func (e *Engine) Status(g *Game) Status {
	switch {
	case g.FinishedAt == nil:
		return StatusInProgress
	case g.IsFailed && g.FinishedAt.Sub(g.CreatedAt) > e.timeLimit:
		return StatusTimeout
	case g.IsFailed:
		return StatusFail
	case g.CurrentLevel > e.prizes.MaxLevel():
		return StatusWon
	default:
		return StatusMoney
	}
}

// Deadline returns the moment an unfinished game times out.
func (e *Engine) Deadline(g *Game) time.Time {
	return g.CreatedAt.Add(e.timeLimit)
}

// Expired reports whether g is unfinished and older than the time limit.
func (e *Engine) Expired(g *Game) bool {
	return !g.Finished() && e.now().Sub(g.CreatedAt) > e.timeLimit
}

// Expire times out g if it is expired, keeping the fireproof prize. It reports whether it did.
func (e *Engine) Expire(g *Game) bool {
	if !e.Expired(g) {
		return false
	}

	e.finish(g, e.prizes.FireproofPrize(g.CurrentLevel), true)
	return true
}

// AnswerCurrentQuestion answers the current question with letter and reports whether the answer
// was correct. An expired game times out instead and the answer is not evaluated.
func (e *Engine) AnswerCurrentQuestion(g *Game, letter string) (bool, error) {
	if g.Finished() {
		return false, failedPrecondition(ErrGameFinished, "game %s is finished", g.ID)
	}

	if e.Expire(g) {
		return false, nil
	}

	l, err := ParseLetter(letter)
	if err != nil {
		return false, err
	}

	q := g.CurrentGameQuestion()
	if q == nil {
		return false, errors.Internal(fmt.Errorf("game %s: no question at level %d", g.ID, g.CurrentLevel))
	}

	if !q.AnswerCorrect(string(l)) {
		e.finish(g, e.prizes.FireproofPrize(g.CurrentLevel), true)
		return false, nil
	}

	g.CurrentLevel++
	if g.CurrentLevel > e.prizes.MaxLevel() {
		e.finish(g, e.prizes.PrizeFor(e.prizes.MaxLevel()), false)
	}

	return true, nil
}

// TakeMoney finishes g with the prize of the last answered level.
func (e *Engine) TakeMoney(g *Game) error {
	if g.Finished() {
		return failedPrecondition(ErrGameFinished, "game %s is finished", g.ID)
	}

	if e.Expire(g) {
		return nil
	}

	if g.PreviousLevel() < 0 {
		return failedPrecondition(ErrNothingToTake, "game %s: answer at least one question before taking the money", g.ID)
	}

	e.finish(g, e.prizes.PrizeFor(g.PreviousLevel()), false)
	return nil
}

// UseHelp applies a hint of kind to the current question. A kind is used once per question,
// or once per game with HelpScopeGame.
func (e *Engine) UseHelp(g *Game, kind HelpKind) error {
	if _, err := ParseHelpKind(string(kind)); err != nil {
		return err
	}

	if g.Finished() {
		return failedPrecondition(ErrGameFinished, "game %s is finished", g.ID)
	}

	if e.Expire(g) {
		return nil
	}

	q := g.CurrentGameQuestion()
	if q == nil {
		return errors.Internal(fmt.Errorf("game %s: no question at level %d", g.ID, g.CurrentLevel))
	}

	if e.helpScope == HelpScopeGame && g.HelpUsed(kind) {
		return failedPrecondition(ErrHelpUsed, "help %s is already used in game %s", kind, g.ID)
	}

	return q.ApplyHelp(kind, e.helper)
}

func (e *Engine) finish(g *Game, prize decimal.Decimal, failed bool) {
	now := e.now()
	g.FinishedAt = &now
	g.IsFailed = failed
	g.Prize = prize
}
