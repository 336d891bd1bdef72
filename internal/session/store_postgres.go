package session

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/game"
	"github.com/victornm/millionaire/internal/postgres"
)

// PostgresStore keeps games in Postgres. Update locks the game row for the duration of fn and
// shares its transaction through the context.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, g *game.Game) error {
	return postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		const (
			insGameStmt = `
INSERT INTO games (game_id, user_id, current_level, is_failed, prize, created_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`
			insQuestionStmt = `
INSERT INTO game_questions (game_id, level, question_id, a, b, c, d, help)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
		)

		q := postgres.Q(ctx, s.db)

		_, err := q.Exec(ctx, insGameStmt, g.ID, g.UserID, g.CurrentLevel, g.IsFailed, g.Prize, g.CreatedAt, g.FinishedAt)
		if postgres.IsUniqueViolation(err) {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("user %s already has a game in progress", g.UserID),
				errors.WithCause(err),
			)
		}
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		b := new(pgx.Batch)
		for _, gq := range g.Questions {
			b.Queue(insQuestionStmt, g.ID, gq.Level(), gq.Question.ID, gq.A, gq.B, gq.C, gq.D, gq.Help)
		}

		if err := q.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("insert game questions: %w", err)
		}

		return nil
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*game.Game, error) {
	return s.load(ctx, id, false)
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn func(ctx context.Context, g *game.Game) error) error {
	return postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		g, err := s.load(ctx, id, true)
		if err != nil {
			return err
		}

		if err := fn(ctx, g); err != nil {
			return err
		}

		return s.save(ctx, g)
	})
}

func (s *PostgresStore) Unfinished(ctx context.Context, userID string) (*game.Game, error) {
	const stmt = `SELECT game_id::text FROM games WHERE user_id = $1 AND finished_at IS NULL;`

	var id string
	err := postgres.Q(ctx, s.db).QueryRow(ctx, stmt, userID).Scan(&id)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query unfinished game: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*game.Game, error) {
	const stmt = `
SELECT game_id::text, user_id, current_level, is_failed, prize, created_at, finished_at
FROM games
WHERE user_id = $1
ORDER BY created_at DESC;`

	rows, err := postgres.Q(ctx, s.db).Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}

	games, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (*game.Game, error) {
		var g game.Game
		err := r.Scan(&g.ID, &g.UserID, &g.CurrentLevel, &g.IsFailed, &g.Prize, &g.CreatedAt, &g.FinishedAt)
		return &g, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect games: %w", err)
	}

	return games, nil
}

func (s *PostgresStore) load(ctx context.Context, id string, lock bool) (*game.Game, error) {
	gameStmt := `
SELECT game_id::text, user_id, current_level, is_failed, prize, created_at, finished_at
FROM games
WHERE game_id = $1`
	if lock {
		gameStmt += ` FOR UPDATE`
	}

	const questionsStmt = `
SELECT gq.a, gq.b, gq.c, gq.d, gq.help, q.id, gq.level, q.text, q.answer1, q.answer2, q.answer3, q.answer4
FROM game_questions gq
JOIN questions q ON q.id = gq.question_id
WHERE gq.game_id = $1
ORDER BY gq.level;`

	q := postgres.Q(ctx, s.db)

	var g game.Game
	err := q.QueryRow(ctx, gameStmt, id).Scan(&g.ID, &g.UserID, &g.CurrentLevel, &g.IsFailed, &g.Prize, &g.CreatedAt, &g.FinishedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("game %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query game %s: %w", id, err)
	}

	rows, err := q.Query(ctx, questionsStmt, id)
	if err != nil {
		return nil, fmt.Errorf("query game questions: %w", err)
	}

	g.Questions, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (*game.GameQuestion, error) {
		var gq game.GameQuestion
		qq := &gq.Question
		err := r.Scan(&gq.A, &gq.B, &gq.C, &gq.D, &gq.Help,
			&qq.ID, &qq.Level, &qq.Text, &qq.Answers[0], &qq.Answers[1], &qq.Answers[2], &qq.Answers[3])
		return &gq, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect game questions: %w", err)
	}

	return &g, nil
}

// save writes the game row and the hints of the questions reached so far, later ones are untouched.
func (s *PostgresStore) save(ctx context.Context, g *game.Game) error {
	const (
		updGameStmt = `
UPDATE games
SET current_level = $2, is_failed = $3, prize = $4, finished_at = $5
WHERE game_id = $1;`
		updHelpStmt = `UPDATE game_questions SET help = $3 WHERE game_id = $1 AND level = $2;`
	)

	b := new(pgx.Batch)
	b.Queue(updGameStmt, g.ID, g.CurrentLevel, g.IsFailed, g.Prize, g.FinishedAt)
	for _, gq := range g.Questions {
		if gq.Level() > g.CurrentLevel {
			break
		}
		b.Queue(updHelpStmt, g.ID, gq.Level(), gq.Help)
	}

	if err := postgres.Q(ctx, s.db).SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}

	return nil
}
