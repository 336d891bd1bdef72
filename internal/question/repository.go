package question

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/millionaire/internal/domain"
)

type Config struct {
	DB *pgxpool.Pool
}

// Repository reads the question pool from Postgres.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(c Config) *Repository {
	return &Repository{
		db: c.DB,
	}
}

// QuestionsAtLevel returns every question of level.
func (r *Repository) QuestionsAtLevel(ctx context.Context, level int) ([]domain.Question, error) {
	const stmt = `
SELECT id, level, text, answer1, answer2, answer3, answer4
FROM questions
WHERE level = $1;`

	rows, err := r.db.Query(ctx, stmt, level)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	qs, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	return qs, nil
}

// CountByLevel returns the size of the pool of every level that has questions.
func (r *Repository) CountByLevel(ctx context.Context) (map[int]int, error) {
	const stmt = `SELECT level, COUNT(*) FROM questions GROUP BY level;`

	rows, err := r.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var level, n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}

	return counts, rows.Err()
}

// Insert adds questions to the pool in one batch and sets their IDs.
func (r *Repository) Insert(ctx context.Context, qs []domain.Question) error {
	const stmt = `
INSERT INTO questions (level, text, answer1, answer2, answer3, answer4)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;`

	b := new(pgx.Batch)
	for i := range qs {
		q := &qs[i]
		b.Queue(stmt, q.Level, q.Text, q.Answers[0], q.Answers[1], q.Answers[2], q.Answers[3]).
			QueryRow(func(row pgx.Row) error {
				return row.Scan(&q.ID)
			})
	}

	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return nil
}

func scanQuestion(r pgx.CollectableRow) (domain.Question, error) {
	var q domain.Question
	err := r.Scan(&q.ID, &q.Level, &q.Text, &q.Answers[0], &q.Answers[1], &q.Answers[2], &q.Answers[3])
	return q, err
}
