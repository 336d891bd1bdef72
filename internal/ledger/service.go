package ledger

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/postgres"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service keeps user balances in Postgres. Credits join the transaction of the context, if any.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
	}
}

// Credit records the payout of a game and adds it to the user balance, returning the new balance.
// A game is paid at most once.
func (s *Service) Credit(ctx context.Context, p domain.Payout) (decimal.Decimal, error) {
	if err := validatePayout(p); err != nil {
		return decimal.Zero, err
	}

	const stmt = `
WITH payout AS (
	INSERT INTO payouts (game_id, user_id, amount)
	VALUES ($1, $2, $3)
	RETURNING user_id, amount
)
INSERT INTO balances (user_id, balance)
SELECT user_id, amount FROM payout
ON CONFLICT (user_id) DO UPDATE
SET balance = balances.balance + EXCLUDED.balance, update_time = NOW()
RETURNING balance;`

	var balance decimal.Decimal
	err := postgres.Q(ctx, s.db).QueryRow(ctx, stmt, p.GameID, p.UserID, p.Amount).Scan(&balance)
	if postgres.IsUniqueViolation(err) {
		return decimal.Zero, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("game %s is already paid", p.GameID),
			errors.WithCause(err),
		)
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: %w", err)
	}

	return balance, nil
}

// Balance returns the balance of a user, zero for users never paid.
func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	const stmt = `SELECT balance FROM balances WHERE user_id = $1;`

	var balance decimal.Decimal
	err := postgres.Q(ctx, s.db).QueryRow(ctx, stmt, userID).Scan(&balance)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}

	return balance, nil
}

func validatePayout(p domain.Payout) error {
	if p.GameID == "" || p.UserID == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("payout needs a game and a user"))
	}

	if !p.Amount.IsPositive() {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("payout amount must be positive, got %s", p.Amount))
	}

	return nil
}
