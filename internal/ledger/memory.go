package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/errors"
)

// Memory is an in-process ledger with the same rules as Service.
type Memory struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	payouts  map[string]domain.Payout
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]decimal.Decimal),
		payouts:  make(map[string]domain.Payout),
	}
}

func (m *Memory) Credit(_ context.Context, p domain.Payout) (decimal.Decimal, error) {
	if err := validatePayout(p); err != nil {
		return decimal.Zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payouts[p.GameID]; ok {
		return decimal.Zero, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("game %s is already paid", p.GameID))
	}

	m.payouts[p.GameID] = p
	m.balances[p.UserID] = m.balances[p.UserID].Add(p.Amount)

	return m.balances[p.UserID], nil
}

func (m *Memory) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balances[userID], nil
}

// Payouts returns the payouts made to a user.
func (m *Memory) Payouts(userID string) []domain.Payout {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ps []domain.Payout
	for _, p := range m.payouts {
		if p.UserID == userID {
			ps = append(ps, p)
		}
	}
	return ps
}
