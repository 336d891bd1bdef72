package game

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var (
	defaultPrizes = []int64{
		100, 200, 300, 500, 1_000,
		2_000, 4_000, 8_000, 16_000, 32_000,
		64_000, 125_000, 250_000, 500_000, 1_000_000,
	}

	defaultFireproofLevels = []int{4, 9}
)

// PrizeTable is the money ladder: the prize of every level and the fireproof levels.
type PrizeTable struct {
	prizes    []decimal.Decimal
	fireproof []int
}

// NewPrizeTable validates and builds a ladder. Prizes must strictly increase with the level
// and fireproof levels must be rungs of the ladder.
func NewPrizeTable(prizes []int64, fireproof []int) (*PrizeTable, error) {
	if len(prizes) == 0 {
		return nil, fmt.Errorf("prize table: no levels")
	}

	t := &PrizeTable{
		prizes:    make([]decimal.Decimal, 0, len(prizes)),
		fireproof: slices.Clone(fireproof),
	}

	for i, p := range prizes {
		if p <= 0 {
			return nil, fmt.Errorf("prize table: level %d: prize must be positive, got %d", i, p)
		}
		if i > 0 && p <= prizes[i-1] {
			return nil, fmt.Errorf("prize table: level %d: prize %d does not exceed previous level prize %d", i, p, prizes[i-1])
		}
		t.prizes = append(t.prizes, decimal.NewFromInt(p))
	}

	slices.Sort(t.fireproof)
	t.fireproof = slices.Compact(t.fireproof)
	for _, l := range t.fireproof {
		if l < 0 || l > t.MaxLevel() {
			return nil, fmt.Errorf("prize table: fireproof level %d out of range [0, %d]", l, t.MaxLevel())
		}
	}

	return t, nil
}

// DefaultPrizeTable returns the classic 15 level ladder with fireproof levels 4 and 9.
func DefaultPrizeTable() *PrizeTable {
	t, err := NewPrizeTable(defaultPrizes, defaultFireproofLevels)
	if err != nil {
		panic(err)
	}
	return t
}

func DefaultPrizes() []int64        { return slices.Clone(defaultPrizes) }
func DefaultFireproofLevels() []int { return slices.Clone(defaultFireproofLevels) }

// Levels returns the number of rungs.
func (t *PrizeTable) Levels() int { return len(t.prizes) }

func (t *PrizeTable) MaxLevel() int { return len(t.prizes) - 1 }

// PrizeFor returns the prize of level, zero outside of the ladder.
func (t *PrizeTable) PrizeFor(level int) decimal.Decimal {
	if level < 0 || level > t.MaxLevel() {
		return decimal.Zero
	}
	return t.prizes[level]
}

func (t *PrizeTable) IsFireproof(level int) bool {
	_, ok := slices.BinarySearch(t.fireproof, level)
	return ok
}

// FireproofPrize returns the prize of the highest fireproof level not above level, zero when
// level is below the first fireproof level.
func (t *PrizeTable) FireproofPrize(level int) decimal.Decimal {
	prize := decimal.Zero
	for _, l := range t.fireproof {
		if l > level {
			break
		}
		prize = t.prizes[l]
	}
	return prize
}
