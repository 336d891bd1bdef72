package game_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/millionaire/internal/game"
)

func TestDefaultPrizeTable(t *testing.T) {
	pt := game.DefaultPrizeTable()

	require.Equal(t, 15, pt.Levels())
	require.Equal(t, 14, pt.MaxLevel())
	assert.True(t, pt.PrizeFor(0).Equal(decimal.NewFromInt(100)))
	assert.True(t, pt.PrizeFor(14).Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, pt.PrizeFor(15).IsZero())
	assert.True(t, pt.PrizeFor(-1).IsZero())

	for l := 1; l <= pt.MaxLevel(); l++ {
		assert.True(t, pt.PrizeFor(l).GreaterThan(pt.PrizeFor(l-1)), "level %d", l)
	}

	assert.True(t, pt.IsFireproof(4))
	assert.True(t, pt.IsFireproof(9))
	assert.False(t, pt.IsFireproof(5))
}

func TestPrizeTable_FireproofPrize(t *testing.T) {
	pt := game.DefaultPrizeTable()

	tests := map[string]struct {
		level int
		want  int64
	}{
		"before any level":         {level: -1, want: 0},
		"below first fireproof":    {level: 3, want: 0},
		"at first fireproof":       {level: 4, want: 1_000},
		"between fireproof levels": {level: 8, want: 1_000},
		"at second fireproof":      {level: 9, want: 32_000},
		"above second fireproof":   {level: 13, want: 32_000},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := pt.FireproofPrize(tt.level)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestNewPrizeTable_Invalid(t *testing.T) {
	tests := map[string]struct {
		prizes    []int64
		fireproof []int
	}{
		"empty":              {prizes: nil},
		"not increasing":     {prizes: []int64{100, 100, 300}},
		"decreasing":         {prizes: []int64{300, 200}},
		"non positive":       {prizes: []int64{0, 100}},
		"fireproof over max": {prizes: []int64{100, 200}, fireproof: []int{2}},
		"negative fireproof": {prizes: []int64{100, 200}, fireproof: []int{-1}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := game.NewPrizeTable(tt.prizes, tt.fireproof)
			require.Error(t, err)
		})
	}
}
