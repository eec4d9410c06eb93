package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/traslados-api/internal/domain/inventory"
)

func TestWeightedAverageCost(t *testing.T) {
	// 10 u a 100 + 10 u a 200 = 150
	got := inventory.WeightedAverageCost(10, decimal.NewFromInt(100), 10, decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(150)), "got %s", got)
}

func TestWeightedAverageCost_SinStockPrevio(t *testing.T) {
	got := inventory.WeightedAverageCost(0, decimal.Zero, 5, decimal.RequireFromString("12.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")), "got %s", got)
}
