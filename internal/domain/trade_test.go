package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceWith(proportions ...float64) TradeTimeSlice {
	start, end := day("2022-01-03"), day("2022-02-01")
	s := TradeTimeSlice{Start: start, End: end}
	for i, p := range proportions {
		s.Trades = append(s.Trades, Trade{
			Symbol:     string(rune('A' + i)),
			Proportion: p,
			Start:      start,
			End:        end,
		})
	}
	return s
}

func TestTradeTimeSlice_Validate(t *testing.T) {
	require.NoError(t, sliceWith(0.25, 0.25, 0.25, 0.25).Validate())
	require.NoError(t, sliceWith(0.5, 0.3).Validate())

	// 1/3 × 3 no debe fallar por redondeo
	require.NoError(t, sliceWith(1.0/3, 1.0/3, 1.0/3).Validate())

	assert.ErrorIs(t, sliceWith(0.6, 0.6).Validate(), ErrInvalidSelection)
	assert.ErrorIs(t, sliceWith(0).Validate(), ErrInvalidSelection)
	assert.ErrorIs(t, sliceWith(-0.1).Validate(), ErrInvalidSelection)
	assert.ErrorIs(t, sliceWith(1.2).Validate(), ErrInvalidSelection)
}

func TestTradeTimeSlice_Validate_TradeDatesMustMatchSlice(t *testing.T) {
	s := sliceWith(0.5)
	s.Trades[0].End = day("2022-03-01")

	assert.ErrorIs(t, s.Validate(), ErrInvalidSelection)
}

func TestTradeTimeSlice_CashResidual(t *testing.T) {
	assert.InDelta(t, 0.2, sliceWith(0.5, 0.3).CashResidual(), 1e-9)
	assert.InDelta(t, 0.0, sliceWith(0.25, 0.25, 0.25, 0.25).CashResidual(), 1e-9)
	assert.InDelta(t, 1.0, sliceWith().CashResidual(), 1e-9)
}

func TestPriceSeries_At(t *testing.T) {
	s := PriceSeries{
		{Date: day("2022-01-03"), Close: 100},
		{Date: day("2022-01-04"), Close: 101},
		{Date: day("2022-01-06"), Close: 99},
	}

	v, ok := s.At(day("2022-01-04"))
	require.True(t, ok)
	assert.Equal(t, 101.0, v)

	_, ok = s.At(day("2022-01-05"))
	assert.False(t, ok)

	assert.Equal(t, 100.0, s.First().Close)
	assert.Equal(t, 99.0, s.Last().Close)
}
