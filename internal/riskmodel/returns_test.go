package riskmodel

import (
	"testing"
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func samplePrices() core.PriceSeries {
	return core.PriceSeries{
		Assets: []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"},
		Dates:  dates(6),
		Prices: [][]float64{
			{100, 102, 101, 105, 104, 108},
			{50, 49, 51, 52, 50, 53},
			{20, 20.5, 20.2, 20.8, 21.1, 20.9},
		},
	}
}

func TestComputeReturns_Values(t *testing.T) {
	rs, err := ComputeReturns(samplePrices())
	require.NoError(t, err)

	assert.Equal(t, []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}, rs.Assets)
	assert.Equal(t, 5, rs.Observations())
	assert.Len(t, rs.Dates, 5)
	assert.InDelta(t, 0.02, rs.Returns[0][0], 1e-12)
	assert.InDelta(t, -0.02, rs.Returns[1][0], 1e-12)
	assert.InDelta(t, (101.0-102.0)/102.0, rs.Returns[0][1], 1e-12)
}

func TestComputeReturns_ReconstructsPrices(t *testing.T) {
	prices := samplePrices()
	rs, err := ComputeReturns(prices)
	require.NoError(t, err)

	for i, series := range prices.Prices {
		require.Len(t, rs.Returns[i], len(series)-1)

		p := series[0]
		for t2, r := range rs.Returns[i] {
			p *= 1 + r
			assert.InDelta(t, series[t2+1], p, 1e-9, "asset %s period %d", prices.Assets[i], t2+1)
		}
	}
}

func TestComputeReturns_InsufficientData(t *testing.T) {
	prices := core.PriceSeries{
		Assets: []string{"A", "B"},
		Dates:  dates(1),
		Prices: [][]float64{{10}, {20}},
	}

	_, err := ComputeReturns(prices)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestComputeReturns_DoesNotAliasInput(t *testing.T) {
	prices := samplePrices()
	rs, err := ComputeReturns(prices)
	require.NoError(t, err)

	rs.Assets[0] = "changed"
	assert.Equal(t, "RELIANCE.NS", prices.Assets[0])
}

func TestReturnSeries_Matrix(t *testing.T) {
	rs := &ReturnSeries{
		Assets:  []string{"A", "B"},
		Returns: [][]float64{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}},
	}

	m := rs.Matrix()
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 0.2, m.At(1, 0))
	assert.Equal(t, -0.3, m.At(2, 1))
}
