// Package riskmodel turns aligned price histories into per-period returns
// and annualised first and second moments.
package riskmodel

import (
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"gonum.org/v1/gonum/mat"
)

// DefaultPeriodsPerYear is the number of trading days used to annualise daily moments.
const DefaultPeriodsPerYear = 252

// ReturnSeries holds simple per-period returns, one sequence per asset.
// It has one observation fewer than the PriceSeries it was derived from.
type ReturnSeries struct {
	Assets  []string
	Dates   []time.Time
	Returns [][]float64
}

// Observations returns the number of return periods.
func (r *ReturnSeries) Observations() int {
	if len(r.Returns) == 0 {
		return 0
	}
	return len(r.Returns[0])
}

// Matrix lays the returns out as observations x assets.
func (r *ReturnSeries) Matrix() *mat.Dense {
	rows, cols := r.Observations(), len(r.Assets)
	data := make([]float64, rows*cols)
	for j, series := range r.Returns {
		for t, v := range series {
			data[t*cols+j] = v
		}
	}
	return mat.NewDense(rows, cols, data)
}

// ComputeReturns calculates (p[t]-p[t-1])/p[t-1] for every asset, dropping
// the first period which has no prior price.
func ComputeReturns(prices core.PriceSeries) (*ReturnSeries, error) {
	for i, asset := range prices.Assets {
		if i < len(prices.Prices) && len(prices.Prices[i]) < 2 {
			return nil, core.Errorf(core.ErrInsufficientData,
				"asset %s has %d observations, need at least 2", asset, len(prices.Prices[i]))
		}
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	out := &ReturnSeries{
		Assets:  append([]string(nil), prices.Assets...),
		Dates:   append([]time.Time(nil), prices.Dates[1:]...),
		Returns: make([][]float64, len(prices.Assets)),
	}
	for i, series := range prices.Prices {
		rets := make([]float64, len(series)-1)
		for t := 1; t < len(series); t++ {
			rets[t-1] = (series[t] - series[t-1]) / series[t-1]
		}
		out.Returns[i] = rets
	}
	return out, nil
}
