package core

import (
	"math"
	"time"
)

// Bar is a single closing price observation
type Bar struct {
	Symbol string
	Close  float64
	Time   time.Time
}

// IsValid checks if the bar has required fields
func (b Bar) IsValid() bool {
	return b.Symbol != "" && !b.Time.IsZero() && b.Close > 0 && !math.IsInf(b.Close, 0)
}

// PriceSeries holds date-aligned price histories, one sequence per asset.
// Prices[i] belongs to Assets[i] and Prices[i][t] was observed at Dates[t].
type PriceSeries struct {
	Assets []string
	Dates  []time.Time
	Prices [][]float64
}

// Len returns the number of observations per asset.
func (p PriceSeries) Len() int {
	return len(p.Dates)
}

// Index returns the position of asset in the series, or -1.
func (p PriceSeries) Index(asset string) int {
	for i, a := range p.Assets {
		if a == asset {
			return i
		}
	}
	return -1
}

// Validate checks shape and value invariants: at least one asset, every
// sequence aligned to Dates, strictly positive finite prices and at least two
// observations.
func (p PriceSeries) Validate() error {
	if len(p.Assets) == 0 {
		return Errorf(ErrNoData, "asset universe is empty")
	}
	if len(p.Prices) != len(p.Assets) {
		return Errorf(ErrDimensionMismatch, "%d assets but %d price sequences", len(p.Assets), len(p.Prices))
	}
	seen := make(map[string]struct{}, len(p.Assets))
	for i, asset := range p.Assets {
		if _, dup := seen[asset]; dup {
			return Errorf(ErrDimensionMismatch, "duplicate asset %s", asset)
		}
		seen[asset] = struct{}{}

		prices := p.Prices[i]
		if len(prices) < 2 {
			return Errorf(ErrInsufficientData, "asset %s has %d observations, need at least 2", asset, len(prices))
		}
		if len(prices) != len(p.Dates) {
			return Errorf(ErrDimensionMismatch, "asset %s has %d prices for %d dates", asset, len(prices), len(p.Dates))
		}
		for t, v := range prices {
			if !(v > 0) || math.IsInf(v, 0) {
				return Errorf(ErrInvalidParameter, "asset %s has non-positive or non-finite price %v at %d", asset, v, t)
			}
		}
	}
	return nil
}
