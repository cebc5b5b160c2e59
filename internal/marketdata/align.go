package marketdata

import (
	"math"
	"sort"
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

// day truncates t to its UTC calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Align builds a PriceSeries over the union of observed dates. Gaps are
// forward-filled and leading gaps back-filled from the first observation.
// Assets without a single valid bar are dropped and returned separately, in
// the order they were requested. Invalid bars are ignored; when several bars
// fall on the same day the last one wins.
func Align(bars map[string][]core.Bar, assets []string) (core.PriceSeries, []string, error) {
	var (
		kept    []string
		dropped []string
		byAsset = make(map[string]map[time.Time]float64, len(assets))
		seen    = make(map[string]struct{}, len(assets))
		union   = make(map[time.Time]struct{})
	)

	for _, asset := range assets {
		if _, dup := seen[asset]; dup {
			continue
		}
		seen[asset] = struct{}{}
		obs := make(map[time.Time]float64)
		for _, b := range bars[asset] {
			if !b.IsValid() {
				continue
			}
			d := day(b.Time)
			obs[d] = b.Close
			union[d] = struct{}{}
		}
		if len(obs) == 0 {
			dropped = append(dropped, asset)
			continue
		}
		byAsset[asset] = obs
		kept = append(kept, asset)
	}

	if len(kept) == 0 {
		return core.PriceSeries{}, dropped, core.Errorf(core.ErrNoData, "no price data for any of %d assets", len(assets))
	}

	dates := make([]time.Time, 0, len(union))
	for d := range union {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	series := core.PriceSeries{
		Assets: kept,
		Dates:  dates,
		Prices: make([][]float64, len(kept)),
	}
	for i, asset := range kept {
		obs := byAsset[asset]
		prices := make([]float64, len(dates))
		last := math.NaN()
		for t, d := range dates {
			if v, ok := obs[d]; ok {
				last = v
			}
			prices[t] = last
		}
		// leading gap: back-fill from the first observation
		first := 0
		for first < len(prices) && math.IsNaN(prices[first]) {
			first++
		}
		for t := 0; t < first; t++ {
			prices[t] = prices[first]
		}
		series.Prices[i] = prices
	}
	return series, dropped, nil
}
