package optimizer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// budgetTol is the slack allowed when checking n*lo <= 1 <= n*hi.
	budgetTol = 1e-12
	// sumTol is the largest accepted |Σw - 1| after projection.
	sumTol = 1e-9
	// returnTol is the largest accepted |μᵗw - target| after projection.
	returnTol = 1e-10
	// maxBisections caps the return-multiplier search.
	maxBisections = 200
)

// projector writes the Euclidean projection of x onto a feasible set into dst
// and reports false when the set is empty. dst may alias x.
type projector func(dst, x []float64) bool

// projectBudget projects x onto {w : Σw = 1, lo <= w_i <= hi}. The solution
// is clip(x - τ, lo, hi) for the unique shift τ that meets the budget; the
// budget sum is piecewise linear in τ with kinks at x_i - hi and x_i - lo, so τ
// is found exactly by searching the sorted kinks and interpolating.
func projectBudget(dst, x []float64, lo, hi float64) bool {
	n := len(x)
	if n == 0 || float64(n)*lo > 1+budgetTol || float64(n)*hi < 1-budgetTol {
		return false
	}

	kinks := make([]float64, 0, 2*n)
	for _, v := range x {
		kinks = append(kinks, v-hi, v-lo)
	}
	sort.Float64s(kinks)

	sum := func(tau float64) float64 {
		var s float64
		for _, v := range x {
			s += clamp(v-tau, lo, hi)
		}
		return s
	}

	a, b := 0, len(kinks)-1
	sa, sb := sum(kinks[a]), sum(kinks[b])
	for b-a > 1 {
		m := (a + b) / 2
		if sm := sum(kinks[m]); sm >= 1 {
			a, sa = m, sm
		} else {
			b, sb = m, sm
		}
	}

	tau := kinks[a]
	if sa > sb {
		tau += (sa - 1) / (sa - sb) * (kinks[b] - kinks[a])
	}
	for i, v := range x {
		dst[i] = clamp(v-tau, lo, hi)
	}
	return settleBudget(dst, lo, hi)
}

// settleBudget spreads the rounding error of the kink search over the free
// coordinates of w and reports whether w meets the budget within sumTol.
func settleBudget(w []float64, lo, hi float64) bool {
	excess := floats.Sum(w) - 1
	if math.IsNaN(excess) {
		return false
	}
	if math.Abs(excess) <= sumTol {
		return true
	}
	free := 0
	for _, v := range w {
		if v > lo && v < hi {
			free++
		}
	}
	if free > 0 {
		shift := excess / float64(free)
		for i, v := range w {
			if v > lo && v < hi {
				w[i] = clamp(v-shift, lo, hi)
			}
		}
	}
	return math.Abs(floats.Sum(w)-1) <= sumTol
}

// returnRange returns the lowest and highest portfolio return reachable
// under the budget and box constraints. Both are fractional-knapsack
// solutions: start every weight at lo and hand the remaining budget to the
// worst (or best) assets first.
func returnRange(mu []float64, lo, hi float64) (float64, float64) {
	order := make([]int, len(mu))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return mu[order[a]] < mu[order[b]] })

	fill := func(idx []int) float64 {
		w := make([]float64, len(mu))
		remaining := 1.0
		for i := range w {
			w[i] = lo
			remaining -= lo
		}
		for _, i := range idx {
			add := math.Min(hi-lo, math.Max(remaining, 0))
			w[i] += add
			remaining -= add
		}
		return floats.Dot(mu, w)
	}

	reversed := make([]int, len(order))
	for i, v := range order {
		reversed[len(order)-1-i] = v
	}
	return fill(order), fill(reversed)
}

// projectBudgetReturn projects x onto {w : Σw = 1, μᵗw = target, lo <= w_i <= hi}.
// The solution is clip(x - τ - λμ, lo, hi); for each λ the budget shift τ is
// exact, and the achieved return is non-increasing in λ, so λ is bisected.
func projectBudgetReturn(dst, x, mu []float64, target, lo, hi float64) bool {
	n := len(x)
	base := append([]float64(nil), x...)
	shifted := make([]float64, n)

	eval := func(lambda float64) (float64, bool) {
		for i := range shifted {
			shifted[i] = base[i] - lambda*mu[i]
		}
		if !projectBudget(dst, shifted, lo, hi) {
			return 0, false
		}
		return floats.Dot(mu, dst), true
	}

	spread := floats.Max(mu) - floats.Min(mu)
	if spread <= 0 {
		r, ok := eval(0)
		return ok && math.Abs(r-target) <= returnTol
	}

	step := (1 + floats.Norm(base, math.Inf(1))) / spread
	lo2, hi2 := -step, step
	rLo, ok := eval(lo2)
	for i := 0; ok && rLo < target-returnTol && i < 64; i++ {
		lo2 *= 2
		rLo, ok = eval(lo2)
	}
	if !ok || rLo < target-returnTol {
		return false
	}
	rHi, ok := eval(hi2)
	for i := 0; ok && rHi > target+returnTol && i < 64; i++ {
		hi2 *= 2
		rHi, ok = eval(hi2)
	}
	if !ok || rHi > target+returnTol {
		return false
	}

	best, bestGap := lo2, math.Abs(rLo-target)
	if g := math.Abs(rHi - target); g < bestGap {
		best, bestGap = hi2, g
	}
	for i := 0; i < maxBisections && bestGap > returnTol*1e-3; i++ {
		mid := lo2 + (hi2-lo2)/2
		if mid == lo2 || mid == hi2 {
			break
		}
		r, ok := eval(mid)
		if !ok {
			break
		}
		if g := math.Abs(r - target); g < bestGap {
			best, bestGap = mid, g
		}
		if r > target {
			lo2 = mid
		} else {
			hi2 = mid
		}
	}

	r, ok := eval(best)
	return ok && math.Abs(r-target) <= returnTol
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
