package optimizer

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Weights is a long-only allocation aligned to the asset universe.
type Weights []float64

// Sum returns the total allocation.
func (w Weights) Sum() float64 {
	return floats.Sum(w)
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	return append(Weights(nil), w...)
}

// Performance returns the expected return wᵗμ and volatility sqrt(wᵗΣw).
func Performance(w, mu []float64, cov mat.Symmetric) (float64, float64) {
	ret := floats.Dot(w, mu)
	wv := mat.NewVecDense(len(w), append([]float64(nil), w...))
	variance := mat.Inner(wv, cov, wv)
	if variance < 0 {
		// rounding on a PSD matrix
		variance = 0
	}
	return ret, math.Sqrt(variance)
}

// Sharpe returns (ret - rf) / vol. A zero volatility yields ±Inf or NaN.
func Sharpe(ret, vol, rf float64) float64 {
	return (ret - rf) / vol
}
