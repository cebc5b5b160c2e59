package riskmodel

import (
	"math"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MaxConditionNumber is the 2-norm condition number above which a covariance
// estimate is reported as ill-conditioned.
const MaxConditionNumber = 1e12

// Moments holds annualised moment estimates. ExpectedReturns[i] and row/column
// i of Covariance both refer to Assets[i].
type Moments struct {
	Assets          []string
	ExpectedReturns []float64
	Covariance      *mat.SymDense
}

// AnnualizedExpectedReturns returns the per-asset mean period return scaled by periodsPerYear.
func AnnualizedExpectedReturns(returns *ReturnSeries, periodsPerYear int) []float64 {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	mu := make([]float64, len(returns.Returns))
	for i, series := range returns.Returns {
		mu[i] = stat.Mean(series, nil) * float64(periodsPerYear)
	}
	return mu
}

// AnnualizedCovariance returns the sample covariance of period returns scaled
// by periodsPerYear. The result is symmetric by construction.
func AnnualizedCovariance(returns *ReturnSeries, periodsPerYear int) (*mat.SymDense, error) {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	n := len(returns.Assets)
	if n == 0 {
		return nil, core.Errorf(core.ErrNoData, "no assets in return series")
	}
	if obs := returns.Observations(); obs < 2 {
		return nil, core.Errorf(core.ErrInsufficientData, "covariance needs at least 2 return observations, got %d", obs)
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns.Matrix(), nil)
	cov.ScaleSym(float64(periodsPerYear), cov)
	return cov, nil
}

// Estimate derives returns and both annualised moments from prices.
func Estimate(prices core.PriceSeries, periodsPerYear int) (*Moments, error) {
	returns, err := ComputeReturns(prices)
	if err != nil {
		return nil, err
	}
	cov, err := AnnualizedCovariance(returns, periodsPerYear)
	if err != nil {
		return nil, err
	}
	return &Moments{
		Assets:          returns.Assets,
		ExpectedReturns: AnnualizedExpectedReturns(returns, periodsPerYear),
		Covariance:      cov,
	}, nil
}

// ConditionNumber returns the 2-norm condition number of cov. A singular
// matrix yields +Inf.
func ConditionNumber(cov mat.Symmetric) float64 {
	return mat.Cond(cov, 2)
}

// IsIllConditioned reports whether cov is unreliable for inversion: either the
// history is not longer than the asset count, which makes the sample matrix
// rank deficient, or its condition number exceeds MaxConditionNumber.
func IsIllConditioned(returns *ReturnSeries, cov mat.Symmetric) bool {
	if returns != nil && returns.Observations() <= len(returns.Assets) {
		return true
	}
	c := ConditionNumber(cov)
	return math.IsInf(c, 1) || math.IsNaN(c) || c > MaxConditionNumber
}

// Shrink blends cov toward its own diagonal: (1-intensity)*S + intensity*diag(S).
// Off-diagonal terms are scaled down while variances are kept, so the result
// is positive definite for intensity in (0, 1] whenever every variance is positive.
func Shrink(cov mat.Symmetric, intensity float64) (*mat.SymDense, error) {
	if intensity < 0 || intensity > 1 || math.IsNaN(intensity) {
		return nil, core.Errorf(core.ErrInvalidParameter, "shrinkage intensity must be in [0, 1], got %v", intensity)
	}
	n := cov.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, cov.At(i, i))
		for j := i + 1; j < n; j++ {
			out.SetSym(i, j, (1-intensity)*cov.At(i, j))
		}
	}
	return out, nil
}
