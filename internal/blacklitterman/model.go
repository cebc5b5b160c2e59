// Package blacklitterman derives market-implied equilibrium returns and blends
// them with investor views.
package blacklitterman

import (
	"math"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"gonum.org/v1/gonum/mat"
)

// MaxConditionNumber bounds the condition number of τΣ accepted for inversion.
const MaxConditionNumber = 1e12

// MarketWeights normalises market capitalisations into weights ordered by assets.
func MarketWeights(assets []string, caps map[string]float64) ([]float64, error) {
	if len(assets) == 0 {
		return nil, core.Errorf(core.ErrNoData, "asset universe is empty")
	}
	w := make([]float64, len(assets))
	var total float64
	for i, a := range assets {
		c, ok := caps[a]
		if !ok {
			return nil, core.Errorf(core.ErrMissingMarketCap, "no market cap for %s", a)
		}
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, core.Errorf(core.ErrInvalidParameter, "market cap for %s must be a non-negative number, got %v", a, c)
		}
		w[i] = c
		total += c
	}
	if total <= 0 {
		return nil, core.Errorf(core.ErrInvalidParameter, "market caps sum to zero")
	}
	for i := range w {
		w[i] /= total
	}
	return w, nil
}

// ImpliedReturns computes Π = δ·Σ·w for the market portfolio w.
func ImpliedReturns(riskAversion float64, cov mat.Symmetric, marketWeights []float64) ([]float64, error) {
	if !(riskAversion > 0) || math.IsInf(riskAversion, 1) {
		return nil, core.Errorf(core.ErrInvalidParameter, "risk aversion must be positive, got %v", riskAversion)
	}
	n := cov.SymmetricDim()
	if len(marketWeights) != n {
		return nil, core.Errorf(core.ErrDimensionMismatch, "%d market weights for %dx%d covariance", len(marketWeights), n, n)
	}

	var pi mat.VecDense
	pi.MulVec(cov, mat.NewVecDense(n, append([]float64(nil), marketWeights...)))
	pi.ScaleVec(riskAversion, &pi)
	return vecToSlice(&pi), nil
}

// DefaultUncertainty returns the diagonal of Ω = diag(P·(τΣ)·Pᵗ): each view's
// variance under the scaled prior, with views treated as uncorrelated.
func DefaultUncertainty(tau float64, cov mat.Symmetric, views Views) ([]float64, error) {
	if err := checkTau(tau); err != nil {
		return nil, err
	}
	n := cov.SymmetricDim()
	if err := views.Validate(n); err != nil {
		return nil, err
	}
	omega := make([]float64, views.Len())
	for i := range omega {
		p := views.P.RowView(i)
		omega[i] = tau * mat.Inner(p, cov, p)
	}
	return omega, nil
}

// PosteriorReturns blends implied returns with views using the default
// uncertainty model, returning
//
//	E[R] = [(τΣ)⁻¹ + PᵗΩ⁻¹P]⁻¹ · [(τΣ)⁻¹Π + PᵗΩ⁻¹Q]
func PosteriorReturns(implied []float64, tau float64, cov mat.Symmetric, views Views) ([]float64, error) {
	omega, err := DefaultUncertainty(tau, cov, views)
	if err != nil {
		return nil, err
	}
	return PosteriorReturnsWithUncertainty(implied, tau, cov, views, omega)
}

// PosteriorReturnsWithUncertainty is PosteriorReturns with a caller supplied
// diagonal Ω, one variance per view.
func PosteriorReturnsWithUncertainty(implied []float64, tau float64, cov mat.Symmetric, views Views, omega []float64) ([]float64, error) {
	if err := checkTau(tau); err != nil {
		return nil, err
	}
	n := cov.SymmetricDim()
	if len(implied) != n {
		return nil, core.Errorf(core.ErrDimensionMismatch, "%d implied returns for %dx%d covariance", len(implied), n, n)
	}
	if err := views.Validate(n); err != nil {
		return nil, err
	}
	if len(omega) != views.Len() {
		return nil, core.Errorf(core.ErrDimensionMismatch, "%d uncertainties for %d views", len(omega), views.Len())
	}
	for i, o := range omega {
		if !(o > 0) || math.IsInf(o, 1) {
			return nil, core.Errorf(core.ErrSingularMatrix, "view %d has uncertainty %v, Ω is not invertible", i, o)
		}
	}

	tauSigma := mat.NewSymDense(n, nil)
	tauSigma.ScaleSym(tau, cov)

	var prior mat.Cholesky
	if !prior.Factorize(tauSigma) {
		return nil, core.Errorf(core.ErrSingularMatrix, "τΣ is not positive definite")
	}
	if c := prior.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > MaxConditionNumber {
		return nil, core.Errorf(core.ErrSingularMatrix, "τΣ condition number %.3g exceeds %.0e", c, MaxConditionNumber)
	}
	var priorPrecision mat.SymDense
	if err := prior.InverseTo(&priorPrecision); err != nil {
		return nil, core.WrapError(core.ErrSingularMatrix, err)
	}

	// (τΣ)⁻¹ + Σ_i p_i p_iᵗ / ω_i and (τΣ)⁻¹Π + Σ_i p_i q_i / ω_i; Ω is
	// diagonal so PᵗΩ⁻¹P and PᵗΩ⁻¹Q decompose into per-view terms.
	precision := mat.NewSymDense(n, nil)
	precision.CopySym(&priorPrecision)
	var rhs mat.VecDense
	rhs.MulVec(&priorPrecision, mat.NewVecDense(n, append([]float64(nil), implied...)))
	for i := 0; i < views.Len(); i++ {
		p := views.P.RowView(i)
		precision.SymRankOne(precision, 1/omega[i], p)
		rhs.AddScaledVec(&rhs, views.Q[i]/omega[i], p)
	}

	var post mat.Cholesky
	if !post.Factorize(precision) {
		return nil, core.Errorf(core.ErrSingularMatrix, "posterior precision is not positive definite")
	}
	var out mat.VecDense
	if err := post.SolveVecTo(&out, &rhs); err != nil {
		return nil, core.WrapError(core.ErrSingularMatrix, err)
	}
	return vecToSlice(&out), nil
}

func checkTau(tau float64) error {
	if !(tau > 0) || math.IsInf(tau, 1) {
		return core.Errorf(core.ErrInvalidParameter, "tau must be positive, got %v", tau)
	}
	return nil
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
