package blacklitterman

import (
	"testing"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func diagCov() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		0.04, 0, 0,
		0, 0.09, 0,
		0, 0, 0.01,
	})
}

func correlatedCov() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		0.04, 0.012, 0.004,
		0.012, 0.09, 0.006,
		0.004, 0.006, 0.01,
	})
}

func TestImpliedReturns_ThreeAssetScenario(t *testing.T) {
	pi, err := ImpliedReturns(2.5, diagCov(), []float64{0.5, 0.3, 0.2})
	require.NoError(t, err)

	assert.InDelta(t, 0.05, pi[0], 1e-15)
	assert.InDelta(t, 0.0675, pi[1], 1e-15)
	assert.InDelta(t, 0.005, pi[2], 1e-15)
}

func TestImpliedReturns_Errors(t *testing.T) {
	_, err := ImpliedReturns(0, diagCov(), []float64{0.5, 0.3, 0.2})
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = ImpliedReturns(2.5, diagCov(), []float64{0.5, 0.5})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestMarketWeights(t *testing.T) {
	assets := []string{"RELIANCE.NS", "TCS.NS", "INFY.NS"}
	w, err := MarketWeights(assets, map[string]float64{
		"RELIANCE.NS": 500,
		"TCS.NS":      300,
		"INFY.NS":     200,
		"UNUSED":      999,
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.2}, w, 1e-15)

	_, err = MarketWeights(assets, map[string]float64{"RELIANCE.NS": 1, "TCS.NS": 1})
	assert.ErrorIs(t, err, core.ErrMissingMarketCap)

	_, err = MarketWeights(assets, map[string]float64{"RELIANCE.NS": 0, "TCS.NS": 0, "INFY.NS": 0})
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = MarketWeights(assets, map[string]float64{"RELIANCE.NS": -1, "TCS.NS": 2, "INFY.NS": 1})
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestPosteriorReturns_ViewEqualToPriorLeavesPriorUnchanged(t *testing.T) {
	cov := correlatedCov()
	pi, err := ImpliedReturns(2.5, cov, []float64{0.5, 0.3, 0.2})
	require.NoError(t, err)

	const k = 1
	views, err := NewViews([][]float64{{0, 1, 0}}, []float64{pi[k]})
	require.NoError(t, err)

	for _, tau := range []float64{1e-8, 0.05, 1e8} {
		post, err := PosteriorReturns(pi, tau, cov, views)
		require.NoError(t, err, "tau=%v", tau)
		assert.InDelta(t, views.Q[0], post[k], 1e-9, "tau=%v", tau)
		assert.InDeltaSlice(t, pi, post, 1e-9, "tau=%v", tau)
	}
}

func TestPosteriorReturns_IndependentOfTauUnderDefaultUncertainty(t *testing.T) {
	cov := correlatedCov()
	pi, err := ImpliedReturns(2.5, cov, []float64{0.5, 0.3, 0.2})
	require.NoError(t, err)
	views, err := NewViews([][]float64{{1, -1, 0}, {0, 0, 1}}, []float64{0.03, 0.08})
	require.NoError(t, err)

	base, err := PosteriorReturns(pi, 0.05, cov, views)
	require.NoError(t, err)

	for _, tau := range []float64{0.01, 0.5, 5} {
		post, err := PosteriorReturns(pi, tau, cov, views)
		require.NoError(t, err)
		assert.InDeltaSlice(t, base, post, 1e-10, "tau=%v", tau)
	}
}

func TestPosteriorReturns_AbsoluteViewMeetsPriorHalfway(t *testing.T) {
	// With a diagonal Σ, Ω = τσ_kk equals the prior variance of asset k, so
	// the posterior is the midpoint of prior and view, other assets untouched.
	cov := diagCov()
	pi, err := ImpliedReturns(2.5, cov, []float64{0.5, 0.3, 0.2})
	require.NoError(t, err)
	views, err := NewViews([][]float64{{1, 0, 0}}, []float64{0.15})
	require.NoError(t, err)

	post, err := PosteriorReturns(pi, 0.05, cov, views)
	require.NoError(t, err)

	assert.InDelta(t, (0.05+0.15)/2, post[0], 1e-12)
	assert.InDelta(t, pi[1], post[1], 1e-12)
	assert.InDelta(t, pi[2], post[2], 1e-12)
}

func TestPosteriorReturnsWithUncertainty_Limits(t *testing.T) {
	cov := correlatedCov()
	pi, err := ImpliedReturns(2.5, cov, []float64{0.5, 0.3, 0.2})
	require.NoError(t, err)
	views, err := NewViews([][]float64{{0, 0, 1}}, []float64{0.12})
	require.NoError(t, err)

	certain, err := PosteriorReturnsWithUncertainty(pi, 0.05, cov, views, []float64{1e-12})
	require.NoError(t, err)
	assert.InDelta(t, 0.12, certain[2], 1e-6)

	vague, err := PosteriorReturnsWithUncertainty(pi, 0.05, cov, views, []float64{1e12})
	require.NoError(t, err)
	assert.InDeltaSlice(t, pi, vague, 1e-9)
}

func TestPosteriorReturns_MatchesWoodburyForm(t *testing.T) {
	// E[R] = Π + τΣPᵗ(PτΣPᵗ + Ω)⁻¹(Q - PΠ) is algebraically the same update.
	cov := correlatedCov()
	pi, err := ImpliedReturns(3, cov, []float64{0.2, 0.5, 0.3})
	require.NoError(t, err)
	views, err := NewViews([][]float64{{1, 0, -1}}, []float64{0.02})
	require.NoError(t, err)
	const tau = 0.025

	post, err := PosteriorReturns(pi, tau, cov, views)
	require.NoError(t, err)

	p := views.P.RawRowView(0)
	var sp mat.VecDense
	sp.MulVec(cov, mat.NewVecDense(3, p))
	sp.ScaleVec(tau, &sp)
	pSp := mat.Dot(mat.NewVecDense(3, p), &sp)
	omega := pSp
	gap := 0.02 - (pi[0] - pi[2])
	for i := 0; i < 3; i++ {
		want := pi[i] + sp.AtVec(i)*gap/(pSp+omega)
		assert.InDelta(t, want, post[i], 1e-12)
	}
}

func TestPosteriorReturns_SingularInputs(t *testing.T) {
	views, err := NewViews([][]float64{{1, 0}}, []float64{0.1})
	require.NoError(t, err)

	degenerate := mat.NewSymDense(2, []float64{0.04, 0.04, 0.04, 0.04})
	_, err = PosteriorReturns([]float64{0.05, 0.05}, 0.05, degenerate, views)
	assert.ErrorIs(t, err, core.ErrSingularMatrix)

	zeroVariance := mat.NewSymDense(2, []float64{0, 0, 0, 0.04})
	_, err = PosteriorReturns([]float64{0, 0.05}, 0.05, zeroVariance, views)
	assert.ErrorIs(t, err, core.ErrSingularMatrix)

	cov := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.09})
	_, err = PosteriorReturnsWithUncertainty([]float64{0.05, 0.05}, 0.05, cov, views, []float64{0})
	assert.ErrorIs(t, err, core.ErrSingularMatrix)
}

func TestPosteriorReturns_ParameterErrors(t *testing.T) {
	cov := diagCov()
	views, err := NewViews([][]float64{{1, 0, 0}}, []float64{0.1})
	require.NoError(t, err)

	_, err = PosteriorReturns([]float64{0.1, 0.1, 0.1}, 0, cov, views)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = PosteriorReturns([]float64{0.1, 0.1}, 0.05, cov, views)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	wrongWidth, err := NewViews([][]float64{{1, 0}}, []float64{0.1})
	require.NoError(t, err)
	_, err = PosteriorReturns([]float64{0.1, 0.1, 0.1}, 0.05, cov, wrongWidth)
	assert.ErrorIs(t, err, core.ErrInvalidViews)

	_, err = PosteriorReturnsWithUncertainty([]float64{0.1, 0.1, 0.1}, 0.05, cov, views, []float64{0.1, 0.1})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}
