package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func assertBudgetBox(t *testing.T, w []float64, lo, hi float64) {
	t.Helper()
	assert.InDelta(t, 1.0, floats.Sum(w), 1e-9, "weights must sum to one")
	for i, v := range w {
		assert.GreaterOrEqual(t, v, lo-1e-12, "w[%d] below min", i)
		assert.LessOrEqual(t, v, hi+1e-12, "w[%d] above max", i)
	}
}

// The projection w of x satisfies (x-w)·(z-w) <= 0 for every feasible z.
func assertProjection(t *testing.T, x, w []float64, feasible ...[]float64) {
	t.Helper()
	for _, z := range feasible {
		var ip float64
		for i := range x {
			ip += (x[i] - w[i]) * (z[i] - w[i])
		}
		assert.LessOrEqual(t, ip, 1e-9, "not a projection against %v", z)
	}
}

func TestProjectBudget(t *testing.T) {
	tests := []struct {
		name   string
		x      []float64
		lo, hi float64
		want   []float64
	}{
		{"already feasible", []float64{0.5, 0.3, 0.2}, 0, 1, []float64{0.5, 0.3, 0.2}},
		{"clipped to vertex", []float64{2, 0, 0}, 0, 1, []float64{1, 0, 0}},
		{"uniform shift", []float64{0.4, 0.4, 0.4}, 0, 1, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}},
		{"single feasible point", []float64{1, 0, 0, 0}, 0.05, 0.25, []float64{0.25, 0.25, 0.25, 0.25}},
		{"upper and lower active", []float64{0.9, 0.1, 0}, 0.1, 0.6, []float64{0.6, 0.25, 0.15}},
		{"negative input", []float64{-1, -2, -3}, 0, 1, []float64{1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := make([]float64, len(tt.x))
			require.True(t, projectBudget(w, tt.x, tt.lo, tt.hi))
			for i := range w {
				assert.InDelta(t, tt.want[i], w[i], 1e-12, "w[%d]", i)
			}
			assertBudgetBox(t, w, tt.lo, tt.hi)
		})
	}
}

func TestProjectBudget_IsEuclideanProjection(t *testing.T) {
	x := []float64{0.31, -0.2, 0.75, 0.12, 0.4, 0.05}
	w := make([]float64, len(x))
	require.True(t, projectBudget(w, x, 0.05, 0.25))
	assertBudgetBox(t, w, 0.05, 0.25)

	assertProjection(t, x, w,
		uniform(6),
		[]float64{0.25, 0.25, 0.25, 0.05, 0.1, 0.1},
		[]float64{0.05, 0.05, 0.25, 0.25, 0.25, 0.15},
	)
}

func TestProjectBudget_Aliasing(t *testing.T) {
	x := []float64{0.9, 0.1, 0}
	require.True(t, projectBudget(x, x, 0.1, 0.6))
	assert.InDeltaSlice(t, []float64{0.6, 0.25, 0.15}, x, 1e-12)
}

func TestProjectBudget_Infeasible(t *testing.T) {
	w := make([]float64, 4)
	assert.False(t, projectBudget(w, uniform(4), 0.3, 1))
	assert.False(t, projectBudget(w, uniform(4), 0, 0.2))
	assert.False(t, projectBudget(nil, nil, 0, 1))
}

func TestReturnRange(t *testing.T) {
	mu := []float64{0.05, 0.10, 0.15}

	lo, hi := returnRange(mu, 0, 1)
	assert.InDelta(t, 0.05, lo, 1e-15)
	assert.InDelta(t, 0.15, hi, 1e-15)

	// 0.6/0.35/0.05 and its mirror
	lo, hi = returnRange(mu, 0.05, 0.6)
	assert.InDelta(t, 0.0725, lo, 1e-15)
	assert.InDelta(t, 0.1275, hi, 1e-15)

	// a single feasible point pins both ends
	lo, hi = returnRange([]float64{0.1, 0.2, 0.3, 0.4}, 0.25, 0.25)
	assert.InDelta(t, 0.25, lo, 1e-15)
	assert.InDelta(t, 0.25, hi, 1e-15)
}

func TestProjectBudgetReturn(t *testing.T) {
	mu := []float64{0.05, 0.10, 0.15}

	tests := []struct {
		name   string
		x      []float64
		target float64
		lo, hi float64
		z      []float64
	}{
		{"uniform meets target", uniform(3), 0.10, 0, 1, []float64{0.2, 0.6, 0.2}},
		{"from a vertex", []float64{1, 0, 0}, 0.12, 0, 1, []float64{0.1, 0.4, 0.5}},
		{"boxed", []float64{0.7, 0.2, 0.1}, 0.11, 0.05, 0.6, []float64{0.3, 0.2, 0.5}},
		{"lowest reachable", uniform(3), 0.05, 0, 1, []float64{1, 0, 0}},
		{"highest reachable", uniform(3), 0.15, 0, 1, []float64{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := make([]float64, 3)
			require.True(t, projectBudgetReturn(w, tt.x, mu, tt.target, tt.lo, tt.hi))
			assertBudgetBox(t, w, tt.lo, tt.hi)
			assert.InDelta(t, tt.target, floats.Dot(mu, w), 1e-9)
			assertProjection(t, tt.x, w, tt.z)
		})
	}

	t.Run("uniform input stays put", func(t *testing.T) {
		w := make([]float64, 3)
		require.True(t, projectBudgetReturn(w, uniform(3), mu, 0.10, 0, 1))
		assert.InDeltaSlice(t, uniform(3), w, 1e-9)
	})
}

func TestProjectBudgetReturn_Unreachable(t *testing.T) {
	mu := []float64{0.05, 0.10, 0.15}
	w := make([]float64, 3)

	assert.False(t, projectBudgetReturn(w, uniform(3), mu, 0.2, 0, 1))
	assert.False(t, projectBudgetReturn(w, uniform(3), mu, 0.07, 0.05, 0.6))

	flat := []float64{0.1, 0.1, 0.1}
	assert.True(t, projectBudgetReturn(w, uniform(3), flat, 0.1, 0, 1))
	assert.False(t, projectBudgetReturn(w, uniform(3), flat, 0.2, 0, 1))
}

func TestProjectBudget_HugeInputs(t *testing.T) {
	x := []float64{0.1, 0.2, 0.15, 0.25, 0.2, 0.1}
	g := []float64{-0.8, -1.3, 0.4, -2.1, 0.9, -0.05}

	for _, scale := range []float64{1e3, 1e12, 1e20, 1e30} {
		in := make([]float64, len(x))
		for i := range x {
			in[i] = x[i] - scale*g[i]
		}
		w := make([]float64, len(x))
		if projectBudget(w, in, 0.05, 0.25) {
			assertBudgetBox(t, w, 0.05, 0.25)
		}
	}
}

func TestProjectBudget_ModerateStepStaysExact(t *testing.T) {
	x := []float64{0.1, 0.2, 0.15, 0.25, 0.2, 0.1}
	g := []float64{-0.8, -1.3, 0.4, -2.1, 0.9, -0.05}
	in := make([]float64, len(x))
	for i := range x {
		in[i] = x[i] - 476*g[i]
	}

	w := make([]float64, len(x))
	require.True(t, projectBudget(w, in, 0.05, 0.25))
	assertBudgetBox(t, w, 0.05, 0.25)
}

func TestCapStep(t *testing.T) {
	g := []float64{0.5, -4, 2}
	assert.InDelta(t, maxMove/4, capStep(1e30, g), 1e-9)
	assert.Equal(t, 0.01, capStep(0.01, g))
	assert.Equal(t, stepMax, capStep(1e30, []float64{0, 0, 0}))
	assert.Equal(t, stepMin, capStep(0, g))
}
