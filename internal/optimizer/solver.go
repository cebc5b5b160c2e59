package optimizer

import (
	"math"
	"runtime"

	"gonum.org/v1/gonum/floats"
)

// Status describes how a single solve ended.
type Status int

const (
	StatusConverged Status = iota
	// StatusStalled means the line search could not make progress but the
	// projected gradient was already within sqrt(Tolerance).
	StatusStalled
	StatusIterationLimit
	StatusLineSearchFailed
	StatusNotFinite
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusStalled:
		return "stalled"
	case StatusIterationLimit:
		return "iteration_limit"
	case StatusLineSearchFailed:
		return "line_search_failed"
	case StatusNotFinite:
		return "not_finite"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// OK reports whether the solution can be used.
func (s Status) OK() bool {
	return s == StatusConverged || s == StatusStalled
}

// SolverConfig tunes the spectral projected-gradient solver and the frontier
// worker pool.
type SolverConfig struct {
	MaxIterations int
	// Tolerance bounds the sup-norm of the projected gradient P(x-g)-x.
	Tolerance float64
	// History is the number of past objective values the non-monotone line
	// search compares against.
	History int
	Workers int
}

// DefaultSolverConfig returns the defaults used by the CLI.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations: 5000,
		Tolerance:     1e-9,
		History:       10,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

func (c SolverConfig) withDefaults() SolverConfig {
	d := DefaultSolverConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Tolerance <= 0 || math.IsNaN(c.Tolerance) {
		c.Tolerance = d.Tolerance
	}
	if c.History <= 0 {
		c.History = d.History
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}

const (
	stepMin    = 1e-30
	stepMax    = 1e6
	armijo     = 1e-4
	shrinkLow  = 0.1
	shrinkHigh = 0.9
	minLambda  = 1e-16

	// maxMove bounds ‖αg‖∞ for a trial step.
	maxMove = 1e3
)

// objective is a smooth function with its gradient.
type objective struct {
	value func(x []float64) float64
	grad  func(dst, x []float64)
}

type solution struct {
	X          []float64
	F          float64
	Iterations int
	Status     Status
}

// minimize runs the spectral projected-gradient method of Birgin, Martínez
// and Raydan: Barzilai-Borwein steps along the projected direction with a
// non-monotone Armijo line search. Iterates are convex combinations of
// feasible points, so they stay feasible throughout.
func minimize(obj objective, project projector, x0 []float64, cfg SolverConfig) solution {
	n := len(x0)
	x := make([]float64, n)
	if !project(x, x0) {
		return solution{Status: StatusInfeasible}
	}
	g := make([]float64, n)
	f := obj.value(x)
	obj.grad(g, x)
	if !isFinite(f) || !allFinite(g) {
		return solution{X: x, F: f, Status: StatusNotFinite}
	}

	d := make([]float64, n)
	tmp := make([]float64, n)
	xn := make([]float64, n)
	gn := make([]float64, n)

	pg, ok := projectedGradientNorm(project, tmp, x, g)
	if !ok {
		return solution{X: x, F: f, Status: StatusInfeasible}
	}
	if pg <= cfg.Tolerance {
		return solution{X: x, F: f, Status: StatusConverged}
	}

	stalled := func(it int, fallback Status) solution {
		if pg <= math.Sqrt(cfg.Tolerance) {
			return solution{X: x, F: f, Iterations: it, Status: StatusStalled}
		}
		return solution{X: x, F: f, Iterations: it, Status: fallback}
	}

	alpha := capStep(1/pg, g)
	history := make([]float64, 0, cfg.History)
	history = append(history, f)

	for it := 1; it <= cfg.MaxIterations; it++ {
		floats.AddScaledTo(tmp, x, -alpha, g)
		if !project(d, tmp) {
			return solution{X: x, F: f, Iterations: it, Status: StatusInfeasible}
		}
		floats.Sub(d, x)
		gtd := floats.Dot(g, d)
		if gtd >= 0 {
			return stalled(it, StatusLineSearchFailed)
		}

		fmax := floats.Max(history)
		lambda := 1.0
		var fn float64
		for {
			floats.AddScaledTo(xn, x, lambda, d)
			fn = obj.value(xn)
			if isFinite(fn) && fn <= fmax+armijo*lambda*gtd {
				break
			}
			next := lambda / 2
			if isFinite(fn) {
				// safeguarded quadratic interpolation
				q := -0.5 * lambda * lambda * gtd / (fn - f - lambda*gtd)
				if q >= shrinkLow*lambda && q <= shrinkHigh*lambda {
					next = q
				}
			}
			lambda = next
			if lambda < minLambda {
				return stalled(it, StatusLineSearchFailed)
			}
		}

		obj.grad(gn, xn)
		if !allFinite(gn) {
			return solution{X: x, F: f, Iterations: it, Status: StatusNotFinite}
		}

		var sts, sty float64
		for i := range x {
			si := xn[i] - x[i]
			yi := gn[i] - g[i]
			sts += si * si
			sty += si * yi
		}
		if sty <= 0 {
			alpha = capStep(stepMax, gn)
		} else {
			alpha = capStep(sts/sty, gn)
		}

		copy(x, xn)
		copy(g, gn)
		f = fn
		if len(history) == cfg.History {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, f)

		pg, ok = projectedGradientNorm(project, tmp, x, g)
		if !ok {
			return solution{X: x, F: f, Iterations: it, Status: StatusInfeasible}
		}
		if pg <= cfg.Tolerance {
			return solution{X: x, F: f, Iterations: it, Status: StatusConverged}
		}
	}
	return solution{X: x, F: f, Iterations: cfg.MaxIterations, Status: StatusIterationLimit}
}

// capStep clamps a spectral step to [stepMin, stepMax] and to maxMove/‖g‖∞.
func capStep(alpha float64, g []float64) float64 {
	alpha = clamp(alpha, stepMin, stepMax)
	if gmax := floats.Norm(g, math.Inf(1)); gmax > 0 {
		alpha = math.Min(alpha, maxMove/gmax)
	}
	return math.Max(alpha, stepMin)
}

// projectedGradientNorm returns ‖P(x-g) - x‖∞ using buf as scratch.
func projectedGradientNorm(project projector, buf, x, g []float64) (float64, bool) {
	floats.SubTo(buf, x, g)
	if !project(buf, buf) {
		return 0, false
	}
	floats.Sub(buf, x)
	return floats.Norm(buf, math.Inf(1)), true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
