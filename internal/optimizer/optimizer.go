// internal/optimizer/optimizer.go

// Package optimizer finds long-only, fully invested allocations: the
// maximum-Sharpe portfolio and the minimum-variance efficient frontier.
package optimizer

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

// Solve kinds reported to the Recorder.
const (
	KindMaxSharpe = "max_sharpe"
	KindFrontier  = "frontier"
)

// Recorder receives solver telemetry.
type Recorder interface {
	ObserveSolve(kind, status string, seconds float64)
	ObserveFrontier(requested, solved int)
}

// Optimizer solves long-only, fully invested allocation problems.
type Optimizer struct {
	cfg      SolverConfig
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(o *Optimizer) {
		o.recorder = r
	}
}

// New creates an Optimizer. Zero fields in cfg take their defaults.
func New(cfg SolverConfig, opts ...Option) *Optimizer {
	o := &Optimizer{
		cfg:    cfg.withDefaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective solver configuration.
func (o *Optimizer) Config() SolverConfig {
	return o.cfg
}

// MaximizeSharpe returns the weights maximising (wᵗμ - rf)/sqrt(wᵗΣw) subject
// to Σw = 1 and bounds.Min <= w_i <= bounds.Max.
func (o *Optimizer) MaximizeSharpe(mu []float64, cov mat.Symmetric, riskFreeRate float64, bounds Bounds) (Weights, error) {
	sigma, err := checkInputs(mu, cov)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(riskFreeRate) || math.IsInf(riskFreeRate, 0) {
		return nil, core.Errorf(core.ErrInvalidParameter, "risk-free rate must be finite, got %v", riskFreeRate)
	}
	if err := bounds.check(len(mu)); err != nil {
		return nil, err
	}

	n := len(mu)
	sw := make([]float64, n)
	obj := objective{
		value: func(w []float64) float64 {
			variance := quadForm(sigma, w, sw)
			if variance <= 0 {
				return math.NaN()
			}
			return -(floats.Dot(mu, w) - riskFreeRate) / math.Sqrt(variance)
		},
		grad: func(dst, w []float64) {
			variance := quadForm(sigma, w, sw)
			vol := math.Sqrt(variance)
			excess := floats.Dot(mu, w) - riskFreeRate
			for i := range dst {
				dst[i] = -mu[i]/vol + excess*sw[i]/(vol*variance)
			}
		},
	}
	project := func(dst, x []float64) bool {
		return projectBudget(dst, x, bounds.Min, bounds.Max)
	}

	start := time.Now()
	sol := minimize(obj, project, uniform(n), o.cfg)
	o.observe(KindMaxSharpe, sol, time.Since(start))

	if !sol.Status.OK() {
		return nil, core.Errorf(core.ErrOptimizationFailed,
			"max sharpe solve ended with status %s after %d iterations", sol.Status, sol.Iterations)
	}
	w := make(Weights, n)
	if !project(w, sol.X) {
		return nil, core.Errorf(core.ErrOptimizationFailed, "solution left the feasible set")
	}
	o.logger.Debug("max sharpe solved",
		zap.String("status", sol.Status.String()),
		zap.Int("iterations", sol.Iterations),
		zap.Float64("sharpe", -sol.F),
	)
	return w, nil
}

// FrontierPoint is one minimum-variance portfolio at a target return.
type FrontierPoint struct {
	// Index is the position of the target in Frontier.Targets.
	Index      int
	Return     float64
	Volatility float64
	Weights    Weights
}

// Frontier holds the solved points in ascending target order. Targets that
// are unreachable or whose solve did not converge are absent from Points.
type Frontier struct {
	Requested int
	Targets   []float64
	Points    []FrontierPoint
}

// Skipped returns how many targets produced no point.
func (f *Frontier) Skipped() int {
	return f.Requested - len(f.Points)
}

// Returns returns the target return of every solved point.
func (f *Frontier) Returns() []float64 {
	out := make([]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.Return
	}
	return out
}

// Volatilities returns the volatility of every solved point.
func (f *Frontier) Volatilities() []float64 {
	out := make([]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.Volatility
	}
	return out
}

// EfficientFrontier solves the minimum-variance portfolio for numPoints target
// returns evenly spaced between min(μ) and max(μ). Solves run concurrently on
// at most Workers goroutines; ctx is checked before each solve.
func (o *Optimizer) EfficientFrontier(ctx context.Context, mu []float64, cov mat.Symmetric, numPoints int, bounds Bounds) (*Frontier, error) {
	sigma, err := checkInputs(mu, cov)
	if err != nil {
		return nil, err
	}
	if numPoints <= 0 {
		return nil, core.Errorf(core.ErrInvalidParameter, "frontier needs at least one point, got %d", numPoints)
	}
	if err := bounds.check(len(mu)); err != nil {
		return nil, err
	}

	targets := make([]float64, numPoints)
	if numPoints == 1 {
		targets[0] = floats.Min(mu)
	} else {
		floats.Span(targets, floats.Min(mu), floats.Max(mu))
	}
	lowest, highest := returnRange(mu, bounds.Min, bounds.Max)

	results := make([]*FrontierPoint, numPoints)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if target < lowest-returnTol || target > highest+returnTol {
				o.logger.Debug("frontier target unreachable",
					zap.Int("index", i),
					zap.Float64("target", target),
					zap.Float64("min_return", lowest),
					zap.Float64("max_return", highest),
				)
				o.record(KindFrontier, StatusInfeasible, 0)
				return nil
			}
			results[i] = o.frontierPoint(i, target, mu, sigma, bounds)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	frontier := &Frontier{Requested: numPoints, Targets: targets}
	for _, p := range results {
		if p != nil {
			frontier.Points = append(frontier.Points, *p)
		}
	}
	if o.recorder != nil {
		o.recorder.ObserveFrontier(numPoints, len(frontier.Points))
	}
	o.logger.Debug("frontier solved",
		zap.Int("requested", numPoints),
		zap.Int("solved", len(frontier.Points)),
	)
	return frontier, nil
}

func (o *Optimizer) frontierPoint(index int, target float64, mu []float64, sigma *mat.SymDense, bounds Bounds) *FrontierPoint {
	n := len(mu)
	sw := make([]float64, n)
	obj := objective{
		value: func(w []float64) float64 {
			return quadForm(sigma, w, sw)
		},
		grad: func(dst, w []float64) {
			quadForm(sigma, w, sw)
			floats.ScaleTo(dst, 2, sw)
		},
	}
	project := func(dst, x []float64) bool {
		return projectBudgetReturn(dst, x, mu, target, bounds.Min, bounds.Max)
	}

	start := time.Now()
	sol := minimize(obj, project, uniform(n), o.cfg)
	o.observe(KindFrontier, sol, time.Since(start))
	if !sol.Status.OK() {
		o.logger.Debug("frontier point skipped",
			zap.Int("index", index),
			zap.Float64("target", target),
			zap.String("status", sol.Status.String()),
		)
		return nil
	}

	w := make(Weights, n)
	if !project(w, sol.X) {
		return nil
	}
	_, vol := Performance(w, mu, sigma)
	return &FrontierPoint{Index: index, Return: target, Volatility: vol, Weights: w}
}

func (o *Optimizer) observe(kind string, sol solution, elapsed time.Duration) {
	o.record(kind, sol.Status, elapsed.Seconds())
	if !sol.Status.OK() {
		o.logger.Warn("solve did not converge",
			zap.String("kind", kind),
			zap.String("status", sol.Status.String()),
			zap.Int("iterations", sol.Iterations),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func (o *Optimizer) record(kind string, status Status, seconds float64) {
	if o.recorder != nil {
		o.recorder.ObserveSolve(kind, status.String(), seconds)
	}
}

// checkInputs validates shapes and returns a private copy of cov that is safe
// to share between goroutines.
func checkInputs(mu []float64, cov mat.Symmetric) (*mat.SymDense, error) {
	n := len(mu)
	if n == 0 {
		return nil, core.Errorf(core.ErrInvalidParameter, "expected returns are empty")
	}
	if cov == nil || cov.SymmetricDim() != n {
		dim := 0
		if cov != nil {
			dim = cov.SymmetricDim()
		}
		return nil, core.Errorf(core.ErrDimensionMismatch,
			"covariance is %dx%d but there are %d expected returns", dim, dim, n)
	}
	if !allFinite(mu) {
		return nil, core.Errorf(core.ErrInvalidParameter, "expected returns must be finite")
	}
	sigma := mat.NewSymDense(n, nil)
	sigma.CopySym(cov)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !isFinite(sigma.At(i, j)) {
				return nil, core.Errorf(core.ErrInvalidParameter, "covariance entry (%d,%d) is not finite", i, j)
			}
		}
	}
	return sigma, nil
}

// quadForm returns wᵗΣw and leaves Σw in sw.
func quadForm(sigma *mat.SymDense, w, sw []float64) float64 {
	raw := sigma.RawSymmetric()
	for i := range w {
		var s float64
		for j := range w {
			if j >= i {
				s += raw.Data[i*raw.Stride+j] * w[j]
			} else {
				s += raw.Data[j*raw.Stride+i] * w[j]
			}
		}
		sw[i] = s
	}
	return floats.Dot(w, sw)
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
