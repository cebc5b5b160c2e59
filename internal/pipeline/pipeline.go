// Package pipeline runs one allocation end to end: prices, risk model,
// expected returns, the maximum-Sharpe portfolio and the efficient frontier.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/blacklitterman"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/config"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/marketdata"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/metrics"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/optimizer"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/riskmodel"
)

// Model selects how expected returns are produced.
type Model string

const (
	ModelHistorical     Model = "historical"
	ModelBlackLitterman Model = "black-litterman"
)

// ParseModel accepts the model names used on the command line.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "historical", "hist":
		return ModelHistorical, nil
	case "black-litterman", "blacklitterman", "bl":
		return ModelBlackLitterman, nil
	default:
		return "", core.Errorf(core.ErrInvalidParameter, "unknown model %q", s)
	}
}

// Request describes one run.
type Request struct {
	Model    Model
	Frontier bool
}

// Performance summarises a portfolio.
type Performance struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// Result is everything a run produced.
type Result struct {
	RunID           string
	GeneratedAt     time.Time
	Model           Model
	Assets          []string
	Dropped         []string
	Start           time.Time
	End             time.Time
	Observations    int
	ExpectedReturns []float64
	// Implied holds the equilibrium returns; only set for Black-Litterman.
	Implied        []float64
	Covariance     *mat.SymDense
	IllConditioned bool
	Weights        optimizer.Weights
	Performance    Performance
	Frontier       *optimizer.Frontier
	RiskFreeRate   float64
}

// WeightsByAsset returns the optimal weights keyed by ticker.
func (r *Result) WeightsByAsset() map[string]float64 {
	out := make(map[string]float64, len(r.Assets))
	for i, a := range r.Assets {
		if i < len(r.Weights) {
			out[a] = r.Weights[i]
		}
	}
	return out
}

// Pipeline is the allocation orchestrator
type Pipeline struct {
	cfg       *config.Config
	provider  marketdata.Provider
	logger    *zap.Logger
	metrics   *metrics.Registry
	optimizer *optimizer.Optimizer
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records run and solver metrics into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Pipeline) { p.metrics = reg }
}

// WithOptimizer replaces the optimizer built from the config.
func WithOptimizer(o *optimizer.Optimizer) Option {
	return func(p *Pipeline) { p.optimizer = o }
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline reading prices from provider.
func New(cfg *config.Config, provider marketdata.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		provider: provider,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.optimizer == nil {
		optOpts := []optimizer.Option{optimizer.WithLogger(p.logger.Named("optimizer"))}
		if p.metrics != nil {
			optOpts = append(optOpts, optimizer.WithRecorder(p.metrics))
		}
		p.optimizer = optimizer.New(SolverConfig(cfg.Optimizer), optOpts...)
	}
	return p
}

// SolverConfig maps the optimizer section of the config.
func SolverConfig(c config.OptimizerConfig) optimizer.SolverConfig {
	return optimizer.SolverConfig{
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
		Workers:       c.Workers,
	}
}

// Bounds maps the weight box of the config.
func Bounds(c config.OptimizerConfig) optimizer.Bounds {
	return optimizer.Bounds{Min: c.MinWeight, Max: c.MaxWeight}
}

// Run executes one allocation.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.RecordRun(string(req.Model), status, time.Since(start).Seconds())
	}
	if err != nil {
		p.logger.Error("allocation failed", zap.String("model", string(req.Model)), zap.Error(err))
		return nil, err
	}
	p.logger.Info("allocation complete",
		zap.String("run_id", res.RunID),
		zap.String("model", string(res.Model)),
		zap.Float64("sharpe", res.Performance.Sharpe),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	if req.Model == "" {
		req.Model = ModelHistorical
	}
	if req.Model != ModelHistorical && req.Model != ModelBlackLitterman {
		return nil, core.Errorf(core.ErrInvalidParameter, "unknown model %q", req.Model)
	}

	cfg := p.cfg
	startDate, err := cfg.Data.StartTime()
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	endDate, err := cfg.Data.EndTime()
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	p.logger.Info("fetching prices",
		zap.String("provider", p.provider.Name()),
		zap.Strings("universe", cfg.Universe),
		zap.String("start", cfg.Data.Start),
		zap.String("end", cfg.Data.End),
	)
	prices, dropped, err := marketdata.FetchPrices(ctx, p.provider, cfg.Universe, startDate, endDate,
		marketdata.WithInterval(cfg.Data.Interval),
		marketdata.WithLogger(p.logger.Named("marketdata")),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	if p.metrics != nil {
		p.metrics.SetUniverseSize(len(prices.Assets))
	}

	returns, err := riskmodel.ComputeReturns(prices)
	if err != nil {
		return nil, fmt.Errorf("computing returns: %w", err)
	}
	periods := cfg.Risk.PeriodsPerYear
	historical := riskmodel.AnnualizedExpectedReturns(returns, periods)
	cov, err := riskmodel.AnnualizedCovariance(returns, periods)
	if err != nil {
		return nil, fmt.Errorf("estimating covariance: %w", err)
	}

	ill := riskmodel.IsIllConditioned(returns, cov)
	if ill {
		p.logger.Warn("covariance is ill-conditioned",
			zap.Int("observations", returns.Observations()),
			zap.Int("assets", len(returns.Assets)),
			zap.Float64("condition", riskmodel.ConditionNumber(cov)),
			zap.Float64("shrinkage", cfg.Risk.Shrinkage),
		)
	}
	if cfg.Risk.Shrinkage > 0 {
		cov, err = riskmodel.Shrink(cov, cfg.Risk.Shrinkage)
		if err != nil {
			return nil, fmt.Errorf("shrinking covariance: %w", err)
		}
	}

	res := &Result{
		RunID:           uuid.NewString(),
		GeneratedAt:     p.now().UTC(),
		Model:           req.Model,
		Assets:          prices.Assets,
		Dropped:         dropped,
		Start:           startDate,
		End:             endDate,
		Observations:    returns.Observations(),
		ExpectedReturns: historical,
		Covariance:      cov,
		IllConditioned:  ill,
		RiskFreeRate:    cfg.RiskFreeRate,
	}

	if req.Model == ModelBlackLitterman {
		implied, posterior, err := p.blackLitterman(prices.Assets, cov)
		if err != nil {
			return nil, err
		}
		res.Implied = implied
		res.ExpectedReturns = posterior
	}

	bounds := Bounds(cfg.Optimizer)
	weights, err := p.optimizer.MaximizeSharpe(res.ExpectedReturns, cov, cfg.RiskFreeRate, bounds)
	if err != nil {
		return nil, fmt.Errorf("optimizing portfolio: %w", err)
	}
	ret, vol := optimizer.Performance(weights, res.ExpectedReturns, cov)
	res.Weights = weights
	res.Performance = Performance{Return: ret, Volatility: vol, Sharpe: optimizer.Sharpe(ret, vol, cfg.RiskFreeRate)}

	if req.Frontier {
		frontier, err := p.optimizer.EfficientFrontier(ctx, res.ExpectedReturns, cov, cfg.Optimizer.FrontierPoints, bounds)
		if err != nil {
			return nil, fmt.Errorf("computing frontier: %w", err)
		}
		if frontier.Skipped() > 0 {
			p.logger.Info("frontier targets skipped",
				zap.Int("requested", frontier.Requested),
				zap.Int("solved", len(frontier.Points)),
			)
		}
		res.Frontier = frontier
	}
	return res, nil
}

func (p *Pipeline) blackLitterman(assets []string, cov *mat.SymDense) ([]float64, []float64, error) {
	bl := p.cfg.BlackLitterman

	weights, err := blacklitterman.MarketWeights(assets, bl.Caps())
	if err != nil {
		return nil, nil, fmt.Errorf("market weights: %w", err)
	}
	implied, err := blacklitterman.ImpliedReturns(bl.RiskAversion, cov, weights)
	if err != nil {
		return nil, nil, fmt.Errorf("implied returns: %w", err)
	}

	views := make([]blacklitterman.View, len(bl.Views))
	for i, v := range bl.Views {
		views[i] = blacklitterman.View{
			Kind:   blacklitterman.ViewKind(v.Kind),
			Asset:  v.Asset,
			Over:   v.Over,
			Return: v.Return,
		}
	}
	pq, err := blacklitterman.BuildViews(assets, views)
	if err != nil {
		return nil, nil, fmt.Errorf("building views: %w", err)
	}
	posterior, err := blacklitterman.PosteriorReturns(implied, bl.Tau, cov, pq)
	if err != nil {
		return nil, nil, fmt.Errorf("posterior returns: %w", err)
	}
	p.logger.Debug("black-litterman blended",
		zap.Int("views", pq.Len()),
		zap.Float64("tau", bl.Tau),
		zap.Float64("risk_aversion", bl.RiskAversion),
	)
	return implied, posterior, nil
}
