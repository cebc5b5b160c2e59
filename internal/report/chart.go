package report

import (
	"fmt"
	"math"

	"github.com/vicanso/go-charts/v2"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/optimizer"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/pipeline"
)

// efficientBranch returns the frontier points from the minimum-volatility
// portfolio upward; below it the curve is dominated.
func efficientBranch(f *optimizer.Frontier) []optimizer.FrontierPoint {
	if f == nil || len(f.Points) == 0 {
		return nil
	}
	lowest := 0
	for i, p := range f.Points {
		if p.Volatility < f.Points[lowest].Volatility {
			lowest = i
		}
	}
	return f.Points[lowest:]
}

// FrontierChart renders the efficient branch of the frontier and the capital
// market line r_f + S·σ as a PNG. Volatility is the category axis.
func FrontierChart(r *pipeline.Result) ([]byte, error) {
	branch := efficientBranch(r.Frontier)
	if len(branch) < 2 {
		return nil, core.Errorf(core.ErrNoData, "need at least 2 efficient frontier points to chart, got %d", len(branch))
	}

	labels := make([]string, len(branch))
	frontier := make([]float64, len(branch))
	cml := make([]float64, len(branch))
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i, p := range branch {
		labels[i] = fmt.Sprintf("%.1f%%", p.Volatility*100)
		frontier[i] = p.Return * 100
		cml[i] = (r.RiskFreeRate + r.Performance.Sharpe*p.Volatility) * 100
		yMin = math.Min(yMin, math.Min(frontier[i], cml[i]))
		yMax = math.Max(yMax, math.Max(frontier[i], cml[i]))
	}
	pad := (yMax - yMin) * 0.05
	yMin -= pad
	yMax += pad

	split := len(branch) - 1
	if split > 10 {
		split = 10
	}
	names := []string{"Efficient Frontier", "Capital Market Line"}
	painter, err := charts.LineRender([][]float64{frontier, cml},
		charts.TitleTextOptionFunc(
			fmt.Sprintf("Efficient Frontier & CML • Sharpe %.2f", r.Performance.Sharpe),
			fmt.Sprintf("optimal: return %.2f%%, volatility %.2f%% • x: volatility, y: return %%",
				r.Performance.Return*100, r.Performance.Volatility*100),
		),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("report: failed to render frontier chart: %w", err)
	}
	return painter.Bytes()
}

// WeightsChart renders the optimal weights as a pie chart PNG.
func WeightsChart(r *pipeline.Result) ([]byte, error) {
	if len(r.Weights) == 0 || len(r.Weights) != len(r.Assets) {
		return nil, core.Errorf(core.ErrDimensionMismatch, "%d weights for %d assets", len(r.Weights), len(r.Assets))
	}
	labels := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		labels[i] = fmt.Sprintf("%s (%.1f%%)", a, r.Weights[i]*100)
	}

	painter, err := charts.PieRender(
		[]float64(r.Weights),
		charts.TitleTextOptionFunc("Optimal Portfolio Weights", string(r.Model)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("report: failed to render weights chart: %w", err)
	}
	return painter.Bytes()
}
