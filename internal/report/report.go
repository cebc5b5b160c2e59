// Package report renders allocation results as console text, JSON
// documents and charts, and publishes them to a run archive.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/pipeline"
)

// WriteText prints the portfolio metrics and the weight table.
func WriteText(w io.Writer, r *pipeline.Result) error {
	var sb strings.Builder

	sb.WriteString("--- Final Portfolio Metrics ---\n")
	sb.WriteString(fmt.Sprintf("  - Model: %s\n", r.Model))
	sb.WriteString(fmt.Sprintf("  - Expected Annual Return: %.2f%%\n", r.Performance.Return*100))
	sb.WriteString(fmt.Sprintf("  - Annual Volatility (Risk): %.2f%%\n", r.Performance.Volatility*100))
	sb.WriteString(fmt.Sprintf("  - Sharpe Ratio: %.2f\n", r.Performance.Sharpe))
	sb.WriteString("---------------------------------\n")
	if len(r.Dropped) > 0 {
		sb.WriteString(fmt.Sprintf("Dropped (no data): %s\n", strings.Join(r.Dropped, ", ")))
	}
	if r.Frontier != nil {
		sb.WriteString(fmt.Sprintf("Frontier: %d of %d points solved\n", len(r.Frontier.Points), r.Frontier.Requested))
	}

	sb.WriteString("\n--- Optimal Portfolio Weights ---\n")
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Ticker\tWeight\tExp. Return\t")
	for i, a := range r.Assets {
		var weight, expected float64
		if i < len(r.Weights) {
			weight = r.Weights[i]
		}
		if i < len(r.ExpectedReturns) {
			expected = r.ExpectedReturns[i]
		}
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t\n", a, weight*100, expected*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

type assetDoc struct {
	Asset          string   `json:"asset"`
	Weight         float64  `json:"weight"`
	ExpectedReturn float64  `json:"expected_return"`
	ImpliedReturn  *float64 `json:"implied_return,omitempty"`
	Volatility     float64  `json:"volatility"`
}

type pointDoc struct {
	Return     float64            `json:"return"`
	Volatility float64            `json:"volatility"`
	Weights    map[string]float64 `json:"weights"`
}

type frontierDoc struct {
	Requested int        `json:"requested"`
	Solved    int        `json:"solved"`
	Points    []pointDoc `json:"points"`
}

type document struct {
	RunID          string               `json:"run_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Model          pipeline.Model       `json:"model"`
	Start          string               `json:"start"`
	End            string               `json:"end"`
	Observations   int                  `json:"observations"`
	RiskFreeRate   float64              `json:"risk_free_rate"`
	IllConditioned bool                 `json:"ill_conditioned"`
	Dropped        []string             `json:"dropped,omitempty"`
	Assets         []assetDoc           `json:"assets"`
	Performance    pipeline.Performance `json:"performance"`
	Frontier       *frontierDoc         `json:"frontier,omitempty"`
}

// JSON encodes r as an indented document.
func JSON(r *pipeline.Result) ([]byte, error) {
	doc := document{
		RunID:          r.RunID,
		GeneratedAt:    r.GeneratedAt,
		Model:          r.Model,
		Start:          r.Start.Format(time.DateOnly),
		End:            r.End.Format(time.DateOnly),
		Observations:   r.Observations,
		RiskFreeRate:   r.RiskFreeRate,
		IllConditioned: r.IllConditioned,
		Dropped:        r.Dropped,
		Assets:         make([]assetDoc, len(r.Assets)),
		Performance:    r.Performance,
	}
	for i, a := range r.Assets {
		ad := assetDoc{Asset: a}
		if i < len(r.Weights) {
			ad.Weight = r.Weights[i]
		}
		if i < len(r.ExpectedReturns) {
			ad.ExpectedReturn = r.ExpectedReturns[i]
		}
		if i < len(r.Implied) {
			v := r.Implied[i]
			ad.ImpliedReturn = &v
		}
		if r.Covariance != nil && i < r.Covariance.SymmetricDim() {
			ad.Volatility = math.Sqrt(max(r.Covariance.At(i, i), 0))
		}
		doc.Assets[i] = ad
	}

	if f := r.Frontier; f != nil {
		fd := &frontierDoc{Requested: f.Requested, Solved: len(f.Points), Points: make([]pointDoc, len(f.Points))}
		for i, p := range f.Points {
			weights := make(map[string]float64, len(p.Weights))
			for j, w := range p.Weights {
				if j < len(r.Assets) {
					weights[r.Assets[j]] = w
				}
			}
			fd.Points[i] = pointDoc{Return: p.Return, Volatility: p.Volatility, Weights: weights}
		}
		doc.Frontier = fd
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: failed to marshal result: %w", err)
	}
	return data, nil
}
