// Package yahoo reads daily closing prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent      = "Mozilla/5.0 (compatible; portfolio-allocation/1.0)"
)

// validSymbol matches tickers like AAPL, RELIANCE.NS, 600519.SH, M&M.NS, ^NSEI
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^&=-]{1,15}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.Errorf(core.ErrInvalidParameter, "symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return core.Errorf(core.ErrInvalidParameter, "symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return core.Errorf(core.ErrInvalidParameter, "invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements marketdata.Provider for Yahoo Finance
type Yahoo struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Option configures the client.
type Option func(*Yahoo)

// WithBaseURL points the client at another chart endpoint.
func WithBaseURL(u string) Option {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(c *http.Client) Option {
	return func(y *Yahoo) {
		if c != nil {
			y.client = c
		}
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(y *Yahoo) {
		if perSecond > 0 && burst > 0 {
			y.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// New creates a Yahoo provider. Requests are limited to 2/s and five
// consecutive failures open the circuit for 30 seconds.
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(y)
	}
	y.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "yahoo",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

func toYahooInterval(interval string) string {
	switch interval {
	case "1wk", "1w":
		return "1wk"
	case "1mo", "1M":
		return "1mo"
	default:
		return "1d"
	}
}

// FetchHistory fetches closing prices in [start, end). Adjusted closes are
// used when the response carries them.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now()
	}

	q := url.Values{}
	q.Set("interval", toYahooInterval(interval))
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	q.Set("events", "history")
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(toYahooSymbol(symbol)), q.Encode())

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := y.breaker.Execute(func() (interface{}, error) {
		return y.get(ctx, endpoint)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("fetching history for %s: %w", symbol, err))
	}
	result := out.(*chartResponse)

	if result.Chart.Error != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "yahoo error for %s: %s", symbol, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no data for symbol: %s", symbol)
	}

	r := result.Chart.Result[0]
	closes := r.closes()
	bars := make([]core.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // missing observation
		}
		t := time.Unix(ts, 0).UTC()
		if t.Before(start) || !t.Before(end) {
			continue
		}
		bars = append(bars, core.Bar{
			Symbol: symbol,
			Close:  *closes[i],
			Time:   t,
		})
	}
	return bars, nil
}

func (y *Yahoo) get(ctx context.Context, endpoint string) (*chartResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

func (r chartResult) closes() []*float64 {
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		return r.Indicators.AdjClose[0].AdjClose
	}
	if len(r.Indicators.Quote) > 0 {
		return r.Indicators.Quote[0].Close
	}
	return nil
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type indicators struct {
	Quote    []quoteIndicator    `json:"quote"`
	AdjClose []adjCloseIndicator `json:"adjclose"`
}

type quoteIndicator struct {
	Close []*float64 `json:"close"`
}

type adjCloseIndicator struct {
	AdjClose []*float64 `json:"adjclose"`
}
