package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

type fetchOptions struct {
	interval    string
	concurrency int
	logger      *zap.Logger
}

// FetchOption configures FetchPrices.
type FetchOption func(*fetchOptions)

// WithInterval sets the bar interval passed to the provider. Default "1d".
func WithInterval(interval string) FetchOption {
	return func(o *fetchOptions) {
		if interval != "" {
			o.interval = interval
		}
	}
}

// WithConcurrency bounds the number of in-flight requests. Default 4.
func WithConcurrency(n int) FetchOption {
	return func(o *fetchOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger used for per-asset failures.
func WithLogger(l *zap.Logger) FetchOption {
	return func(o *fetchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// FetchPrices downloads every asset from provider and aligns the result.
// A failing asset is logged and dropped like an asset without data; the call
// only fails when nothing usable comes back or ctx is done.
func FetchPrices(ctx context.Context, provider Provider, assets []string, start, end time.Time, opts ...FetchOption) (core.PriceSeries, []string, error) {
	o := fetchOptions{interval: "1d", concurrency: 4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if len(assets) == 0 {
		return core.PriceSeries{}, nil, core.Errorf(core.ErrNoData, "asset universe is empty")
	}
	if !end.IsZero() && !start.Before(end) {
		return core.PriceSeries{}, nil, core.Errorf(core.ErrInvalidParameter,
			"start %s is not before end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	var (
		mu       sync.Mutex
		bars     = make(map[string][]core.Bar, len(assets))
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, asset := range assets {
		g.Go(func() error {
			history, err := provider.FetchHistory(gctx, asset, start, end, o.interval)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				o.logger.Warn("fetch failed, dropping asset",
					zap.String("provider", provider.Name()),
					zap.String("asset", asset),
					zap.Error(err),
				)
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", asset, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			bars[asset] = history
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.PriceSeries{}, nil, err
	}

	series, dropped, err := Align(bars, assets)
	if err != nil {
		if len(failures) == len(assets) {
			return core.PriceSeries{}, dropped, core.WrapError(core.ErrProviderFailed, errors.Join(failures...))
		}
		return core.PriceSeries{}, dropped, err
	}
	if len(dropped) > 0 {
		o.logger.Warn("assets without data were dropped",
			zap.Strings("dropped", dropped),
			zap.Int("kept", len(series.Assets)),
		)
	}
	o.logger.Debug("prices aligned",
		zap.String("provider", provider.Name()),
		zap.Int("assets", len(series.Assets)),
		zap.Int("observations", series.Len()),
	)
	return series, dropped, nil
}
