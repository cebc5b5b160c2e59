package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

// mockProvider serves canned bars
type mockProvider struct {
	bars  map[string][]core.Bar
	fail  map[string]error
	calls atomic.Int32
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.fail[symbol]; ok {
		return nil, err
	}
	return m.bars[symbol], nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{})

	p, ok := r.Get("mock")
	require.True(t, ok)
	assert.Equal(t, "mock", p.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"mock"}, r.Names())
}

func TestFetchPrices(t *testing.T) {
	p := &mockProvider{
		bars: map[string][]core.Bar{
			"A": {bar("A", 2, 10), bar("A", 3, 11)},
			"B": {bar("B", 2, 20), bar("B", 3, 21)},
		},
		fail: map[string]error{"C": core.Errorf(core.ErrProviderFailed, "upstream down")},
	}

	series, dropped, err := FetchPrices(context.Background(), p, []string{"A", "B", "C"}, d(1), d(10), WithConcurrency(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, series.Assets)
	assert.Equal(t, []string{"C"}, dropped)
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestFetchPrices_AllFailed(t *testing.T) {
	boom := errors.New("boom")
	p := &mockProvider{fail: map[string]error{"A": boom, "B": boom}}

	_, _, err := FetchPrices(context.Background(), p, []string{"A", "B"}, d(1), d(10))
	assert.ErrorIs(t, err, core.ErrProviderFailed)
}

func TestFetchPrices_Errors(t *testing.T) {
	p := &mockProvider{}
	ctx := context.Background()

	_, _, err := FetchPrices(ctx, p, nil, d(1), d(10))
	assert.ErrorIs(t, err, core.ErrNoData)

	_, _, err = FetchPrices(ctx, p, []string{"A"}, d(10), d(1))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, _, err = FetchPrices(ctx, p, []string{"A"}, d(1), d(10))
	assert.ErrorIs(t, err, core.ErrNoData, "no bars at all")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = FetchPrices(cancelled, p, []string{"A", "B"}, d(1), d(10))
	assert.ErrorIs(t, err, context.Canceled)
}
