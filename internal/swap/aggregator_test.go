package swap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starknet-probe/internal/domain"
)

// stubProvider returns a fixed quote or error.
type stubProvider struct {
	name      string
	amountOut string
	err       error
	order     *domain.SwapOrder
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Quote(_ context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Quote{
		Provider:  s.name,
		In:        req.In,
		Out:       req.Out,
		AmountIn:  req.AmountIn,
		AmountOut: decimal.RequireFromString(s.amountOut),
		QuoteID:   s.name + "-q1",
	}, nil
}

func (s *stubProvider) CreateOrder(context.Context, domain.Quote, OrderParams) (*domain.SwapOrder, error) {
	if s.order == nil {
		return nil, errors.New("no order configured")
	}
	return s.order, nil
}

func (s *stubProvider) HealthCheck(context.Context) error { return s.err }

func btcToWbtcRequest(amount string) domain.QuoteRequest {
	return domain.QuoteRequest{
		In:          domain.TokenBTC,
		Out:         domain.TokenWBTC,
		AmountIn:    decimal.RequireFromString(amount),
		SlippageBPS: 50,
	}
}

func TestAggregator_BestQuote(t *testing.T) {
	agg := NewAggregator([]Provider{
		&stubProvider{name: "alpha", amountOut: "0.99"},
		&stubProvider{name: "beta", amountOut: "0.995"},
		&stubProvider{name: "gamma", err: errors.New("down")},
	}, zerolog.Nop())

	quote, err := agg.BestQuote(context.Background(), btcToWbtcRequest("1"))
	require.NoError(t, err)

	assert.Equal(t, "beta", quote.Provider)
	assert.True(t, quote.AmountOut.Equal(decimal.RequireFromString("0.995")))

	// min_out = 0.995 * (1 - 0.005)
	want := decimal.RequireFromString("0.990025")
	assert.True(t, quote.MinOut.Equal(want), "got %s, want %s", quote.MinOut, want)
}

func TestAggregator_BestQuote_AllFail(t *testing.T) {
	agg := NewAggregator([]Provider{
		&stubProvider{name: "alpha", err: errors.New("down")},
		&stubProvider{name: "beta", err: errors.New("also down")},
	}, zerolog.Nop())

	_, err := agg.BestQuote(context.Background(), btcToWbtcRequest("1"))
	require.ErrorIs(t, err, ErrNoQuotes)
}

func TestAggregator_BestQuote_Validation(t *testing.T) {
	agg := NewAggregator([]Provider{&stubProvider{name: "alpha", amountOut: "1"}}, zerolog.Nop())

	req := btcToWbtcRequest("1")
	req.AmountIn = decimal.Zero
	_, err := agg.BestQuote(context.Background(), req)
	require.Error(t, err)

	req = btcToWbtcRequest("1")
	req.SlippageBPS = 10000
	_, err = agg.BestQuote(context.Background(), req)
	require.Error(t, err)

	_, err = NewAggregator(nil, zerolog.Nop()).BestQuote(context.Background(), btcToWbtcRequest("1"))
	require.Error(t, err)
}

// recordingMetrics captures QuoteMetrics calls.
type recordingMetrics struct {
	mu       sync.Mutex
	quotes   map[string]error
	bestPair string
	bestRate float64
}

func (m *recordingMetrics) RecordQuote(provider string, seconds float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quotes == nil {
		m.quotes = make(map[string]error)
	}
	m.quotes[provider] = err
}

func (m *recordingMetrics) RecordBestQuote(pair string, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bestPair = pair
	m.bestRate = rate
}

func TestAggregator_BestQuote_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	agg := NewAggregator([]Provider{
		&stubProvider{name: "alpha", amountOut: "0.99"},
		&stubProvider{name: "beta", err: errors.New("down")},
	}, zerolog.Nop()).WithMetrics(metrics)

	_, err := agg.BestQuote(context.Background(), btcToWbtcRequest("2"))
	require.NoError(t, err)

	require.Len(t, metrics.quotes, 2)
	assert.NoError(t, metrics.quotes["alpha"])
	assert.Error(t, metrics.quotes["beta"])

	assert.Equal(t, "BTC/WBTC", metrics.bestPair)
	assert.InDelta(t, 0.495, metrics.bestRate, 1e-9) // 0.99 out for 2 in
}

func TestAggregator_CreateOrder_RoutesToWinner(t *testing.T) {
	order := &domain.SwapOrder{OrderID: "o1", Provider: "beta"}
	agg := NewAggregator([]Provider{
		&stubProvider{name: "alpha", amountOut: "0.99"},
		&stubProvider{name: "beta", amountOut: "0.995", order: order},
	}, zerolog.Nop())

	got, err := agg.CreateOrder(context.Background(), domain.Quote{Provider: "beta", QuoteID: "beta-q1"}, OrderParams{})
	require.NoError(t, err)
	assert.Equal(t, "o1", got.OrderID)

	_, err = agg.CreateOrder(context.Background(), domain.Quote{Provider: "nobody"}, OrderParams{})
	require.Error(t, err)
}

func TestMinOut(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		bps    int64
		want   string
	}{
		{"zero slippage", "100", 0, "100"},
		{"50 bps", "100", 50, "99.5"},
		{"100 bps", "0.995", 100, "0.98505"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinOut(decimal.RequireFromString(tt.amount), tt.bps)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}
