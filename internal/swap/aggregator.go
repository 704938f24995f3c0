package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"starknet-probe/internal/domain"
)

// bpsDenominator converts basis points to a fraction.
var bpsDenominator = decimal.NewFromInt(10000)

// ErrNoQuotes is returned when every provider failed to quote a request.
var ErrNoQuotes = errors.New("no provider returned a quote")

// QuoteMetrics receives quote instrumentation from the aggregator.
// Implementations must be safe for concurrent use.
type QuoteMetrics interface {
	RecordQuote(provider string, seconds float64, err error)
	RecordBestQuote(pair string, rate float64)
}

// Aggregator fans a quote request out to all providers and selects the
// best offer.
type Aggregator struct {
	providers []Provider
	logger    zerolog.Logger
	metrics   QuoteMetrics // optional
}

// NewAggregator creates an aggregator over the given providers.
func NewAggregator(providers []Provider, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		providers: providers,
		logger:    logger.With().Str("component", "swap_aggregator").Logger(),
	}
}

// WithMetrics attaches quote instrumentation.
func (a *Aggregator) WithMetrics(m QuoteMetrics) *Aggregator {
	a.metrics = m
	return a
}

// BestQuote queries all providers concurrently and returns the quote with
// the highest output amount, with MinOut recomputed from the request's
// slippage tolerance. Provider failures are logged; only a total failure
// is an error.
func (a *Aggregator) BestQuote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if len(a.providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if req.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %s", req.AmountIn)
	}
	if req.SlippageBPS < 0 || req.SlippageBPS >= 10000 {
		return nil, fmt.Errorf("slippage %d bps out of range [0, 10000)", req.SlippageBPS)
	}

	type outcome struct {
		quote *domain.Quote
		err   error
	}

	outcomes := make([]outcome, len(a.providers))
	var wg sync.WaitGroup

	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			start := time.Now()
			q, err := p.Quote(ctx, req)
			if a.metrics != nil {
				a.metrics.RecordQuote(p.Name(), time.Since(start).Seconds(), err)
			}
			outcomes[i] = outcome{quote: q, err: err}
		}(i, p)
	}
	wg.Wait()

	var best *domain.Quote
	var errs []error

	for i, o := range outcomes {
		if o.err != nil {
			a.logger.Warn().Err(o.err).Str("provider", a.providers[i].Name()).Msg("quote failed")
			errs = append(errs, o.err)
			continue
		}
		if best == nil || o.quote.AmountOut.GreaterThan(best.AmountOut) {
			best = o.quote
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: %w", ErrNoQuotes, errors.Join(errs...))
	}

	best.MinOut = MinOut(best.AmountOut, req.SlippageBPS)

	if a.metrics != nil {
		pair := req.In.Symbol + "/" + req.Out.Symbol
		a.metrics.RecordBestQuote(pair, best.Rate().InexactFloat64())
	}

	a.logger.Debug().
		Str("provider", best.Provider).
		Str("amount_out", best.AmountOut.String()).
		Str("min_out", best.MinOut.String()).
		Msg("best quote selected")

	return best, nil
}

// CreateOrder forwards order creation to the provider that won the quote.
func (a *Aggregator) CreateOrder(ctx context.Context, quote domain.Quote, params OrderParams) (*domain.SwapOrder, error) {
	for _, p := range a.providers {
		if p.Name() == quote.Provider {
			return p.CreateOrder(ctx, quote, params)
		}
	}
	return nil, fmt.Errorf("unknown provider %q", quote.Provider)
}

// MinOut reduces amount by a slippage tolerance in basis points.
func MinOut(amount decimal.Decimal, slippageBPS int64) decimal.Decimal {
	factor := bpsDenominator.Sub(decimal.NewFromInt(slippageBPS)).Div(bpsDenominator)
	return amount.Mul(factor)
}
