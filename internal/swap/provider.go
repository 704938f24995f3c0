// Package swap provides the quote engine: providers price a token pair,
// the aggregator picks the best offer and enforces slippage bounds.
package swap

import (
	"context"

	"starknet-probe/internal/domain"
)

// Provider serves swap quotes and turns an accepted quote into an order.
type Provider interface {
	// Name identifies the provider in quotes and logs.
	Name() string

	// Quote prices a swap request. The returned quote carries the raw
	// provider output; MinOut is filled in by the aggregator.
	Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error)

	// CreateOrder accepts a previously returned quote.
	CreateOrder(ctx context.Context, quote domain.Quote, params OrderParams) (*domain.SwapOrder, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}

// OrderParams carries settlement addresses for order creation.
type OrderParams struct {
	// Recipient receives the output leg: a Starknet account address for
	// Starknet-bound swaps, a Bitcoin address for BTC-bound swaps.
	Recipient string

	// RefundBTC is the Bitcoin refund address, required when the source
	// leg is BTC.
	RefundBTC string
}
