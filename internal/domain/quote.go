package domain

import "github.com/shopspring/decimal"

// QuoteRequest asks providers for the output of swapping AmountIn of In for Out.
type QuoteRequest struct {
	In          Token
	Out         Token
	AmountIn    decimal.Decimal // human units of In
	SlippageBPS int64           // slippage tolerance in basis points
}

// Quote is a priced swap offer from a single provider.
type Quote struct {
	Provider  string
	In        Token
	Out       Token
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal // expected human units of Out
	MinOut    decimal.Decimal // AmountOut reduced by slippage tolerance
	FeePct    decimal.Decimal // provider fee as a fraction, e.g. 0.003
	QuoteID   string          // provider-assigned, required to execute
	ExpiresAt int64           // Unix ms, 0 when the provider does not expire quotes
}

// Rate returns the effective exchange rate AmountOut/AmountIn.
// Returns zero when AmountIn is zero.
func (q *Quote) Rate() decimal.Decimal {
	if q.AmountIn.IsZero() {
		return decimal.Zero
	}
	return q.AmountOut.Div(q.AmountIn)
}

// SwapOrder is an accepted quote ready for settlement.
// For cross-chain pairs the user funds DepositAddress on the source chain;
// for Starknet-native pairs Calls carry the invoke to submit.
type SwapOrder struct {
	OrderID        string
	Provider       string
	Quote          Quote
	DepositAddress string   // Bitcoin deposit address, empty for native legs
	Calls          []string // flattened Starknet calldata, empty for BTC legs
	CreatedAt      int64    // Unix ms
}
