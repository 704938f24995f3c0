package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/starknet"
	"starknet-probe/internal/swap"
	"starknet-probe/internal/wallet"
)

// Check names, stable across runs. They key metrics and latency samples.
const (
	CheckRPC      = "rpc"
	CheckWallet   = "wallet"
	CheckTransfer = "transfer"
	CheckQuote    = "quote"
	CheckSwap     = "swap"
)

// rpcCheck verifies node connectivity: the node answers, reports the
// expected chain, is not syncing, and has a non-zero block height.
type rpcCheck struct {
	rpc         starknet.RPCClient
	wantChainID string
}

// NewRPCCheck creates the connectivity check. wantChainID is the hex-encoded
// chain id (e.g. starknet.ChainMainnet); empty skips the chain comparison.
func NewRPCCheck(rpc starknet.RPCClient, wantChainID string) Check {
	return &rpcCheck{rpc: rpc, wantChainID: wantChainID}
}

func (c *rpcCheck) Name() string { return CheckRPC }

func (c *rpcCheck) Run(ctx context.Context) Result {
	chainID, err := c.rpc.ChainID(ctx)
	if err != nil {
		return fail(fmt.Errorf("chain id: %w", err))
	}
	if c.wantChainID != "" && !strings.EqualFold(chainID, c.wantChainID) {
		return fail(fmt.Errorf("unexpected chain id %s, want %s", chainID, c.wantChainID))
	}

	sync, err := c.rpc.Syncing(ctx)
	if err != nil {
		return fail(fmt.Errorf("syncing: %w", err))
	}
	if sync != nil {
		return fail(fmt.Errorf("node is syncing: at block %d of %d", sync.CurrentBlockNum, sync.HighestBlockNum))
	}

	block, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return fail(fmt.Errorf("block number: %w", err))
	}
	if block == 0 {
		return fail(fmt.Errorf("node reports block height 0"))
	}

	return pass(fmt.Sprintf("block %d", block))
}

// walletCheck verifies the wallet connector is reachable, exposes at least
// one account, and the configured account can be queried for a balance.
type walletCheck struct {
	connector *wallet.Connector
	account   *wallet.Account
	token     domain.Token
}

// NewWalletCheck creates the wallet connectivity and balance check.
func NewWalletCheck(connector *wallet.Connector, account *wallet.Account, token domain.Token) Check {
	return &walletCheck{connector: connector, account: account, token: token}
}

func (c *walletCheck) Name() string { return CheckWallet }

func (c *walletCheck) Run(ctx context.Context) Result {
	if err := c.connector.Health(ctx); err != nil {
		return fail(fmt.Errorf("connector health: %w", err))
	}

	accounts, err := c.connector.Accounts(ctx)
	if err != nil {
		return fail(fmt.Errorf("connector accounts: %w", err))
	}
	if len(accounts) == 0 {
		return fail(fmt.Errorf("connector exposes no accounts"))
	}

	balance, err := c.account.Balance(ctx, c.token)
	if err != nil {
		return fail(fmt.Errorf("balance of %s: %w", c.token.Symbol, err))
	}

	return pass(fmt.Sprintf("balance %s %s", balance.String(), c.token.Symbol))
}

// transferCheck sends a small on-chain transfer and waits for the receipt.
// Opt-in: disabled by default because it spends gas on every run.
type transferCheck struct {
	enabled      bool
	account      *wallet.Account
	token        domain.Token
	recipient    string
	amount       decimal.Decimal
	pollInterval time.Duration
}

// NewTransferCheck creates the on-chain transfer check. When enabled is
// false the check reports SKIP without touching the chain.
func NewTransferCheck(enabled bool, account *wallet.Account, token domain.Token, recipient string, amount decimal.Decimal, pollInterval time.Duration) Check {
	return &transferCheck{
		enabled:      enabled,
		account:      account,
		token:        token,
		recipient:    recipient,
		amount:       amount,
		pollInterval: pollInterval,
	}
}

func (c *transferCheck) Name() string { return CheckTransfer }

func (c *transferCheck) Run(ctx context.Context) Result {
	if !c.enabled {
		return skip("transfer check disabled")
	}
	if !c.amount.IsPositive() {
		return fail(fmt.Errorf("transfer amount must be positive, got %s", c.amount))
	}

	txHash, err := c.account.Transfer(ctx, c.token, c.recipient, c.amount)
	if err != nil {
		return fail(fmt.Errorf("submit transfer: %w", err))
	}

	receipt, err := c.account.WaitForReceipt(ctx, txHash, c.pollInterval)
	if err != nil {
		return fail(fmt.Errorf("transfer %s: %w", txHash, err))
	}

	return pass(fmt.Sprintf("tx %s %s", txHash, receipt.FinalityStatus))
}

// quoteCheck fetches swap quotes from all providers and verifies at least
// one usable quote comes back.
type quoteCheck struct {
	aggregator *swap.Aggregator
	request    domain.QuoteRequest
}

// NewQuoteCheck creates the quote aggregation check.
func NewQuoteCheck(aggregator *swap.Aggregator, request domain.QuoteRequest) Check {
	return &quoteCheck{aggregator: aggregator, request: request}
}

func (c *quoteCheck) Name() string { return CheckQuote }

func (c *quoteCheck) Run(ctx context.Context) Result {
	quote, err := c.aggregator.BestQuote(ctx, c.request)
	if err != nil {
		return fail(fmt.Errorf("best quote %s->%s: %w", c.request.In.Symbol, c.request.Out.Symbol, err))
	}
	if !quote.AmountOut.IsPositive() {
		return fail(fmt.Errorf("%s quoted non-positive output %s", quote.Provider, quote.AmountOut))
	}
	if quote.MinOut.GreaterThan(quote.AmountOut) {
		return fail(fmt.Errorf("%s min-out %s exceeds quoted output %s", quote.Provider, quote.MinOut, quote.AmountOut))
	}

	return pass(fmt.Sprintf("%s: %s %s -> %s %s (min %s)",
		quote.Provider,
		quote.AmountIn.String(), quote.In.Symbol,
		quote.AmountOut.String(), quote.Out.Symbol,
		quote.MinOut.String(),
	))
}

// swapCheck executes a full swap through the best provider and waits for
// the transaction receipt. Opt-in, like transferCheck.
type swapCheck struct {
	enabled      bool
	aggregator   *swap.Aggregator
	executor     *swap.Executor
	request      domain.QuoteRequest
	params       swap.OrderParams
	pollInterval time.Duration
}

// NewSwapCheck creates the end-to-end swap check. When enabled is false the
// check reports SKIP.
func NewSwapCheck(enabled bool, aggregator *swap.Aggregator, executor *swap.Executor, request domain.QuoteRequest, params swap.OrderParams, pollInterval time.Duration) Check {
	return &swapCheck{
		enabled:      enabled,
		aggregator:   aggregator,
		executor:     executor,
		request:      request,
		params:       params,
		pollInterval: pollInterval,
	}
}

func (c *swapCheck) Name() string { return CheckSwap }

func (c *swapCheck) Run(ctx context.Context) Result {
	if !c.enabled {
		return skip("swap check disabled")
	}

	quote, err := c.aggregator.BestQuote(ctx, c.request)
	if err != nil {
		return fail(fmt.Errorf("best quote: %w", err))
	}

	order, err := c.aggregator.CreateOrder(ctx, *quote, c.params)
	if err != nil {
		return fail(fmt.Errorf("create order via %s: %w", quote.Provider, err))
	}

	txHash, receipt, err := c.executor.Execute(ctx, order, c.pollInterval)
	if err != nil {
		return fail(fmt.Errorf("execute order %s: %w", order.OrderID, err))
	}

	return pass(fmt.Sprintf("tx %s %s via %s", txHash, receipt.FinalityStatus, order.Provider))
}
