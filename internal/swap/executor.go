package swap

import (
	"context"
	"fmt"
	"time"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/starknet"
	"starknet-probe/internal/wallet"
)

// Executor settles Starknet-native swap orders through a wallet account.
// BTC-funded orders settle out of band (the user funds the deposit address)
// and are not executable here.
type Executor struct {
	account *wallet.Account
}

// NewExecutor creates an executor bound to an account.
func NewExecutor(account *wallet.Account) *Executor {
	return &Executor{account: account}
}

// Execute submits the order's calldata through the account and waits for
// the receipt. Returns the transaction hash.
func (e *Executor) Execute(ctx context.Context, order *domain.SwapOrder, pollInterval time.Duration) (string, *starknet.TransactionReceipt, error) {
	if len(order.Calls) == 0 {
		return "", nil, fmt.Errorf("order %s has no Starknet calls (BTC-funded orders settle via deposit address)", order.OrderID)
	}

	txHash, err := e.account.Execute(ctx, order.Calls)
	if err != nil {
		return "", nil, fmt.Errorf("execute swap: %w", err)
	}

	receipt, err := e.account.WaitForReceipt(ctx, txHash, pollInterval)
	if err != nil {
		return txHash, receipt, fmt.Errorf("await swap receipt: %w", err)
	}

	return txHash, receipt, nil
}
