package wallet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/starknet"
)

// Entry point selectors (starknet_keccak of the entry point name).
const (
	selectorBalanceOf = "0x2e4263afad30923c891518314c3c95dbe830a16874e8abc5777a9a20b54c76e"
	selectorTransfer  = "0x83afd3f4caedc6eebf44246fe54e38c95e3179a5ec9ea81740eca5b482d12e"
)

// Invoke transaction version submitted by the probe.
const invokeVersion = "0x1"

// feeMarginNum/feeMarginDen scale the estimated fee into max_fee (3/2).
const (
	feeMarginNum = 3
	feeMarginDen = 2
)

// DefaultPollInterval is the receipt polling cadence.
const DefaultPollInterval = 3 * time.Second

// Account performs Starknet operations for a single connector account.
type Account struct {
	rpc     starknet.RPCClient
	signer  Signer
	address string // account contract address (felt)
	chainID string // chain id felt, passed through to the signer
}

// NewAccount creates an account bound to an RPC client and a signer.
func NewAccount(rpc starknet.RPCClient, signer Signer, address, chainID string) *Account {
	return &Account{
		rpc:     rpc,
		signer:  signer,
		address: address,
		chainID: chainID,
	}
}

// Address returns the account contract address.
func (a *Account) Address() string {
	return a.address
}

// Balance fetches the ERC-20 balance of the account in human units.
func (a *Account) Balance(ctx context.Context, token domain.Token) (decimal.Decimal, error) {
	if token.Chain != domain.ChainStarknet {
		return decimal.Zero, fmt.Errorf("token %s is not a Starknet asset", token.Symbol)
	}

	result, err := a.rpc.Call(ctx, starknet.FunctionCall{
		ContractAddress:    token.Address,
		EntryPointSelector: selectorBalanceOf,
		Calldata:           []string{a.address},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("call balanceOf: %w", err)
	}

	if len(result) < 2 {
		return decimal.Zero, fmt.Errorf("balanceOf returned %d felts, want 2", len(result))
	}

	base, err := starknet.U256FromFelts(result[0], result[1])
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode balance: %w", err)
	}

	return starknet.AmountFromBase(base, token.Decimals), nil
}

// Nonce fetches the account's current nonce.
func (a *Account) Nonce(ctx context.Context) (string, error) {
	return a.rpc.Nonce(ctx, a.address)
}

// Transfer sends amount of token to recipient. It estimates the fee, obtains
// a signature from the connector, and submits the invoke transaction.
// Returns the transaction hash.
func (a *Account) Transfer(ctx context.Context, token domain.Token, recipient string, amount decimal.Decimal) (string, error) {
	if !starknet.IsValidFelt(recipient) {
		return "", fmt.Errorf("invalid recipient address: %q", recipient)
	}
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	low, high, err := starknet.U256ToFelts(starknet.AmountToBase(amount, token.Decimals))
	if err != nil {
		return "", fmt.Errorf("encode amount: %w", err)
	}

	// Account __execute__ calldata: single call to token.transfer(recipient, u256)
	calldata := []string{
		"0x1", // call count
		token.Address,
		selectorTransfer,
		"0x3", // calldata length
		recipient,
		low,
		high,
	}

	nonce, err := a.rpc.Nonce(ctx, a.address)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}

	estimate, err := a.rpc.EstimateFee(ctx, starknet.InvokeTxn{
		Type:          "INVOKE",
		Version:       invokeVersion,
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        "0x0",
		Signature:     []string{},
		Nonce:         nonce,
	})
	if err != nil {
		return "", fmt.Errorf("estimate fee: %w", err)
	}

	maxFee, err := scaleFee(estimate.OverallFee)
	if err != nil {
		return "", err
	}

	signature, err := a.signer.SignInvoke(ctx, SignRequest{
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        maxFee,
		Nonce:         nonce,
		ChainID:       a.chainID,
		Version:       invokeVersion,
	})
	if err != nil {
		return "", fmt.Errorf("sign invoke: %w", err)
	}

	txHash, err := a.rpc.AddInvokeTransaction(ctx, starknet.InvokeTxn{
		Type:          "INVOKE",
		Version:       invokeVersion,
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        maxFee,
		Signature:     signature,
		Nonce:         nonce,
	})
	if err != nil {
		return "", fmt.Errorf("submit invoke: %w", err)
	}

	return txHash, nil
}

// Execute submits a pre-built multicall (flattened __execute__ calldata)
// through the account, e.g. a swap produced by a quote provider.
func (a *Account) Execute(ctx context.Context, calldata []string) (string, error) {
	if len(calldata) == 0 {
		return "", fmt.Errorf("empty calldata")
	}

	nonce, err := a.rpc.Nonce(ctx, a.address)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}

	estimate, err := a.rpc.EstimateFee(ctx, starknet.InvokeTxn{
		Type:          "INVOKE",
		Version:       invokeVersion,
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        "0x0",
		Signature:     []string{},
		Nonce:         nonce,
	})
	if err != nil {
		return "", fmt.Errorf("estimate fee: %w", err)
	}

	maxFee, err := scaleFee(estimate.OverallFee)
	if err != nil {
		return "", err
	}

	signature, err := a.signer.SignInvoke(ctx, SignRequest{
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        maxFee,
		Nonce:         nonce,
		ChainID:       a.chainID,
		Version:       invokeVersion,
	})
	if err != nil {
		return "", fmt.Errorf("sign invoke: %w", err)
	}

	return a.rpc.AddInvokeTransaction(ctx, starknet.InvokeTxn{
		Type:          "INVOKE",
		Version:       invokeVersion,
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        maxFee,
		Signature:     signature,
		Nonce:         nonce,
	})
}

// WaitForReceipt polls until the transaction reaches a terminal status or
// ctx expires. A reverted transaction returns the receipt and an error.
func (a *Account) WaitForReceipt(ctx context.Context, txHash string, pollInterval time.Duration) (*starknet.TransactionReceipt, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.rpc.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, fmt.Errorf("get receipt: %w", err)
		}

		if receipt != nil && receipt.Accepted() {
			if receipt.ExecutionStatus == starknet.ExecutionReverted {
				return receipt, fmt.Errorf("transaction reverted: %s", receipt.RevertReason)
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// scaleFee multiplies an estimated fee felt by the safety margin.
func scaleFee(fee string) (string, error) {
	v, err := starknet.BigFromFelt(fee)
	if err != nil {
		return "", fmt.Errorf("decode fee estimate: %w", err)
	}
	v.Mul(v, big.NewInt(feeMarginNum))
	v.Div(v, big.NewInt(feeMarginDen))
	return starknet.FeltFromBig(v), nil
}
