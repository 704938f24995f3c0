package starknet

import "context"

// RPCClient defines the Starknet JSON-RPC interface used by the probe.
type RPCClient interface {
	// BlockNumber retrieves the latest block number.
	BlockNumber(ctx context.Context) (int64, error)

	// BlockHashAndNumber retrieves the latest block hash and number.
	BlockHashAndNumber(ctx context.Context) (*BlockID, error)

	// ChainID retrieves the chain identifier as a Cairo short string felt.
	ChainID(ctx context.Context) (string, error)

	// Call executes a read-only contract call at the latest block.
	Call(ctx context.Context, call FunctionCall) ([]string, error)

	// Nonce retrieves the latest nonce of a contract.
	Nonce(ctx context.Context, contractAddress string) (string, error)

	// EstimateFee estimates the fee of an invoke transaction.
	EstimateFee(ctx context.Context, txn InvokeTxn) (*FeeEstimate, error)

	// AddInvokeTransaction submits a signed invoke transaction.
	// Returns the transaction hash.
	AddInvokeTransaction(ctx context.Context, txn InvokeTxn) (string, error)

	// TransactionReceipt retrieves a receipt by transaction hash.
	// Returns nil if the transaction is not yet known to the node.
	TransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error)

	// Syncing reports node sync status. A nil result means the node is
	// fully synced.
	Syncing(ctx context.Context) (*SyncStatus, error)
}

// BlockID identifies a block by hash and number.
type BlockID struct {
	BlockHash   string `json:"block_hash"`
	BlockNumber int64  `json:"block_number"`
}

// FunctionCall is a read-only contract invocation.
type FunctionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// InvokeTxn is a version-1 invoke transaction.
type InvokeTxn struct {
	Type          string   `json:"type"` // always "INVOKE"
	Version       string   `json:"version"`
	SenderAddress string   `json:"sender_address"`
	Calldata      []string `json:"calldata"`
	MaxFee        string   `json:"max_fee"`
	Signature     []string `json:"signature"`
	Nonce         string   `json:"nonce"`
}

// Chain IDs as returned by starknet_chainId: Cairo short strings
// "SN_MAIN" and "SN_SEPOLIA" encoded as felts.
const (
	ChainMainnet = "0x534e5f4d41494e"
	ChainSepolia = "0x534e5f5345504f4c4941"
)

// Transaction finality and execution statuses.
const (
	FinalityAcceptedOnL2 = "ACCEPTED_ON_L2"
	FinalityAcceptedOnL1 = "ACCEPTED_ON_L1"
	ExecutionSucceeded   = "SUCCEEDED"
	ExecutionReverted    = "REVERTED"
)

// TransactionReceipt describes the result of a submitted transaction.
type TransactionReceipt struct {
	TransactionHash string
	ExecutionStatus string // SUCCEEDED | REVERTED
	FinalityStatus  string // ACCEPTED_ON_L2 | ACCEPTED_ON_L1
	BlockNumber     int64
	ActualFee       string // felt, fee in wei
	RevertReason    string
}

// Accepted reports whether the receipt reached an accepted finality status.
func (r *TransactionReceipt) Accepted() bool {
	return r.FinalityStatus == FinalityAcceptedOnL2 || r.FinalityStatus == FinalityAcceptedOnL1
}

// FeeEstimate is the node's fee estimation for a transaction.
type FeeEstimate struct {
	GasConsumed string `json:"gas_consumed"`
	GasPrice    string `json:"gas_price"`
	OverallFee  string `json:"overall_fee"`
}

// SyncStatus describes an actively syncing node.
type SyncStatus struct {
	CurrentBlockNum   int64
	HighestBlockNum   int64
	StartingBlockNum  int64
	CurrentBlockHash  string
	HighestBlockHash  string
	StartingBlockHash string
}
