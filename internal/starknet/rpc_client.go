package starknet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// RPC error codes the client has to recognize.
const (
	codeTxnHashNotFound = 29 // TXN_HASH_NOT_FOUND
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	observer    func(method string, seconds float64)
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithCallObserver registers a hook invoked after each RPC call with the
// method name and wall-clock seconds spent, retries included.
func WithCallObserver(fn func(method string, seconds float64)) ClientOption {
	return func(c *HTTPClient) {
		c.observer = fn
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Starknet RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error returned by the node.
// RPC errors signal a definitive node answer and are never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if c.observer != nil {
		defer func(start time.Time) {
			c.observer(method, time.Since(start).Seconds())
		}(time.Now())
	}

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// BlockNumber retrieves the latest block number.
func (c *HTTPClient) BlockNumber(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "starknet_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// BlockHashAndNumber retrieves the latest block hash and number.
func (c *HTTPClient) BlockHashAndNumber(ctx context.Context) (*BlockID, error) {
	var result BlockID
	if err := c.call(ctx, "starknet_blockHashAndNumber", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChainID retrieves the chain identifier felt.
func (c *HTTPClient) ChainID(ctx context.Context) (string, error) {
	var result string
	if err := c.call(ctx, "starknet_chainId", nil, &result); err != nil {
		return "", err
	}
	return result, nil
}

// Call executes a read-only contract call at the latest block.
func (c *HTTPClient) Call(ctx context.Context, call FunctionCall) ([]string, error) {
	params := []interface{}{call, "latest"}

	var result []string
	if err := c.call(ctx, "starknet_call", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Nonce retrieves the latest nonce of a contract.
func (c *HTTPClient) Nonce(ctx context.Context, contractAddress string) (string, error) {
	params := []interface{}{"latest", contractAddress}

	var result string
	if err := c.call(ctx, "starknet_getNonce", params, &result); err != nil {
		return "", err
	}
	return result, nil
}

// EstimateFee estimates the fee of an invoke transaction.
func (c *HTTPClient) EstimateFee(ctx context.Context, txn InvokeTxn) (*FeeEstimate, error) {
	params := []interface{}{
		[]InvokeTxn{txn},
		[]string{}, // simulation flags
		"latest",
	}

	var result []FeeEstimate
	if err := c.call(ctx, "starknet_estimateFee", params, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty fee estimate result")
	}
	return &result[0], nil
}

// AddInvokeTransaction submits a signed invoke transaction.
func (c *HTTPClient) AddInvokeTransaction(ctx context.Context, txn InvokeTxn) (string, error) {
	params := []interface{}{txn}

	var result addInvokeResult
	if err := c.call(ctx, "starknet_addInvokeTransaction", params, &result); err != nil {
		return "", err
	}
	return result.TransactionHash, nil
}

// addInvokeResult is the raw RPC response for addInvokeTransaction.
type addInvokeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// TransactionReceipt retrieves a receipt by transaction hash.
// Returns nil if the node does not know the transaction yet.
func (c *HTTPClient) TransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error) {
	params := []interface{}{txHash}

	var result receiptResult
	if err := c.call(ctx, "starknet_getTransactionReceipt", params, &result); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == codeTxnHashNotFound {
			// Transaction not found
			return nil, nil
		}
		return nil, err
	}

	receipt := &TransactionReceipt{
		TransactionHash: result.TransactionHash,
		ExecutionStatus: result.ExecutionStatus,
		FinalityStatus:  result.FinalityStatus,
		BlockNumber:     result.BlockNumber,
		RevertReason:    result.RevertReason,
	}

	// actual_fee is a {amount, unit} object from spec v0.7, a bare felt before
	if len(result.ActualFee) > 0 {
		if result.ActualFee[0] == '{' {
			var fee struct {
				Amount string `json:"amount"`
			}
			if err := json.Unmarshal(result.ActualFee, &fee); err != nil {
				return nil, fmt.Errorf("unmarshal actual_fee: %w", err)
			}
			receipt.ActualFee = fee.Amount
		} else {
			var fee string
			if err := json.Unmarshal(result.ActualFee, &fee); err != nil {
				return nil, fmt.Errorf("unmarshal actual_fee: %w", err)
			}
			receipt.ActualFee = fee
		}
	}

	return receipt, nil
}

// receiptResult is the raw RPC response for getTransactionReceipt.
type receiptResult struct {
	TransactionHash string          `json:"transaction_hash"`
	ExecutionStatus string          `json:"execution_status"`
	FinalityStatus  string          `json:"finality_status"`
	BlockNumber     int64           `json:"block_number"`
	ActualFee       json.RawMessage `json:"actual_fee"`
	RevertReason    string          `json:"revert_reason"`
}

// Syncing reports node sync status. A nil result means fully synced.
func (c *HTTPClient) Syncing(ctx context.Context) (*SyncStatus, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "starknet_syncing", nil, &raw); err != nil {
		return nil, err
	}

	// A synced node answers with the literal false
	var synced bool
	if err := json.Unmarshal(raw, &synced); err == nil {
		return nil, nil
	}

	var result syncingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal syncing result: %w", err)
	}

	return &SyncStatus{
		StartingBlockNum:  result.StartingBlockNum,
		CurrentBlockNum:   result.CurrentBlockNum,
		HighestBlockNum:   result.HighestBlockNum,
		StartingBlockHash: result.StartingBlockHash,
		CurrentBlockHash:  result.CurrentBlockHash,
		HighestBlockHash:  result.HighestBlockHash,
	}, nil
}

// syncingResult is the raw RPC response for starknet_syncing.
type syncingResult struct {
	StartingBlockNum  int64  `json:"starting_block_num"`
	CurrentBlockNum   int64  `json:"current_block_num"`
	HighestBlockNum   int64  `json:"highest_block_num"`
	StartingBlockHash string `json:"starting_block_hash"`
	CurrentBlockHash  string `json:"current_block_hash"`
	HighestBlockHash  string `json:"highest_block_hash"`
}
