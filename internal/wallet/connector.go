// Package wallet provides account operations through an external wallet
// connector daemon. The probe never holds private keys: signing is delegated
// to the connector over HTTP.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultConnectorTimeout bounds each connector request.
const DefaultConnectorTimeout = 15 * time.Second

// Signer signs invoke transactions on behalf of an account.
type Signer interface {
	// SignInvoke returns the (r, s) felt signature for the transaction.
	SignInvoke(ctx context.Context, req SignRequest) ([]string, error)
}

// SignRequest carries the fields the connector hashes and signs.
type SignRequest struct {
	SenderAddress string   `json:"sender_address"`
	Calldata      []string `json:"calldata"`
	MaxFee        string   `json:"max_fee"`
	Nonce         string   `json:"nonce"`
	ChainID       string   `json:"chain_id"`
	Version       string   `json:"version"`
}

// AccountInfo describes an account exposed by the connector.
type AccountInfo struct {
	Address    string `json:"address"`     // Starknet account contract
	Network    string `json:"network"`     // "mainnet" | "sepolia"
	BTCAddress string `json:"btc_address"` // refund address for BTC legs, optional
}

// Connector is an HTTP client for the wallet connector daemon.
type Connector struct {
	baseURL string
	client  *http.Client
}

// NewConnector creates a connector client.
func NewConnector(baseURL string) *Connector {
	return &Connector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultConnectorTimeout},
	}
}

// Compile-time interface check.
var _ Signer = (*Connector)(nil)

// Health verifies the connector daemon is reachable and unlocked.
func (c *Connector) Health(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/v1/health", &result); err != nil {
		return err
	}
	if result.Status != "ok" {
		return fmt.Errorf("connector unhealthy: status %q", result.Status)
	}
	return nil
}

// Accounts retrieves the accounts the connector is willing to operate.
// An empty list means the wallet is not connected.
func (c *Connector) Accounts(ctx context.Context) ([]AccountInfo, error) {
	var result struct {
		Accounts []AccountInfo `json:"accounts"`
	}
	if err := c.get(ctx, "/v1/accounts", &result); err != nil {
		return nil, err
	}
	return result.Accounts, nil
}

// SignInvoke asks the connector to sign an invoke transaction.
func (c *Connector) SignInvoke(ctx context.Context, req SignRequest) ([]string, error) {
	var result struct {
		Signature []string `json:"signature"`
	}
	if err := c.post(ctx, "/v1/sign/invoke", req, &result); err != nil {
		return nil, err
	}
	if len(result.Signature) < 2 {
		return nil, fmt.Errorf("connector returned %d signature felts, want at least 2", len(result.Signature))
	}
	return result.Signature, nil
}

func (c *Connector) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Connector) post(ctx context.Context, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Connector) do(req *http.Request, result interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connector request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connector status %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
