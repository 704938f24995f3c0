package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"starknet-probe/internal/bitcoin"
	"starknet-probe/internal/domain"
	"starknet-probe/internal/starknet"
)

// DefaultProviderTimeout bounds each provider request.
const DefaultProviderTimeout = 20 * time.Second

// HTTPProvider is a REST swap-aggregator client (quote + order creation).
type HTTPProvider struct {
	name       string
	baseURL    string
	btcNetwork bitcoin.Network
	client     *http.Client
}

// NewHTTPProvider creates a provider client. btcNetwork selects which
// Bitcoin network addresses on BTC legs must belong to.
func NewHTTPProvider(name, baseURL string, btcNetwork bitcoin.Network) *HTTPProvider {
	return &HTTPProvider{
		name:       name,
		baseURL:    baseURL,
		btcNetwork: btcNetwork,
		client:     &http.Client{Timeout: DefaultProviderTimeout},
	}
}

// Compile-time interface check.
var _ Provider = (*HTTPProvider)(nil)

// Name identifies the provider.
func (p *HTTPProvider) Name() string {
	return p.name
}

// HealthCheck verifies the provider is reachable.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s: health status %d", p.name, resp.StatusCode)
	}
	return nil
}

// quoteResponse is the raw provider quote payload.
type quoteResponse struct {
	QuoteID   string `json:"quote_id"`
	AmountOut string `json:"amount_out"`
	FeePct    string `json:"fee_pct"`
	ExpiresAt int64  `json:"expires_at"`
}

// Quote prices a swap request.
func (p *HTTPProvider) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	if req.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %s", req.AmountIn)
	}

	q := url.Values{}
	q.Set("in", req.In.Symbol)
	q.Set("out", req.Out.Symbol)
	q.Set("amount", req.AmountIn.String())
	q.Set("slippage_bps", fmt.Sprintf("%d", req.SlippageBPS))

	var resp quoteResponse
	if err := p.get(ctx, "/v1/quote?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	amountOut, err := decimal.NewFromString(resp.AmountOut)
	if err != nil {
		return nil, fmt.Errorf("provider %s: bad amount_out %q: %w", p.name, resp.AmountOut, err)
	}
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("provider %s: non-positive amount_out %s", p.name, amountOut)
	}

	feePct := decimal.Zero
	if resp.FeePct != "" {
		feePct, err = decimal.NewFromString(resp.FeePct)
		if err != nil {
			return nil, fmt.Errorf("provider %s: bad fee_pct %q: %w", p.name, resp.FeePct, err)
		}
	}

	return &domain.Quote{
		Provider:  p.name,
		In:        req.In,
		Out:       req.Out,
		AmountIn:  req.AmountIn,
		AmountOut: amountOut,
		FeePct:    feePct,
		QuoteID:   resp.QuoteID,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// orderResponse is the raw provider order payload.
type orderResponse struct {
	OrderID        string   `json:"order_id"`
	DepositAddress string   `json:"deposit_address"`
	Calls          []string `json:"calls"`
	CreatedAt      int64    `json:"created_at"`
}

// CreateOrder accepts a quote. Settlement addresses are validated per leg
// before anything is sent to the provider.
func (p *HTTPProvider) CreateOrder(ctx context.Context, quote domain.Quote, params OrderParams) (*domain.SwapOrder, error) {
	if quote.QuoteID == "" {
		return nil, fmt.Errorf("quote has no quote_id")
	}

	switch quote.Out.Chain {
	case domain.ChainBitcoin:
		if !bitcoin.ValidForNetwork(params.Recipient, p.btcNetwork) {
			return nil, fmt.Errorf("invalid %s recipient address %q", p.btcNetwork, params.Recipient)
		}
	case domain.ChainStarknet:
		if !starknet.IsValidFelt(params.Recipient) {
			return nil, fmt.Errorf("invalid starknet recipient address %q", params.Recipient)
		}
	}

	if quote.In.Chain == domain.ChainBitcoin {
		if !bitcoin.ValidForNetwork(params.RefundBTC, p.btcNetwork) {
			return nil, fmt.Errorf("BTC source leg requires a valid %s refund address", p.btcNetwork)
		}
	}

	body := map[string]string{
		"quote_id":       quote.QuoteID,
		"recipient":      params.Recipient,
		"refund_address": params.RefundBTC,
	}

	var resp orderResponse
	if err := p.post(ctx, "/v1/swap", body, &resp); err != nil {
		return nil, err
	}

	if quote.In.Chain == domain.ChainBitcoin && resp.DepositAddress == "" {
		return nil, fmt.Errorf("provider %s: BTC source leg without deposit address", p.name)
	}

	return &domain.SwapOrder{
		OrderID:        resp.OrderID,
		Provider:       p.name,
		Quote:          quote,
		DepositAddress: resp.DepositAddress,
		Calls:          resp.Calls,
		CreatedAt:      resp.CreatedAt,
	}, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return p.do(req, result)
}

func (p *HTTPProvider) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, result)
}

func (p *HTTPProvider) do(req *http.Request, result interface{}) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider %s: read response: %w", p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s: status %d: %s", p.name, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("provider %s: unmarshal response: %w", p.name, err)
	}
	return nil
}
