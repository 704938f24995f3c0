package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnector_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	c := NewConnector(server.URL)
	require.NoError(t, c.Health(context.Background()))
}

func TestConnector_Health_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "locked"})
	}))
	defer server.Close()

	c := NewConnector(server.URL)
	require.Error(t, c.Health(context.Background()))
}

func TestConnector_Accounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"accounts": []map[string]string{
				{
					"address":     "0xabc",
					"network":     "mainnet",
					"btc_address": "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
				},
			},
		})
	}))
	defer server.Close()

	c := NewConnector(server.URL)
	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "0xabc", accounts[0].Address)
	assert.Equal(t, "mainnet", accounts[0].Network)
}

func TestConnector_SignInvoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sign/invoke", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req SignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xabc", req.SenderAddress)
		assert.Equal(t, "0x1", req.Version)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"signature": []string{"0x111", "0x222"},
		})
	}))
	defer server.Close()

	c := NewConnector(server.URL)
	sig, err := c.SignInvoke(context.Background(), SignRequest{
		SenderAddress: "0xabc",
		Calldata:      []string{"0x1"},
		MaxFee:        "0x1000",
		Nonce:         "0x5",
		ChainID:       "0x534e5f4d41494e",
		Version:       "0x1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0x111", "0x222"}, sig)
}

func TestConnector_SignInvoke_ShortSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"signature": []string{"0x111"}})
	}))
	defer server.Close()

	c := NewConnector(server.URL)
	_, err := c.SignInvoke(context.Background(), SignRequest{})
	require.Error(t, err)
}

func TestConnector_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "wallet locked", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewConnector(server.URL)
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
