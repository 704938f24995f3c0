package starknet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestWSClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Keep connection open
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeNewHeads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}

		if req.Method != "starknet_subscribeNewHeads" {
			t.Errorf("expected starknet_subscribeNewHeads, got %s", req.Method)
		}

		// Confirm subscription
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(77),
		})

		// Push one head
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "starknet_subscriptionNewHeads",
			"params": map[string]interface{}{
				"subscription_id": int64(77),
				"result": map[string]interface{}{
					"block_hash":   "0xabc",
					"block_number": int64(1203456),
					"parent_hash":  "0xdef",
					"timestamp":    int64(1700000000),
				},
			},
		})

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeNewHeads(ctx)
	if err != nil {
		t.Fatalf("SubscribeNewHeads: %v", err)
	}

	select {
	case head := <-ch:
		if head.BlockNumber != 1203456 {
			t.Errorf("expected block 1203456, got %d", head.BlockNumber)
		}
		if head.BlockHash != "0xabc" {
			t.Errorf("expected hash 0xabc, got %s", head.BlockHash)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for head notification")
	}
}

func TestWSClient_HeadsRightAfterConfirm(t *testing.T) {
	const burst = 5

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}

		// Confirm and immediately flood heads in the same breath: all of
		// them must reach the subscriber.
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(9),
		})
		for i := 0; i < burst; i++ {
			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "starknet_subscriptionNewHeads",
				"params": map[string]interface{}{
					"subscription_id": int64(9),
					"result": map[string]interface{}{
						"block_hash":   "0x1",
						"block_number": int64(100 + i),
						"parent_hash":  "0x0",
						"timestamp":    int64(1700000000 + i),
					},
				},
			})
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeNewHeads(context.Background())
	if err != nil {
		t.Fatalf("SubscribeNewHeads: %v", err)
	}

	for i := 0; i < burst; i++ {
		select {
		case head := <-ch:
			if head.BlockNumber != int64(100+i) {
				t.Errorf("head %d: expected block %d, got %d", i, 100+i, head.BlockNumber)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for head %d of %d", i, burst)
		}
	}
}

func TestWSClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Double close is a no-op
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	client.Close()

	if _, err := client.SubscribeNewHeads(context.Background()); err == nil {
		t.Error("expected error subscribing on closed client")
	}
}
