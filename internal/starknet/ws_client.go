package starknet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// OnReconnect is called after each successful reconnect.
	OnReconnect func()
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClientImpl implements HeadsClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   zerolog.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to channel
	subs   map[int64]chan NewHead
	subsMu sync.RWMutex

	// pendingSubs maps request ID to in-flight subscribe requests
	pendingSubs   map[uint64]*pendingSub
	pendingSubsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger zerolog.Logger) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		logger:      logger.With().Str("component", "starknet_ws").Logger(),
		subs:        make(map[int64]chan NewHead),
		pendingSubs: make(map[uint64]*pendingSub),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// pendingSub is a subscribe request awaiting its subscription ID. The
// reader registers heads into subs before signaling confirm, so notifications
// arriving right after the confirmation frame are never dropped.
type pendingSub struct {
	confirm chan int64
	heads   chan NewHead
}

// SubscribeNewHeads subscribes to new block headers.
func (c *WSClientImpl) SubscribeNewHeads(ctx context.Context) (<-chan NewHead, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	// Buffer absorbs bursts during slow consumers; dispatch blocks rather
	// than dropping heads
	ch := make(chan NewHead, 1024)
	if _, err := c.subscribeInternal(ctx, ch); err != nil {
		return nil, err
	}

	return ch, nil
}

// subscribeInternal issues the subscribe request and waits for the
// subscription ID. The heads channel is registered by the read loop the
// moment the confirmation arrives.
func (c *WSClientImpl) subscribeInternal(ctx context.Context, heads chan NewHead) (int64, error) {
	reqID := c.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "starknet_subscribeNewHeads",
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = &pendingSub{confirm: confirmCh, heads: heads}
	c.pendingSubsMu.Unlock()

	discard := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()

		// The reader may have confirmed and registered the channel just
		// before the delete above; undo the registration in that case.
		select {
		case subID := <-confirmCh:
			c.subsMu.Lock()
			delete(c.subs, subID)
			c.subsMu.Unlock()
		default:
		}
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		discard()
		return 0, fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		discard()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	// Wait for subscription confirmation (30s timeout for slow providers)
	select {
	case subID := <-confirmCh:
		if subID == 0 {
			return 0, fmt.Errorf("client closed")
		}
		return subID, nil
	case <-time.After(30 * time.Second):
		discard()
		return 0, fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		discard()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Close all subscription channels
	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	// Unblock waiters on pending subscriptions
	c.pendingSubsMu.Lock()
	for id, pending := range c.pendingSubs {
		close(pending.confirm)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	// Wait before reconnecting
	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	// Close existing connection
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("reconnect failed, will retry on next read error")
		return
	}

	c.logger.Info().Msg("reconnected")
	if c.config.OnReconnect != nil {
		c.config.OnReconnect()
	}
	c.resubscribeAll()
}

// resubscribeAll re-issues subscriptions after reconnect, remapping
// existing channels to the new subscription IDs. Old IDs are dead on the
// new connection, so they are unmapped before the new subscribe goes out.
func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.Lock()
	channels := make(map[int64]chan NewHead)
	for id, ch := range c.subs {
		channels[id] = ch
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	for oldSubID, ch := range channels {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := c.subscribeInternal(ctx, ch)
		cancel()

		if err != nil {
			c.logger.Warn().Err(err).Int64("sub_id", oldSubID).Msg("resubscribe failed")
		}
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	// Try to parse as subscription response first
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	// Try to parse as notification
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "starknet_subscriptionNewHeads" {
		c.handleHeadNotification(&notif)
		return
	}

	// Check for error response
	var errResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		// Subscription attempt will time out; surface the node answer
		c.logger.Warn().Int("code", errResp.Error.Code).Str("msg", errResp.Error.Message).Msg("ws error response")
	}
}

// handleSubscribeResponse handles subscription confirmation. The heads
// channel must be live before the confirmation is signaled: the next frame
// the reader sees can already be a notification for this subscription.
func (c *WSClientImpl) handleSubscribeResponse(resp *wsSubscribeResponse) {
	c.pendingSubsMu.Lock()
	pending, ok := c.pendingSubs[resp.ID]
	if ok {
		delete(c.pendingSubs, resp.ID)
	}
	c.pendingSubsMu.Unlock()

	if !ok {
		return
	}

	c.subsMu.Lock()
	c.subs[resp.Result] = pending.heads
	c.subsMu.Unlock()

	select {
	case pending.confirm <- resp.Result:
	default:
	}
}

// handleHeadNotification dispatches a new-head notification to its subscriber.
func (c *WSClientImpl) handleHeadNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	head := NewHead{
		BlockHash:   notif.Params.Result.BlockHash,
		BlockNumber: notif.Params.Result.BlockNumber,
		ParentHash:  notif.Params.Result.ParentHash,
		Timestamp:   notif.Params.Result.Timestamp,
	}

	c.subsMu.RLock()
	ch, ok := c.subs[notif.Params.SubscriptionID]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop heads
		select {
		case ch <- head:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	SubscriptionID int64        `json:"subscription_id"`
	Result         wsHeadResult `json:"result"`
}

type wsHeadResult struct {
	BlockHash   string `json:"block_hash"`
	BlockNumber int64  `json:"block_number"`
	ParentHash  string `json:"parent_hash"`
	Timestamp   int64  `json:"timestamp"`
}
