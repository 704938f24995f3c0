package starknet

import "context"

// HeadsClient defines the Starknet WebSocket new-heads subscription interface.
type HeadsClient interface {
	// SubscribeNewHeads subscribes to new block headers.
	SubscribeNewHeads(ctx context.Context) (<-chan NewHead, error)

	// Close closes the WebSocket connection.
	Close() error
}

// NewHead is a new block header notification.
type NewHead struct {
	BlockHash   string
	BlockNumber int64
	ParentHash  string
	Timestamp   int64 // block timestamp, Unix seconds
}
