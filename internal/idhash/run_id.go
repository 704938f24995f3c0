package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(network|started_at|seq)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(network string, startedAt int64, seq uint64) string {
	data := fmt.Sprintf("%s|%d|%d", network, startedAt, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
