// Package bitcoin validates Bitcoin addresses used on the BTC leg of
// cross-chain swaps.
package bitcoin

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address kinds and networks.
type AddressKind string

const (
	KindP2PKH AddressKind = "p2pkh"
	KindP2SH  AddressKind = "p2sh"
)

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Base58Check version bytes.
const (
	versionP2PKHMainnet = 0x00
	versionP2SHMainnet  = 0x05
	versionP2PKHTestnet = 0x6f
	versionP2SHTestnet  = 0xc4
)

// Validation errors.
var (
	ErrBadEncoding = errors.New("invalid base58 encoding")
	ErrBadLength   = errors.New("invalid decoded length")
	ErrBadChecksum = errors.New("checksum mismatch")
	ErrBadVersion  = errors.New("unknown version byte")
)

// Address is a decoded Base58Check Bitcoin address.
type Address struct {
	Encoded string
	Kind    AddressKind
	Network Network
	Hash160 [20]byte
}

// ParseAddress decodes and validates a Base58Check address (P2PKH or P2SH).
func ParseAddress(s string) (*Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}

	// version byte + 20-byte hash160 + 4-byte checksum
	if len(raw) != 25 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadLength, len(raw))
	}

	payload, checksum := raw[:21], raw[21:]
	if !bytes.Equal(checksum, checksumOf(payload)) {
		return nil, ErrBadChecksum
	}

	addr := &Address{Encoded: s}
	copy(addr.Hash160[:], payload[1:])

	switch payload[0] {
	case versionP2PKHMainnet:
		addr.Kind, addr.Network = KindP2PKH, NetworkMainnet
	case versionP2SHMainnet:
		addr.Kind, addr.Network = KindP2SH, NetworkMainnet
	case versionP2PKHTestnet:
		addr.Kind, addr.Network = KindP2PKH, NetworkTestnet
	case versionP2SHTestnet:
		addr.Kind, addr.Network = KindP2SH, NetworkTestnet
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadVersion, payload[0])
	}

	return addr, nil
}

// ValidForNetwork reports whether s is a valid address on the given network.
func ValidForNetwork(s string, network Network) bool {
	addr, err := ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Network == network
}

// checksumOf computes the 4-byte double-SHA256 checksum of payload.
func checksumOf(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}
