package starknet

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// feltPrime is the Stark field prime 2^251 + 17*2^192 + 1.
var feltPrime, _ = new(big.Int).SetString(
	"800000000000011000000000000000000000000000000000000000000000001", 16)

var feltPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// IsValidFelt reports whether s is a hex-encoded field element below the
// Stark prime.
func IsValidFelt(s string) bool {
	if !feltPattern.MatchString(s) {
		return false
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return false
	}
	return v.Cmp(feltPrime) < 0
}

// NormalizeFelt lowercases a felt and strips leading zeros, keeping the 0x
// prefix. Returns an error for invalid input.
func NormalizeFelt(s string) (string, error) {
	if !IsValidFelt(s) {
		return "", fmt.Errorf("invalid felt: %q", s)
	}
	v, _ := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	return "0x" + v.Text(16), nil
}

// FeltFromBig encodes a big integer as a felt hex string.
func FeltFromBig(v *big.Int) string {
	return "0x" + v.Text(16)
}

// BigFromFelt decodes a felt hex string into a big integer.
func BigFromFelt(s string) (*big.Int, error) {
	if !feltPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid felt: %q", s)
	}
	v, _ := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	return v, nil
}

// U256FromFelts combines the (low, high) felt pair of a Cairo u256 into a
// single big integer: high*2^128 + low.
func U256FromFelts(low, high string) (*big.Int, error) {
	lo, err := BigFromFelt(low)
	if err != nil {
		return nil, fmt.Errorf("u256 low: %w", err)
	}
	hi, err := BigFromFelt(high)
	if err != nil {
		return nil, fmt.Errorf("u256 high: %w", err)
	}
	v := new(big.Int).Lsh(hi, 128)
	return v.Add(v, lo), nil
}

// U256ToFelts splits a non-negative big integer into the (low, high) felt
// pair of a Cairo u256.
func U256ToFelts(v *big.Int) (low, high string, err error) {
	if v.Sign() < 0 {
		return "", "", fmt.Errorf("u256 cannot encode negative value %s", v)
	}
	if v.BitLen() > 256 {
		return "", "", fmt.Errorf("value %s overflows u256", v)
	}
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	lo := new(big.Int).And(v, mask)
	hi := new(big.Int).Rsh(v, 128)
	return FeltFromBig(lo), FeltFromBig(hi), nil
}

// AmountFromBase converts base units to human units given token decimals.
func AmountFromBase(base *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(base, -decimals)
}

// AmountToBase converts human units to base units, truncating sub-unit dust.
func AmountToBase(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// DecodeShortString decodes a Cairo short string felt (e.g. the chain ID
// "SN_MAIN") into its ASCII form. Returns the raw felt if any byte is not
// printable ASCII.
func DecodeShortString(felt string) string {
	v, err := BigFromFelt(felt)
	if err != nil {
		return felt
	}
	b := v.Bytes()
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return felt
		}
	}
	return string(b)
}
