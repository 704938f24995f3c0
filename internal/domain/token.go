package domain

// Token describes an asset the probe can quote or move.
type Token struct {
	Symbol   string // e.g. "ETH"
	Chain    string // "starknet" | "bitcoin"
	Address  string // ERC-20 contract address (felt hex), empty for native BTC
	Decimals int32
}

// Chain constants.
const (
	ChainStarknet = "starknet"
	ChainBitcoin  = "bitcoin"
)

// Well-known Starknet mainnet token contracts.
var (
	TokenETH = Token{
		Symbol:   "ETH",
		Chain:    ChainStarknet,
		Address:  "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
		Decimals: 18,
	}
	TokenSTRK = Token{
		Symbol:   "STRK",
		Chain:    ChainStarknet,
		Address:  "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d",
		Decimals: 18,
	}
	TokenUSDC = Token{
		Symbol:   "USDC",
		Chain:    ChainStarknet,
		Address:  "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8",
		Decimals: 6,
	}
	TokenWBTC = Token{
		Symbol:   "WBTC",
		Chain:    ChainStarknet,
		Address:  "0x03fe2b97c1fd336e750087d68b9b867997fd64a2661ff3ca5a7c771641e8e7ac",
		Decimals: 8,
	}
	TokenBTC = Token{
		Symbol:   "BTC",
		Chain:    ChainBitcoin,
		Decimals: 8,
	}
)

// TokenBySymbol resolves a known token by its symbol. Returns false if unknown.
func TokenBySymbol(symbol string) (Token, bool) {
	switch symbol {
	case "ETH":
		return TokenETH, true
	case "STRK":
		return TokenSTRK, true
	case "USDC":
		return TokenUSDC, true
	case "WBTC":
		return TokenWBTC, true
	case "BTC":
		return TokenBTC, true
	}
	return Token{}, false
}
