package registry

import (
	"strings"

	"vaultScope/internal/errs"
)

// Token captures addressbook metadata for one tracked token on one chain.
type Token struct {
	Symbol   string
	Address  string
	Decimals uint8
	OracleID string
}

// tokens maps chain id -> symbol -> token. Addresses are stored lower-cased
// since addresses are case-insensitive identifiers. Only tokens tracked by a
// point program need an entry; anything else is an unknown token.
var tokens = map[string]map[string]Token{
	"ethereum": {
		"USDe":   {Symbol: "USDe", Address: "0x4c9edd5852cd905f086c759e8383e09bff1e68b3", Decimals: 18, OracleID: "USDe"},
		"sUSDe":  {Symbol: "sUSDe", Address: "0x9d39a5de30e57443bff2a8307a4256c8797a3497", Decimals: 18, OracleID: "sUSDe"},
		"eETH":   {Symbol: "eETH", Address: "0x35fa164735182de50811e8e2e824cfb9b6118ac2", Decimals: 18, OracleID: "eETH"},
		"weETH":  {Symbol: "weETH", Address: "0xcd5fe23c85820f7b72d0926fc9b05b43e359b7ee", Decimals: 18, OracleID: "weETH"},
		"rsETH":  {Symbol: "rsETH", Address: "0xa1290d69c65a6fe4df752f95823fae25cb99e5a7", Decimals: 18, OracleID: "rsETH"},
		"wstUSR": {Symbol: "wstUSR", Address: "0x1202f5c7b4b9e47a1a484e8b270be34dbbc75055", Decimals: 18, OracleID: "wstUSR"},
		"USDf":   {Symbol: "USDf", Address: "0xfa2b947eec368f42195f24f36d2af29f7c24cec2", Decimals: 18, OracleID: "USDf"},
		"sUSDf":  {Symbol: "sUSDf", Address: "0xc8cf6d7991f15525488b2a83df53468d682ba4b0", Decimals: 18, OracleID: "sUSDf"},
		"USDz":   {Symbol: "USDz", Address: "0xa469b7ee9ee773642b3e93e842e5d9b5baa10067", Decimals: 18, OracleID: "USDz"},
		"uniETH": {Symbol: "uniETH", Address: "0xf1376bcef0f78459c0ed0ba5ddce976f1ddf51f4", Decimals: 18, OracleID: "uniETH"},
		"vETH":   {Symbol: "vETH", Address: "0x38d64ce1bdf1a9f24e0ec469c9cade61236fb4a0", Decimals: 18, OracleID: "vETH"},
	},
	"arbitrum": {
		"USDe":  {Symbol: "USDe", Address: "0x5d3a1ff2b6bab83b63cd9ad0787074081a52ef34", Decimals: 18, OracleID: "USDe"},
		"sUSDe": {Symbol: "sUSDe", Address: "0x211cc4dd073734da055fbf44a2b4667d5e5fe5d2", Decimals: 18, OracleID: "sUSDe"},
		"weETH": {Symbol: "weETH", Address: "0x35751007a407ca6feffe80b3cb397736d2cf4dbe", Decimals: 18, OracleID: "weETH"},
		"rsETH": {Symbol: "rsETH", Address: "0x4186bfc76e2e237523cbc30fd220fe055156b41f", Decimals: 18, OracleID: "rsETH"},
	},
	"base": {
		"USDe":  {Symbol: "USDe", Address: "0x5d3a1ff2b6bab83b63cd9ad0787074081a52ef34", Decimals: 18, OracleID: "USDe"},
		"weETH": {Symbol: "weETH", Address: "0x04c0599ae5a44757c0af6f9ec3b93da8976c150a", Decimals: 18, OracleID: "weETH"},
		"USDz":  {Symbol: "USDz", Address: "0x04d5ddf5f3a8939889f11e97f8c4bb48317f1938", Decimals: 18, OracleID: "USDz"},
	},
	"sonic": {
		"scUSD": {Symbol: "scUSD", Address: "0xd3dce716f3ef535c5ff8d041c1a41c3bd89b97ae", Decimals: 6, OracleID: "scUSD"},
	},
	"linea": {
		"inETH":  {Symbol: "inETH", Address: "0x5a7a183b6b44dc4ec2e3d2ef43f98c5152b1d76d", Decimals: 18, OracleID: "inETH"},
		"ainETH": {Symbol: "ainETH", Address: "0xcc72f778eedd8e337e6cb58ca9ec8ba2912e71dc", Decimals: 18, OracleID: "ainETH"},
		"weETH":  {Symbol: "weETH", Address: "0x1bf74c010e6320bab11e2e5a532b5ac15e0b8aa6", Decimals: 18, OracleID: "weETH"},
		"wrsETH": {Symbol: "wrsETH", Address: "0xd2671165570f41bbb3b0097893300b6eb6101e6c", Decimals: 18, OracleID: "wrsETH"},
	},
	"manta": {
		"STONE": {Symbol: "STONE", Address: "0xec901da9c68e90798bbbb74c11406a32a70652c3", Decimals: 18, OracleID: "STONE"},
	},
	"mode": {
		"weETH": {Symbol: "weETH", Address: "0x028227c4dd1e5419d11bb6fa6e661920c519d4f5", Decimals: 18, OracleID: "weETH.mode"},
		"wrsETH": {Symbol: "wrsETH", Address: "0xe7903b1f75c534dd8159b313d92cdcfbc62cb3cd", Decimals: 18, OracleID: "wrsETH"},
	},
	"bsc": {
		"SolvBTC.BBN": {Symbol: "SolvBTC.BBN", Address: "0x1346b618dc92810ec74163e4c27004c921d446a5", Decimals: 18, OracleID: "SolvBTC.BBN"},
	},
}

// GetTokenBySymbol returns the token tracked under symbol on the chain, or
// nil when the addressbook has no entry (soft lookup, mirrors GetChainOrNil).
func GetTokenBySymbol(chainID, symbol string) *Token {
	bysym, ok := tokens[chainID]
	if !ok {
		return nil
	}
	t, ok := bysym[symbol]
	if !ok {
		return nil
	}
	return &t
}

// GetTokenByAddress resolves a token by its contract address. The address
// comparison is case-insensitive. Unknown addresses are an UnknownTokenError:
// decimals must never be guessed.
func GetTokenByAddress(chainID, address string) (Token, error) {
	needle := strings.ToLower(address)
	for _, t := range tokens[chainID] {
		if t.Address == needle {
			return t, nil
		}
	}
	return Token{}, errs.UnknownToken(chainID, address)
}

// TokensForProvider resolves the provider's tracked symbols on a chain to
// addressbook entries, dropping symbols with no entry. An empty result means
// the provider tracks nothing resolvable on that chain.
func TokensForProvider(chainID string, providerID ProviderID) []Token {
	symbols, ok := ProviderSymbols(chainID, providerID)
	if !ok {
		return nil
	}
	out := make([]Token, 0, len(symbols))
	for _, s := range symbols {
		if t := GetTokenBySymbol(chainID, s); t != nil {
			out = append(out, *t)
		}
	}
	return out
}
