package model

import "math/big"

// BlockRef pins a value to the block it was observed at.
type BlockRef struct {
	Number    uint64
	Timestamp uint64
}

// TokenBalance is one raw holder balance at a fixed block: un-decimalized
// and un-attributed to any vault semantics.
type TokenBalance struct {
	UserAddress  string
	TokenAddress string
	Balance      *big.Int
}

// BreakdownBalance is the vault's raw balance of one underlying token.
type BreakdownBalance struct {
	TokenAddress string
	VaultBalance *big.Int
}

// VaultBreakdown decomposes one vault's pooled asset at one block.
type VaultBreakdown struct {
	Vault               VaultConfig
	BlockNumber         uint64
	VaultTotalSupply    *big.Int
	IsLiquidityEligible bool
	Balances            []BreakdownBalance
}

// VaultDetail is one vault's contribution to a user's token balance.
type VaultDetail struct {
	VaultID      string
	VaultAddress string
	Contribution *big.Int
}

// UserTokenBalance is one (user, token) row produced by the aggregation
// pipeline: the user's share of a token across all matching vaults.
type UserTokenBalance struct {
	BlockNumber  uint64
	UserAddress  string
	TokenAddress string
	Balance      *big.Int
	Details      []VaultDetail
}

// BreakdownRow is one pre-computed per-position breakdown line from the
// indexed data source, used by the provider balances flow.
type BreakdownRow struct {
	VaultID         string
	VaultAddress    string
	TokenAddress    string
	TokenSymbol     string
	TokenDecimals   uint8
	InvestorAddress string
	ShareBalance    *big.Int
	Balance         *big.Int
	TimeWeighted1s  *big.Int
	LastUpdate      BlockRef
}

// DetailLine is one per-vault line in an aggregated user position.
type DetailLine struct {
	Vault          string
	Balance        *big.Int
	Token          string
	TimeWeighted1h *big.Int
}

// AggregatedUserPosition is the per-user result of folding raw balances and
// breakdowns together. Ephemeral: recomputed per request, cached by TTL.
type AggregatedUserPosition struct {
	Address           string
	EffectiveBalance  *big.Int
	TimeWeighted1h    *big.Int
	LastUpdateBlock   BlockRef
	Detail            []DetailLine
}

// VaultTotal summarizes one vault's aggregate contribution in a response.
type VaultTotal struct {
	ID      string
	Address string
	Total   *big.Int
}
