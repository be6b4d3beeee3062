package model

import "math/big"

// Position is one flat (vault, holder) row carrying both a share balance
// and its underlying-token equivalent. Unrolling rewrites the holder side
// of these rows while conserving both sums exactly.
type Position struct {
	VaultAddress    string
	TokenAddress    string
	TokenSymbol     string
	HolderAddress   string
	ShareBalance    *big.Int
	UnderlyingValue *big.Int
	LastUpdate      BlockRef
}

// PoolHolderBalance is one holder's raw share balance in a pooled contract.
type PoolHolderBalance struct {
	HolderAddress string
	Shares        *big.Int
}

// SumShares returns the exact sum of share balances over positions.
func SumShares(positions []Position) *big.Int {
	total := new(big.Int)
	for _, p := range positions {
		if p.ShareBalance != nil {
			total.Add(total, p.ShareBalance)
		}
	}
	return total
}

// SumUnderlying returns the exact sum of underlying values over positions.
func SumUnderlying(positions []Position) *big.Int {
	total := new(big.Int)
	for _, p := range positions {
		if p.UnderlyingValue != nil {
			total.Add(total, p.UnderlyingValue)
		}
	}
	return total
}
