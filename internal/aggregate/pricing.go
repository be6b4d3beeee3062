package aggregate

import (
	"context"
	"math/big"
	"sort"

	"vaultScope/internal/model"
	"vaultScope/internal/registry"
)

// Pricer resolves a USD price for an oracle id at a timestamp. A missing
// price must surface as an error, never as zero.
type Pricer interface {
	GetTokenPrice(ctx context.Context, oracleID string, timestamp uint64) (float64, error)
}

// RankedPosition is one user's total USD value across all matching tokens.
type RankedPosition struct {
	Address    string
	BalanceUSD float64
}

// Decimalize converts a raw integer amount to its decimal representation
// using the token's decimals. Exact: no float conversion happens until the
// caller multiplies by a price.
func Decimalize(raw *big.Int, decimals uint8) *big.Rat {
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(raw, denom)
}

// ValuePositionsUSD converts per-token user balances to per-user USD totals
// at the block timestamp. Token metadata comes from the addressbook, so an
// unresolvable token address fails with UnknownTokenError, and a missing
// price fails with PriceNotFoundError; neither is ever skipped or zeroed.
func ValuePositionsUSD(ctx context.Context, pricer Pricer, chainID string, rows []model.UserTokenBalance, timestamp uint64) ([]RankedPosition, error) {
	prices := make(map[string]float64)
	totals := make(map[string]float64)

	for _, row := range rows {
		token, err := registry.GetTokenByAddress(chainID, row.TokenAddress)
		if err != nil {
			return nil, err
		}

		price, ok := prices[token.OracleID]
		if !ok {
			price, err = pricer.GetTokenPrice(ctx, token.OracleID, timestamp)
			if err != nil {
				return nil, err
			}
			prices[token.OracleID] = price
		}

		amount, _ := Decimalize(row.Balance, token.Decimals).Float64()
		totals[row.UserAddress] += amount * price
	}

	out := make([]RankedPosition, 0, len(totals))
	for address, usd := range totals {
		out = append(out, RankedPosition{Address: address, BalanceUSD: usd})
	}
	SortRankedDesc(out)
	return out, nil
}

// SortRankedDesc orders positions by descending USD value, breaking ties by
// address so identical inputs always produce identical output.
func SortRankedDesc(positions []RankedPosition) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].BalanceUSD != positions[j].BalanceUSD {
			return positions[i].BalanceUSD > positions[j].BalanceUSD
		}
		return positions[i].Address < positions[j].Address
	})
}
