package aggregate

import (
	"math/big"
	"sort"
	"strings"

	"vaultScope/internal/model"
)

// weightScale fixes the precision of share weights: a holder owning the
// whole supply has weight 10^36.
var weightScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)

// HolderWeight is one holder's absolute amount and scaled share of the
// total.
type HolderWeight struct {
	Address string
	Amount  *big.Int
	Weight  *big.Int
}

// ShareWeights computes each holder's fraction of the summed amounts,
// scaled by 10^36 and floored. Balances are folded per holder first, so a
// holder staked in both a vault and its reward pool gets one merged row.
// Excluded addresses (the vault universe) are dropped before the total is
// taken, so weights are relative to end-user holdings only. Output is
// ordered by descending amount, then address.
func ShareWeights(balances []model.TokenBalance, exclude map[string]struct{}) []HolderWeight {
	total := new(big.Int)
	amounts := make(map[string]*big.Int)
	for _, b := range balances {
		holder := strings.ToLower(b.UserAddress)
		if _, skip := exclude[holder]; skip {
			continue
		}
		if prev, ok := amounts[holder]; ok {
			prev.Add(prev, b.Balance)
		} else {
			amounts[holder] = new(big.Int).Set(b.Balance)
		}
		total.Add(total, b.Balance)
	}

	if total.Sign() == 0 {
		return nil
	}

	out := make([]HolderWeight, 0, len(amounts))
	for holder, amount := range amounts {
		weight := new(big.Int).Mul(amount, weightScale)
		weight.Div(weight, total)
		out = append(out, HolderWeight{
			Address: holder,
			Amount:  amount,
			Weight:  weight,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].Amount.Cmp(out[j].Amount)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].Address < out[j].Address
	})
	return out
}
