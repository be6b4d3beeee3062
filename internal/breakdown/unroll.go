package breakdown

import (
	"math/big"
	"strings"

	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

// DispatchedShare is one holder's cut of a pooled position after
// proportional dispatch.
type DispatchedShare struct {
	HolderAddress string
	Shares        *big.Int
	Underlying    *big.Int
}

// DispatchProportional splits (sharesToDispatch, underlyingToDispatch)
// across holders pro rata by their pool share balances. Each holder's cut
// is amount * holderShares / poolTotalSupply computed exactly with one
// final floor truncation, so the dispatched sums can fall short of the
// inputs by at most len(holders)-1 units each.
//
// The holder balances must sum exactly to poolTotalSupply; a mismatch is a
// ConservationError since redistributing against a diverging supply would
// silently mint or burn balance.
func DispatchProportional(sharesToDispatch, underlyingToDispatch *big.Int, holders []model.PoolHolderBalance, poolTotalSupply *big.Int) ([]DispatchedShare, error) {
	if poolTotalSupply == nil || poolTotalSupply.Sign() == 0 {
		return nil, nil
	}

	holderSum := new(big.Int)
	for _, h := range holders {
		if h.Shares != nil {
			holderSum.Add(holderSum, h.Shares)
		}
	}
	if holderSum.Cmp(poolTotalSupply) != 0 {
		return nil, errs.Conservation("pool holder shares sum %s does not match pool total supply %s", holderSum, poolTotalSupply)
	}

	out := make([]DispatchedShare, 0, len(holders))
	for _, h := range holders {
		shares := h.Shares
		if shares == nil {
			shares = new(big.Int)
		}
		out = append(out, DispatchedShare{
			HolderAddress: strings.ToLower(h.HolderAddress),
			Shares:        floorMulDiv(sharesToDispatch, shares, poolTotalSupply),
			Underlying:    floorMulDiv(underlyingToDispatch, shares, poolTotalSupply),
		})
	}
	return out, nil
}

// UnrollPooledPositions replaces the position held by poolAddress with one
// position per pool holder, dispatched proportionally to their share of
// poolTotalSupply. Both the share sum and the underlying sum over the whole
// position list are conserved exactly: per-holder cuts are floored and the
// floor remainders are credited to the largest pool holder.
//
// Positions without a pooled holder pass through unchanged. The operation
// composes for nested wrapper levels; callers must apply levels in a fixed
// outermost-first order since each level dispatches the previous level's
// output.
func UnrollPooledPositions(positions []model.Position, poolAddress string, poolTotalSupply *big.Int, holders []model.PoolHolderBalance) ([]model.Position, error) {
	sharesBefore := model.SumShares(positions)
	underlyingBefore := model.SumUnderlying(positions)

	pool := strings.ToLower(poolAddress)
	var pooled []model.Position
	rest := make([]model.Position, 0, len(positions))
	for _, p := range positions {
		if strings.ToLower(p.HolderAddress) == pool {
			pooled = append(pooled, p)
		} else {
			rest = append(rest, p)
		}
	}

	if len(pooled) == 0 {
		return rest, nil
	}
	if len(pooled) > 1 {
		return nil, errs.Conservation("found %d positions held by pool contract %s, expected exactly one", len(pooled), pool)
	}
	source := pooled[0]

	dispatched, err := DispatchProportional(source.ShareBalance, source.UnderlyingValue, holders, poolTotalSupply)
	if err != nil {
		return nil, err
	}

	// floor rounding leaves a deficit of up to len(holders)-1 units per
	// dimension; credit it to the largest holder so the totals stay exact
	if len(dispatched) > 0 {
		dispatchedShares := new(big.Int)
		dispatchedUnderlying := new(big.Int)
		largest := 0
		largestShares := new(big.Int)
		for i, d := range dispatched {
			dispatchedShares.Add(dispatchedShares, d.Shares)
			dispatchedUnderlying.Add(dispatchedUnderlying, d.Underlying)
			// nil holder shares count as zero, same as in the dispatch
			if holders[i].Shares != nil && holders[i].Shares.Cmp(largestShares) > 0 {
				largest = i
				largestShares = holders[i].Shares
			}
		}
		dispatched[largest].Shares.Add(dispatched[largest].Shares, new(big.Int).Sub(source.ShareBalance, dispatchedShares))
		dispatched[largest].Underlying.Add(dispatched[largest].Underlying, new(big.Int).Sub(source.UnderlyingValue, dispatchedUnderlying))
	}

	for _, d := range dispatched {
		rest = append(rest, model.Position{
			VaultAddress:    source.VaultAddress,
			TokenAddress:    source.TokenAddress,
			TokenSymbol:     source.TokenSymbol,
			HolderAddress:   d.HolderAddress,
			ShareBalance:    d.Shares,
			UnderlyingValue: d.Underlying,
			LastUpdate:      source.LastUpdate,
		})
	}

	sharesAfter := model.SumShares(rest)
	underlyingAfter := model.SumUnderlying(rest)
	if sharesAfter.Cmp(sharesBefore) != 0 {
		return nil, errs.Conservation("share sum changed during unroll of %s: %s before, %s after", pool, sharesBefore, sharesAfter)
	}
	if underlyingAfter.Cmp(underlyingBefore) != 0 {
		return nil, errs.Conservation("underlying sum changed during unroll of %s: %s before, %s after", pool, underlyingBefore, underlyingAfter)
	}
	return rest, nil
}
