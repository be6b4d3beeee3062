package aggregate

import (
	"math/big"
	"sort"
	"strings"

	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

var secondsPerHour = big.NewInt(3600)

// ProviderMeta describes the context of a provider balances response.
type ProviderMeta struct {
	ChainID string
	// Block is the earliest last-update block across all positions: data is
	// guaranteed complete up to at least this block.
	Block  model.BlockRef
	Vaults []model.VaultTotal
}

// ProviderResult is the aggregated provider balances payload.
type ProviderResult struct {
	Rows []model.AggregatedUserPosition
	Meta ProviderMeta
}

// ProviderBalances folds pre-computed breakdown rows into per-user
// effective and time-weighted balances.
//
// Per user: balances and 1-second time-weighted balances are summed over
// all rows, the time-weighted sum is floored to a per-hour figure, the
// last-update block is the earliest across the user's rows, and one detail
// line is kept per contributing row. An empty row set is a friendly error,
// since callers cannot distinguish it from a mistyped block otherwise.
func ProviderBalances(chainID string, rows []model.BreakdownRow) (*ProviderResult, error) {
	if len(rows) == 0 {
		return nil, errs.Friendly("no balances found")
	}

	type agg struct {
		balance        *big.Int
		timeWeighted1s *big.Int
		lastUpdate     model.BlockRef
		detail         []model.DetailLine
	}

	users := make(map[string]*agg)
	minUpdate := rows[0].LastUpdate

	for _, row := range rows {
		balance := row.Balance
		if row.ShareBalance == nil || row.ShareBalance.Sign() == 0 {
			balance = new(big.Int)
		}
		if balance == nil {
			balance = new(big.Int)
		}
		timeWeighted := row.TimeWeighted1s
		if timeWeighted == nil {
			timeWeighted = new(big.Int)
		}
		if balance.Sign() == 0 && timeWeighted.Sign() == 0 {
			continue
		}

		if row.LastUpdate.Number < minUpdate.Number {
			minUpdate = row.LastUpdate
		}

		investor := strings.ToLower(row.InvestorAddress)
		a, ok := users[investor]
		if !ok {
			a = &agg{
				balance:        new(big.Int),
				timeWeighted1s: new(big.Int),
				lastUpdate:     row.LastUpdate,
			}
			users[investor] = a
		}
		a.balance.Add(a.balance, balance)
		a.timeWeighted1s.Add(a.timeWeighted1s, timeWeighted)
		if row.LastUpdate.Number < a.lastUpdate.Number {
			a.lastUpdate = row.LastUpdate
		}
		a.detail = append(a.detail, model.DetailLine{
			Vault:          row.VaultID,
			Balance:        new(big.Int).Set(balance),
			Token:          strings.ToLower(row.TokenAddress),
			TimeWeighted1h: new(big.Int).Div(timeWeighted, secondsPerHour),
		})
	}

	if len(users) == 0 {
		return nil, errs.Friendly("no balances found")
	}

	out := make([]model.AggregatedUserPosition, 0, len(users))
	for address, a := range users {
		out = append(out, model.AggregatedUserPosition{
			Address:          address,
			EffectiveBalance: a.balance,
			TimeWeighted1h:   new(big.Int).Div(a.timeWeighted1s, secondsPerHour),
			LastUpdateBlock:  a.lastUpdate,
			Detail:           a.detail,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	return &ProviderResult{
		Rows: out,
		Meta: ProviderMeta{
			ChainID: chainID,
			Block:   minUpdate,
			Vaults:  vaultTotals(rows, out),
		},
	}, nil
}

// vaultTotals sums each vault's detail-line contributions across all users.
func vaultTotals(rows []model.BreakdownRow, users []model.AggregatedUserPosition) []model.VaultTotal {
	addressByID := make(map[string]string)
	for _, row := range rows {
		if _, ok := addressByID[row.VaultID]; !ok {
			addressByID[row.VaultID] = strings.ToLower(row.VaultAddress)
		}
	}

	totals := make(map[string]*big.Int)
	for _, user := range users {
		for _, line := range user.Detail {
			if prev, ok := totals[line.Vault]; ok {
				prev.Add(prev, line.Balance)
			} else {
				totals[line.Vault] = new(big.Int).Set(line.Balance)
			}
		}
	}

	out := make([]model.VaultTotal, 0, len(totals))
	for id, total := range totals {
		out = append(out, model.VaultTotal{ID: id, Address: addressByID[id], Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
