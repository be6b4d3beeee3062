package aggregate

import (
	"math/big"
	"sort"
	"strings"

	"vaultScope/internal/model"
)

// Options narrows the aggregation output. Empty filters keep everything.
type Options struct {
	// HolderFilter keeps only these holder addresses (case-insensitive).
	HolderFilter []string
	// TokenFilter keeps only these underlying token addresses.
	TokenFilter []string
	// WithDetails attaches per-vault contribution lines to each row.
	WithDetails bool
}

// SatelliteMap maps every reward-pool and boost address to the vault (or
// CLM manager) it mirrors. A satellite and its parent are the same economic
// position, so raw balances held through a satellite are merged into the
// parent's canonical address before aggregation.
func SatelliteMap(vaults []model.VaultConfig) map[string]string {
	out := make(map[string]string)
	attach := func(cfg *model.VaultConfig) {
		parent := strings.ToLower(cfg.VaultAddress)
		for _, rp := range cfg.RewardPools {
			out[strings.ToLower(rp.Address)] = parent
		}
		for _, b := range cfg.Boosts {
			out[strings.ToLower(b.Address)] = parent
		}
	}
	for i := range vaults {
		attach(&vaults[i])
		if vaults[i].CLMManager != nil {
			attach(vaults[i].CLMManager)
		}
	}
	return out
}

// vaultUniverse is the set of every contract address belonging to the vault
// products themselves. Holders in this set are plumbing, not end users.
func vaultUniverse(vaults []model.VaultConfig) map[string]struct{} {
	out := make(map[string]struct{})
	collect := func(cfg *model.VaultConfig) {
		for _, a := range []string{cfg.VaultAddress, cfg.StrategyAddress, cfg.UnderlyingAddress} {
			if a != "" {
				out[strings.ToLower(a)] = struct{}{}
			}
		}
		for _, rp := range cfg.RewardPools {
			out[strings.ToLower(rp.Address)] = struct{}{}
		}
		for _, b := range cfg.Boosts {
			out[strings.ToLower(b.Address)] = struct{}{}
		}
	}
	for i := range vaults {
		collect(&vaults[i])
		if vaults[i].CLMManager != nil {
			collect(vaults[i].CLMManager)
		}
	}
	return out
}

func toSet(addresses []string) map[string]struct{} {
	if len(addresses) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		out[strings.ToLower(a)] = struct{}{}
	}
	return out
}

// AggregateUserPositions folds raw share balances through vault breakdowns
// into per-user per-token underlying balances at one block.
//
// Satellite balances are merged into their parent vault first, then holders
// belonging to the vault universe are excluded, then each remaining (user,
// vault) share balance is converted to underlying via the vault's breakdown:
// contribution = breakdownBalance * userShares / vaultTotalSupply, floored
// once. Output order is deterministic: user address then token address.
func AggregateUserPositions(balances []model.TokenBalance, breakdowns []model.VaultBreakdown, vaults []model.VaultConfig, opts Options) []model.UserTokenBalance {
	satellites := SatelliteMap(vaults)
	universe := vaultUniverse(vaults)
	holderFilter := toSet(opts.HolderFilter)
	tokenFilter := toSet(opts.TokenFilter)

	// shares per (vault address, user), satellites folded into the parent
	sharesByVault := make(map[string]map[string]*big.Int)
	for _, b := range balances {
		holder := strings.ToLower(b.UserAddress)
		if _, ok := universe[holder]; ok {
			continue
		}
		if holderFilter != nil {
			if _, ok := holderFilter[holder]; !ok {
				continue
			}
		}
		vaultAddr := strings.ToLower(b.TokenAddress)
		if parent, ok := satellites[vaultAddr]; ok {
			vaultAddr = parent
		}
		users, ok := sharesByVault[vaultAddr]
		if !ok {
			users = make(map[string]*big.Int)
			sharesByVault[vaultAddr] = users
		}
		if prev, ok := users[holder]; ok {
			prev.Add(prev, b.Balance)
		} else {
			users[holder] = new(big.Int).Set(b.Balance)
		}
	}

	type key struct{ user, token string }
	totals := make(map[key]*big.Int)
	details := make(map[key][]model.VaultDetail)
	var blockNumber uint64

	for _, bd := range breakdowns {
		if !bd.IsLiquidityEligible || bd.VaultTotalSupply == nil || bd.VaultTotalSupply.Sign() == 0 {
			continue
		}
		blockNumber = bd.BlockNumber
		users := sharesByVault[strings.ToLower(bd.Vault.VaultAddress)]
		if len(users) == 0 {
			continue
		}
		for _, entry := range bd.Balances {
			token := strings.ToLower(entry.TokenAddress)
			if tokenFilter != nil {
				if _, ok := tokenFilter[token]; !ok {
					continue
				}
			}
			for user, shares := range users {
				contribution := new(big.Int).Mul(entry.VaultBalance, shares)
				contribution.Div(contribution, bd.VaultTotalSupply)
				if contribution.Sign() == 0 {
					continue
				}
				k := key{user: user, token: token}
				if prev, ok := totals[k]; ok {
					prev.Add(prev, contribution)
				} else {
					totals[k] = contribution
				}
				if opts.WithDetails {
					details[k] = append(details[k], model.VaultDetail{
						VaultID:      bd.Vault.ID,
						VaultAddress: strings.ToLower(bd.Vault.VaultAddress),
						Contribution: new(big.Int).Set(contribution),
					})
				}
			}
		}
	}

	out := make([]model.UserTokenBalance, 0, len(totals))
	for k, total := range totals {
		row := model.UserTokenBalance{
			BlockNumber:  blockNumber,
			UserAddress:  k.user,
			TokenAddress: k.token,
			Balance:      total,
		}
		if opts.WithDetails {
			lines := details[key{k.user, k.token}]
			sort.Slice(lines, func(i, j int) bool { return lines[i].VaultID < lines[j].VaultID })
			row.Details = lines
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserAddress != out[j].UserAddress {
			return out[i].UserAddress < out[j].UserAddress
		}
		return out[i].TokenAddress < out[j].TokenAddress
	})
	return out
}
