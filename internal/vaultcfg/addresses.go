package vaultcfg

import (
	"strings"

	"vaultScope/internal/model"
)

// AllAddresses returns every contract address that could hold a position
// for the vault: the vault itself, its strategy, its underlying, every
// reward pool and boost, and the same set for a wrapped CLM manager. The
// union is lower-cased and de-duplicated, preserving first-seen order.
func AllAddresses(v *model.VaultConfig) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 8)

	add := func(address string) {
		if address == "" {
			return
		}
		lower := strings.ToLower(address)
		if _, ok := seen[lower]; ok {
			return
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}

	collect := func(cfg *model.VaultConfig) {
		add(cfg.VaultAddress)
		add(cfg.StrategyAddress)
		add(cfg.UnderlyingAddress)
		for _, rp := range cfg.RewardPools {
			add(rp.Address)
		}
		for _, b := range cfg.Boosts {
			add(b.Address)
		}
	}

	collect(v)
	if v.CLMManager != nil {
		collect(v.CLMManager)
	}

	return out
}

// ExtractAllAddresses unions AllAddresses over every vault.
func ExtractAllAddresses(vaults []model.VaultConfig) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(vaults)*4)
	for i := range vaults {
		for _, address := range AllAddresses(&vaults[i]) {
			if _, ok := seen[address]; ok {
				continue
			}
			seen[address] = struct{}{}
			out = append(out, address)
		}
	}
	return out
}

// HolderAddresses is AllAddresses without the underlying token: the set of
// share-bearing contracts whose balances count as vault positions.
func HolderAddresses(v *model.VaultConfig) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 4)

	add := func(address string) {
		if address == "" {
			return
		}
		lower := strings.ToLower(address)
		if _, ok := seen[lower]; ok {
			return
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}

	add(v.VaultAddress)
	for _, rp := range v.RewardPools {
		add(rp.Address)
	}
	for _, b := range v.Boosts {
		add(b.Address)
	}
	if v.CLMManager != nil {
		add(v.CLMManager.VaultAddress)
		for _, rp := range v.CLMManager.RewardPools {
			add(rp.Address)
		}
		for _, b := range v.CLMManager.Boosts {
			add(b.Address)
		}
	}

	return out
}
