package service

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"vaultScope/internal/aggregate"
	"vaultScope/internal/breakdown"
	"vaultScope/internal/cache"
	"vaultScope/internal/errs"
	"vaultScope/internal/model"
	"vaultScope/internal/registry"
	"vaultScope/internal/subgraph"
	"vaultScope/internal/vaultcfg"
)

// Flow selects the output shape of a partner endpoint. Partner endpoints
// differ only in which vaults they select and how results are shaped; the
// pipeline underneath is shared.
type Flow string

const (
	// FlowRankedUSD returns USD-valued positions, sorted and paginated.
	FlowRankedUSD Flow = "ranked_usd"
	// FlowShareWeights returns each holder's 10^36-scaled share of a vault.
	FlowShareWeights Flow = "share_weights"
	// FlowHolderList returns the raw holder list of exactly one vault.
	FlowHolderList Flow = "holder_list"
	// FlowVaultShares returns flat per-vault share balances per holder.
	FlowVaultShares Flow = "vault_shares"
	// FlowUnrolledBreakdown returns per-position breakdown rows with
	// wrapper-held positions dispatched onto the wrappers' own holders.
	FlowUnrolledBreakdown Flow = "unrolled_breakdown"
)

// unrollLevel names one wrapper hop: the pooled holder whose position gets
// dispatched, and the share token whose balances enumerate that pool's
// holders.
type unrollLevel struct {
	PoolAddress string
	HolderToken string
}

// PartnerPolicy is the configuration of one partner endpoint: which
// provider's vault universe it reads and which flow shapes the response.
// Unroll lists, per chain, the wrapper levels to dispatch in order.
type PartnerPolicy struct {
	Partner  string
	Provider registry.ProviderID
	Flow     Flow
	Unroll   map[string][]unrollLevel
}

// siloUnrollLevels walks the sonic wrapper chain outermost-first: the vault
// share wrapper sits in a beets pool, the pool sits in a gauge, and the
// gauge token is itself held through the beets v3 pool.
var siloUnrollLevels = map[string][]unrollLevel{
	"sonic": {
		{
			PoolAddress: "0x7870ddfd5aca4e977b2287e9a212bcbe8fc4135a",
			HolderToken: "0x43026d483f42fb35efe03c20b251142d022783f2",
		},
		{
			PoolAddress: "0x5d9e8b588f1d9e28ea1963681180d8b5938d26ba",
			HolderToken: "0x5d9e8b588f1d9e28ea1963681180d8b5938d26ba",
		},
		{
			PoolAddress: "0x0ad8162b686af063073eabbea9bc6fda2d8184a4",
			HolderToken: "0x0ad8162b686af063073eabbea9bc6fda2d8184a4",
		},
	},
}

// partnerPolicies is the closed table of supported partner endpoints.
// Adding a partner means adding one entry, not a new handler.
var partnerPolicies = map[string]PartnerPolicy{
	"resolv":   {Partner: "resolv", Provider: registry.ProviderResolv, Flow: FlowRankedUSD},
	"ethena":   {Partner: "ethena", Provider: registry.ProviderEthena, Flow: FlowRankedUSD},
	"rings":    {Partner: "rings", Provider: registry.ProviderRings, Flow: FlowShareWeights},
	"infrared": {Partner: "infrared", Provider: registry.ProviderInfrared, Flow: FlowHolderList},
	"falcon":   {Partner: "falcon", Provider: registry.ProviderFalcon, Flow: FlowVaultShares},
	"silo":     {Partner: "silo", Provider: registry.ProviderSilo, Flow: FlowUnrolledBreakdown, Unroll: siloUnrollLevels},
}

// PolicyFor looks up the partner endpoint configuration.
func PolicyFor(partner string) (PartnerPolicy, error) {
	policy, ok := partnerPolicies[strings.ToLower(partner)]
	if !ok {
		return PartnerPolicy{}, errs.NotFound("partner", partner)
	}
	return policy, nil
}

// RankedPage is one page of USD-ranked positions.
type RankedPage struct {
	Positions  []aggregate.RankedPosition
	Page       int
	PageSize   int
	TotalPages int
}

// RankedPositions values a partner's user positions in USD at the block
// timestamp and returns one page, largest first.
func (s *Service) RankedPositions(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64, page, pageSize int) (*RankedPage, error) {
	if s.pricer == nil {
		return nil, errs.Friendly("usd pricing is not configured on this deployment")
	}

	rows, err := s.UserTokenBalances(ctx, policy.Provider, chainID, blockNumber, nil)
	if err != nil {
		return nil, err
	}

	client, err := s.chains.Get(ctx, chainID)
	if err != nil {
		return nil, err
	}
	timestamp, err := client.BlockTimestamp(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("block timestamp: %w", err)
	}

	ranked, err := aggregate.ValuePositionsUSD(ctx, s.pricer, chainID, rows, timestamp)
	if err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = aggregate.DefaultPageSize
	}
	items, totalPages := aggregate.Page(ranked, page, pageSize)
	return &RankedPage{
		Positions:  items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ShareWeights returns each end-user holder's scaled share of the vault
// matching the partner's point structure. The flow requires exactly one
// matching vault per chain.
func (s *Service) ShareWeights(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64) ([]aggregate.HolderWeight, error) {
	vault, balances, err := s.singleVaultBalances(ctx, policy, chainID, blockNumber)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{})
	for _, a := range vaultcfg.AllAddresses(&vault) {
		exclude[a] = struct{}{}
	}
	return aggregate.ShareWeights(balances, exclude), nil
}

// Holder is one raw share position in the holder-list flow.
type Holder struct {
	Address string
	Shares  *big.Int
}

// HolderList returns every end-user share position of the partner's single
// vault, satellites merged, largest first.
func (s *Service) HolderList(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64) ([]Holder, error) {
	vault, balances, err := s.singleVaultBalances(ctx, policy, chainID, blockNumber)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{})
	for _, a := range vaultcfg.AllAddresses(&vault) {
		exclude[a] = struct{}{}
	}

	totals := make(map[string]*big.Int)
	for _, b := range balances {
		holder := strings.ToLower(b.UserAddress)
		if _, skip := exclude[holder]; skip {
			continue
		}
		if prev, ok := totals[holder]; ok {
			prev.Add(prev, b.Balance)
		} else {
			totals[holder] = new(big.Int).Set(b.Balance)
		}
	}

	out := make([]Holder, 0, len(totals))
	for address, shares := range totals {
		out = append(out, Holder{Address: address, Shares: shares})
	}
	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].Shares.Cmp(out[j].Shares)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].Address < out[j].Address
	})
	return out, nil
}

// VaultShares is the flat per-vault share listing of the vault-shares flow.
type VaultShares struct {
	VaultID      string
	VaultAddress string
	Holders      []Holder
}

// VaultShareBreakdown returns raw share balances per holder for every vault
// in the partner's universe, one block, no decomposition.
func (s *Service) VaultShareBreakdown(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64) ([]VaultShares, error) {
	if _, err := validateProviderChain(policy.Provider, chainID); err != nil {
		return nil, err
	}
	vaults, err := s.providerVaults(ctx, chainID, policy.Provider)
	if err != nil {
		return nil, err
	}
	if len(vaults) == 0 {
		return nil, errs.Friendly("no vaults found for partner %s on chain %s", policy.Partner, chainID)
	}

	holders := make([]string, 0, len(vaults)*2)
	for i := range vaults {
		holders = append(holders, vaultcfg.HolderAddresses(&vaults[i])...)
	}
	balances, err := s.balances.GetTokenBalances(ctx, chainID, subgraph.BalanceQuery{
		BlockNumber:    blockNumber,
		TokenAddresses: holders,
	})
	if err != nil {
		return nil, err
	}

	satellites := aggregate.SatelliteMap(vaults)
	exclude := make(map[string]struct{})
	for _, a := range vaultcfg.ExtractAllAddresses(vaults) {
		exclude[a] = struct{}{}
	}

	byVault := make(map[string]map[string]*big.Int)
	for _, b := range balances {
		holder := strings.ToLower(b.UserAddress)
		if _, skip := exclude[holder]; skip {
			continue
		}
		vaultAddr := strings.ToLower(b.TokenAddress)
		if parent, ok := satellites[vaultAddr]; ok {
			vaultAddr = parent
		}
		m, ok := byVault[vaultAddr]
		if !ok {
			m = make(map[string]*big.Int)
			byVault[vaultAddr] = m
		}
		if prev, ok := m[holder]; ok {
			prev.Add(prev, b.Balance)
		} else {
			m[holder] = new(big.Int).Set(b.Balance)
		}
	}

	out := make([]VaultShares, 0, len(vaults))
	for i := range vaults {
		addr := strings.ToLower(vaults[i].VaultAddress)
		m := byVault[addr]
		vs := VaultShares{VaultID: vaults[i].ID, VaultAddress: addr}
		for address, shares := range m {
			vs.Holders = append(vs.Holders, Holder{Address: address, Shares: shares})
		}
		sort.Slice(vs.Holders, func(a, b int) bool {
			cmp := vs.Holders[a].Shares.Cmp(vs.Holders[b].Shares)
			if cmp != 0 {
				return cmp > 0
			}
			return vs.Holders[a].Address < vs.Holders[b].Address
		})
		out = append(out, vs)
	}
	return out, nil
}

// UnrolledBreakdown returns the partner's per-position share and underlying
// rows with wrapper-held positions dispatched onto the wrappers' holders,
// level by level in the configured order. Share and underlying sums are
// conserved exactly across every level.
func (s *Service) UnrolledBreakdown(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64) ([]model.Position, error) {
	symbols, err := validateProviderChain(policy.Provider, chainID)
	if err != nil {
		return nil, err
	}

	prodCtx := context.WithoutCancel(ctx)
	key := cache.Key("unrolled-breakdown", chainID, fmt.Sprintf("%d", blockNumber), policy.Partner)
	value, err := s.cache.Wrap(key, s.ttl, func() (interface{}, error) {
		return s.computeUnrolledBreakdown(prodCtx, policy, chainID, blockNumber, symbols)
	})
	if err != nil {
		return nil, err
	}
	return value.([]model.Position), nil
}

func (s *Service) computeUnrolledBreakdown(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64, symbols []string) ([]model.Position, error) {
	rows, err := s.balances.GetBreakdownRows(ctx, chainID, blockNumber, symbols)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.Friendly("no balances found for partner %s on chain %s", policy.Partner, chainID)
	}

	positions := make([]model.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, model.Position{
			VaultAddress:    row.VaultAddress,
			TokenAddress:    row.TokenAddress,
			TokenSymbol:     row.TokenSymbol,
			HolderAddress:   row.InvestorAddress,
			ShareBalance:    row.ShareBalance,
			UnderlyingValue: row.Balance,
			LastUpdate:      row.LastUpdate,
		})
	}

	for _, level := range policy.Unroll[chainID] {
		holders, supply, err := s.poolHolders(ctx, chainID, blockNumber, level.HolderToken)
		if err != nil {
			return nil, err
		}
		positions, err = breakdown.UnrollPooledPositions(positions, level.PoolAddress, supply, holders)
		if err != nil {
			return nil, err
		}
	}
	return positions, nil
}

// poolHolders fetches a pool token's holder balances and their sum. The sum
// is the effective total supply the unroll dispatches against.
func (s *Service) poolHolders(ctx context.Context, chainID string, blockNumber uint64, token string) ([]model.PoolHolderBalance, *big.Int, error) {
	balances, err := s.balances.GetTokenBalances(ctx, chainID, subgraph.BalanceQuery{
		BlockNumber:    blockNumber,
		TokenAddresses: []string{token},
	})
	if err != nil {
		return nil, nil, err
	}

	holders := make([]model.PoolHolderBalance, 0, len(balances))
	supply := new(big.Int)
	for _, b := range balances {
		holders = append(holders, model.PoolHolderBalance{
			HolderAddress: b.UserAddress,
			Shares:        b.Balance,
		})
		if b.Balance != nil {
			supply.Add(supply, b.Balance)
		}
	}
	return holders, supply, nil
}

// singleVaultBalances resolves the exactly-one vault flows: one matching
// vault config and the raw balances of all its share-bearing contracts.
func (s *Service) singleVaultBalances(ctx context.Context, policy PartnerPolicy, chainID string, blockNumber uint64) (model.VaultConfig, []model.TokenBalance, error) {
	if _, err := validateProviderChain(policy.Provider, chainID); err != nil {
		return model.VaultConfig{}, nil, err
	}

	vaults, err := s.providerVaults(ctx, chainID, policy.Provider)
	if err != nil {
		return model.VaultConfig{}, nil, err
	}
	vault, err := vaultcfg.ExactlyOne(vaults, fmt.Sprintf("partner %s on chain %s", policy.Partner, chainID))
	if err != nil {
		return model.VaultConfig{}, nil, err
	}

	prodCtx := context.WithoutCancel(ctx)
	key := cache.Key("single-vault-balances", chainID, fmt.Sprintf("%d", blockNumber), vault.ID)
	value, err := s.cache.Wrap(key, s.ttl, func() (interface{}, error) {
		return s.balances.GetTokenBalances(prodCtx, chainID, subgraph.BalanceQuery{
			BlockNumber:    blockNumber,
			TokenAddresses: vaultcfg.HolderAddresses(&vault),
		})
	})
	if err != nil {
		return model.VaultConfig{}, nil, err
	}
	return vault, value.([]model.TokenBalance), nil
}
