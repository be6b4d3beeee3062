package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/aggregate"
	"vaultScope/internal/breakdown"
	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/errs"
	"vaultScope/internal/model"
	"vaultScope/internal/registry"
	"vaultScope/internal/subgraph"
	"vaultScope/internal/vaultcfg"
)

// BalanceSource fetches raw indexed balances and breakdown rows.
type BalanceSource interface {
	GetTokenBalances(ctx context.Context, chainID string, q subgraph.BalanceQuery) ([]model.TokenBalance, error)
	GetBreakdownRows(ctx context.Context, chainID string, blockNumber uint64, symbols []string) ([]model.BreakdownRow, error)
}

// ConfigSource resolves vault product configs per chain.
type ConfigSource interface {
	GetVaultConfigs(ctx context.Context, chainID string, predicate vaultcfg.Predicate) ([]model.VaultConfig, error)
}

// Service wires the read path end to end: registry validation, vault config
// resolution, indexed balance fetch, on-chain decomposition, aggregation and
// pricing. Every expensive step is memoized by its deterministic inputs.
type Service struct {
	configs  ConfigSource
	balances BalanceSource
	chains   *chain.Pool
	pricer   aggregate.Pricer
	cache    *cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// New builds a Service. A nil logger falls back to a no-op logger.
func New(configs ConfigSource, balances BalanceSource, chains *chain.Pool, pricer aggregate.Pricer, memo *cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		configs:  configs,
		balances: balances,
		chains:   chains,
		pricer:   pricer,
		cache:    memo,
		ttl:      ttl,
		logger:   logger,
	}
}

// validateProviderChain checks the (provider, chain) pair and returns the
// provider's tracked symbols there. An unsupported pair is a friendly error
// listing the chains that would work.
func validateProviderChain(providerID registry.ProviderID, chainID string) ([]string, error) {
	if !registry.IsValidProvider(providerID) {
		return nil, errs.NotFound("provider", string(providerID))
	}
	symbols, ok := registry.ProviderSymbols(chainID, providerID)
	if !ok {
		valid := make([]string, 0, 4)
		for _, c := range registry.GetChainsByProvider(providerID) {
			valid = append(valid, c.ID)
		}
		return nil, errs.Friendly("chain %s not supported for provider %s, valid chains: %v", chainID, providerID, valid)
	}
	return symbols, nil
}

// ProviderBalances returns per-user effective and time-weighted balances
// for a provider's tracked tokens at a block.
func (s *Service) ProviderBalances(ctx context.Context, providerID registry.ProviderID, chainID string, blockNumber uint64) (*aggregate.ProviderResult, error) {
	symbols, err := validateProviderChain(providerID, chainID)
	if err != nil {
		return nil, err
	}

	// producers are shared across waiters and must not inherit any one
	// caller's cancellation
	prodCtx := context.WithoutCancel(ctx)
	key := cache.Key("provider-balances", chainID, fmt.Sprintf("%d", blockNumber), string(providerID))
	value, err := s.cache.Wrap(key, s.ttl, func() (interface{}, error) {
		rows, err := s.balances.GetBreakdownRows(prodCtx, chainID, blockNumber, symbols)
		if err != nil {
			return nil, err
		}
		return aggregate.ProviderBalances(chainID, rows)
	})
	if err != nil {
		return nil, err
	}
	return value.(*aggregate.ProviderResult), nil
}

// UserTokenBalances computes each end user's underlying token balance for a
// provider at a block: resolve the provider's vaults, fetch raw share
// balances for every share-bearing contract, decompose each vault on-chain,
// then fold shares through the breakdowns.
func (s *Service) UserTokenBalances(ctx context.Context, providerID registry.ProviderID, chainID string, blockNumber uint64, holderFilter []string) ([]model.UserTokenBalance, error) {
	symbols, err := validateProviderChain(providerID, chainID)
	if err != nil {
		return nil, err
	}

	tokenFilter := make([]string, 0, len(symbols))
	for _, t := range registry.TokensForProvider(chainID, providerID) {
		tokenFilter = append(tokenFilter, t.Address)
	}

	vaults, err := s.providerVaults(ctx, chainID, providerID)
	if err != nil {
		return nil, err
	}
	if len(vaults) == 0 {
		return nil, errs.Friendly("no vaults found for provider %s on chain %s", providerID, chainID)
	}

	prodCtx := context.WithoutCancel(ctx)
	key := cache.Key("user-token-balances", chainID, fmt.Sprintf("%d", blockNumber), string(providerID))
	value, err := s.cache.Wrap(key, s.ttl, func() (interface{}, error) {
		return s.computeUserBalances(prodCtx, chainID, blockNumber, vaults, tokenFilter)
	})
	if err != nil {
		return nil, err
	}
	return filterHolders(value.([]model.UserTokenBalance), holderFilter), nil
}

// filterHolders keeps only the rows of the requested holders. Addresses are
// compared lower-cased regardless of how the caller spelled them.
func filterHolders(rows []model.UserTokenBalance, holderFilter []string) []model.UserTokenBalance {
	if len(holderFilter) == 0 {
		return rows
	}
	keep := make(map[string]struct{}, len(holderFilter))
	for _, h := range holderFilter {
		keep[strings.ToLower(h)] = struct{}{}
	}
	filtered := make([]model.UserTokenBalance, 0, len(rows))
	for _, row := range rows {
		if _, ok := keep[strings.ToLower(row.UserAddress)]; ok {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func (s *Service) computeUserBalances(ctx context.Context, chainID string, blockNumber uint64, vaults []model.VaultConfig, tokenFilter []string) ([]model.UserTokenBalance, error) {
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

	client, err := s.chains.Get(ctx, chainID)
	if err != nil {
		return nil, err
	}
	breakdowns, err := breakdown.ComputeVaultBreakdowns(ctx, client, blockNumber, vaults)
	if err != nil {
		return nil, err
	}

	return aggregate.AggregateUserPositions(balances, breakdowns, vaults, aggregate.Options{
		TokenFilter: tokenFilter,
		WithDetails: true,
	}), nil
}

// providerVaults selects the chain's vaults that belong to the provider's
// point structure.
func (s *Service) providerVaults(ctx context.Context, chainID string, providerID registry.ProviderID) ([]model.VaultConfig, error) {
	id := string(providerID)
	return s.configs.GetVaultConfigs(ctx, chainID, func(v *model.VaultConfig) bool {
		return v.HasPointStructure(id)
	})
}

// VaultConfigs exposes the resolved vault registry for inspection.
func (s *Service) VaultConfigs(ctx context.Context, chainID string) ([]model.VaultConfig, error) {
	if _, err := registry.GetChain(chainID); err != nil {
		return nil, err
	}
	return s.configs.GetVaultConfigs(ctx, chainID, nil)
}
