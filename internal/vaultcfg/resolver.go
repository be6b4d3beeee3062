package vaultcfg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/errs"
	"vaultScope/internal/httpx"
	"vaultScope/internal/model"
)

// Predicate selects vault configs; it must be pure.
type Predicate func(v *model.VaultConfig) bool

// Resolver fetches the vault product registry from the external vault API
// and materializes immutable VaultConfig snapshots per chain. Results are
// memoized briefly so a burst of requests hits the API once.
type Resolver struct {
	http    *httpx.Client
	baseURL string
	cache   *cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResolver builds a Resolver. A nil logger falls back to a no-op logger.
func NewResolver(httpClient *httpx.Client, baseURL string, memo *cache.Cache, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Resolver{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   memo,
		ttl:     ttl,
		logger:  logger,
	}
}

type rawVault struct {
	ID                string   `json:"id"`
	Chain             string   `json:"chain"`
	EarnedToken       string   `json:"earnedToken"`
	EarnContract      string   `json:"earnContractAddress"`
	Strategy          string   `json:"strategy"`
	TokenAddress      string   `json:"tokenAddress"`
	PlatformID        string   `json:"platformId"`
	PointStructureIDs []string `json:"pointStructureIds"`
}

type rawSatellite struct {
	ID           string `json:"id"`
	Chain        string `json:"chain"`
	EarnContract string `json:"earnContractAddress"`
	TokenAddress string `json:"tokenAddress"`
}

// platformProtocols maps the registry's platform tags onto breakdown
// protocol types. Entries missing here are skipped with a warning, not
// treated as fatal.
var platformProtocols = map[string]model.ProtocolType{
	"solidly":    model.ProtocolSolidly,
	"velodrome":  model.ProtocolSolidly,
	"aerodrome":  model.ProtocolSolidly,
	"equalizer":  model.ProtocolSolidly,
	"gamma":      model.ProtocolGamma,
	"ichi":       model.ProtocolIchi,
	"mendi":      model.ProtocolLending,
	"compound":   model.ProtocolLending,
	"aave":       model.ProtocolLending,
	"euler":      model.ProtocolLending,
	"pendle":     model.ProtocolPendle,
}

// GetVaultConfigs returns every vault config on chainID matching predicate,
// in registry order. A nil predicate selects everything.
func (r *Resolver) GetVaultConfigs(ctx context.Context, chainID string, predicate Predicate) ([]model.VaultConfig, error) {
	// the fetch is shared across waiters and must not inherit any one
	// caller's cancellation
	prodCtx := context.WithoutCancel(ctx)
	key := cache.Key("vault-configs", chainID)
	cached, err := r.cache.Wrap(key, r.ttl, func() (interface{}, error) {
		return r.fetchChainConfigs(prodCtx, chainID)
	})
	if err != nil {
		return nil, err
	}

	all := cached.([]model.VaultConfig)
	if predicate == nil {
		return all, nil
	}

	out := make([]model.VaultConfig, 0, len(all))
	for _, v := range all {
		v := v
		if predicate(&v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ExactlyOne enforces flows that require a single matching vault. Zero or
// multiple matches is a ConfigurationError.
func ExactlyOne(configs []model.VaultConfig, description string) (model.VaultConfig, error) {
	if len(configs) == 0 {
		return model.VaultConfig{}, errs.Configuration("no vault found for %s", description)
	}
	if len(configs) > 1 {
		return model.VaultConfig{}, errs.Configuration("multiple vaults found for %s", description)
	}
	return configs[0], nil
}

func (r *Resolver) fetchChainConfigs(ctx context.Context, chainID string) ([]model.VaultConfig, error) {
	var vaults, clms []rawVault
	var pools, boosts []rawSatellite

	if err := r.http.GetJSON(ctx, r.baseURL+"/vaults", &vaults); err != nil {
		return nil, fmt.Errorf("fetch vaults: %w", err)
	}
	if err := r.http.GetJSON(ctx, r.baseURL+"/cow-vaults", &clms); err != nil {
		return nil, fmt.Errorf("fetch cow vaults: %w", err)
	}
	if err := r.http.GetJSON(ctx, r.baseURL+"/gov-vaults", &pools); err != nil {
		return nil, fmt.Errorf("fetch gov vaults: %w", err)
	}
	if err := r.http.GetJSON(ctx, r.baseURL+"/boosts", &boosts); err != nil {
		return nil, fmt.Errorf("fetch boosts: %w", err)
	}

	return r.assemble(chainID, vaults, clms, pools, boosts), nil
}

// assemble joins the four registry lists into VaultConfig snapshots:
// satellites attach to the vault whose share token they stake, and a
// standard vault whose want is a CLM share becomes a clm_vault wrapping
// that manager.
func (r *Resolver) assemble(chainID string, vaults, clms []rawVault, pools, boosts []rawSatellite) []model.VaultConfig {
	poolsByVault := make(map[string][]model.RewardPool)
	for _, p := range pools {
		if p.Chain != chainID {
			continue
		}
		key := strings.ToLower(p.TokenAddress)
		poolsByVault[key] = append(poolsByVault[key], model.RewardPool{
			ID:      p.ID,
			Address: strings.ToLower(p.EarnContract),
		})
	}

	boostsByVault := make(map[string][]model.Boost)
	for _, b := range boosts {
		if b.Chain != chainID {
			continue
		}
		key := strings.ToLower(b.TokenAddress)
		boostsByVault[key] = append(boostsByVault[key], model.Boost{
			ID:      b.ID,
			Address: strings.ToLower(b.EarnContract),
		})
	}

	managers := make(map[string]model.VaultConfig)
	out := make([]model.VaultConfig, 0, len(vaults)+len(clms))

	for _, raw := range clms {
		if raw.Chain != chainID {
			continue
		}
		cfg := r.newConfig(raw, model.ProtocolCLM, poolsByVault, boostsByVault)
		managers[cfg.VaultAddress] = cfg
		out = append(out, cfg)
	}

	for _, raw := range vaults {
		if raw.Chain != chainID {
			continue
		}

		want := strings.ToLower(raw.TokenAddress)
		if manager, ok := managers[want]; ok {
			cfg := r.newConfig(raw, model.ProtocolCLMVault, poolsByVault, boostsByVault)
			managerCopy := manager
			cfg.CLMManager = &managerCopy
			out = append(out, cfg)
			continue
		}

		protocol, ok := platformProtocols[raw.PlatformID]
		if !ok {
			// an individual unsupported entry must not sink the batch
			r.logger.Warn("skipping vault with unsupported platform",
				zap.String("vault", raw.ID),
				zap.String("platform", raw.PlatformID),
				zap.String("chain", chainID),
			)
			continue
		}
		out = append(out, r.newConfig(raw, protocol, poolsByVault, boostsByVault))
	}

	return out
}

func (r *Resolver) newConfig(raw rawVault, protocol model.ProtocolType, poolsByVault map[string][]model.RewardPool, boostsByVault map[string][]model.Boost) model.VaultConfig {
	address := strings.ToLower(raw.EarnContract)
	return model.VaultConfig{
		ID:                raw.ID,
		VaultAddress:      address,
		StrategyAddress:   strings.ToLower(raw.Strategy),
		UnderlyingAddress: strings.ToLower(raw.TokenAddress),
		ProtocolType:      protocol,
		PlatformID:        raw.PlatformID,
		RewardPools:       poolsByVault[address],
		Boosts:            boostsByVault[address],
		PointStructureIDs: raw.PointStructureIDs,
	}
}
