package registry

import (
	"vaultScope/internal/errs"
)

// ProviderID identifies a point program partner. The set is closed and
// statically configured; it never changes at runtime.
type ProviderID string

const (
	ProviderAnzen      ProviderID = "anzen"
	ProviderBedrock    ProviderID = "bedrock"
	ProviderDolomite   ProviderID = "dolomite"
	ProviderEthena     ProviderID = "ethena"
	ProviderEtherfi    ProviderID = "etherfi"
	ProviderFalcon     ProviderID = "falcon"
	ProviderInfrared   ProviderID = "infrared"
	ProviderKelp       ProviderID = "kelp"
	ProviderLynex      ProviderID = "lynex"
	ProviderResolv     ProviderID = "resolv"
	ProviderRings      ProviderID = "rings"
	ProviderSilo       ProviderID = "silo"
	ProviderSolv       ProviderID = "solv"
	ProviderStakestone ProviderID = "stakestone"
	ProviderVector     ProviderID = "vector"
)

// Chain describes one supported chain and the token symbols each provider
// tracks on it. A nil symbol list means the provider is not supported there.
type Chain struct {
	ID        string
	Name      string
	Providers map[ProviderID][]string
}

var providerSymbols = map[ProviderID][]string{
	ProviderAnzen:      {"USDz"},
	ProviderBedrock:    {"uniETH"},
	ProviderDolomite:   {"dUSDC"},
	ProviderEthena:     {"USDe", "sUSDe"},
	ProviderEtherfi:    {"eETH", "weETH"},
	ProviderFalcon:     {"USDf", "sUSDf"},
	ProviderInfrared:   {"infrared"},
	ProviderKelp:       {"rsETH", "wrsETH"},
	ProviderLynex:      {"inETH", "ainETH"},
	ProviderResolv:     {"wstUSR"},
	ProviderRings:      {"scUSD"},
	ProviderSilo:       {"USDC.e"},
	ProviderSolv:       {"SolvBTC.BBN"},
	ProviderStakestone: {"STONE"},
	ProviderVector:     {"vETH"},
}

// supported builds a chain's provider map from the global symbol lists.
func supported(ids ...ProviderID) map[ProviderID][]string {
	m := make(map[ProviderID][]string, len(ids))
	for _, id := range ids {
		m[id] = providerSymbols[id]
	}
	return m
}

// chains is the registry in declaration order. Lookup order matters for
// GetChainsByProvider, which must be stable across requests. A provider
// absent from a chain's map is not supported there.
var chains = []Chain{
	{ID: "arbitrum", Name: "Arbitrum", Providers: supported(ProviderEthena, ProviderEtherfi, ProviderKelp, ProviderDolomite)},
	{ID: "base", Name: "Base", Providers: supported(ProviderEthena, ProviderEtherfi, ProviderAnzen)},
	{ID: "berachain", Name: "Berachain", Providers: supported(ProviderInfrared)},
	{ID: "bsc", Name: "BSC", Providers: supported(ProviderSolv)},
	{ID: "ethereum", Name: "Ethereum", Providers: supported(ProviderEthena, ProviderEtherfi, ProviderKelp, ProviderResolv, ProviderFalcon, ProviderAnzen, ProviderBedrock, ProviderVector)},
	{ID: "fraxtal", Name: "Fraxtal", Providers: nil},
	{ID: "linea", Name: "Linea", Providers: supported(ProviderLynex, ProviderEtherfi, ProviderKelp)},
	{ID: "lisk", Name: "Lisk", Providers: nil},
	{ID: "manta", Name: "Manta", Providers: supported(ProviderStakestone)},
	{ID: "mantle", Name: "Mantle", Providers: nil},
	{ID: "mode", Name: "Mode", Providers: supported(ProviderEtherfi, ProviderKelp)},
	{ID: "optimism", Name: "Optimism", Providers: nil},
	{ID: "sei", Name: "Sei", Providers: nil},
	{ID: "sonic", Name: "Sonic", Providers: supported(ProviderRings, ProviderInfrared, ProviderSilo)},
}

var chainsByID = func() map[string]Chain {
	m := make(map[string]Chain, len(chains))
	for _, c := range chains {
		m[c.ID] = c
	}
	return m
}()

// AllChainIDs returns every registered chain id in declaration order.
func AllChainIDs() []string {
	ids := make([]string, 0, len(chains))
	for _, c := range chains {
		ids = append(ids, c.ID)
	}
	return ids
}

// AllProviderIDs returns every registered provider id in a fixed order.
func AllProviderIDs() []ProviderID {
	return []ProviderID{
		ProviderAnzen, ProviderBedrock, ProviderDolomite, ProviderEthena,
		ProviderEtherfi, ProviderFalcon, ProviderInfrared, ProviderKelp,
		ProviderLynex, ProviderResolv, ProviderRings, ProviderSilo,
		ProviderSolv, ProviderStakestone, ProviderVector,
	}
}

// GetChain returns the chain for id or a NotFoundError.
func GetChain(id string) (Chain, error) {
	c, ok := chainsByID[id]
	if !ok {
		return Chain{}, errs.NotFound("chain", id)
	}
	return c, nil
}

// GetChainOrNil is the soft lookup variant used when a miss is expected.
func GetChainOrNil(id string) *Chain {
	c, ok := chainsByID[id]
	if !ok {
		return nil
	}
	return &c
}

// GetChainsByProvider returns, in declaration order, every chain whose
// provider map contains providerID.
func GetChainsByProvider(providerID ProviderID) []Chain {
	out := make([]Chain, 0, len(chains))
	for _, c := range chains {
		if _, ok := c.Providers[providerID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ProviderSymbols returns the symbols tracked by providerID on the chain,
// or false if the provider is not supported there.
func ProviderSymbols(chainID string, providerID ProviderID) ([]string, bool) {
	c, ok := chainsByID[chainID]
	if !ok {
		return nil, false
	}
	symbols, ok := c.Providers[providerID]
	return symbols, ok
}

// IsValidProvider reports whether id names a registered provider.
func IsValidProvider(id ProviderID) bool {
	_, ok := providerSymbols[id]
	return ok
}
