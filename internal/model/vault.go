package model

// ProtocolType tags the on-chain read recipe for a vault's underlying
// position. The set is closed; adding a protocol means adding one entry to
// the breakdown dispatch table.
type ProtocolType string

const (
	ProtocolSolidly  ProtocolType = "solidly"
	ProtocolGamma    ProtocolType = "gamma"
	ProtocolIchi     ProtocolType = "ichi"
	ProtocolLending  ProtocolType = "lending"
	ProtocolPendle   ProtocolType = "pendle"
	ProtocolCLM      ProtocolType = "clm"
	ProtocolCLMVault ProtocolType = "clm_vault"
)

// RewardPool is a satellite contract whose shares mirror its parent vault.
type RewardPool struct {
	ID      string `json:"id"`
	Address string `json:"reward_pool_address"`
}

// Boost is a satellite staking contract attached to a vault.
type Boost struct {
	ID      string `json:"id"`
	Address string `json:"boost_address"`
}

// VaultConfig is an immutable snapshot of one yield product from the
// external vault registry, fetched fresh per request and never mutated.
type VaultConfig struct {
	ID                string       `json:"id"`
	VaultAddress      string       `json:"vault_address"`
	StrategyAddress   string       `json:"strategy_address"`
	UnderlyingAddress string       `json:"underlying_lp_address"`
	ProtocolType      ProtocolType `json:"protocol_type"`
	PlatformID        string       `json:"platform_id"`
	RewardPools       []RewardPool `json:"reward_pools"`
	Boosts            []Boost      `json:"boosts"`
	PointStructureIDs []string     `json:"point_structure_ids"`

	// CLMManager is set when the vault wraps a concentrated-liquidity
	// manager; the manager carries its own satellite contracts.
	CLMManager *VaultConfig `json:"clm_manager,omitempty"`
}

// HasPointStructure reports whether the vault belongs to the point
// structure id.
func (v *VaultConfig) HasPointStructure(id string) bool {
	for _, ps := range v.PointStructureIDs {
		if ps == id {
			return true
		}
	}
	return false
}
