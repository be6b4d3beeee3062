package breakdown

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"vaultScope/internal/chain"
	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

// Method computes the breakdown of one vault at a fixed historical block.
// Every protocol type has its own on-chain read recipe but the same output
// shape.
type Method func(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error)

// methods is the protocol dispatch table. Adding a protocol type means
// adding one entry here.
var methods = map[model.ProtocolType]Method{
	model.ProtocolSolidly:  solidlyBreakdown,
	model.ProtocolGamma:    hypervisorBreakdown,
	model.ProtocolIchi:     hypervisorBreakdown,
	model.ProtocolLending:  lendingBreakdown,
	model.ProtocolPendle:   pendleBreakdown,
	model.ProtocolCLM:      clmManagerBreakdown,
	model.ProtocolCLMVault: clmVaultBreakdown,
}

// ComputeVaultBreakdown dispatches on the vault's protocol type.
func ComputeVaultBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
	method, ok := methods[vault.ProtocolType]
	if !ok {
		return model.VaultBreakdown{}, errs.Configuration("no breakdown method for protocol type %q (vault %s)", vault.ProtocolType, vault.ID)
	}
	return method(ctx, caller, blockNumber, vault)
}

// ComputeVaultBreakdowns fans out breakdown computation across vaults.
// Breakdowns are independent read-only computations, so they run
// concurrently; results keep input order.
func ComputeVaultBreakdowns(ctx context.Context, caller chain.Caller, blockNumber uint64, vaults []model.VaultConfig) ([]model.VaultBreakdown, error) {
	out := make([]model.VaultBreakdown, len(vaults))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for i := range vaults {
		i := i
		group.Go(func() error {
			breakdown, err := ComputeVaultBreakdown(ctx, caller, blockNumber, &vaults[i])
			if err != nil {
				return err
			}
			out[i] = breakdown
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// floorMulDiv returns a*b/denom with exact integer arithmetic and a single
// final floor truncation.
func floorMulDiv(a, b, denom *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Div(product, denom)
}

func emptyBreakdown(vault *model.VaultConfig, blockNumber uint64, totalSupply *big.Int) model.VaultBreakdown {
	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    totalSupply,
		IsLiquidityEligible: false,
		Balances:            nil,
	}
}
