package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/chain"
	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

// clmManagerBreakdown decomposes a concentrated-liquidity manager: the
// manager holds both pool tokens directly, so its reported balances are the
// breakdown.
func clmManagerBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
	cABI, err := clmABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse clm abi: %w", err)
	}

	managerAddr := common.HexToAddress(vault.VaultAddress)

	results, err := caller.Multicall(ctx, blockNumber, []chain.Call{
		{Target: managerAddr, ABI: cABI, Method: "totalSupply"},
		{Target: managerAddr, ABI: cABI, Method: "balances"},
		{Target: managerAddr, ABI: cABI, Method: "wants"},
	})
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("clm reads for %s: %w", vault.ID, err)
	}

	totalSupply, err := asBigInt(results[0][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("manager total supply: %w", err)
	}

	if totalSupply.Sign() == 0 {
		return emptyBreakdown(vault, blockNumber, totalSupply), nil
	}

	amount0, err := asBigInt(results[1][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("amount0: %w", err)
	}
	amount1, err := asBigInt(results[1][1])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("amount1: %w", err)
	}
	t0, err := asAddress(results[2][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("want0: %w", err)
	}
	t1, err := asAddress(results[2][1])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("want1: %w", err)
	}

	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    totalSupply,
		IsLiquidityEligible: true,
		Balances: []model.BreakdownBalance{
			{TokenAddress: strings.ToLower(t0.Hex()), VaultBalance: amount0},
			{TokenAddress: strings.ToLower(t1.Hex()), VaultBalance: amount1},
		},
	}, nil
}

// clmVaultBreakdown decomposes a vault whose want is itself a CLM manager
// share: the manager breakdown is computed first, then scaled by the
// vault's share of the manager.
func clmVaultBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
	if vault.CLMManager == nil {
		return model.VaultBreakdown{}, errs.Configuration("clm_vault %s has no manager config", vault.ID)
	}

	vABI, err := vaultABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse vault abi: %w", err)
	}

	vaultAddr := common.HexToAddress(vault.VaultAddress)

	results, err := caller.Multicall(ctx, blockNumber, []chain.Call{
		{Target: vaultAddr, ABI: vABI, Method: "balance"},
		{Target: vaultAddr, ABI: vABI, Method: "totalSupply"},
	})
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("clm vault reads for %s: %w", vault.ID, err)
	}

	managerShares, err := asBigInt(results[0][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault balance: %w", err)
	}
	vaultTotalSupply, err := asBigInt(results[1][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault total supply: %w", err)
	}

	if vaultTotalSupply.Sign() == 0 {
		return emptyBreakdown(vault, blockNumber, vaultTotalSupply), nil
	}

	manager, err := clmManagerBreakdown(ctx, caller, blockNumber, vault.CLMManager)
	if err != nil {
		return model.VaultBreakdown{}, err
	}

	if !manager.IsLiquidityEligible || manager.VaultTotalSupply.Sign() == 0 {
		return emptyBreakdown(vault, blockNumber, vaultTotalSupply), nil
	}

	balances := make([]model.BreakdownBalance, 0, len(manager.Balances))
	for _, entry := range manager.Balances {
		balances = append(balances, model.BreakdownBalance{
			TokenAddress: entry.TokenAddress,
			VaultBalance: floorMulDiv(entry.VaultBalance, managerShares, manager.VaultTotalSupply),
		})
	}

	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    vaultTotalSupply,
		IsLiquidityEligible: true,
		Balances:            balances,
	}, nil
}
