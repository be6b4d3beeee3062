package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// solidlyBreakdown decomposes a proportional-reserve AMM LP vault: the
// vault's share of each pool reserve is reserve * vaultLPBalance /
// poolTotalSupply.
func solidlyBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
	vABI, err := vaultABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse vault abi: %w", err)
	}
	pABI, err := solidlyABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse pool abi: %w", err)
	}

	vaultAddr := common.HexToAddress(vault.VaultAddress)
	poolAddr := common.HexToAddress(vault.UnderlyingAddress)

	results, err := caller.Multicall(ctx, blockNumber, []chain.Call{
		{Target: vaultAddr, ABI: vABI, Method: "balance"},
		{Target: vaultAddr, ABI: vABI, Method: "totalSupply"},
		{Target: poolAddr, ABI: pABI, Method: "totalSupply"},
		{Target: poolAddr, ABI: pABI, Method: "metadata"},
	})
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("solidly reads for %s: %w", vault.ID, err)
	}

	balance, err := asBigInt(results[0][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault balance: %w", err)
	}
	vaultTotalSupply, err := asBigInt(results[1][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault total supply: %w", err)
	}
	poolTotalSupply, err := asBigInt(results[2][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("pool total supply: %w", err)
	}

	if vaultTotalSupply.Sign() == 0 || poolTotalSupply.Sign() == 0 {
		return emptyBreakdown(vault, blockNumber, vaultTotalSupply), nil
	}

	metadata := results[3]
	r0, err := asBigInt(metadata[2])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("reserve0: %w", err)
	}
	r1, err := asBigInt(metadata[3])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("reserve1: %w", err)
	}
	t0, err := asAddress(metadata[5])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("token0: %w", err)
	}
	t1, err := asAddress(metadata[6])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("token1: %w", err)
	}

	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    vaultTotalSupply,
		IsLiquidityEligible: true,
		Balances: []model.BreakdownBalance{
			{TokenAddress: strings.ToLower(t0.Hex()), VaultBalance: floorMulDiv(r0, balance, poolTotalSupply)},
			{TokenAddress: strings.ToLower(t1.Hex()), VaultBalance: floorMulDiv(r1, balance, poolTotalSupply)},
		},
	}, nil
}
