package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// hypervisorBreakdown decomposes gamma/ichi-style managed LP vaults. The
// hypervisor reports its total managed amounts per token; the vault's share
// is total_i * vaultLPBalance / hypervisorTotalSupply.
func hypervisorBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
	vABI, err := vaultABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse vault abi: %w", err)
	}
	hABI, err := hypervisorABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse hypervisor abi: %w", err)
	}

	vaultAddr := common.HexToAddress(vault.VaultAddress)
	hyperAddr := common.HexToAddress(vault.UnderlyingAddress)

	results, err := caller.Multicall(ctx, blockNumber, []chain.Call{
		{Target: vaultAddr, ABI: vABI, Method: "balance"},
		{Target: vaultAddr, ABI: vABI, Method: "totalSupply"},
		{Target: hyperAddr, ABI: hABI, Method: "totalSupply"},
		{Target: hyperAddr, ABI: hABI, Method: "getTotalAmounts"},
		{Target: hyperAddr, ABI: hABI, Method: "token0"},
		{Target: hyperAddr, ABI: hABI, Method: "token1"},
	})
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("hypervisor reads for %s: %w", vault.ID, err)
	}

	balance, err := asBigInt(results[0][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault balance: %w", err)
	}
	vaultTotalSupply, err := asBigInt(results[1][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault total supply: %w", err)
	}
	hyperTotalSupply, err := asBigInt(results[2][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("hypervisor total supply: %w", err)
	}

	if vaultTotalSupply.Sign() == 0 || hyperTotalSupply.Sign() == 0 {
		return emptyBreakdown(vault, blockNumber, vaultTotalSupply), nil
	}

	total0, err := asBigInt(results[3][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("total0: %w", err)
	}
	total1, err := asBigInt(results[3][1])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("total1: %w", err)
	}
	t0, err := asAddress(results[4][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("token0: %w", err)
	}
	t1, err := asAddress(results[5][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("token1: %w", err)
	}

	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    vaultTotalSupply,
		IsLiquidityEligible: true,
		Balances: []model.BreakdownBalance{
			{TokenAddress: strings.ToLower(t0.Hex()), VaultBalance: floorMulDiv(total0, balance, hyperTotalSupply)},
			{TokenAddress: strings.ToLower(t1.Hex()), VaultBalance: floorMulDiv(total1, balance, hyperTotalSupply)},
		},
	}, nil
}
