package breakdown

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// lendingBreakdown decomposes a lending-wrapper vault. The vault's balance
// is already denominated in the underlying token, so the breakdown is the
// single (underlying, balance) pair.
func lendingBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
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
		return model.VaultBreakdown{}, fmt.Errorf("lending reads for %s: %w", vault.ID, err)
	}

	balance, err := asBigInt(results[0][0])
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

	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    vaultTotalSupply,
		IsLiquidityEligible: true,
		Balances: []model.BreakdownBalance{
			{TokenAddress: vault.UnderlyingAddress, VaultBalance: balance},
		},
	}, nil
}
