package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// pendleBreakdown decomposes a Pendle LP vault into its SY component: the
// vault's share of the market's SY holdings is syBalance * vaultLPBalance /
// marketTotalSupply.
func pendleBreakdown(ctx context.Context, caller chain.Caller, blockNumber uint64, vault *model.VaultConfig) (model.VaultBreakdown, error) {
	vABI, err := vaultABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse vault abi: %w", err)
	}
	mABI, err := pendleABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse market abi: %w", err)
	}
	eABI, err := erc20ABIInstance()
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	vaultAddr := common.HexToAddress(vault.VaultAddress)
	marketAddr := common.HexToAddress(vault.UnderlyingAddress)

	results, err := caller.Multicall(ctx, blockNumber, []chain.Call{
		{Target: vaultAddr, ABI: vABI, Method: "balance"},
		{Target: vaultAddr, ABI: vABI, Method: "totalSupply"},
		{Target: marketAddr, ABI: mABI, Method: "totalSupply"},
		{Target: marketAddr, ABI: mABI, Method: "readTokens"},
	})
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("pendle reads for %s: %w", vault.ID, err)
	}

	balance, err := asBigInt(results[0][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault balance: %w", err)
	}
	vaultTotalSupply, err := asBigInt(results[1][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("vault total supply: %w", err)
	}
	marketTotalSupply, err := asBigInt(results[2][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("market total supply: %w", err)
	}
	syAddr, err := asAddress(results[3][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("sy token: %w", err)
	}

	if vaultTotalSupply.Sign() == 0 || marketTotalSupply.Sign() == 0 {
		return emptyBreakdown(vault, blockNumber, vaultTotalSupply), nil
	}

	// the SY the market holds is read separately since market state is an
	// opaque struct on-chain
	syResults, err := caller.Multicall(ctx, blockNumber, []chain.Call{
		{Target: syAddr, ABI: eABI, Method: "balanceOf", Args: []interface{}{marketAddr}},
	})
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("pendle sy balance for %s: %w", vault.ID, err)
	}
	syBalance, err := asBigInt(syResults[0][0])
	if err != nil {
		return model.VaultBreakdown{}, fmt.Errorf("sy balance: %w", err)
	}

	return model.VaultBreakdown{
		Vault:               *vault,
		BlockNumber:         blockNumber,
		VaultTotalSupply:    vaultTotalSupply,
		IsLiquidityEligible: true,
		Balances: []model.BreakdownBalance{
			{TokenAddress: strings.ToLower(syAddr.Hex()), VaultBalance: floorMulDiv(syBalance, balance, marketTotalSupply)},
		},
	}, nil
}
