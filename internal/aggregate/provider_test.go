package aggregate

import (
	"math/big"
	"testing"

	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

func providerRows() []model.BreakdownRow {
	return []model.BreakdownRow{
		{
			VaultID:         "vault-one",
			VaultAddress:    vaultAddr,
			TokenAddress:    tokenA,
			TokenSymbol:     "USDe",
			InvestorAddress: user1,
			ShareBalance:    bi(100),
			Balance:         bi(1000),
			TimeWeighted1s:  bi(7200000),
			LastUpdate:      model.BlockRef{Number: 17999000, Timestamp: 1700000100},
		},
		{
			VaultID:         "vault-two",
			VaultAddress:    rewardAddr,
			TokenAddress:    tokenA,
			TokenSymbol:     "USDe",
			InvestorAddress: user1,
			ShareBalance:    bi(50),
			Balance:         bi(500),
			TimeWeighted1s:  bi(3600000),
			LastUpdate:      model.BlockRef{Number: 17998000, Timestamp: 1700000000},
		},
		{
			VaultID:         "vault-one",
			VaultAddress:    vaultAddr,
			TokenAddress:    tokenA,
			TokenSymbol:     "USDe",
			InvestorAddress: user2,
			ShareBalance:    bi(200),
			Balance:         bi(2000),
			TimeWeighted1s:  bi(0),
			LastUpdate:      model.BlockRef{Number: 17999500, Timestamp: 1700000200},
		},
	}
}

func TestProviderBalances(t *testing.T) {
	got, err := ProviderBalances("ethereum", providerRows())
	if err != nil {
		t.Fatalf("provider balances: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got.Rows))
	}

	// rows sorted by address; user1 < user2
	u1 := got.Rows[0]
	if u1.Address != user1 {
		t.Fatalf("first row = %s, want %s", u1.Address, user1)
	}
	if u1.EffectiveBalance.Int64() != 1500 {
		t.Errorf("user1 effective = %s, want 1500", u1.EffectiveBalance)
	}
	// (7200000 + 3600000) / 3600
	if u1.TimeWeighted1h.Int64() != 3000 {
		t.Errorf("user1 time-weighted 1h = %s, want 3000", u1.TimeWeighted1h)
	}
	// earliest last update across user1's rows
	if u1.LastUpdateBlock.Number != 17998000 {
		t.Errorf("user1 last update = %d, want 17998000", u1.LastUpdateBlock.Number)
	}
	if len(u1.Detail) != 2 {
		t.Errorf("user1 detail lines = %d, want 2", len(u1.Detail))
	}

	// meta block is the earliest last update overall
	if got.Meta.Block.Number != 17998000 {
		t.Errorf("meta block = %d, want 17998000", got.Meta.Block.Number)
	}

	// vault totals sum detail contributions per vault
	if len(got.Meta.Vaults) != 2 {
		t.Fatalf("expected 2 vault totals, got %d", len(got.Meta.Vaults))
	}
	if got.Meta.Vaults[0].ID != "vault-one" || got.Meta.Vaults[0].Total.Int64() != 3000 {
		t.Errorf("vault-one total = %+v, want 3000", got.Meta.Vaults[0])
	}
	if got.Meta.Vaults[1].Total.Int64() != 500 {
		t.Errorf("vault-two total = %+v, want 500", got.Meta.Vaults[1])
	}
}

func TestProviderBalancesZeroSharesZeroed(t *testing.T) {
	rows := providerRows()[:1]
	rows[0].ShareBalance = bi(0)
	rows[0].Balance = bi(999)

	got, err := ProviderBalances("ethereum", rows)
	if err != nil {
		t.Fatalf("provider balances: %v", err)
	}
	// a stale balance with zero shares does not count, but the position
	// still appears through its time-weighted history
	if got.Rows[0].EffectiveBalance.Sign() != 0 {
		t.Errorf("effective = %s, want 0", got.Rows[0].EffectiveBalance)
	}
	if got.Rows[0].TimeWeighted1h.Int64() != 2000 {
		t.Errorf("time-weighted 1h = %s, want 2000", got.Rows[0].TimeWeighted1h)
	}
}

func TestProviderBalancesEmpty(t *testing.T) {
	_, err := ProviderBalances("ethereum", nil)
	if err == nil {
		t.Fatal("expected error for empty rows")
	}
	if !errs.IsFriendly(err) {
		t.Fatalf("expected friendly error, got %T", err)
	}
}

func TestShareWeights(t *testing.T) {
	balances := []model.TokenBalance{
		{UserAddress: user1, TokenAddress: tokenA, Balance: bi(750)},
		{UserAddress: user2, TokenAddress: tokenA, Balance: bi(250)},
		{UserAddress: stratAddr, TokenAddress: tokenA, Balance: bi(500)},
	}
	exclude := map[string]struct{}{stratAddr: {}}

	got := ShareWeights(balances, exclude)
	if len(got) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(got))
	}
	if got[0].Address != user1 {
		t.Fatalf("largest holder first, got %s", got[0].Address)
	}

	// user1 owns 3/4 of the non-contract supply, user2 owns 1/4
	want0 := bi(3)
	want0.Mul(want0, weightScale)
	want0.Div(want0, bi(4))
	if got[0].Weight.Cmp(want0) != 0 {
		t.Errorf("user1 weight = %s, want %s", got[0].Weight, want0)
	}
	want1 := new(big.Int).Div(weightScale, bi(4))
	if got[1].Weight.Cmp(want1) != 0 {
		t.Errorf("user2 weight = %s, want %s", got[1].Weight, want1)
	}
}

func TestShareWeightsMergePerHolder(t *testing.T) {
	// one holder staked in the vault and its reward pool must come out as
	// a single merged row
	balances := []model.TokenBalance{
		{UserAddress: user1, TokenAddress: tokenA, Balance: bi(75)},
		{UserAddress: user1, TokenAddress: tokenB, Balance: bi(25)},
		{UserAddress: user2, TokenAddress: tokenA, Balance: bi(100)},
	}

	got := ShareWeights(balances, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 merged weights, got %d: %+v", len(got), got)
	}
	for _, w := range got {
		if w.Amount.Int64() != 100 {
			t.Errorf("holder %s amount = %s, want 100", w.Address, w.Amount)
		}
		want := new(big.Int).Div(weightScale, bi(2))
		if w.Weight.Cmp(want) != 0 {
			t.Errorf("holder %s weight = %s, want %s", w.Address, w.Weight, want)
		}
	}
}

func TestShareWeightsZeroTotal(t *testing.T) {
	got := ShareWeights(nil, nil)
	if got != nil {
		t.Fatalf("expected nil for empty balances, got %+v", got)
	}
}
