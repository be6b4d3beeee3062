package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/errs"
	"vaultScope/internal/model"
	"vaultScope/internal/registry"
	"vaultScope/internal/subgraph"
	"vaultScope/internal/vaultcfg"
)

const (
	vaultAddr  = "0xaaaa000000000000000000000000000000000001"
	rewardAddr = "0xaaaa000000000000000000000000000000000002"
	user1      = "0xcccc000000000000000000000000000000000001"
	user2      = "0xcccc000000000000000000000000000000000002"
)

type stubConfigs struct {
	vaults []model.VaultConfig
}

func (s *stubConfigs) GetVaultConfigs(_ context.Context, _ string, predicate vaultcfg.Predicate) ([]model.VaultConfig, error) {
	if predicate == nil {
		return s.vaults, nil
	}
	out := make([]model.VaultConfig, 0, len(s.vaults))
	for _, v := range s.vaults {
		v := v
		if predicate(&v) {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubBalances struct {
	balances []model.TokenBalance
	// perToken overrides balances for queries naming that token address
	perToken map[string][]model.TokenBalance
	rows     []model.BreakdownRow
	calls    int
}

func (s *stubBalances) GetTokenBalances(ctx context.Context, _ string, q subgraph.BalanceQuery) ([]model.TokenBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.calls++
	if s.perToken != nil && len(q.TokenAddresses) == 1 {
		return s.perToken[q.TokenAddresses[0]], nil
	}
	return s.balances, nil
}

func (s *stubBalances) GetBreakdownRows(ctx context.Context, _ string, _ uint64, _ []string) ([]model.BreakdownRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.calls++
	return s.rows, nil
}

func newTestService(t *testing.T, configs *stubConfigs, balances *stubBalances) *Service {
	t.Helper()
	memo, err := cache.New(nil)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(memo.Close)
	return New(configs, balances, chain.NewPool(nil), nil, memo, time.Minute, nil)
}

func ringsVault() model.VaultConfig {
	return model.VaultConfig{
		ID:                "sonic-scusd-vault",
		VaultAddress:      vaultAddr,
		StrategyAddress:   "0xaaaa000000000000000000000000000000000009",
		RewardPools:       []model.RewardPool{{ID: "rp", Address: rewardAddr}},
		PointStructureIDs: []string{"rings", "infrared"},
	}
}

func TestProviderBalancesUnsupportedChain(t *testing.T) {
	svc := newTestService(t, &stubConfigs{}, &stubBalances{})

	// ethena does not run on sonic
	_, err := svc.ProviderBalances(context.Background(), registry.ProviderEthena, "sonic", 1000)
	if err == nil {
		t.Fatal("expected error for unsupported provider-chain pair")
	}
	if !errs.IsFriendly(err) {
		t.Fatalf("expected friendly error, got %T", err)
	}
}

func TestProviderBalancesUnknownProvider(t *testing.T) {
	svc := newTestService(t, &stubConfigs{}, &stubBalances{})

	_, err := svc.ProviderBalances(context.Background(), registry.ProviderID("nope"), "ethereum", 1000)
	if !errs.IsFriendly(err) {
		t.Fatalf("expected friendly error, got %v", err)
	}
}

func TestProviderBalancesCached(t *testing.T) {
	balances := &stubBalances{rows: []model.BreakdownRow{{
		VaultID:         "v",
		VaultAddress:    vaultAddr,
		TokenAddress:    "0xbbbb000000000000000000000000000000000001",
		TokenSymbol:     "USDe",
		InvestorAddress: user1,
		ShareBalance:    big.NewInt(10),
		Balance:         big.NewInt(100),
		TimeWeighted1s:  big.NewInt(3600),
		LastUpdate:      model.BlockRef{Number: 900, Timestamp: 1700000000},
	}}}
	svc := newTestService(t, &stubConfigs{}, balances)

	for i := 0; i < 3; i++ {
		got, err := svc.ProviderBalances(context.Background(), registry.ProviderEthena, "ethereum", 1000)
		if err != nil {
			t.Fatalf("provider balances: %v", err)
		}
		if len(got.Rows) != 1 || got.Rows[0].EffectiveBalance.Int64() != 100 {
			t.Fatalf("unexpected result: %+v", got.Rows)
		}
		if got.Rows[0].TimeWeighted1h.Int64() != 1 {
			t.Errorf("time weighted 1h = %s, want 1", got.Rows[0].TimeWeighted1h)
		}
	}
	if balances.calls != 1 {
		t.Fatalf("upstream called %d times, want 1", balances.calls)
	}
}

func TestProviderBalancesDetachedFromCancelledCaller(t *testing.T) {
	balances := &stubBalances{rows: []model.BreakdownRow{{
		VaultID:         "v",
		VaultAddress:    vaultAddr,
		TokenAddress:    "0xbbbb000000000000000000000000000000000001",
		TokenSymbol:     "USDe",
		InvestorAddress: user1,
		ShareBalance:    big.NewInt(10),
		Balance:         big.NewInt(100),
		TimeWeighted1s:  big.NewInt(3600),
		LastUpdate:      model.BlockRef{Number: 900, Timestamp: 1700000000},
	}}}
	svc := newTestService(t, &stubConfigs{}, balances)

	// a cancelled initiator must not poison the shared fetch for other
	// waiters on the same key
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.ProviderBalances(ctx, registry.ProviderEthena, "ethereum", 1000)
	if err != nil {
		t.Fatalf("provider balances with cancelled caller: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(got.Rows))
	}
}

func TestRankedPositionsRequiresPricer(t *testing.T) {
	svc := newTestService(t, &stubConfigs{}, &stubBalances{})

	policy, _ := PolicyFor("resolv")
	_, err := svc.RankedPositions(context.Background(), policy, "ethereum", 1000, 1, 100)
	if err == nil {
		t.Fatal("expected error when no pricer is configured")
	}
	if !errs.IsFriendly(err) {
		t.Fatalf("expected friendly error, got %T: %v", err, err)
	}
}

func TestFilterHoldersMixedCase(t *testing.T) {
	rows := []model.UserTokenBalance{
		{UserAddress: user1, Balance: big.NewInt(1)},
		{UserAddress: user2, Balance: big.NewInt(2)},
	}

	got := filterHolders(rows, []string{"0xCCCC000000000000000000000000000000000002"})
	if len(got) != 1 || got[0].UserAddress != user2 {
		t.Fatalf("filtered = %+v, want only %s", got, user2)
	}

	if got := filterHolders(rows, nil); len(got) != 2 {
		t.Fatalf("empty filter must keep all rows, got %d", len(got))
	}
}

func TestPolicyFor(t *testing.T) {
	policy, err := PolicyFor("rings")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if policy.Provider != registry.ProviderRings || policy.Flow != FlowShareWeights {
		t.Fatalf("unexpected policy: %+v", policy)
	}

	if _, err := PolicyFor("unknown-partner"); err == nil {
		t.Fatal("expected error for unknown partner")
	}
}

func TestShareWeightsSingleVault(t *testing.T) {
	configs := &stubConfigs{vaults: []model.VaultConfig{ringsVault()}}
	balances := &stubBalances{balances: []model.TokenBalance{
		{UserAddress: user1, TokenAddress: vaultAddr, Balance: big.NewInt(300)},
		{UserAddress: user2, TokenAddress: rewardAddr, Balance: big.NewInt(100)},
		// the strategy is plumbing and must not weigh in
		{UserAddress: "0xaaaa000000000000000000000000000000000009", TokenAddress: vaultAddr, Balance: big.NewInt(600)},
	}}
	svc := newTestService(t, configs, balances)

	policy, _ := PolicyFor("rings")
	got, err := svc.ShareWeights(context.Background(), policy, "sonic", 1000)
	if err != nil {
		t.Fatalf("share weights: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(got))
	}
	if got[0].Address != user1 {
		t.Fatalf("largest holder first, got %s", got[0].Address)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)
	want := new(big.Int).Mul(big.NewInt(3), scale)
	want.Div(want, big.NewInt(4))
	if got[0].Weight.Cmp(want) != 0 {
		t.Errorf("weight = %s, want %s", got[0].Weight, want)
	}
}

func TestHolderListMergesSatellites(t *testing.T) {
	configs := &stubConfigs{vaults: []model.VaultConfig{ringsVault()}}
	balances := &stubBalances{balances: []model.TokenBalance{
		{UserAddress: user1, TokenAddress: vaultAddr, Balance: big.NewInt(50)},
		{UserAddress: user1, TokenAddress: rewardAddr, Balance: big.NewInt(25)},
		{UserAddress: user2, TokenAddress: vaultAddr, Balance: big.NewInt(60)},
	}}
	svc := newTestService(t, configs, balances)

	policy, _ := PolicyFor("infrared")
	got, err := svc.HolderList(context.Background(), policy, "sonic", 1000)
	if err != nil {
		t.Fatalf("holder list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(got))
	}
	if got[0].Address != user1 || got[0].Shares.Int64() != 75 {
		t.Fatalf("top holder = %+v, want user1 with 75", got[0])
	}
}

func TestUnrolledBreakdownDispatchesWrapperLevel(t *testing.T) {
	wrapper := "0x7870ddfd5aca4e977b2287e9a212bcbe8fc4135a"
	holderToken := "0x43026d483f42fb35efe03c20b251142d022783f2"

	balances := &stubBalances{
		rows: []model.BreakdownRow{
			{
				VaultID:         "silo-vault",
				VaultAddress:    vaultAddr,
				TokenAddress:    "0xbbbb000000000000000000000000000000000001",
				TokenSymbol:     "USDC.e",
				InvestorAddress: user1,
				ShareBalance:    big.NewInt(500),
				Balance:         big.NewInt(1000),
				LastUpdate:      model.BlockRef{Number: 900, Timestamp: 1700000000},
			},
			{
				VaultID:         "silo-vault",
				VaultAddress:    vaultAddr,
				TokenAddress:    "0xbbbb000000000000000000000000000000000001",
				TokenSymbol:     "USDC.e",
				InvestorAddress: wrapper,
				ShareBalance:    big.NewInt(1000),
				Balance:         big.NewInt(2000),
				LastUpdate:      model.BlockRef{Number: 900, Timestamp: 1700000000},
			},
		},
		perToken: map[string][]model.TokenBalance{
			holderToken: {
				{UserAddress: user1, TokenAddress: holderToken, Balance: big.NewInt(60)},
				{UserAddress: user2, TokenAddress: holderToken, Balance: big.NewInt(40)},
			},
		},
	}
	svc := newTestService(t, &stubConfigs{}, balances)

	policy, err := PolicyFor("silo")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	got, err := svc.UnrolledBreakdown(context.Background(), policy, "sonic", 1000)
	if err != nil {
		t.Fatalf("unrolled breakdown: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 positions, got %d: %+v", len(got), got)
	}

	totals := map[string]*big.Int{}
	for _, p := range got {
		if p.HolderAddress == wrapper {
			t.Fatal("wrapper position survived the unroll")
		}
		if prev, ok := totals[p.HolderAddress]; ok {
			prev.Add(prev, p.ShareBalance)
		} else {
			totals[p.HolderAddress] = new(big.Int).Set(p.ShareBalance)
		}
	}
	// user1 holds 500 directly plus 60% of the wrapper's 1000
	if got := totals[user1]; got.Int64() != 1100 {
		t.Errorf("user1 shares = %s, want 1100", got)
	}
	if got := totals[user2]; got.Int64() != 400 {
		t.Errorf("user2 shares = %s, want 400", got)
	}
	if sum := model.SumShares(got); sum.Int64() != 1500 {
		t.Errorf("share sum = %s, want 1500", sum)
	}
}

func TestUnrolledBreakdownUnsupportedChain(t *testing.T) {
	svc := newTestService(t, &stubConfigs{}, &stubBalances{})

	policy, _ := PolicyFor("silo")
	_, err := svc.UnrolledBreakdown(context.Background(), policy, "ethereum", 1000)
	if !errs.IsFriendly(err) {
		t.Fatalf("expected friendly error, got %v", err)
	}
}

func TestExactlyOneEnforced(t *testing.T) {
	two := []model.VaultConfig{ringsVault(), ringsVault()}
	two[1].ID = "sonic-scusd-vault-2"
	configs := &stubConfigs{vaults: two}
	svc := newTestService(t, configs, &stubBalances{})

	policy, _ := PolicyFor("infrared")
	_, err := svc.HolderList(context.Background(), policy, "sonic", 1000)
	if err == nil {
		t.Fatal("expected error for multiple matching vaults")
	}
	if _, ok := err.(*errs.ConfigurationError); !ok {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}
