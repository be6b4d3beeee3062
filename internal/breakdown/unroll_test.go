package breakdown

import (
	"math/big"
	"math/rand"
	"reflect"
	"testing"

	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func TestDispatchProportionalExact(t *testing.T) {
	holders := []model.PoolHolderBalance{
		{HolderAddress: "0xaaa", Shares: bi(500000)},
		{HolderAddress: "0xbbb", Shares: bi(300000)},
		{HolderAddress: "0xccc", Shares: bi(200000)},
	}

	dispatched, err := DispatchProportional(bi(1000000), bi(1000000), holders, bi(1000000))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := []int64{500000, 300000, 200000}
	for i, d := range dispatched {
		if d.Shares.Int64() != want[i] {
			t.Errorf("holder %d shares = %s, want %d", i, d.Shares, want[i])
		}
		if d.Underlying.Int64() != want[i] {
			t.Errorf("holder %d underlying = %s, want %d", i, d.Underlying, want[i])
		}
	}
}

func TestDispatchProportionalFloorDeficit(t *testing.T) {
	holders := []model.PoolHolderBalance{
		{HolderAddress: "0xaaa", Shares: bi(1)},
		{HolderAddress: "0xbbb", Shares: bi(1)},
		{HolderAddress: "0xccc", Shares: bi(1)},
	}

	dispatched, err := DispatchProportional(bi(100), bi(100), holders, bi(3))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	sum := new(big.Int)
	for _, d := range dispatched {
		sum.Add(sum, d.Shares)
	}
	deficit := new(big.Int).Sub(bi(100), sum)
	if deficit.Sign() < 0 {
		t.Fatalf("dispatched more than available: sum %s", sum)
	}
	if deficit.Cmp(bi(int64(len(holders)-1))) > 0 {
		t.Fatalf("floor deficit %s exceeds holders-1", deficit)
	}
}

func TestDispatchProportionalSupplyMismatch(t *testing.T) {
	holders := []model.PoolHolderBalance{
		{HolderAddress: "0xaaa", Shares: bi(40)},
		{HolderAddress: "0xbbb", Shares: bi(50)},
	}

	_, err := DispatchProportional(bi(100), bi(100), holders, bi(100))
	if err == nil {
		t.Fatal("expected conservation error on supply mismatch")
	}
	if _, ok := err.(*errs.ConservationError); !ok {
		t.Fatalf("expected ConservationError, got %T", err)
	}
}

func TestDispatchProportionalZeroSupply(t *testing.T) {
	dispatched, err := DispatchProportional(bi(0), bi(0), nil, bi(0))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(dispatched) != 0 {
		t.Fatalf("expected no dispatch targets, got %d", len(dispatched))
	}
}

func poolPositions() []model.Position {
	return []model.Position{
		{
			VaultAddress:    "0xvault",
			TokenAddress:    "0xtoken",
			TokenSymbol:     "USDe",
			HolderAddress:   "0xdirect",
			ShareBalance:    bi(250000),
			UnderlyingValue: bi(500000),
		},
		{
			VaultAddress:    "0xvault",
			TokenAddress:    "0xtoken",
			TokenSymbol:     "USDe",
			HolderAddress:   "0xPOOL",
			ShareBalance:    bi(1000000),
			UnderlyingValue: bi(2000000),
		},
	}
}

func TestUnrollPooledPositionsExact(t *testing.T) {
	holders := []model.PoolHolderBalance{
		{HolderAddress: "0xaaa", Shares: bi(500000)},
		{HolderAddress: "0xbbb", Shares: bi(300000)},
		{HolderAddress: "0xccc", Shares: bi(200000)},
	}

	out, err := UnrollPooledPositions(poolPositions(), "0xpool", bi(1000000), holders)
	if err != nil {
		t.Fatalf("unroll: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 positions, got %d", len(out))
	}

	byHolder := map[string]model.Position{}
	for _, p := range out {
		byHolder[p.HolderAddress] = p
	}
	if _, ok := byHolder["0xpool"]; ok {
		t.Fatal("pooled position survived the unroll")
	}
	if got := byHolder["0xaaa"].ShareBalance; got.Int64() != 500000 {
		t.Errorf("0xaaa shares = %s, want 500000", got)
	}
	if got := byHolder["0xbbb"].UnderlyingValue; got.Int64() != 600000 {
		t.Errorf("0xbbb underlying = %s, want 600000", got)
	}
	if got := byHolder["0xdirect"].ShareBalance; got.Int64() != 250000 {
		t.Errorf("direct holder shares = %s, want 250000", got)
	}
	for _, p := range out {
		if p.VaultAddress != "0xvault" || p.TokenSymbol != "USDe" {
			t.Errorf("dispatched position lost vault identity: %+v", p)
		}
	}
}

func TestUnrollConservationRandomDistributions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(20)
		holders := make([]model.PoolHolderBalance, n)
		supply := new(big.Int)
		for i := range holders {
			shares := bi(1 + rng.Int63n(1_000_000_000))
			holders[i] = model.PoolHolderBalance{
				HolderAddress: string(rune('a'+i%26)) + "holder",
				Shares:        shares,
			}
			supply.Add(supply, shares)
		}

		positions := []model.Position{
			{HolderAddress: "0xpool", ShareBalance: bi(1 + rng.Int63n(1_000_000_000_000)), UnderlyingValue: bi(1 + rng.Int63n(1_000_000_000_000))},
			{HolderAddress: "0xother", ShareBalance: bi(rng.Int63n(1_000_000)), UnderlyingValue: bi(rng.Int63n(1_000_000))},
		}
		sharesBefore := model.SumShares(positions)
		underlyingBefore := model.SumUnderlying(positions)

		out, err := UnrollPooledPositions(positions, "0xpool", supply, holders)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if got := model.SumShares(out); got.Cmp(sharesBefore) != 0 {
			t.Fatalf("trial %d: share sum %s != %s", trial, got, sharesBefore)
		}
		if got := model.SumUnderlying(out); got.Cmp(underlyingBefore) != 0 {
			t.Fatalf("trial %d: underlying sum %s != %s", trial, got, underlyingBefore)
		}
	}
}

func TestUnrollNilShareHolderFirst(t *testing.T) {
	positions := []model.Position{
		{HolderAddress: "0xpool", ShareBalance: bi(99), UnderlyingValue: bi(99)},
	}
	holders := []model.PoolHolderBalance{
		{HolderAddress: "0xempty", Shares: nil},
		{HolderAddress: "0xwhale", Shares: bi(100)},
	}

	out, err := UnrollPooledPositions(positions, "0xpool", bi(100), holders)
	if err != nil {
		t.Fatalf("unroll: %v", err)
	}

	byHolder := map[string]*big.Int{}
	for _, p := range out {
		byHolder[p.HolderAddress] = p.ShareBalance
	}
	if got := byHolder["0xwhale"]; got == nil || got.Int64() != 99 {
		t.Errorf("whale shares = %v, want 99", got)
	}
	if got := byHolder["0xempty"]; got == nil || got.Sign() != 0 {
		t.Errorf("empty holder shares = %v, want 0", got)
	}
	if sum := model.SumShares(out); sum.Int64() != 99 {
		t.Errorf("share sum = %s, want 99", sum)
	}
}

func TestUnrollNoPooledPosition(t *testing.T) {
	positions := []model.Position{
		{HolderAddress: "0xdirect", ShareBalance: bi(10), UnderlyingValue: bi(10)},
	}
	out, err := UnrollPooledPositions(positions, "0xpool", bi(100), nil)
	if err != nil {
		t.Fatalf("unroll: %v", err)
	}
	if len(out) != 1 || out[0].HolderAddress != "0xdirect" {
		t.Fatalf("positions should pass through unchanged, got %+v", out)
	}
}

func TestUnrollMultiplePooledPositions(t *testing.T) {
	positions := []model.Position{
		{HolderAddress: "0xpool", ShareBalance: bi(10), UnderlyingValue: bi(10)},
		{HolderAddress: "0xPool", ShareBalance: bi(20), UnderlyingValue: bi(20)},
	}
	_, err := UnrollPooledPositions(positions, "0xpool", bi(100), nil)
	if err == nil {
		t.Fatal("expected error for duplicate pooled positions")
	}
	if _, ok := err.(*errs.ConservationError); !ok {
		t.Fatalf("expected ConservationError, got %T", err)
	}
}

func TestUnrollDisjointPoolsOrderIndependent(t *testing.T) {
	positions := []model.Position{
		{HolderAddress: "0xpoola", ShareBalance: bi(300), UnderlyingValue: bi(600)},
		{HolderAddress: "0xpoolb", ShareBalance: bi(700), UnderlyingValue: bi(1400)},
	}
	holdersA := []model.PoolHolderBalance{
		{HolderAddress: "0xuser1", Shares: bi(2)},
		{HolderAddress: "0xuser2", Shares: bi(1)},
	}
	holdersB := []model.PoolHolderBalance{
		{HolderAddress: "0xuser3", Shares: bi(5)},
		{HolderAddress: "0xuser4", Shares: bi(2)},
	}

	unrollBoth := func(first, second string) map[string]string {
		t.Helper()
		var out []model.Position
		var err error
		out = positions
		for _, pool := range []string{first, second} {
			holders, supply := holdersA, bi(3)
			if pool == "0xpoolb" {
				holders, supply = holdersB, bi(7)
			}
			out, err = UnrollPooledPositions(out, pool, supply, holders)
			if err != nil {
				t.Fatalf("unroll %s: %v", pool, err)
			}
		}
		shares := map[string]string{}
		for _, p := range out {
			shares[p.HolderAddress] = p.ShareBalance.String()
		}
		return shares
	}

	ab := unrollBoth("0xpoola", "0xpoolb")
	ba := unrollBoth("0xpoolb", "0xpoola")
	if !reflect.DeepEqual(ab, ba) {
		t.Fatalf("unroll order changed the result: %v vs %v", ab, ba)
	}
}

func TestUnrollTwoNestedLevels(t *testing.T) {
	positions := []model.Position{
		{HolderAddress: "0xgauge", ShareBalance: bi(900), UnderlyingValue: bi(1800)},
		{HolderAddress: "0xdirect", ShareBalance: bi(100), UnderlyingValue: bi(200)},
	}

	gaugeHolders := []model.PoolHolderBalance{
		{HolderAddress: "0xwrapper", Shares: bi(60)},
		{HolderAddress: "0xuser1", Shares: bi(40)},
	}
	wrapperHolders := []model.PoolHolderBalance{
		{HolderAddress: "0xuser2", Shares: bi(3)},
		{HolderAddress: "0xuser3", Shares: bi(1)},
	}

	sharesBefore := model.SumShares(positions)
	underlyingBefore := model.SumUnderlying(positions)

	out, err := UnrollPooledPositions(positions, "0xgauge", bi(100), gaugeHolders)
	if err != nil {
		t.Fatalf("level 1: %v", err)
	}
	out, err = UnrollPooledPositions(out, "0xwrapper", bi(4), wrapperHolders)
	if err != nil {
		t.Fatalf("level 2: %v", err)
	}

	byHolder := map[string]*big.Int{}
	for _, p := range out {
		byHolder[p.HolderAddress] = p.ShareBalance
	}
	if got := byHolder["0xuser1"]; got.Int64() != 360 {
		t.Errorf("user1 shares = %s, want 360", got)
	}
	if got := byHolder["0xuser2"]; got.Int64() != 405 {
		t.Errorf("user2 shares = %s, want 405", got)
	}
	if got := byHolder["0xuser3"]; got.Int64() != 135 {
		t.Errorf("user3 shares = %s, want 135", got)
	}
	if got := model.SumShares(out); got.Cmp(sharesBefore) != 0 {
		t.Fatalf("share sum %s != %s after nested unroll", got, sharesBefore)
	}
	if got := model.SumUnderlying(out); got.Cmp(underlyingBefore) != 0 {
		t.Fatalf("underlying sum %s != %s after nested unroll", got, underlyingBefore)
	}
}
