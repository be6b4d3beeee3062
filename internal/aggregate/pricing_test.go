package aggregate

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"vaultScope/internal/errs"
	"vaultScope/internal/model"
)

type stubPricer struct {
	prices map[string]float64
	calls  int
}

func (s *stubPricer) GetTokenPrice(_ context.Context, oracleID string, _ uint64) (float64, error) {
	s.calls++
	price, ok := s.prices[oracleID]
	if !ok {
		return 0, errs.PriceNotFound(oracleID, 0)
	}
	return price, nil
}

func TestDecimalize(t *testing.T) {
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	got := Decimalize(raw, 18)
	if want := new(big.Rat).SetFrac64(3, 2); got.Cmp(want) != 0 {
		t.Fatalf("decimalize = %s, want 3/2", got)
	}

	got = Decimalize(big.NewInt(2500000), 6)
	if want := new(big.Rat).SetFrac64(5, 2); got.Cmp(want) != 0 {
		t.Fatalf("decimalize = %s, want 5/2", got)
	}
}

func TestValuePositionsUSD(t *testing.T) {
	pricer := &stubPricer{prices: map[string]float64{"USDe": 1.0}}
	rows := []model.UserTokenBalance{
		{UserAddress: "0xaaa", TokenAddress: "0x4c9edd5852cd905f086c759e8383e09bff1e68b3", Balance: mustBig("2000000000000000000")},
		{UserAddress: "0xbbb", TokenAddress: "0x4c9edd5852cd905f086c759e8383e09bff1e68b3", Balance: mustBig("5000000000000000000")},
	}

	got, err := ValuePositionsUSD(context.Background(), pricer, "ethereum", rows, 1700000000)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(got))
	}
	// sorted descending by USD value
	if got[0].Address != "0xbbb" || got[0].BalanceUSD != 5.0 {
		t.Errorf("top position = %+v, want 0xbbb at 5.0", got[0])
	}
	if got[1].BalanceUSD != 2.0 {
		t.Errorf("second position = %+v, want 2.0", got[1])
	}
	// one oracle, one price fetch
	if pricer.calls != 1 {
		t.Errorf("pricer called %d times, want 1", pricer.calls)
	}
}

func TestValuePositionsUnknownToken(t *testing.T) {
	pricer := &stubPricer{prices: map[string]float64{}}
	rows := []model.UserTokenBalance{
		{UserAddress: "0xaaa", TokenAddress: "0xdeadbeef00000000000000000000000000000000", Balance: big.NewInt(1)},
	}

	_, err := ValuePositionsUSD(context.Background(), pricer, "ethereum", rows, 0)
	var unknown *errs.UnknownTokenError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTokenError, got %v", err)
	}
}

func TestValuePositionsMissingPriceFatal(t *testing.T) {
	pricer := &stubPricer{prices: map[string]float64{}}
	rows := []model.UserTokenBalance{
		{UserAddress: "0xaaa", TokenAddress: "0x4c9edd5852cd905f086c759e8383e09bff1e68b3", Balance: big.NewInt(1)},
	}

	_, err := ValuePositionsUSD(context.Background(), pricer, "ethereum", rows, 0)
	var notFound *errs.PriceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected PriceNotFoundError, got %v", err)
	}
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int literal: " + s)
	}
	return v
}
