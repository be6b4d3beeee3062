package registry

import (
	"errors"
	"testing"

	"vaultScope/internal/errs"
)

func TestGetChain(t *testing.T) {
	c, err := GetChain("ethereum")
	if err != nil {
		t.Fatalf("get chain: %v", err)
	}
	if c.ID != "ethereum" || c.Name != "Ethereum" {
		t.Fatalf("unexpected chain: %+v", c)
	}

	_, err = GetChain("notachain")
	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGetChainOrNil(t *testing.T) {
	if GetChainOrNil("sonic") == nil {
		t.Fatal("sonic should resolve")
	}
	if GetChainOrNil("notachain") != nil {
		t.Fatal("unknown chain should be nil")
	}
}

func TestGetChainsByProviderOrder(t *testing.T) {
	got := GetChainsByProvider(ProviderEthena)
	want := []string{"arbitrum", "base", "ethereum"}
	if len(got) != len(want) {
		t.Fatalf("chains = %d, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.ID != want[i] {
			t.Errorf("chain[%d] = %s, want %s (declaration order)", i, c.ID, want[i])
		}
	}
}

func TestProviderSymbols(t *testing.T) {
	symbols, ok := ProviderSymbols("ethereum", ProviderEthena)
	if !ok {
		t.Fatal("ethena should be supported on ethereum")
	}
	if len(symbols) != 2 || symbols[0] != "USDe" || symbols[1] != "sUSDe" {
		t.Fatalf("symbols = %v", symbols)
	}

	if _, ok := ProviderSymbols("sonic", ProviderEthena); ok {
		t.Fatal("ethena is not supported on sonic")
	}
	if _, ok := ProviderSymbols("notachain", ProviderEthena); ok {
		t.Fatal("unknown chain supports nothing")
	}
}

func TestIsValidProvider(t *testing.T) {
	if !IsValidProvider(ProviderRings) {
		t.Fatal("rings is a registered provider")
	}
	if IsValidProvider(ProviderID("nope")) {
		t.Fatal("unregistered provider accepted")
	}
}

func TestGetTokenByAddress(t *testing.T) {
	// case-insensitive lookup
	tok, err := GetTokenByAddress("ethereum", "0x4C9EDD5852cd905f086C759E8383e09bff1E68B3")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if tok.Symbol != "USDe" || tok.Decimals != 18 {
		t.Fatalf("unexpected token: %+v", tok)
	}

	_, err = GetTokenByAddress("ethereum", "0xdeadbeef00000000000000000000000000000000")
	var unknown *errs.UnknownTokenError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTokenError, got %v", err)
	}
	if unknown.Chain != "ethereum" {
		t.Errorf("error chain = %s", unknown.Chain)
	}
}

func TestTokensForProvider(t *testing.T) {
	got := TokensForProvider("sonic", ProviderRings)
	if len(got) != 1 || got[0].Symbol != "scUSD" || got[0].Decimals != 6 {
		t.Fatalf("rings tokens on sonic = %+v", got)
	}

	// infrared's pseudo-symbol has no addressbook entry on purpose
	if got := TokensForProvider("sonic", ProviderInfrared); len(got) != 0 {
		t.Fatalf("expected no resolvable tokens, got %+v", got)
	}
}
