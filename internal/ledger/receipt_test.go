package ledger

import (
	"context"
	"testing"

	"github.com/openalpha/betexchange/pkg/types"
)

func TestInMemoryReceiptIssuerMintBurn(t *testing.T) {
	t.Parallel()

	issuer := NewInMemoryReceiptIssuer()
	ctx := context.Background()

	nonce, err := issuer.Mint(ctx, ReceiptAttributes{MarketID: 1_000_001, Selection: 10_000_011})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if nonce == 0 {
		t.Error("Mint() returned zero nonce")
	}

	if err := issuer.Burn(ctx, nonce); err != nil {
		t.Fatalf("Burn() error = %v", err)
	}
	if err := issuer.Burn(ctx, nonce); err == nil {
		t.Error("Burn() on already-burned nonce = nil, want error")
	}
}

func TestInMemoryReceiptIssuerNoncesAreUnique(t *testing.T) {
	t.Parallel()

	issuer := NewInMemoryReceiptIssuer()
	ctx := context.Background()

	seen := make(map[uint64]bool)
	for i := 0; i < 5; i++ {
		nonce, err := issuer.Mint(ctx, ReceiptAttributes{})
		if err != nil {
			t.Fatalf("Mint() #%d error = %v", i, err)
		}
		if seen[nonce] {
			t.Fatalf("duplicate nonce %d", nonce)
		}
		seen[nonce] = true
	}
}

func TestInMemoryReceiptIssuerUpdateAttributesRequiresLiveNonce(t *testing.T) {
	t.Parallel()

	issuer := NewInMemoryReceiptIssuer()
	ctx := context.Background()

	if err := issuer.UpdateAttributes(ctx, 999, ReceiptAttributes{}); err == nil {
		t.Error("UpdateAttributes() on unknown nonce = nil, want error")
	}

	nonce, err := issuer.Mint(ctx, ReceiptAttributes{Status: types.Unmatched})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	updated := ReceiptAttributes{Status: types.Matched}
	if err := issuer.UpdateAttributes(ctx, nonce, updated); err != nil {
		t.Fatalf("UpdateAttributes() error = %v", err)
	}
	if issuer.live[nonce].Status != types.Matched {
		t.Errorf("attributes not updated: got %v, want Matched", issuer.live[nonce].Status)
	}
}

func TestInMemoryReceiptIssuerTransferRequiresLiveNonce(t *testing.T) {
	t.Parallel()

	issuer := NewInMemoryReceiptIssuer()
	ctx := context.Background()
	to := types.Address{7}

	if err := issuer.Transfer(ctx, to, 123); err == nil {
		t.Error("Transfer() on unknown nonce = nil, want error")
	}

	nonce, err := issuer.Mint(ctx, ReceiptAttributes{})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := issuer.Transfer(ctx, to, nonce); err != nil {
		t.Errorf("Transfer() error = %v", err)
	}
}

func TestInMemoryReceiptIssuerTokenID(t *testing.T) {
	t.Parallel()

	issuer := NewInMemoryReceiptIssuer()
	if issuer.TokenID() == "" {
		t.Error("TokenID() is empty")
	}
}
