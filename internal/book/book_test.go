package book

import (
	"math/big"
	"testing"

	"github.com/openalpha/betexchange/pkg/types"
)

func newSelection() *types.Selection {
	return &types.Selection{
		ID:            1,
		BackLiquidity: big.NewInt(0),
		LayLiquidity:  big.NewInt(0),
	}
}

func bet(id uint64, betType types.BetType, odds types.Odds, stake int64) *types.Bet {
	return &types.Bet{
		BetID:        id,
		BetType:      betType,
		Odds:         odds,
		StakeAmount:  big.NewInt(stake),
		TotalMatched: big.NewInt(0),
	}
}

func TestInsertSortsBackDescendingLayAscending(t *testing.T) {
	t.Parallel()
	sel := newSelection()

	Insert(sel, bet(1, types.Back, 210, 30))
	Insert(sel, bet(2, types.Back, 220, 30))
	Insert(sel, bet(3, types.Back, 200, 30))

	want := []types.Odds{220, 210, 200}
	for i, lvl := range sel.BackLevels {
		if lvl.Odds != want[i] {
			t.Fatalf("BackLevels[%d].Odds = %v, want %v", i, lvl.Odds, want[i])
		}
	}

	Insert(sel, bet(4, types.Lay, 210, 30))
	Insert(sel, bet(5, types.Lay, 200, 30))
	Insert(sel, bet(6, types.Lay, 220, 30))

	wantLay := []types.Odds{200, 210, 220}
	for i, lvl := range sel.LayLevels {
		if lvl.Odds != wantLay[i] {
			t.Fatalf("LayLevels[%d].Odds = %v, want %v", i, lvl.Odds, wantLay[i])
		}
	}
}

func TestInsertAppendsFIFOAtSameLevel(t *testing.T) {
	t.Parallel()
	sel := newSelection()

	Insert(sel, bet(1, types.Back, 200, 50))
	Insert(sel, bet(2, types.Back, 200, 50))

	if len(sel.BackLevels) != 1 {
		t.Fatalf("expected one level, got %d", len(sel.BackLevels))
	}
	lvl := sel.BackLevels[0]
	if lvl.TotalStake.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("TotalStake = %s, want 100", lvl.TotalStake)
	}
	if len(lvl.BetNonces) != 2 || lvl.BetNonces[0] != 1 || lvl.BetNonces[1] != 2 {
		t.Errorf("BetNonces = %v, want [1 2] (FIFO)", lvl.BetNonces)
	}
	if sel.BackLiquidity.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("BackLiquidity = %s, want 100", sel.BackLiquidity)
	}
}

func TestRemoveDropsEmptyLevelAndDecrementsLiquidity(t *testing.T) {
	t.Parallel()
	sel := newSelection()
	b := bet(1, types.Back, 200, 50)
	Insert(sel, b)

	Remove(sel, b)

	if len(sel.BackLevels) != 0 {
		t.Fatalf("expected level to be dropped, got %d levels", len(sel.BackLevels))
	}
	if sel.BackLiquidity.Sign() != 0 {
		t.Errorf("BackLiquidity = %s, want 0", sel.BackLiquidity)
	}
}

func TestRemovePartialLeavesLevelIntact(t *testing.T) {
	t.Parallel()
	sel := newSelection()
	b1 := bet(1, types.Back, 200, 50)
	b2 := bet(2, types.Back, 200, 50)
	Insert(sel, b1)
	Insert(sel, b2)

	Remove(sel, b1)

	if len(sel.BackLevels) != 1 {
		t.Fatalf("expected level to survive, got %d levels", len(sel.BackLevels))
	}
	if sel.BackLevels[0].TotalStake.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("TotalStake = %s, want 50", sel.BackLevels[0].TotalStake)
	}
	if len(sel.BackLevels[0].BetNonces) != 1 || sel.BackLevels[0].BetNonces[0] != 2 {
		t.Errorf("BetNonces = %v, want [2]", sel.BackLevels[0].BetNonces)
	}
}

func TestDecrementLiquidityPanicsOnNegative(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative liquidity")
		}
	}()

	sel := newSelection()
	// Decrementing 50 from a zero Back liquidity drives it negative.
	decrementLiquidity(sel, types.Back, big.NewInt(50))
}

func TestOppositeLevels(t *testing.T) {
	t.Parallel()
	sel := newSelection()
	Insert(sel, bet(1, types.Lay, 200, 50))

	opp := OppositeLevels(sel, types.Back)
	if len(*opp) != 1 || (*opp)[0].Odds != 200 {
		t.Fatalf("OppositeLevels(Back) = %v, want the lay level at 200", *opp)
	}
}

func TestFindLevel(t *testing.T) {
	t.Parallel()
	levels := []*types.PriceLevel{{Odds: 220}, {Odds: 200}}

	if idx, ok := FindLevel(levels, 200); !ok || idx != 1 {
		t.Errorf("FindLevel(200) = (%d, %v), want (1, true)", idx, ok)
	}
	if _, ok := FindLevel(levels, 999); ok {
		t.Error("FindLevel(999) = true, want false")
	}
}

func TestProrateLay(t *testing.T) {
	t.Parallel()

	got := ProrateLay(big.NewInt(100), big.NewInt(25), big.NewInt(100))
	if got.Cmp(big.NewInt(25)) != 0 {
		t.Errorf("ProrateLay = %s, want 25", got)
	}

	if got := ProrateLay(big.NewInt(100), big.NewInt(25), big.NewInt(0)); got.Sign() != 0 {
		t.Errorf("ProrateLay with zero originalStake = %s, want 0", got)
	}
}
