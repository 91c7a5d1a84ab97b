package events

import (
	"math/big"
	"testing"

	"github.com/openalpha/betexchange/pkg/types"
)

func TestBuildMarketSnapshotProjectsBestOdds(t *testing.T) {
	t.Parallel()

	m := &types.Market{
		ID:                 1_000_001,
		Sport:              types.Football,
		EventID:            1,
		Type:               types.FullTimeResult,
		Status:             types.MarketOpen,
		TotalMatchedAmount: big.NewInt(500),
		Selections: []*types.Selection{
			{
				ID:            10_000_011,
				Type:          types.SelHome,
				BackLevels:    []*types.PriceLevel{{Odds: 210, TotalStake: big.NewInt(100), BetNonces: []uint64{1}}},
				LayLevels:     []*types.PriceLevel{{Odds: 220, TotalStake: big.NewInt(50), BetNonces: []uint64{2}}},
				BackLiquidity: big.NewInt(100),
				LayLiquidity:  big.NewInt(50),
				TotalMatchedAmount: big.NewInt(0),
			},
		},
	}

	snap := BuildMarketSnapshot(m)
	if snap.MarketID != m.ID {
		t.Errorf("MarketID = %v, want %v", snap.MarketID, m.ID)
	}
	if len(snap.Selections) != 1 {
		t.Fatalf("got %d selections, want 1", len(snap.Selections))
	}
	sel := snap.Selections[0]
	if sel.BestBackOdds != 210 {
		t.Errorf("BestBackOdds = %d, want 210", sel.BestBackOdds)
	}
	if sel.BestLayOdds != 220 {
		t.Errorf("BestLayOdds = %d, want 220", sel.BestLayOdds)
	}
}

func TestBuildMarketSnapshotHandlesEmptyBook(t *testing.T) {
	t.Parallel()

	m := &types.Market{
		ID: 1_000_001,
		Selections: []*types.Selection{
			{ID: 10_000_011, BackLiquidity: big.NewInt(0), LayLiquidity: big.NewInt(0), TotalMatchedAmount: big.NewInt(0)},
		},
		TotalMatchedAmount: big.NewInt(0),
	}

	snap := BuildMarketSnapshot(m)
	sel := snap.Selections[0]
	if sel.BestBackOdds != 0 || sel.BestLayOdds != 0 {
		t.Errorf("expected zero best odds on an empty book, got back=%d lay=%d", sel.BestBackOdds, sel.BestLayOdds)
	}
}

type fakeProvider struct {
	snaps []MarketSnapshot
}

func (f fakeProvider) MarketSnapshots() []MarketSnapshot { return f.snaps }

func TestBuildSnapshotAggregatesProvider(t *testing.T) {
	t.Parallel()

	p := fakeProvider{snaps: []MarketSnapshot{{MarketID: 7}}}
	snap := BuildSnapshot(p)
	if len(snap.Markets) != 1 || snap.Markets[0].MarketID != 7 {
		t.Errorf("BuildSnapshot() = %+v, want one market with id 7", snap)
	}
}
