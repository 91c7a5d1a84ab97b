package events

import (
	"time"

	"github.com/openalpha/betexchange/pkg/types"
)

// Provider is implemented by the engine: it supplies a read-only view of
// current state for the dashboard, without exposing the engine's storage
// lock or mutation methods. Grounded on the teacher's
// MarketSnapshotProvider interface (internal/api/snapshot.go).
type Provider interface {
	MarketSnapshots() []MarketSnapshot
}

// Snapshot is the complete dashboard state returned by /snapshot and sent
// to every WebSocket client on connect.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Markets   []MarketSnapshot `json:"markets"`
}

// MarketSnapshot is a read-only view of one market, renamed from the
// teacher's MarketStatus to the betting domain.
type MarketSnapshot struct {
	MarketID           types.MarketID      `json:"market_id"`
	Sport              types.Sport         `json:"sport"`
	EventID            uint64              `json:"event_id"`
	Type               types.MarketType    `json:"market_type"`
	Status             types.MarketStatus  `json:"status"`
	CloseTimestamp     time.Time           `json:"close_timestamp"`
	TotalMatchedAmount types.Money         `json:"total_matched_amount"`
	Selections         []SelectionSnapshot `json:"selections"`
}

// SelectionSnapshot is a read-only view of one selection's book depth and
// counters — no per-bet detail (see BetSnapshot for that).
type SelectionSnapshot struct {
	SelectionID           types.SelectionID   `json:"selection_id"`
	Type                  types.SelectionType `json:"type"`
	BestBackOdds          types.Odds          `json:"best_back_odds,omitempty"`
	BestLayOdds           types.Odds          `json:"best_lay_odds,omitempty"`
	BackLiquidity         types.Money         `json:"back_liquidity"`
	LayLiquidity          types.Money         `json:"lay_liquidity"`
	UnmatchedCount        uint64              `json:"unmatched_count"`
	PartiallyMatchedCount uint64              `json:"partially_matched_count"`
	MatchedCount          uint64              `json:"matched_count"`
	WinCount              uint64              `json:"win_count"`
	LostCount             uint64              `json:"lost_count"`
	CanceledCount         uint64              `json:"canceled_count"`
	TotalMatchedAmount    types.Money         `json:"total_matched_amount"`
}

// BetSnapshot is a read-only view of a single bet. No dashboard route or
// event in this package returns it.
type BetSnapshot struct {
	BetID        uint64            `json:"bet_id"`
	Bettor       types.Address     `json:"bettor"`
	MarketID     types.MarketID    `json:"market_id"`
	Selection    types.SelectionID `json:"selection"`
	BetType      types.BetType     `json:"bet_type"`
	Odds         types.Odds        `json:"odds"`
	StakeAmount  types.Money       `json:"stake_amount"`
	TotalMatched types.Money       `json:"total_matched"`
	Status       types.BetStatus   `json:"status"`
}

// BuildMarketSnapshot projects a types.Market into its dashboard form.
func BuildMarketSnapshot(m *types.Market) MarketSnapshot {
	sels := make([]SelectionSnapshot, 0, len(m.Selections))
	for _, sel := range m.Selections {
		sels = append(sels, buildSelectionSnapshot(sel))
	}
	return MarketSnapshot{
		MarketID:           m.ID,
		Sport:              m.Sport,
		EventID:            m.EventID,
		Type:               m.Type,
		Status:             m.Status,
		CloseTimestamp:     m.CloseTimestamp,
		TotalMatchedAmount: m.TotalMatchedAmount,
		Selections:         sels,
	}
}

func buildSelectionSnapshot(sel *types.Selection) SelectionSnapshot {
	snap := SelectionSnapshot{
		SelectionID:           sel.ID,
		Type:                  sel.Type,
		BackLiquidity:         sel.BackLiquidity,
		LayLiquidity:          sel.LayLiquidity,
		UnmatchedCount:        sel.UnmatchedCount,
		PartiallyMatchedCount: sel.PartiallyMatchedCount,
		MatchedCount:          sel.MatchedCount,
		WinCount:              sel.WinCount,
		LostCount:             sel.LostCount,
		CanceledCount:         sel.CanceledCount,
		TotalMatchedAmount:    sel.TotalMatchedAmount,
	}
	if len(sel.BackLevels) > 0 {
		snap.BestBackOdds = sel.BackLevels[0].Odds
	}
	if len(sel.LayLevels) > 0 {
		snap.BestLayOdds = sel.LayLevels[0].Odds
	}
	return snap
}

// BuildSnapshot aggregates every market the provider reports into one
// dashboard Snapshot.
func BuildSnapshot(provider Provider) Snapshot {
	return Snapshot{
		Timestamp: time.Now(),
		Markets:   provider.MarketSnapshots(),
	}
}
