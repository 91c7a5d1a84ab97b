// Package events defines the eight event kinds the engine emits (spec.md
// §6) and the transport that delivers them to off-chain indexers: a
// gorilla/websocket Hub broadcasting to subscribed clients, plus a
// read-only HTTP snapshot surface, both grounded on the teacher's
// dashboard (internal/api/stream.go, handlers.go, snapshot.go, types.go).
package events

import (
	"time"

	"github.com/openalpha/betexchange/pkg/types"
)

// Kind names one of the eight emitted event types.
type Kind string

const (
	KindPlaceBet          Kind = "PlaceBet"
	KindCancelBet         Kind = "CancelBet"
	KindClaimWin          Kind = "ClaimWin"
	KindCreateMarket      Kind = "CreateMarket"
	KindMarketClosed      Kind = "MarketClosed"
	KindBetRefunded       Kind = "BetRefunded"
	KindRewardDistributed Kind = "RewardDistributed"
	KindBetCounterUpdate  Kind = "BetCounterUpdate"
)

// Event is the envelope broadcast to every subscriber: kind, the bet/market
// it concerns, the actor who triggered it, and a kind-specific payload.
type Event struct {
	Kind      Kind           `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	BetID     uint64         `json:"bet_id,omitempty"`
	MarketID  types.MarketID `json:"market_id,omitempty"`
	Actor     types.Address  `json:"actor"`
	Data      interface{}    `json:"data"`
}

// PlaceBetData is emitted after a successful placement pipeline run.
type PlaceBetData struct {
	Selection    types.SelectionID `json:"selection"`
	BetType      types.BetType     `json:"bet_type"`
	Odds         types.Odds        `json:"odds"`
	StakeAmount  types.Money       `json:"stake_amount"`
	TotalMatched types.Money       `json:"total_matched"`
	Status       types.BetStatus   `json:"status"`
	AmountLocked types.Money       `json:"amount_locked"`
	NFTNonce     uint64            `json:"nft_nonce"`
}

// CancelBetData is emitted after a cancellation completes.
type CancelBetData struct {
	RefundAmount types.Money     `json:"refund_amount"`
	StatusBefore types.BetStatus `json:"status_before"`
	StatusAfter  types.BetStatus `json:"status_after"`
}

// ClaimWinData is emitted when a Win bet's payout is transferred during a
// batch walk.
type ClaimWinData struct {
	Payout types.Money `json:"payout"`
}

// CreateMarketData is emitted when the operator opens a new market.
type CreateMarketData struct {
	Sport          types.Sport         `json:"sport"`
	EventID        uint64              `json:"event_id"`
	Type           types.MarketType    `json:"market_type"`
	CloseTimestamp time.Time           `json:"close_timestamp"`
	SelectionIDs   []types.SelectionID `json:"selection_ids"`
}

// MarketClosedData is emitted when a market transitions Open -> Closed.
type MarketClosedData struct {
	RefundedBetCount int `json:"refunded_bet_count"`
}

// BetRefundedData is emitted per bet refunded during closeMarkets' unmatched
// walk.
type BetRefundedData struct {
	RefundAmount types.Money     `json:"refund_amount"`
	StatusAfter  types.BetStatus `json:"status_after"`
}

// RewardDistributedData is emitted per bet paid out during a batch walk
// (Win outcome).
type RewardDistributedData struct {
	Payout types.Money `json:"payout"`
}

// BetCounterUpdateData is emitted for every bet settled by a batch payout
// walk, carrying the selection's status counters after that bet's
// transition. Counter changes from placement, cancellation and market
// close do not emit it.
type BetCounterUpdateData struct {
	Selection             types.SelectionID `json:"selection"`
	UnmatchedCount        uint64            `json:"unmatched_count"`
	PartiallyMatchedCount uint64            `json:"partially_matched_count"`
	MatchedCount          uint64            `json:"matched_count"`
	WinCount              uint64            `json:"win_count"`
	LostCount             uint64            `json:"lost_count"`
	CanceledCount         uint64            `json:"canceled_count"`
}
