// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the exchange — bets, markets,
// selections, order book levels, and the monetary/odds primitives they're
// built from. It has no dependencies on internal packages, so it can be
// imported by any layer.
package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ————————————————————————————————————————————————————————————————————————
// Identity & money
// ————————————————————————————————————————————————————————————————————————

// Address identifies a bettor or operator. 20 bytes, matching the
// content-addressed identity style of the source this engine was modeled on.
type Address = common.Address

// Odds is a decimal price scaled by 100 so it can be compared and stored as
// a plain integer. 2.15 is represented as 215. Odds > 100 is required
// wherever a bet is placed (see internal/validation).
type Odds int64

// Money is an arbitrary-precision, non-negative amount in the smallest unit
// of the payment asset. Never compared by value directly — use the *big.Int
// methods (Cmp, Sign) so overflow and sign handling stay explicit.
type Money = *big.Int

// ZeroMoney returns a fresh zero-valued Money so callers never share a
// mutable *big.Int across bets.
func ZeroMoney() Money {
	return big.NewInt(0)
}

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Sport is the closed set of supported sports.
type Sport int

const (
	Football Sport = iota
	Basketball
	CounterStrike
	Dota
	LeagueOfLegends
)

// MarketType enumerates the markets offered per sport. Football carries the
// first three; every other sport offers only Winner.
type MarketType int

const (
	FullTimeResult    MarketType = iota // 1X2: Home / Away / Draw
	TotalGoals                          // Over/Under 2.5 goals
	BothTeamsToScore                    // Yes / No
	Winner                              // Home / Away (non-football sports)
)

// SelectionType is the outcome a Selection represents within its MarketType.
type SelectionType int

const (
	SelHome SelectionType = iota
	SelAway
	SelDraw
	SelOver
	SelUnder
	SelYes
	SelNo
)

// BetType distinguishes a Back wager from a Lay wager — the two sides of
// every matched fragment.
type BetType int

const (
	Back BetType = iota
	Lay
)

// BetStatus is the bet lifecycle. A bet only ever moves forward through
// this set; see internal/matching and internal/engine for the transitions.
type BetStatus int

const (
	Unmatched BetStatus = iota
	PartiallyMatched
	Matched
	Win
	Lost
	Canceled
	Claimed
)

// MarketStatus is the market lifecycle: Open -> Closed -> Settled.
type MarketStatus int

const (
	MarketOpen MarketStatus = iota
	MarketClosed
	MarketSettled
)

// ————————————————————————————————————————————————————————————————————————
// Market & selection
// ————————————————————————————————————————————————————————————————————————

// MarketID is the composite identifier sport_index*10^6 + event_id*10^3 +
// market_type_index.
type MarketID uint64

// SelectionID is market_id*10 + ordinal.
type SelectionID uint64

// DeriveMarketID computes the composite market id per spec §3.
func DeriveMarketID(sport Sport, eventID uint64, marketType MarketType) MarketID {
	return MarketID(uint64(sport)*1_000_000 + eventID*1_000 + uint64(marketType))
}

// DeriveSelectionID computes the composite selection id per spec §3.
func DeriveSelectionID(marketID MarketID, ordinal uint64) SelectionID {
	return SelectionID(uint64(marketID)*10 + ordinal)
}

// Market holds one priced event outcome grouping (e.g. "Team A vs Team B,
// 1X2") and its ordered selections.
type Market struct {
	ID                 MarketID
	Sport              Sport
	EventID            uint64
	Type               MarketType
	Selections         []*Selection
	CloseTimestamp     time.Time
	Status             MarketStatus
	TotalMatchedAmount Money
	CreatedAt          time.Time
}

// Selection is one outcome of a Market. It owns its own two-sided order
// book (see internal/book) and the running counters the engine maintains
// across placement, cancellation, and settlement.
type Selection struct {
	ID   SelectionID
	Type SelectionType

	BackLevels []*PriceLevel // sorted descending by Odds
	LayLevels  []*PriceLevel // sorted ascending by Odds

	BackLiquidity Money
	LayLiquidity  Money

	UnmatchedCount        uint64
	PartiallyMatchedCount uint64
	MatchedCount          uint64
	WinCount              uint64
	LostCount             uint64
	CanceledCount         uint64

	TotalMatchedAmount Money
}

// PriceLevel is the aggregated book queue at a single odds value on one
// side of a selection's book.
//
// Invariant: TotalStake == sum of unmatched(bet) for bet in BetNonces.
// BetNonces is FIFO ordered — earliest placement first.
type PriceLevel struct {
	Odds       Odds
	TotalStake Money
	BetNonces  []uint64 // bet ids, FIFO
}

// ————————————————————————————————————————————————————————————————————————
// Bet
// ————————————————————————————————————————————————————————————————————————

// MatchedPart records one counterparty fill against a bet. For every fill,
// one MatchedPart is appended to each of the two matched bets.
type MatchedPart struct {
	CounterpartyBettor       Address
	CounterpartyBetID        uint64
	Amount                   Money
	Odds                     Odds
	MatchedAt                time.Time
	CounterpartyPaymentToken string
	CounterpartyPaymentNonce uint64
}

// Bet is the central record the whole engine revolves around: a single
// wager, its matching progress, and the fragments it has been filled by.
type Bet struct {
	BetID     uint64
	Bettor    Address
	Sport     Sport
	MarketID  MarketID
	Selection SelectionID
	BetType   BetType
	Odds      Odds

	StakeAmount  Money // Back: principal risked; Lay: backer-equivalent principal
	Liability    Money // Back: 0; Lay: stake*(odds-100)/100
	TotalAmount  Money // Back: stake; Lay: stake + liability
	TotalMatched Money // cumulative matched stake

	MatchedParts    []MatchedPart
	PotentialProfit Money

	Status BetStatus

	PaymentToken string
	PaymentNonce uint64

	NFTNonce uint64 // receipt-token id

	CreatedAt time.Time
}

// Unmatched returns stake_amount - total_matched, the residual still
// resting in (or eligible to be booked into) the order book.
func (b *Bet) Unmatched() Money {
	return new(big.Int).Sub(b.StakeAmount, b.TotalMatched)
}

// ————————————————————————————————————————————————————————————————————————
// Results
// ————————————————————————————————————————————————————————————————————————

// ResultState distinguishes a market whose real-world outcome has not yet
// been reported from one that has.
type ResultState int

const (
	NotReported ResultState = iota
	Reported
)

// EventResult is the operator-declared outcome of a market, once reported.
type EventResult struct {
	State            ResultState
	WinningSelection SelectionID
}
