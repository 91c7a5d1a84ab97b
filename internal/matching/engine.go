// Package matching implements the price/time-priority cross: the core
// algorithm that pairs an incoming bet against resting opposite-side
// liquidity at the same odds.
//
// Per-bet flow:
//  1. Walk the opposite side's levels best-first, skipping any whose odds
//     don't equal the incoming bet's (strict-equality matching, not
//     better-or-equal — see spec notes on this being a deliberate
//     restriction, not an oversight).
//  2. At a matching level, consume counterparty bets in FIFO order,
//     splitting the fill across as many as needed.
//  3. Every fill appends a MatchedPart to both sides and recomputes the
//     counterparty's status, potential profit, and (for Lay) total_amount.
//  4. Any residual on the incoming bet is booked as a new resting order.
//
// This package has no mutex of its own: the engine calls Cross once per
// placement, inside the single transaction that operation owns.
package matching

import (
	"math/big"
	"time"

	"github.com/openalpha/betexchange/internal/book"
	"github.com/openalpha/betexchange/pkg/types"
)

// Cross matches incoming against sel's opposite-side liquidity, mutating
// incoming, every counterparty bet it fills (looked up via betsByID), and
// sel's book/counters/liquidity in place. incoming must not yet be present
// in betsByID or in sel's book — it cannot be its own counterparty.
func Cross(sel *types.Selection, incoming *types.Bet, betsByID map[uint64]*types.Bet, now time.Time) {
	opposite := book.OppositeLevels(sel, incoming.BetType)
	levels := *opposite

	i := 0
	for i < len(levels) {
		if incoming.Unmatched().Sign() == 0 {
			break
		}
		lvl := levels[i]
		if lvl.Odds != incoming.Odds {
			i++
			continue
		}

		toMatch := minBig(incoming.Unmatched(), lvl.TotalStake)
		if toMatch.Sign() == 0 {
			i++
			continue
		}

		filled := consumeLevel(sel, lvl, incoming, toMatch, betsByID, now)
		incoming.TotalMatched = new(big.Int).Add(incoming.TotalMatched, filled)
		sel.TotalMatchedAmount = new(big.Int).Add(sel.TotalMatchedAmount, filled)
		if incoming.BetType == types.Back {
			sel.LayLiquidity = new(big.Int).Sub(sel.LayLiquidity, filled)
		} else {
			sel.BackLiquidity = new(big.Int).Sub(sel.BackLiquidity, filled)
		}

		if len(lvl.BetNonces) == 0 {
			levels = append(levels[:i], levels[i+1:]...)
			continue // next level has shifted into position i
		}
		i++
	}
	*opposite = levels

	prevStatus := incoming.Status
	incoming.PotentialProfit = PotentialProfit(incoming)
	switch {
	case incoming.Unmatched().Sign() == 0:
		incoming.Status = types.Matched
	case incoming.TotalMatched.Sign() > 0:
		incoming.Status = types.PartiallyMatched
	default:
		incoming.Status = types.Unmatched
	}
	ApplyStatusTransition(sel, prevStatus, incoming.Status)

	if incoming.Unmatched().Sign() > 0 {
		book.Insert(sel, incoming)
	}
}

// consumeLevel allocates toMatch across lvl's FIFO queue of counterparty
// bets, removing any that become fully matched, and rebuilds lvl.TotalStake
// from what remains. Returns the total amount actually filled.
func consumeLevel(sel *types.Selection, lvl *types.PriceLevel, incoming *types.Bet, toMatch *big.Int, betsByID map[uint64]*types.Bet, now time.Time) *big.Int {
	remaining := new(big.Int).Set(toMatch)
	filled := big.NewInt(0)
	keep := make([]uint64, 0, len(lvl.BetNonces))

	for _, cpID := range lvl.BetNonces {
		if remaining.Sign() == 0 {
			keep = append(keep, cpID)
			continue
		}

		cp, ok := betsByID[cpID]
		if !ok || cp.Unmatched().Sign() == 0 {
			// Defensive: a fully-matched bet should already have been
			// dropped from the queue; skip and drop it if we see one.
			continue
		}

		fill := minBig(cp.Unmatched(), remaining)
		if fill.Sign() == 0 {
			keep = append(keep, cpID)
			continue
		}

		applyFill(sel, incoming, cp, fill, lvl.Odds, now)
		remaining = new(big.Int).Sub(remaining, fill)
		filled = new(big.Int).Add(filled, fill)

		if cp.TotalMatched.Cmp(cp.StakeAmount) != 0 {
			keep = append(keep, cpID)
		}
	}

	lvl.BetNonces = keep
	lvl.TotalStake = sumUnmatched(betsByID, keep)
	return filled
}

// applyFill appends the paired MatchedParts, updates cp's matched total,
// Lay total_amount proration, status, and potential profit, and records the
// counter transition the status change implies.
func applyFill(sel *types.Selection, incoming, cp *types.Bet, fill *big.Int, odds types.Odds, now time.Time) {
	incoming.MatchedParts = append(incoming.MatchedParts, types.MatchedPart{
		CounterpartyBettor:       cp.Bettor,
		CounterpartyBetID:        cp.BetID,
		Amount:                   new(big.Int).Set(fill),
		Odds:                     odds,
		MatchedAt:                now,
		CounterpartyPaymentToken: cp.PaymentToken,
		CounterpartyPaymentNonce: cp.PaymentNonce,
	})
	cp.MatchedParts = append(cp.MatchedParts, types.MatchedPart{
		CounterpartyBettor:       incoming.Bettor,
		CounterpartyBetID:        incoming.BetID,
		Amount:                   new(big.Int).Set(fill),
		Odds:                     odds,
		MatchedAt:                now,
		CounterpartyPaymentToken: incoming.PaymentToken,
		CounterpartyPaymentNonce: incoming.PaymentNonce,
	})

	cp.TotalMatched = new(big.Int).Add(cp.TotalMatched, fill)
	if cp.BetType == types.Lay {
		delta := book.ProrateLay(cp.TotalAmount, fill, cp.StakeAmount)
		cp.TotalAmount = new(big.Int).Sub(cp.TotalAmount, delta)
	}

	prevStatus := cp.Status
	if cp.TotalMatched.Cmp(cp.StakeAmount) == 0 {
		cp.Status = types.Matched
	} else {
		cp.Status = types.PartiallyMatched
	}
	cp.PotentialProfit = PotentialProfit(cp)
	ApplyStatusTransition(sel, prevStatus, cp.Status)
}

// PotentialProfit computes what a bet wins if it's on the winning side of
// settlement: Back profit is stake*(odds-100)/100 over total_matched; Lay
// profit is simply total_matched (the forfeited backer stake).
func PotentialProfit(b *types.Bet) types.Money {
	if b.BetType == types.Back {
		n := new(big.Int).Mul(b.TotalMatched, big.NewInt(int64(b.Odds)-100))
		return n.Div(n, big.NewInt(100))
	}
	return new(big.Int).Set(b.TotalMatched)
}

// ApplyStatusTransition is the single place status-count counters move,
// per spec's note that multiple increment paths invite drift: every status
// change on a bet belonging to sel must go through here exactly once.
func ApplyStatusTransition(sel *types.Selection, from, to types.BetStatus) {
	if from == to {
		return
	}
	decrementCounter(sel, from)
	incrementCounter(sel, to)
}

func counterFor(sel *types.Selection, status types.BetStatus) *uint64 {
	switch status {
	case types.Unmatched:
		return &sel.UnmatchedCount
	case types.PartiallyMatched:
		return &sel.PartiallyMatchedCount
	case types.Matched:
		return &sel.MatchedCount
	case types.Win:
		return &sel.WinCount
	case types.Lost:
		return &sel.LostCount
	case types.Canceled:
		return &sel.CanceledCount
	default:
		return nil // Claimed has no counter; it's a terminal no-op flag
	}
}

func decrementCounter(sel *types.Selection, status types.BetStatus) {
	c := counterFor(sel, status)
	if c == nil || *c == 0 {
		return
	}
	*c--
}

func incrementCounter(sel *types.Selection, status types.BetStatus) {
	if c := counterFor(sel, status); c != nil {
		*c++
	}
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func sumUnmatched(betsByID map[uint64]*types.Bet, ids []uint64) *big.Int {
	total := big.NewInt(0)
	for _, id := range ids {
		if b, ok := betsByID[id]; ok {
			total.Add(total, b.Unmatched())
		}
	}
	return total
}
