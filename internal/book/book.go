// Package book implements the per-selection two-sided order book: two
// sorted sequences of PriceLevel (Back side, Lay side), each a FIFO queue
// of bet ids at a single odds value.
//
// Back levels are kept sorted by descending odds (the highest Back price is
// most attractive to a Lay counterparty and must be consumed first). Lay
// levels are kept sorted by ascending odds (the lowest Lay price is most
// attractive to a Back counterparty). Within a level, bet ids are FIFO —
// earlier placements are matched first.
//
// This package holds no locks of its own: the engine serializes every
// operation as a single transaction (spec §5), so book mutation never
// races with itself.
package book

import (
	"fmt"
	"math/big"

	"github.com/openalpha/betexchange/pkg/types"
)

// Insert adds the unmatched residual of bet to its own side's book at
// bet.Odds, creating the level if needed, and bumps the side's liquidity
// counter. A bet with zero unmatched residual is a no-op — nothing to rest.
func Insert(sel *types.Selection, bet *types.Bet) {
	amt := bet.Unmatched()
	if amt.Sign() == 0 {
		return
	}

	levels := ownLevels(sel, bet.BetType)
	idx, ok := FindLevel(*levels, bet.Odds)
	if ok {
		lvl := (*levels)[idx]
		lvl.TotalStake = new(big.Int).Add(lvl.TotalStake, amt)
		lvl.BetNonces = append(lvl.BetNonces, bet.BetID)
	} else {
		lvl := &types.PriceLevel{
			Odds:       bet.Odds,
			TotalStake: new(big.Int).Set(amt),
			BetNonces:  []uint64{bet.BetID},
		}
		insertSorted(levels, lvl, bet.BetType)
	}

	bumpLiquidity(sel, bet.BetType, amt)
}

// Remove subtracts bet's unmatched residual from its level's total_stake,
// removes its id from that level's FIFO queue, drops the level if it's now
// empty, and decrements the side's liquidity counter. A no-op if the bet
// isn't resting on its level (nothing to remove).
func Remove(sel *types.Selection, bet *types.Bet) {
	levels := ownLevels(sel, bet.BetType)
	idx, ok := FindLevel(*levels, bet.Odds)
	if !ok {
		return
	}

	lvl := (*levels)[idx]
	resting := false
	for _, id := range lvl.BetNonces {
		if id == bet.BetID {
			resting = true
			break
		}
	}
	if !resting {
		return
	}
	amt := bet.Unmatched()
	lvl.TotalStake = new(big.Int).Sub(lvl.TotalStake, amt)
	lvl.BetNonces = removeID(lvl.BetNonces, bet.BetID)

	if len(lvl.BetNonces) == 0 {
		*levels = append((*levels)[:idx], (*levels)[idx+1:]...)
	}

	decrementLiquidity(sel, bet.BetType, amt)
}

// OppositeLevels returns the sequence the matching engine should cross an
// incoming bet against: lay levels for a Back bet, back levels for a Lay bet.
func OppositeLevels(sel *types.Selection, betType types.BetType) *[]*types.PriceLevel {
	if betType == types.Back {
		return &sel.LayLevels
	}
	return &sel.BackLevels
}

// FindLevel linear-scans levels for one at exactly odds, per spec §4.1 and
// §9 ("find_level stays linear scan"). Levels are few enough per selection
// that this beats the complexity of a balanced tree.
func FindLevel(levels []*types.PriceLevel, odds types.Odds) (int, bool) {
	for i, lvl := range levels {
		if lvl.Odds == odds {
			return i, true
		}
	}
	return -1, false
}

// ProrateLay applies the proportional rescaling rule every Lay-side
// arithmetic step must use consistently (spec §9): new := old * matched /
// originalStake, integer division. Shared by the matching engine (to shrink
// a partially-filled Lay's total_amount) and cancellation (to recompute
// liability/total_amount on convert-to-Matched).
func ProrateLay(old, matched, originalStake *big.Int) *big.Int {
	if originalStake.Sign() == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).Mul(old, matched)
	return n.Div(n, originalStake)
}

func ownLevels(sel *types.Selection, betType types.BetType) *[]*types.PriceLevel {
	if betType == types.Back {
		return &sel.BackLevels
	}
	return &sel.LayLevels
}

// insertSorted inserts lvl into *levels maintaining the side's sort order:
// descending odds for Back, ascending odds for Lay.
func insertSorted(levels *[]*types.PriceLevel, lvl *types.PriceLevel, betType types.BetType) {
	ls := *levels
	pos := len(ls)
	for i, existing := range ls {
		if betType == types.Back {
			if lvl.Odds > existing.Odds {
				pos = i
				break
			}
		} else {
			if lvl.Odds < existing.Odds {
				pos = i
				break
			}
		}
	}
	ls = append(ls, nil)
	copy(ls[pos+1:], ls[pos:])
	ls[pos] = lvl
	*levels = ls
}

func removeID(ids []uint64, target uint64) []uint64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func bumpLiquidity(sel *types.Selection, betType types.BetType, amt *big.Int) {
	if betType == types.Back {
		sel.BackLiquidity = new(big.Int).Add(sel.BackLiquidity, amt)
	} else {
		sel.LayLiquidity = new(big.Int).Add(sel.LayLiquidity, amt)
	}
}

func decrementLiquidity(sel *types.Selection, betType types.BetType, amt *big.Int) {
	var counter *types.Money
	if betType == types.Back {
		counter = &sel.BackLiquidity
	} else {
		counter = &sel.LayLiquidity
	}
	next := new(big.Int).Sub(*counter, amt)
	if next.Sign() < 0 {
		panic(fmt.Sprintf("book: side liquidity went negative (side=%v, amt=%s, prev=%s) — state corruption", betType, amt, *counter))
	}
	*counter = next
}
