package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/openalpha/betexchange/internal/book"
	"github.com/openalpha/betexchange/internal/events"
	"github.com/openalpha/betexchange/internal/ledger"
	"github.com/openalpha/betexchange/internal/matching"
	"github.com/openalpha/betexchange/pkg/types"
)

var (
	// ErrBetNotFound is returned when bet_id has no live record.
	ErrBetNotFound = errors.New("engine: bet not found")
	// ErrNotBettor is returned when caller does not own bet_id.
	ErrNotBettor = errors.New("engine: caller does not own this bet")
	// ErrNotCancelable is returned when bet_id's status isn't Unmatched or
	// PartiallyMatched.
	ErrNotCancelable = errors.New("engine: bet is not in a cancelable state")
	// ErrInsufficientLockedFunds guards the locked_funds(bettor) >= refund
	// precondition (spec §4.4 step 2).
	ErrInsufficientLockedFunds = errors.New("engine: locked funds insufficient for refund")
)

// computeRefund derives the unmatched remainder and refund per spec §4.4
// step 1.
func computeRefund(bet *types.Bet) (unmatched, refund types.Money) {
	unmatched = bet.Unmatched()
	if bet.BetType == types.Back {
		if bet.Status == types.Unmatched {
			return unmatched, new(big.Int).Set(bet.StakeAmount)
		}
		return unmatched, new(big.Int).Set(unmatched)
	}

	if bet.Status == types.Unmatched {
		return unmatched, new(big.Int).Set(bet.TotalAmount)
	}
	return unmatched, book.ProrateLay(bet.TotalAmount, unmatched, bet.StakeAmount)
}

// CancelBet cancels the unmatched remainder of bet_id (spec.md §4.4):
// matched fragments are binding and survive, an Unmatched bet is deleted
// outright, a PartiallyMatched bet converts in place into a smaller Matched
// position.
func (e *Engine) CancelBet(ctx context.Context, caller types.Address, betID uint64) error {
	e.store.Lock()
	defer e.store.Unlock()

	bet, ok := e.store.State.BetsByID[betID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBetNotFound, betID)
	}
	if bet.Bettor != caller {
		return ErrNotBettor
	}
	if bet.Status != types.Unmatched && bet.Status != types.PartiallyMatched {
		return fmt.Errorf("%w: status is %v", ErrNotCancelable, bet.Status)
	}

	market, ok := e.store.State.Markets[bet.MarketID]
	if !ok {
		return fmt.Errorf("%w: market %d", ErrBetNotFound, bet.MarketID)
	}
	var sel *types.Selection
	for _, s := range market.Selections {
		if s.ID == bet.Selection {
			sel = s
			break
		}
	}
	if sel == nil {
		return fmt.Errorf("%w: selection %d", ErrBetNotFound, bet.Selection)
	}

	_, refund := computeRefund(bet)

	locked := e.store.State.LockedFunds[bet.Bettor]
	if locked == nil || locked.Cmp(refund) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientLockedFunds, locked, refund)
	}

	book.Remove(sel, bet)

	statusBefore := bet.Status
	switch bet.Status {
	case types.Unmatched:
		if err := e.issuer.Burn(ctx, bet.NFTNonce); err != nil {
			return fmt.Errorf("burn receipt: %w", err)
		}
		delete(e.store.State.BetsByID, bet.BetID)
		delete(e.store.State.BetNonceToID, bet.NFTNonce)
		delete(e.store.State.MarketBetIDs[bet.MarketID], bet.BetID)
		if sel.UnmatchedCount > 0 {
			sel.UnmatchedCount--
		}

	case types.PartiallyMatched:
		oldStake := bet.StakeAmount
		bet.StakeAmount = new(big.Int).Set(bet.TotalMatched)
		if bet.BetType == types.Lay {
			bet.Liability = book.ProrateLay(bet.Liability, bet.TotalMatched, oldStake)
			bet.TotalAmount = new(big.Int).Add(bet.StakeAmount, bet.Liability)
		} else {
			bet.Liability = types.ZeroMoney()
			bet.TotalAmount = new(big.Int).Set(bet.StakeAmount)
		}
		bet.PotentialProfit = matching.PotentialProfit(bet)
		bet.Status = types.Matched
		matching.ApplyStatusTransition(sel, types.PartiallyMatched, types.Matched)

		if err := e.issuer.UpdateAttributes(ctx, bet.NFTNonce, ledger.ReceiptAttributes{
			MarketID:        bet.MarketID,
			Selection:       bet.Selection,
			Stake:           bet.StakeAmount,
			PotentialProfit: bet.PotentialProfit,
			Odds:            bet.Odds,
			BetType:         bet.BetType,
			Status:          bet.Status,
		}); err != nil {
			return fmt.Errorf("update receipt attributes: %w", err)
		}
		if err := e.issuer.Transfer(ctx, bet.Bettor, bet.NFTNonce); err != nil {
			return fmt.Errorf("return receipt to bettor: %w", err)
		}
	}

	decrementLockedFunds(e.store.State.LockedFunds, bet.Bettor, refund)

	e.emit(events.Event{
		Kind:      events.KindCancelBet,
		Timestamp: time.Now(),
		BetID:     betID,
		MarketID:  bet.MarketID,
		Actor:     caller,
		Data: events.CancelBetData{
			RefundAmount: refund,
			StatusBefore: statusBefore,
			StatusAfter:  bet.Status,
		},
	})
	e.reportExposure(bet.MarketID, sel)

	if err := e.store.Snapshot(); err != nil {
		return fmt.Errorf("snapshot after cancel bet: %w", err)
	}
	return nil
}

// decrementLockedFunds subtracts amt from bettor's locked-funds total,
// saturating at zero to tolerate integer-division rounding (spec §4.4 step 6).
func decrementLockedFunds(locked map[types.Address]types.Money, bettor types.Address, amt types.Money) {
	cur, ok := locked[bettor]
	if !ok {
		return
	}
	next := new(big.Int).Sub(cur, amt)
	if next.Sign() < 0 {
		next = types.ZeroMoney()
	}
	locked[bettor] = next
}
