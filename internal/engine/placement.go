package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/openalpha/betexchange/internal/book"
	"github.com/openalpha/betexchange/internal/events"
	"github.com/openalpha/betexchange/internal/ledger"
	"github.com/openalpha/betexchange/internal/matching"
	"github.com/openalpha/betexchange/internal/validation"
	"github.com/openalpha/betexchange/pkg/types"
)

// PlacementInput carries everything the placement pipeline (spec §4.3)
// needs beyond what it looks up from storage.
type PlacementInput struct {
	Bettor       types.Address
	Sport        types.Sport
	MarketID     types.MarketID
	Selection    types.SelectionID
	Odds         types.Odds
	BetType      types.BetType
	PaymentToken string
	PaymentNonce uint64
	TotalAmount  types.Money // deposited amount: Back stake, or Lay total (stake+liability)
}

// computeStakeLiability derives (stake, liability, total_amount) from
// bet_type, total_amount and odds (spec §4.2): Back deposits its stake
// outright; Lay deposits stake+liability, where stake = total_amount*100/odds.
func computeStakeLiability(betType types.BetType, totalAmount types.Money, odds types.Odds) (stake, liability, amount types.Money) {
	if betType == types.Back {
		return new(big.Int).Set(totalAmount), types.ZeroMoney(), new(big.Int).Set(totalAmount)
	}

	stake = new(big.Int).Div(new(big.Int).Mul(totalAmount, big.NewInt(100)), big.NewInt(int64(odds)))
	liability = new(big.Int).Sub(totalAmount, stake)
	return stake, liability, new(big.Int).Set(totalAmount)
}

// PlaceBet runs the full placement pipeline (spec.md §4.3) as one
// transaction: validate, compute stake/liability, derive bet_id, cross
// against resting liquidity, persist, mint a receipt, lock funds, and
// emit a PlaceBet event.
func (e *Engine) PlaceBet(ctx context.Context, in PlacementInput) (*types.Bet, error) {
	if err := validation.BetOdds(in.Odds, e.cfg.Limits); err != nil {
		return nil, err
	}
	if err := validation.BetAmount(in.TotalAmount, e.cfg.Limits); err != nil {
		return nil, err
	}

	e.store.Lock()
	defer e.store.Unlock()

	market, ok := e.store.State.Markets[in.MarketID]
	if !ok {
		return nil, fmt.Errorf("%w: market %d", validation.ErrMarketNotOpen, in.MarketID)
	}
	if err := validation.Market(market); err != nil {
		return nil, err
	}
	sel, err := validation.Selection(market, in.Selection)
	if err != nil {
		return nil, err
	}

	stake, liability, totalAmount := computeStakeLiability(in.BetType, in.TotalAmount, in.Odds)

	now := time.Now()
	nonce := atomic.AddUint64(&e.placementNonce, 1)
	betID := ledger.DeriveBetID(
		in.Bettor, in.Sport, in.MarketID, in.Selection, in.Odds, in.BetType,
		in.PaymentToken, in.PaymentNonce, in.TotalAmount, now.Unix(), nonce,
	)

	bet := &types.Bet{
		BetID:        betID,
		Bettor:       in.Bettor,
		Sport:        in.Sport,
		MarketID:     in.MarketID,
		Selection:    in.Selection,
		BetType:      in.BetType,
		Odds:         in.Odds,
		StakeAmount:  stake,
		Liability:    liability,
		TotalAmount:  totalAmount,
		TotalMatched: types.ZeroMoney(),
		Status:       types.Unmatched,
		PaymentToken: in.PaymentToken,
		PaymentNonce: in.PaymentNonce,
		CreatedAt:    now,
	}

	sel.UnmatchedCount++
	matching.Cross(sel, bet, e.store.State.BetsByID, now)

	e.store.State.BetsByID[bet.BetID] = bet
	if _, ok := e.store.State.MarketBetIDs[in.MarketID]; !ok {
		e.store.State.MarketBetIDs[in.MarketID] = make(map[uint64]struct{})
	}
	e.store.State.MarketBetIDs[in.MarketID][bet.BetID] = struct{}{}

	nftNonce, err := e.issuer.Mint(ctx, ledger.ReceiptAttributes{
		MarketID:        bet.MarketID,
		Selection:       bet.Selection,
		Stake:           bet.StakeAmount,
		PotentialProfit: bet.PotentialProfit,
		Odds:            bet.Odds,
		BetType:         bet.BetType,
		Status:          bet.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("mint receipt: %w", err)
	}
	bet.NFTNonce = nftNonce
	e.store.State.BetNonceToID[nftNonce] = bet.BetID

	// Lock only the residual left after this placement's own cross (spec
	// §4.3 step 7): Back locks its unmatched stake outright; Lay locks the
	// total_amount fraction proportional to its unmatched stake, the same
	// book.ProrateLay arithmetic cancellation uses to shrink a Lay refund.
	unmatched := bet.Unmatched()
	var amountToLock types.Money
	if bet.BetType == types.Back {
		amountToLock = new(big.Int).Set(unmatched)
	} else {
		amountToLock = book.ProrateLay(bet.TotalAmount, unmatched, bet.StakeAmount)
	}
	addLockedFunds(e.store.State.LockedFunds, bet.Bettor, amountToLock)

	if err := e.issuer.Transfer(ctx, bet.Bettor, bet.NFTNonce); err != nil {
		return nil, fmt.Errorf("transfer receipt: %w", err)
	}

	e.emit(events.Event{
		Kind:      events.KindPlaceBet,
		Timestamp: now,
		BetID:     bet.BetID,
		MarketID:  bet.MarketID,
		Actor:     bet.Bettor,
		Data: events.PlaceBetData{
			Selection:    bet.Selection,
			BetType:      bet.BetType,
			Odds:         bet.Odds,
			StakeAmount:  bet.StakeAmount,
			TotalMatched: bet.TotalMatched,
			Status:       bet.Status,
			AmountLocked: amountToLock,
			NFTNonce:     bet.NFTNonce,
		},
	})
	e.reportExposure(bet.MarketID, sel)

	if err := e.store.Snapshot(); err != nil {
		return nil, fmt.Errorf("snapshot after place bet: %w", err)
	}

	return bet, nil
}

// addLockedFunds adds amt to bettor's running locked-funds total, creating
// the entry if this is their first locked position.
func addLockedFunds(locked map[types.Address]types.Money, bettor types.Address, amt types.Money) {
	cur, ok := locked[bettor]
	if !ok {
		cur = types.ZeroMoney()
	}
	locked[bettor] = new(big.Int).Add(cur, amt)
}
