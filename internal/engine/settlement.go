package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/openalpha/betexchange/internal/events"
	"github.com/openalpha/betexchange/internal/ledger"
	"github.com/openalpha/betexchange/internal/matching"
	"github.com/openalpha/betexchange/internal/resultfeed"
	"github.com/openalpha/betexchange/pkg/types"
)

// BatchStatus reports whether a ProcessBatchBets walk exhausted the
// market's bet-id set or filled its batch and must be called again.
type BatchStatus int

const (
	Completed BatchStatus = iota
	InProgress
)

var (
	// ErrMarketNotFound is returned when market_id has no live record.
	ErrMarketNotFound = errors.New("engine: market not found")
	// ErrMarketNotClosed guards the Closed -> Settled transition.
	ErrMarketNotClosed = errors.New("engine: market is not closed")
)

// CloseMarkets transitions market_id Open -> Closed (spec.md §4.5 Close):
// every resting order is refunded and truncated to its matched remainder,
// and side-liquidity counters are zeroed. Operator only.
func (e *Engine) CloseMarkets(caller types.Address, marketIDs []types.MarketID) error {
	if !e.isOperator(caller) {
		return ErrNotOperator
	}

	e.store.Lock()
	defer e.store.Unlock()

	for _, marketID := range marketIDs {
		market, ok := e.store.State.Markets[marketID]
		if !ok {
			return fmt.Errorf("%w: %d", ErrMarketNotFound, marketID)
		}
		if err := e.closeOneMarket(caller, market); err != nil {
			return err
		}
	}

	if err := e.store.Snapshot(); err != nil {
		return fmt.Errorf("snapshot after close markets: %w", err)
	}
	return nil
}

func (e *Engine) closeOneMarket(caller types.Address, market *types.Market) error {
	market.Status = types.MarketClosed
	refunded := 0

	for _, sel := range market.Selections {
		for _, side := range [][]*types.PriceLevel{sel.BackLevels, sel.LayLevels} {
			for _, lvl := range side {
				for _, betID := range append([]uint64(nil), lvl.BetNonces...) {
					bet, ok := e.store.State.BetsByID[betID]
					if !ok {
						continue
					}
					prevStatus := bet.Status
					e.refundUnmatchedBet(market.ID, bet)
					matching.ApplyStatusTransition(sel, prevStatus, bet.Status)
					refunded++
				}
			}
		}
		sel.BackLevels = nil
		sel.LayLevels = nil
		sel.BackLiquidity = types.ZeroMoney()
		sel.LayLiquidity = types.ZeroMoney()
	}

	e.emit(events.Event{
		Kind:      events.KindMarketClosed,
		Timestamp: time.Now(),
		MarketID:  market.ID,
		Actor:     caller,
		Data:      events.MarketClosedData{RefundedBetCount: refunded},
	})
	return nil
}

// refundUnmatchedBet implements process_unmatched_bet (spec §4.5 Close):
// refund the unmatched remainder, truncate stake_amount to total_matched,
// and set status Matched (if anything matched) or Canceled.
func (e *Engine) refundUnmatchedBet(marketID types.MarketID, bet *types.Bet) {
	refund := bet.Unmatched()
	decrementLockedFunds(e.store.State.LockedFunds, bet.Bettor, refund)

	bet.StakeAmount = new(big.Int).Set(bet.TotalMatched)
	if bet.TotalMatched.Sign() > 0 {
		bet.Status = types.Matched
	} else {
		bet.Status = types.Canceled
	}

	e.emit(events.Event{
		Kind:      events.KindBetRefunded,
		Timestamp: time.Now(),
		BetID:     bet.BetID,
		MarketID:  marketID,
		Actor:     bet.Bettor,
		Data: events.BetRefundedData{
			RefundAmount: refund,
			StatusAfter:  bet.Status,
		},
	})
}

// SetMarketResult declares market_id's real-world outcome (spec.md §4.5
// Result declaration): the winning selection is derived from score by
// MarketType, and status moves Closed -> Settled. Operator only.
func (e *Engine) SetMarketResult(caller types.Address, marketID types.MarketID, score resultfeed.Score) error {
	if !e.isOperator(caller) {
		return ErrNotOperator
	}

	e.store.Lock()
	defer e.store.Unlock()

	market, ok := e.store.State.Markets[marketID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrMarketNotFound, marketID)
	}
	if market.Status != types.MarketClosed {
		return fmt.Errorf("%w: status is %v", ErrMarketNotClosed, market.Status)
	}

	ordinal := resultfeed.WinningSelection(market.Type, score.ScoreHome, score.ScoreAway)
	winningSelection := types.DeriveSelectionID(marketID, ordinal)

	e.store.State.EventResults[marketID] = &types.EventResult{
		State:            types.Reported,
		WinningSelection: winningSelection,
	}
	market.Status = types.MarketSettled

	if err := e.store.Snapshot(); err != nil {
		return fmt.Errorf("snapshot after set market result: %w", err)
	}
	return nil
}

// ProcessBatchBets walks market_id's bet-id set in stable (sorted) order,
// settling up to batchSize bets whose total_matched > 0 (spec.md §4.5 Batch
// payout). Already-settled bets (status Win/Lost) are skipped, so repeated
// calls are idempotent and a crash mid-walk is recoverable by calling again.
func (e *Engine) ProcessBatchBets(ctx context.Context, marketID types.MarketID, batchSize int) (BatchStatus, error) {
	e.store.Lock()
	defer e.store.Unlock()

	result, ok := e.store.State.EventResults[marketID]
	if !ok || result.State != types.Reported {
		return Completed, fmt.Errorf("%w: no result declared for market %d", ErrMarketNotClosed, marketID)
	}

	betIDSet := e.store.State.MarketBetIDs[marketID]
	betIDs := make([]uint64, 0, len(betIDSet))
	for id := range betIDSet {
		betIDs = append(betIDs, id)
	}
	sort.Slice(betIDs, func(i, j int) bool { return betIDs[i] < betIDs[j] })

	processed := 0
	remaining := false
	for _, id := range betIDs {
		bet, ok := e.store.State.BetsByID[id]
		if !ok {
			continue
		}
		if bet.Status == types.Win || bet.Status == types.Lost {
			continue
		}
		if bet.TotalMatched.Sign() == 0 {
			continue
		}
		if processed >= batchSize {
			remaining = true
			break
		}

		if err := e.settleOneBet(ctx, marketID, bet, result.WinningSelection); err != nil {
			return Completed, err
		}
		processed++
	}

	if err := e.store.Snapshot(); err != nil {
		return Completed, fmt.Errorf("snapshot after process batch bets: %w", err)
	}

	if remaining {
		return InProgress, nil
	}
	return Completed, nil
}

// settleOneBet applies the WIN/LOSS payout formula (spec §4.5 Batch payout)
// to a single bet, as one atomic write of bet status, counters, and payout.
func (e *Engine) settleOneBet(ctx context.Context, marketID types.MarketID, bet *types.Bet, winningSelection types.SelectionID) error {
	won := (bet.BetType == types.Back && bet.Selection == winningSelection) ||
		(bet.BetType == types.Lay && bet.Selection != winningSelection)

	prevStatus := bet.Status
	payout := types.ZeroMoney()
	if won {
		payout = winPayout(bet)
		bet.Status = types.Win
	} else {
		bet.Status = types.Lost
	}

	if err := e.issuer.UpdateAttributes(ctx, bet.NFTNonce, ledger.ReceiptAttributes{
		MarketID:        bet.MarketID,
		Selection:       bet.Selection,
		Stake:           bet.StakeAmount,
		PotentialProfit: bet.PotentialProfit,
		Odds:            bet.Odds,
		BetType:         bet.BetType,
		Status:          bet.Status,
	}); err != nil {
		return fmt.Errorf("update receipt attributes for bet %d: %w", bet.BetID, err)
	}

	if won {
		// ClaimWin marks the bet's resolution; RewardDistributed marks the
		// accompanying payout transfer — two facets of the same settlement.
		e.emit(events.Event{
			Kind:      events.KindClaimWin,
			Timestamp: time.Now(),
			BetID:     bet.BetID,
			MarketID:  marketID,
			Actor:     bet.Bettor,
			Data:      events.ClaimWinData{Payout: payout},
		})
		e.emit(events.Event{
			Kind:      events.KindRewardDistributed,
			Timestamp: time.Now(),
			BetID:     bet.BetID,
			MarketID:  marketID,
			Actor:     bet.Bettor,
			Data:      events.RewardDistributedData{Payout: payout},
		})
	}

	if market, ok := e.store.State.Markets[marketID]; ok {
		for _, sel := range market.Selections {
			if sel.ID != bet.Selection {
				continue
			}
			bumpSettlementCounter(sel, prevStatus, bet.Status)
			e.emit(events.Event{
				Kind:      events.KindBetCounterUpdate,
				Timestamp: time.Now(),
				MarketID:  marketID,
				Actor:     bet.Bettor,
				Data: events.BetCounterUpdateData{
					Selection:             sel.ID,
					UnmatchedCount:        sel.UnmatchedCount,
					PartiallyMatchedCount: sel.PartiallyMatchedCount,
					MatchedCount:          sel.MatchedCount,
					WinCount:              sel.WinCount,
					LostCount:             sel.LostCount,
					CanceledCount:         sel.CanceledCount,
				},
			})
			break
		}
	}
	return nil
}

// winPayout computes the WIN-side payout (spec §4.5): for a winning Back
// bet, stake returned plus profit per matched fragment; for a winning Lay
// bet, the forfeited backer stake across matched fragments.
func winPayout(bet *types.Bet) types.Money {
	total := types.ZeroMoney()
	for _, part := range bet.MatchedParts {
		if bet.BetType == types.Back {
			profit := new(big.Int).Mul(part.Amount, big.NewInt(int64(part.Odds)-100))
			profit.Div(profit, big.NewInt(100))
			total.Add(total, new(big.Int).Add(part.Amount, profit))
		} else {
			total.Add(total, part.Amount)
		}
	}
	return total
}

// bumpSettlementCounter moves sel's counters for a bet transitioning into
// Win or Lost, without routing through matching.ApplyStatusTransition
// (that helper also handles Unmatched/PartiallyMatched/Matched/Canceled,
// which settlement never produces).
func bumpSettlementCounter(sel *types.Selection, from, to types.BetStatus) {
	switch from {
	case types.Matched:
		if sel.MatchedCount > 0 {
			sel.MatchedCount--
		}
	case types.PartiallyMatched:
		if sel.PartiallyMatchedCount > 0 {
			sel.PartiallyMatchedCount--
		}
	}
	switch to {
	case types.Win:
		sel.WinCount++
	case types.Lost:
		sel.LostCount++
	}
}
