// Package validation holds the pure range/state predicates invoked at
// every engine entry point (spec §4.6). None of these touch storage
// directly — callers look up the Market/Selection and pass it in — which
// keeps the checks trivially unit-testable and free of side effects.
package validation

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/openalpha/betexchange/internal/config"
	"github.com/openalpha/betexchange/pkg/types"
)

var (
	ErrAmountOutOfRange  = errors.New("validation: amount out of range")
	ErrOddsOutOfRange    = errors.New("validation: odds out of range")
	ErrMarketNotOpen     = errors.New("validation: market is not open")
	ErrSelectionNotFound = errors.New("validation: selection not found in market")
	ErrCloseNotInFuture  = errors.New("validation: close_timestamp must be strictly in the future")
)

// BetAmount checks amount against the configured [stake_min, stake_max]
// bounds (spec §4.6: validate_bet_amount).
func BetAmount(amount *big.Int, limits config.LimitsConfig) error {
	min := big.NewInt(limits.StakeMin)
	max := big.NewInt(limits.StakeMax)
	if amount.Cmp(min) < 0 || amount.Cmp(max) > 0 {
		return fmt.Errorf("%w: %s not in [%d, %d]", ErrAmountOutOfRange, amount, limits.StakeMin, limits.StakeMax)
	}
	return nil
}

// BetOdds checks odds > 100 and odds <= odds_max (spec §4.6: validate_bet_odds).
func BetOdds(odds types.Odds, limits config.LimitsConfig) error {
	if odds <= 100 {
		return fmt.Errorf("%w: odds %d must be > 100", ErrOddsOutOfRange, odds)
	}
	if int64(odds) > limits.OddsMax {
		return fmt.Errorf("%w: odds %d exceeds max %d", ErrOddsOutOfRange, odds, limits.OddsMax)
	}
	return nil
}

// Market checks the market exists (non-nil) and is Open (spec §4.6:
// validate_market). Existence is the caller's job (a storage lookup); a nil
// market is treated as not found.
func Market(m *types.Market) error {
	if m == nil {
		return fmt.Errorf("%w: market not found", ErrMarketNotOpen)
	}
	if m.Status != types.MarketOpen {
		return fmt.Errorf("%w: market status is %v", ErrMarketNotOpen, m.Status)
	}
	return nil
}

// Selection finds selID within m.Selections (spec §4.6: validate_selection),
// returning it so the caller doesn't have to search again.
func Selection(m *types.Market, selID types.SelectionID) (*types.Selection, error) {
	for _, sel := range m.Selections {
		if sel.ID == selID {
			return sel, nil
		}
	}
	return nil, fmt.Errorf("%w: selection %d", ErrSelectionNotFound, selID)
}

// MarketCreation checks closeTimestamp is strictly after now (spec §4.6:
// validate_market_creation).
func MarketCreation(closeTimestamp, now time.Time) error {
	if !closeTimestamp.After(now) {
		return fmt.Errorf("%w: close_timestamp %s is not after %s", ErrCloseNotInFuture, closeTimestamp, now)
	}
	return nil
}
