package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/openalpha/betexchange/internal/events"
	"github.com/openalpha/betexchange/internal/storage"
	"github.com/openalpha/betexchange/internal/validation"
	"github.com/openalpha/betexchange/pkg/types"
)

var (
	// ErrNotOperator is returned when a caller without the configured
	// operator address attempts an operator-only operation.
	ErrNotOperator = errors.New("engine: caller is not the operator")
	// ErrMarketAlreadyExists is returned by CreateMarkets when the
	// derived market id is already present.
	ErrMarketAlreadyExists = errors.New("engine: market already exists")
)

// selectionsFor returns the ordinal -> SelectionType layout for a
// MarketType, per spec.md §3 (Football carries FullTimeResult, TotalGoals
// and BothTeamsToScore; every other sport offers only Winner).
func selectionsFor(mt types.MarketType) []types.SelectionType {
	switch mt {
	case types.FullTimeResult:
		return []types.SelectionType{types.SelHome, types.SelAway, types.SelDraw}
	case types.TotalGoals:
		return []types.SelectionType{types.SelOver, types.SelUnder}
	case types.BothTeamsToScore:
		return []types.SelectionType{types.SelYes, types.SelNo}
	case types.Winner:
		return []types.SelectionType{types.SelHome, types.SelAway}
	default:
		return nil
	}
}

// CreateMarkets opens one market per MarketType available for sport
// (Football: FullTimeResult, TotalGoals, BothTeamsToScore; other sports:
// Winner only), all sharing eventID
// and closeTimestamp. Operator only.
func (e *Engine) CreateMarkets(caller types.Address, sport types.Sport, eventID uint64, closeTimestamp time.Time) ([]types.MarketID, error) {
	if !e.isOperator(caller) {
		return nil, ErrNotOperator
	}
	if err := validation.MarketCreation(closeTimestamp, time.Now()); err != nil {
		return nil, err
	}

	marketTypes := []types.MarketType{types.Winner}
	if sport == types.Football {
		marketTypes = []types.MarketType{types.FullTimeResult, types.TotalGoals, types.BothTeamsToScore}
	}

	e.store.Lock()
	defer e.store.Unlock()

	ids := make([]types.MarketID, 0, len(marketTypes))
	for _, mt := range marketTypes {
		marketID := types.DeriveMarketID(sport, eventID, mt)
		if _, exists := e.store.State.Markets[marketID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrMarketAlreadyExists, marketID)
		}

		selTypes := selectionsFor(mt)
		selections := make([]*types.Selection, 0, len(selTypes))
		selIDs := make([]types.SelectionID, 0, len(selTypes))
		for ordinal, st := range selTypes {
			selID := types.DeriveSelectionID(marketID, uint64(ordinal+1))
			selections = append(selections, &types.Selection{
				ID:                 selID,
				Type:               st,
				BackLiquidity:      types.ZeroMoney(),
				LayLiquidity:       types.ZeroMoney(),
				TotalMatchedAmount: types.ZeroMoney(),
			})
			selIDs = append(selIDs, selID)
		}

		market := &types.Market{
			ID:                 marketID,
			Sport:              sport,
			EventID:            eventID,
			Type:               mt,
			Selections:         selections,
			CloseTimestamp:     closeTimestamp,
			Status:             types.MarketOpen,
			TotalMatchedAmount: types.ZeroMoney(),
			CreatedAt:          time.Now(),
		}

		e.store.State.Markets[marketID] = market
		e.store.State.MarketBetIDs[marketID] = make(map[uint64]struct{})
		key := storage.EventSportKey(sport, eventID)
		e.store.State.MarketsByEventAndSport[key] = append(e.store.State.MarketsByEventAndSport[key], marketID)

		ids = append(ids, marketID)

		e.emit(events.Event{
			Kind:      events.KindCreateMarket,
			Timestamp: time.Now(),
			MarketID:  marketID,
			Actor:     caller,
			Data: events.CreateMarketData{
				Sport:          sport,
				EventID:        eventID,
				Type:           mt,
				CloseTimestamp: closeTimestamp,
				SelectionIDs:   selIDs,
			},
		})
	}

	if err := e.store.Snapshot(); err != nil {
		return nil, fmt.Errorf("snapshot after create markets: %w", err)
	}

	return ids, nil
}

func (e *Engine) isOperator(caller types.Address) bool {
	return caller.Hex() == e.cfg.Operator.Address
}
