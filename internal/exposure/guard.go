// Package exposure watches per-selection Back/Lay liquidity imbalance and
// raises alerts for the operator. There is no autonomous trading to kill
// here, so unlike the teacher's risk manager this package never cancels or
// blocks anything on its own authority — it reports, the operator decides.
//
// Grounded on internal/risk/manager.go's report/aggregate/alert loop: a
// goroutine draining a channel of reports, periodic re-checks on a ticker,
// an accessible current-state snapshot for the dashboard.
package exposure

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/openalpha/betexchange/internal/config"
	"github.com/openalpha/betexchange/pkg/types"
)

// Report is submitted by the engine after any operation that changes a
// selection's back/lay liquidity.
type Report struct {
	MarketID      types.MarketID
	Selection     types.SelectionID
	BackLiquidity types.Money
	LayLiquidity  types.Money
	Timestamp     time.Time
}

// Alert signals that one side of a selection's book has grown to exceed
// the configured multiple of the other side.
type Alert struct {
	MarketID      types.MarketID
	Selection     types.SelectionID
	BackLiquidity types.Money
	LayLiquidity  types.Money
	HeavySide     types.BetType
	Timestamp     time.Time
}

// selKey identifies a selection within a market for the guard's internal map.
type selKey struct {
	market    types.MarketID
	selection types.SelectionID
}

// Guard aggregates liquidity reports per selection and raises Alerts when
// the imbalance multiple configured in cfg.Exposure is exceeded.
type Guard struct {
	cfg    config.ExposureConfig
	logger *slog.Logger

	mu    sync.RWMutex
	state map[selKey]Report

	reportCh chan Report
	alertCh  chan Alert
}

// NewGuard creates an exposure guard.
func NewGuard(cfg config.ExposureConfig, logger *slog.Logger) *Guard {
	return &Guard{
		cfg:      cfg,
		logger:   logger.With("component", "exposure"),
		state:    make(map[selKey]Report),
		reportCh: make(chan Report, 256),
		alertCh:  make(chan Alert, 64),
	}
}

// Report submits a liquidity snapshot for a selection (non-blocking; a
// saturated queue drops the report and logs a warning rather than stalling
// the engine's transaction).
func (g *Guard) Report(r Report) {
	select {
	case g.reportCh <- r:
	default:
		g.logger.Warn("exposure report channel full, dropping report",
			"market_id", r.MarketID, "selection", r.Selection)
	}
}

// Alerts returns the channel alerts are published on (buffered; when it is
// full, new alerts are logged and dropped). The engine does not read it and
// alerts are not forwarded to the events Hub.
func (g *Guard) Alerts() <-chan Alert {
	return g.alertCh
}

// Run drains incoming reports and periodically re-checks all known
// selections, until ctx is cancelled.
func (g *Guard) Run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case r := <-g.reportCh:
			g.process(r)
		case <-ticker.C:
			g.recheckAll()
		}
	}
}

func (g *Guard) process(r Report) {
	g.mu.Lock()
	g.state[selKey{r.MarketID, r.Selection}] = r
	g.mu.Unlock()

	g.evaluate(r)
}

func (g *Guard) recheckAll() {
	g.mu.RLock()
	reports := make([]Report, 0, len(g.state))
	for _, r := range g.state {
		reports = append(reports, r)
	}
	g.mu.RUnlock()

	for _, r := range reports {
		g.evaluate(r)
	}
}

// evaluate raises an alert when one side's liquidity is more than
// cfg.ImbalanceMultiple times the other. A zero opposite side with any
// non-zero liquidity on the heavy side always counts as imbalanced.
func (g *Guard) evaluate(r Report) {
	back := moneyOrZero(r.BackLiquidity)
	lay := moneyOrZero(r.LayLiquidity)

	heavy, ok := imbalanced(back, lay, g.cfg.ImbalanceMultiple)
	if !ok {
		return
	}

	alert := Alert{
		MarketID:      r.MarketID,
		Selection:     r.Selection,
		BackLiquidity: back,
		LayLiquidity:  lay,
		HeavySide:     heavy,
		Timestamp:     r.Timestamp,
	}

	g.logger.Warn("exposure imbalance detected",
		"market_id", r.MarketID, "selection", r.Selection,
		"back_liquidity", back, "lay_liquidity", lay, "heavy_side", heavy)

	select {
	case g.alertCh <- alert:
	default:
		g.logger.Warn("exposure alert channel full, dropping alert",
			"market_id", r.MarketID, "selection", r.Selection)
	}
}

// imbalanced reports whether back or lay liquidity exceeds the other by
// more than multiple, and which side is heavy.
func imbalanced(back, lay types.Money, multiple float64) (types.BetType, bool) {
	if back.Sign() == 0 && lay.Sign() == 0 {
		return 0, false
	}
	if lay.Sign() == 0 {
		if back.Sign() > 0 {
			return types.Back, true
		}
		return 0, false
	}
	if back.Sign() == 0 {
		if lay.Sign() > 0 {
			return types.Lay, true
		}
		return 0, false
	}

	threshold := new(big.Float).SetFloat64(multiple)
	backF := new(big.Float).SetInt(back)
	layF := new(big.Float).SetInt(lay)

	backOverLay := new(big.Float).Quo(backF, layF)
	if backOverLay.Cmp(threshold) > 0 {
		return types.Back, true
	}
	layOverBack := new(big.Float).Quo(layF, backF)
	if layOverBack.Cmp(threshold) > 0 {
		return types.Lay, true
	}
	return 0, false
}

func moneyOrZero(m types.Money) types.Money {
	if m == nil {
		return types.ZeroMoney()
	}
	return m
}
