// Package engine is the central orchestrator of the betting exchange: it
// owns storage, the receipt-token collaborator, the exposure guard and
// result feed, and implements the four externally-triggered operations
// (spec.md §5) as single atomic transactions against storage.Store.
//
// Lifecycle mirrors the teacher's engine: New() wires every component,
// Start() launches the background goroutines (exposure guard, result
// feed, dashboard), Stop() tears them down and closes storage. No snapshot
// is written on Stop; every successful operation has already written one.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openalpha/betexchange/internal/config"
	"github.com/openalpha/betexchange/internal/events"
	"github.com/openalpha/betexchange/internal/exposure"
	"github.com/openalpha/betexchange/internal/ledger"
	"github.com/openalpha/betexchange/internal/resultfeed"
	"github.com/openalpha/betexchange/internal/storage"
	"github.com/openalpha/betexchange/pkg/types"
)

// Engine orchestrates every component of the exchange and owns the single
// "transaction per operation" lock (storage.Store.Lock/Unlock).
type Engine struct {
	cfg    config.Config
	store  *storage.Store
	issuer ledger.ReceiptIssuer
	guard  *exposure.Guard
	feed   *resultfeed.Poller
	dash   *events.Server
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	placementNonce uint64 // atomically incremented per PlaceBet call, fed into DeriveBetID
}

// New wires all engine components. If cfg.Ledger.BaseURL is empty, the
// engine falls back to an in-memory receipt issuer.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	st, err := storage.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	var issuer ledger.ReceiptIssuer
	if cfg.Ledger.BaseURL != "" {
		issuer = ledger.NewHTTPReceiptIssuer(cfg.Ledger, logger)
	} else {
		issuer = ledger.NewInMemoryReceiptIssuer()
	}

	guard := exposure.NewGuard(cfg.Exposure, logger)

	var feed *resultfeed.Poller
	if cfg.ResultFeed.BaseURL != "" {
		feed = resultfeed.NewPoller(cfg.ResultFeed, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:    cfg,
		store:  st,
		issuer: issuer,
		guard:  guard,
		feed:   feed,
		logger: logger.With("component", "engine"),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Dashboard.Enabled {
		e.dash = events.NewServer(cfg.Dashboard, e, logger)
	}

	return e, nil
}

// Start launches background goroutines: the exposure guard, the result
// feed poller (if configured), and the dashboard server (if enabled).
func (e *Engine) Start() error {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.guard.Run(e.ctx)
	}()

	if e.feed != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.feed.Run(e.ctx)
		}()
	}

	if e.dash != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.dash.Start(); err != nil {
				e.logger.Error("dashboard server error", "error", err)
			}
		}()
	}

	return nil
}

// Stop cancels all background goroutines, stops the dashboard, and waits
// for everything to drain.
func (e *Engine) Stop() {
	e.logger.Info("shutting down")
	e.cancel()

	if e.dash != nil {
		if err := e.dash.Stop(); err != nil {
			e.logger.Error("dashboard stop error", "error", err)
		}
	}

	e.wg.Wait()
	if err := e.store.Close(); err != nil {
		e.logger.Error("store close error", "error", err)
	}
}

// MarketSnapshots implements events.Provider: a read-only view of every
// market currently in storage, for the dashboard.
func (e *Engine) MarketSnapshots() []events.MarketSnapshot {
	e.store.Lock()
	defer e.store.Unlock()

	snaps := make([]events.MarketSnapshot, 0, len(e.store.State.Markets))
	for _, m := range e.store.State.Markets {
		snaps = append(snaps, events.BuildMarketSnapshot(m))
	}
	return snaps
}

// emit forwards evt to the dashboard if one is configured; a no-op
// otherwise (tests and headless deployments never need a dashboard).
func (e *Engine) emit(evt events.Event) {
	if e.dash != nil {
		e.dash.Emit(evt)
	}
}

// reportExposure submits sel's current liquidity to the guard for
// imbalance monitoring. Called after every operation that can move
// back/lay liquidity (placement, cancellation, settlement).
func (e *Engine) reportExposure(marketID types.MarketID, sel *types.Selection) {
	e.guard.Report(exposure.Report{
		MarketID:      marketID,
		Selection:     sel.ID,
		BackLiquidity: sel.BackLiquidity,
		LayLiquidity:  sel.LayLiquidity,
	})
}
