// Package resultfeed polls an external fixtures/results API for match
// scores and close-timestamp updates, and derives the winning selection
// for a settled market from its MarketType and final score (spec.md §4.5).
// It never calls engine operations itself — the operator (or an operator
// automation layer) still issues CloseMarkets/SetMarketResult explicitly;
// this package only supplies the data feeding that decision.
//
// Grounded on internal/market/scanner.go's polling-loop shape: a resty
// client on a ticker, pushing parsed results onto the Results() channel.
// The engine runs the Poller but does not read that channel.
package resultfeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/openalpha/betexchange/internal/config"
	"github.com/openalpha/betexchange/internal/ledger"
	"github.com/openalpha/betexchange/pkg/types"
)

// Score is a final or in-progress score for one fixture.
type Score struct {
	EventID      uint64
	MarketType   types.MarketType
	ScoreHome    int
	ScoreAway    int
	CloseTime    time.Time
	FinalWhistle bool
}

// WinningSelection derives the winning selection ordinal from a score, per
// spec.md §4.5's per-MarketType rules. Selection ordinals follow
// types.DeriveSelectionID's 1-based convention (sel 1, 2, 3).
func WinningSelection(mt types.MarketType, scoreHome, scoreAway int) uint64 {
	switch mt {
	case types.FullTimeResult:
		switch {
		case scoreHome > scoreAway:
			return 1 // Home
		case scoreAway > scoreHome:
			return 2 // Away
		default:
			return 3 // Draw
		}
	case types.TotalGoals:
		if scoreHome+scoreAway > 2 {
			return 1 // Over
		}
		return 2 // Under
	case types.BothTeamsToScore:
		if scoreHome > 0 && scoreAway > 0 {
			return 1 // Yes
		}
		return 2 // No
	case types.Winner:
		if scoreHome > scoreAway {
			return 1
		}
		return 2
	default:
		return 0
	}
}

type fixtureResponse struct {
	Fixtures []struct {
		EventID    uint64 `json:"event_id"`
		MarketType int    `json:"market_type_id"`
		ScoreHome  int    `json:"score_home"`
		ScoreAway  int    `json:"score_away"`
		CloseTime  int64  `json:"close_timestamp"`
		Final      bool   `json:"final"`
	} `json:"fixtures"`
}

// Poller periodically fetches fixture scores and close-timestamp updates
// and publishes them on Results().
type Poller struct {
	http     *resty.Client
	rl       *ledger.TokenBucket
	interval time.Duration
	logger   *slog.Logger
	resultCh chan []Score
}

// NewPoller builds a Poller against cfg.BaseURL, polling every
// cfg.PollInterval.
func NewPoller(cfg config.ResultFeedConfig, logger *slog.Logger) *Poller {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Poller{
		http:     client,
		rl:       ledger.NewTokenBucket(30, 5),
		interval: cfg.PollInterval,
		logger:   logger.With("component", "resultfeed"),
		resultCh: make(chan []Score, 1),
	}
}

// Results returns the channel fixture updates are published on; only the
// latest unread batch is kept.
func (p *Poller) Results() <-chan []Score {
	return p.resultCh
}

// Run blocks, polling on Poller's interval, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	scores, err := p.fetch(ctx)
	if err != nil {
		p.logger.Error("resultfeed poll failed", "error", err)
		return
	}
	if len(scores) == 0 {
		return
	}

	select {
	case p.resultCh <- scores:
	default:
		select {
		case <-p.resultCh:
		default:
		}
		p.resultCh <- scores
	}
}

func (p *Poller) fetch(ctx context.Context) ([]Score, error) {
	if err := p.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var body fixtureResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/fixtures")
	if err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch fixtures: status %d: %s", resp.StatusCode(), resp.String())
	}

	scores := make([]Score, 0, len(body.Fixtures))
	for _, f := range body.Fixtures {
		scores = append(scores, Score{
			EventID:      f.EventID,
			MarketType:   types.MarketType(f.MarketType),
			ScoreHome:    f.ScoreHome,
			ScoreAway:    f.ScoreAway,
			CloseTime:    time.Unix(f.CloseTime, 0),
			FinalWhistle: f.Final,
		})
	}
	return scores, nil
}
