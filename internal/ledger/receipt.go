// Package ledger is the receipt-token collaborator: the engine tells it "a
// receipt token with nonce N represents bet B" and never depends on how
// that receipt is actually represented (spec §1, §6). It also derives the
// content-addressed bet id (hash.go).
//
// Two implementations satisfy ReceiptIssuer:
//   - HTTPReceiptIssuer talks to an external NFT/receipt-token service over
//     REST, rate-limited and retried the way the teacher's CLOB client is.
//   - InMemoryReceiptIssuer is a nonce counter + map, used when no service
//     URL is configured and by engine tests.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/openalpha/betexchange/internal/config"
	"github.com/openalpha/betexchange/pkg/types"
)

// ReceiptAttributes is the mint-time projection of a Bet: the fields the
// receipt-token service needs to represent the wager, without the
// internal-only bookkeeping (matched_parts, payment routing) a Bet also
// carries. Mirrors the original source's BetAttributes split.
type ReceiptAttributes struct {
	MarketID        types.MarketID
	Selection       types.SelectionID
	Stake           types.Money
	PotentialProfit types.Money
	Odds            types.Odds
	BetType         types.BetType
	Status          types.BetStatus
}

// ReceiptIssuer is the required external surface (spec §6): mint a receipt
// bound to bet attributes, burn it on full cancellation, transfer it to a
// new owner, and update its attributes as the underlying bet's status
// changes. The engine supplies attributes at mint time and never inspects
// how receipts are represented downstream.
type ReceiptIssuer interface {
	Mint(ctx context.Context, attrs ReceiptAttributes) (nonce uint64, err error)
	Burn(ctx context.Context, nonce uint64) error
	Transfer(ctx context.Context, to types.Address, nonce uint64) error
	UpdateAttributes(ctx context.Context, nonce uint64, attrs ReceiptAttributes) error
	TokenID() string
}

// ————————————————————————————————————————————————————————————————————————
// In-memory implementation
// ————————————————————————————————————————————————————————————————————————

// InMemoryReceiptIssuer is a safe default when no receipt-token service is
// configured: a monotonic nonce counter plus a map of live receipts.
type InMemoryReceiptIssuer struct {
	mu        sync.Mutex
	nextNonce uint64
	live      map[uint64]ReceiptAttributes
}

// NewInMemoryReceiptIssuer returns an InMemoryReceiptIssuer ready to mint.
func NewInMemoryReceiptIssuer() *InMemoryReceiptIssuer {
	return &InMemoryReceiptIssuer{live: make(map[uint64]ReceiptAttributes)}
}

func (m *InMemoryReceiptIssuer) Mint(_ context.Context, attrs ReceiptAttributes) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNonce++
	m.live[m.nextNonce] = attrs
	return m.nextNonce, nil
}

func (m *InMemoryReceiptIssuer) Burn(_ context.Context, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[nonce]; !ok {
		return fmt.Errorf("ledger: nonce %d not live", nonce)
	}
	delete(m.live, nonce)
	return nil
}

func (m *InMemoryReceiptIssuer) Transfer(_ context.Context, _ types.Address, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[nonce]; !ok {
		return fmt.Errorf("ledger: nonce %d not live", nonce)
	}
	return nil
}

func (m *InMemoryReceiptIssuer) UpdateAttributes(_ context.Context, nonce uint64, attrs ReceiptAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[nonce]; !ok {
		return fmt.Errorf("ledger: nonce %d not live", nonce)
	}
	m.live[nonce] = attrs
	return nil
}

func (m *InMemoryReceiptIssuer) TokenID() string {
	return "in-memory-receipt"
}

// ————————————————————————————————————————————————————————————————————————
// HTTP-backed implementation
// ————————————————————————————————————————————————————————————————————————

// HTTPReceiptIssuer talks to an external receipt-token service over REST.
type HTTPReceiptIssuer struct {
	http    *resty.Client
	rl      *TokenBucket
	tokenID string
	logger  *slog.Logger
}

// NewHTTPReceiptIssuer builds a rate-limited, retried client against
// cfg.Ledger.BaseURL, matching the teacher's CLOB client construction
// (10s timeout, 3 retries with backoff on 5xx/network errors).
func NewHTTPReceiptIssuer(cfg config.LedgerConfig, logger *slog.Logger) *HTTPReceiptIssuer {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", cfg.ApiKey)

	return &HTTPReceiptIssuer{
		http:    httpClient,
		rl:      NewTokenBucket(100, 20),
		tokenID: cfg.TokenID,
		logger:  logger.With("component", "ledger"),
	}
}

type mintRequest struct {
	Attributes ReceiptAttributes `json:"attributes"`
}

type mintResponse struct {
	Nonce uint64 `json:"nonce"`
}

func (h *HTTPReceiptIssuer) Mint(ctx context.Context, attrs ReceiptAttributes) (uint64, error) {
	if err := h.rl.Wait(ctx); err != nil {
		return 0, err
	}

	var result mintResponse
	resp, err := h.http.R().
		SetContext(ctx).
		SetBody(mintRequest{Attributes: attrs}).
		SetResult(&result).
		Post("/receipts")
	if err != nil {
		return 0, fmt.Errorf("mint receipt: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return 0, fmt.Errorf("mint receipt: status %d: %s", resp.StatusCode(), resp.String())
	}

	h.logger.Info("receipt minted", "nonce", result.Nonce, "market_id", attrs.MarketID)
	return result.Nonce, nil
}

func (h *HTTPReceiptIssuer) Burn(ctx context.Context, nonce uint64) error {
	if err := h.rl.Wait(ctx); err != nil {
		return err
	}

	resp, err := h.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/receipts/%d", nonce))
	if err != nil {
		return fmt.Errorf("burn receipt: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("burn receipt: status %d: %s", resp.StatusCode(), resp.String())
	}
	h.logger.Info("receipt burned", "nonce", nonce)
	return nil
}

func (h *HTTPReceiptIssuer) Transfer(ctx context.Context, to types.Address, nonce uint64) error {
	if err := h.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(struct {
		To string `json:"to"`
	}{To: to.Hex()})
	if err != nil {
		return fmt.Errorf("marshal transfer: %w", err)
	}

	resp, err := h.http.R().
		SetContext(ctx).
		SetBody(json.RawMessage(body)).
		Post(fmt.Sprintf("/receipts/%d/transfer", nonce))
	if err != nil {
		return fmt.Errorf("transfer receipt: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("transfer receipt: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (h *HTTPReceiptIssuer) UpdateAttributes(ctx context.Context, nonce uint64, attrs ReceiptAttributes) error {
	if err := h.rl.Wait(ctx); err != nil {
		return err
	}

	resp, err := h.http.R().
		SetContext(ctx).
		SetBody(mintRequest{Attributes: attrs}).
		Patch(fmt.Sprintf("/receipts/%d", nonce))
	if err != nil {
		return fmt.Errorf("update receipt attributes: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("update receipt attributes: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (h *HTTPReceiptIssuer) TokenID() string {
	return h.tokenID
}
