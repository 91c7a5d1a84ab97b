// Package storage holds the full persistent-state shape (spec §6) in
// memory behind one mutex, and snapshots it to disk as a single JSON file
// after every successful operation.
//
// The engine holds Store's lock for the duration of one operation (spec
// §5: single-threaded transactional model — no in-process concurrency
// within an operation). Snapshotting follows the teacher's crash-safe
// write pattern: marshal, write to a .tmp file, then os.Rename over the
// target, so a crash mid-write never corrupts the previous snapshot.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/openalpha/betexchange/pkg/types"
)

// State is the exact map shape spec §6 requires.
type State struct {
	BetsByID               map[uint64]*types.Bet                `json:"bets_by_id"`
	BetNonceToID           map[uint64]uint64                    `json:"bet_nonce_to_id"`
	Markets                map[types.MarketID]*types.Market      `json:"markets"`
	MarketsByEventAndSport map[string][]types.MarketID           `json:"markets_by_event_and_sport"`
	MarketBetIDs           map[types.MarketID]map[uint64]struct{} `json:"market_bet_ids"`
	LockedFunds            map[types.Address]types.Money         `json:"locked_funds"`
	EventResults           map[types.MarketID]*types.EventResult `json:"event_results"`
}

// NewState returns a State with every map initialized (never nil), so
// callers can index into it without a presence check.
func NewState() *State {
	return &State{
		BetsByID:               make(map[uint64]*types.Bet),
		BetNonceToID:           make(map[uint64]uint64),
		Markets:                make(map[types.MarketID]*types.Market),
		MarketsByEventAndSport: make(map[string][]types.MarketID),
		MarketBetIDs:           make(map[types.MarketID]map[uint64]struct{}),
		LockedFunds:            make(map[types.Address]types.Money),
		EventResults:           make(map[types.MarketID]*types.EventResult),
	}
}

// EventSportKey is the markets_by_event_and_sport lookup key for
// (sport, event_id).
func EventSportKey(sport types.Sport, eventID uint64) string {
	return fmt.Sprintf("%d:%d", sport, eventID)
}

// Store owns State and its on-disk snapshot.
type Store struct {
	mu    sync.Mutex
	path  string
	State *State
}

// Open creates dir if needed and restores the last snapshot found there,
// or starts from an empty State if none exists.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &Store{
		path:  filepath.Join(dir, "state.json"),
		State: NewState(),
	}
	if err := s.restore(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// Lock and Unlock bound the single transaction the engine runs per
// operation. The engine calls Lock at the start of placeBet/cancelBet/
// closeMarkets/processBatchBets and Unlock (via defer) once it has
// snapshotted the result.
func (s *Store) Lock() {
	s.mu.Lock()
}

func (s *Store) Unlock() {
	s.mu.Unlock()
}

// Snapshot atomically persists the current State. Callers hold Store's
// lock across the whole operation, so Snapshot always sees a consistent
// view — there is no separate internal lock here.
func (s *Store) Snapshot() error {
	data, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) restore() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state: %w", err)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return fmt.Errorf("unmarshal state: %w", err)
	}
	s.State = state
	return nil
}
