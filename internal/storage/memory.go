package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// In-memory stores back tests and single-process runs without a database.

type InMemoryTransactionStore struct {
	mu  sync.RWMutex
	txs map[string]Transaction
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{txs: make(map[string]Transaction)}
}

func (s *InMemoryTransactionStore) Create(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.Hash]; ok {
		return ErrConflict
	}
	s.txs[tx.Hash] = *tx
	return nil
}

func (s *InMemoryTransactionStore) FindByHash(_ context.Context, hash string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tx, ok := s.txs[hash]; ok {
		return &tx, nil
	}
	return nil, ErrNotFound
}

// ListByStatus returns matches oldest first.
func (s *InMemoryTransactionStore) ListByStatus(_ context.Context, status TxStatus) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Transaction, 0)
	for _, tx := range s.txs {
		if tx.Status == status {
			out = append(out, &tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryTransactionStore) UpdateStatus(_ context.Context, hash string, status TxStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[hash]
	if !ok {
		return ErrNotFound
	}
	tx.Status = status
	tx.UpdatedAt = at
	s.txs[hash] = tx
	return nil
}

type InMemoryRiskScoreStore struct {
	mu     sync.RWMutex
	scores map[string]RiskScore
}

func NewInMemoryRiskScoreStore() *InMemoryRiskScoreStore {
	return &InMemoryRiskScoreStore{scores: make(map[string]RiskScore)}
}

func (s *InMemoryRiskScoreStore) Upsert(_ context.Context, score RiskScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.CountryCode] = score
	return nil
}

func (s *InMemoryRiskScoreStore) Find(_ context.Context, countryCode string) (RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if score, ok := s.scores[countryCode]; ok {
		return score, nil
	}
	return RiskScore{}, ErrNotFound
}

// List returns scores ordered by country code.
func (s *InMemoryRiskScoreStore) List(_ context.Context) ([]RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RiskScore, 0, len(s.scores))
	for _, score := range s.scores {
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CountryCode < out[j].CountryCode
	})
	return out, nil
}

type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []GeoEvent
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) Append(_ context.Context, event GeoEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByCountry returns the newest events first. limit <= 0 means no limit.
func (s *InMemoryEventStore) ListByCountry(_ context.Context, country string, limit int) ([]GeoEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GeoEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Country != country {
			continue
		}
		out = append(out, s.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
